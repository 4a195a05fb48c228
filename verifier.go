package gateAuth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"
)

const (
	// ProviderLocal names principals produced by the Engine's access-token verifier.
	ProviderLocal = "local"
	// ProviderStatic names principals produced by [StaticTokenVerifier].
	ProviderStatic = "static"
)

// TokenVerifier turns a bearer token into a [Principal]. Implementations
// return an error wrapping an authentication sentinel when they reject it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// VerifierFunc adapts a function to [TokenVerifier].
type VerifierFunc func(ctx context.Context, token string) (*Principal, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

// Chain runs verifiers in order and returns the first principal produced.
type Chain struct {
	verifiers []TokenVerifier
}

// NewChain builds a [Chain]; nil entries are skipped.
func NewChain(verifiers ...TokenVerifier) *Chain {
	c := &Chain{verifiers: make([]TokenVerifier, 0, len(verifiers))}
	for _, v := range verifiers {
		if v != nil {
			c.verifiers = append(c.verifiers, v)
		}
	}
	return c
}

// Len reports how many verifiers the chain holds.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.verifiers)
}

// Verify tries each verifier in order. Errors from verifiers that ran before a
// success are discarded. When all reject, the result wraps [ErrUnauthorized]
// and the last verifier's error.
func (c *Chain) Verify(ctx context.Context, token string) (*Principal, error) {
	if c == nil || len(c.verifiers) == 0 {
		return nil, ErrUnauthorized
	}

	var lastErr error
	for _, v := range c.verifiers {
		p, err := v.Verify(ctx, token)
		if err == nil && p != nil {
			return p, nil
		}
		if err == nil {
			err = ErrTokenInvalid
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrUnauthorized, lastErr)
}

// StaticToken is one configured service credential.
type StaticToken struct {
	Token   string
	Subject string
	Email   string
}

type staticEntry struct {
	digest  [32]byte
	subject string
	email   string
}

// StaticTokenVerifier accepts a fixed set of service tokens. Only their
// digests are held; every configured digest is compared on each call.
type StaticTokenVerifier struct {
	entries []staticEntry
}

// NewStaticTokenVerifier builds a verifier from tokens. Empty tokens are
// rejected and duplicate tokens are an error.
func NewStaticTokenVerifier(tokens []StaticToken) (*StaticTokenVerifier, error) {
	v := &StaticTokenVerifier{entries: make([]staticEntry, 0, len(tokens))}
	seen := make(map[[32]byte]struct{}, len(tokens))
	for i, t := range tokens {
		if strings.TrimSpace(t.Token) == "" {
			return nil, configError("static token %d is empty", i)
		}
		if t.Subject == "" {
			return nil, configError("static token %d has no subject", i)
		}
		d := sha256.Sum256([]byte(t.Token))
		if _, dup := seen[d]; dup {
			return nil, configError("static token %d is a duplicate", i)
		}
		seen[d] = struct{}{}
		v.entries = append(v.entries, staticEntry{digest: d, subject: t.Subject, email: t.Email})
	}
	return v, nil
}

// ParseStaticTokens reads "subject:token" pairs separated by commas.
func ParseStaticTokens(spec string) ([]StaticToken, error) {
	var out []StaticToken
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		subject, token, ok := strings.Cut(part, ":")
		if !ok || subject == "" || token == "" {
			return nil, configError("static token entry must be subject:token")
		}
		out = append(out, StaticToken{Subject: subject, Token: token})
	}
	return out, nil
}

func (v *StaticTokenVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	if v == nil || token == "" {
		return nil, ErrTokenInvalid
	}

	d := sha256.Sum256([]byte(token))
	match := -1
	for i := range v.entries {
		if subtle.ConstantTimeCompare(v.entries[i].digest[:], d[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return nil, ErrTokenInvalid
	}

	e := v.entries[match]
	return &Principal{
		Provider: ProviderStatic,
		Subject:  e.subject,
		Email:    e.email,
	}, nil
}
