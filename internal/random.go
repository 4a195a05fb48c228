package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

type SessionID [16]byte

const refreshSecretSize = 32

// RefreshSecret is the raw refresh credential handed to clients exactly once.
type RefreshSecret [refreshSecretSize]byte

var ErrMalformedRefreshToken = errors.New("malformed refresh token")

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

func (s RefreshSecret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

func (s RefreshSecret) Encode() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func DecodeRefreshToken(token string) (RefreshSecret, error) {
	var secret RefreshSecret

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshSecretSize {
		return secret, ErrMalformedRefreshToken
	}

	copy(secret[:], raw)
	return secret, nil
}

// ScrambleHash returns a digest no issued secret can produce.
func ScrambleHash() ([32]byte, error) {
	var noise [64]byte
	if _, err := rand.Read(noise[:]); err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(noise[:]), nil
}
