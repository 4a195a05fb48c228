package internal

import (
	"strings"
	"testing"
)

func TestSessionIDEncoding(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}

	other, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}
	if sid == other {
		t.Fatal("expected distinct session ids")
	}
	if got := sid.String(); len(got) != 22 || strings.ContainsAny(got, "+/=") {
		t.Fatalf("expected 22 unpadded base64url chars, got %q", got)
	}
}

func TestRefreshSecretsAreUniqueAndHashStable(t *testing.T) {
	a, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	b, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct refresh secrets")
	}
	if a.Hash() == b.Hash() {
		t.Fatal("expected distinct refresh digests")
	}

	decoded, err := DecodeRefreshToken(a.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Hash() != a.Hash() {
		t.Fatal("digest changed across encode/decode")
	}
}

func TestDecodeRefreshTokenRejectsWrongLength(t *testing.T) {
	if _, err := DecodeRefreshToken("aGVsbG8"); err != ErrMalformedRefreshToken {
		t.Fatalf("expected ErrMalformedRefreshToken, got %v", err)
	}
}

func TestScrambleHashIsRandom(t *testing.T) {
	a, err := ScrambleHash()
	if err != nil {
		t.Fatalf("scramble: %v", err)
	}
	b, err := ScrambleHash()
	if err != nil {
		t.Fatalf("scramble: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct scrambled digests")
	}
}
