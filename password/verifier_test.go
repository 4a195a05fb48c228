package password

import (
	"errors"
	"strings"
	"testing"
)

func TestVerifierDispatchesArgon2(t *testing.T) {
	hasher, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	hash, err := hasher.Hash("universal-secret-1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	v, err := NewVerifier(secureConfig())
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	ok, err := v.Verify("universal-secret-1", hash)
	if err != nil || !ok {
		t.Fatalf("expected argon2 match, ok=%v err=%v", ok, err)
	}
	ok, err = v.Verify("universal-secret-2", hash)
	if err != nil || ok {
		t.Fatalf("expected argon2 mismatch, ok=%v err=%v", ok, err)
	}
}

func TestVerifierDispatchesBcrypt(t *testing.T) {
	b, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	hash, err := b.Hash("universal-secret-1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	v, err := NewVerifier(secureConfig())
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	ok, err := v.Verify("universal-secret-1", hash)
	if err != nil || !ok {
		t.Fatalf("expected bcrypt match, ok=%v err=%v", ok, err)
	}
	ok, err = v.Verify("nope-nope-nope", hash)
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}
}

func TestVerifierRejectsUnknownScheme(t *testing.T) {
	v, err := NewVerifier(secureConfig())
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	if _, err := v.Verify("secret", "$md5$abc"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
	if SupportedHash("plain") {
		t.Fatal("plain text must not be a supported hash")
	}
}

func TestBcryptRejectsLongInput(t *testing.T) {
	b, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := b.Verify(strings.Repeat("x", 73), "$2a$04$abc"); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestScheme(t *testing.T) {
	cases := []struct {
		hash string
		want string
	}{
		{"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", "argon2id"},
		{"$2a$04$abc", "bcrypt"},
		{"$2b$10$abc", "bcrypt"},
		{"$2y$10$abc", "bcrypt"},
		{"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Scheme(tc.hash); got != tc.want {
			t.Fatalf("Scheme(%q) = %q, want %q", tc.hash, got, tc.want)
		}
	}
}
