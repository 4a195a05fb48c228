package password

import (
	"errors"
	"strings"
)

var (
	// ErrPasswordTooLong is returned before hashing when the input exceeds the configured cap.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedHash is returned when an encoded hash matches no known scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash format")
	// ErrMalformedHash wraps every argon2id PHC parse failure.
	ErrMalformedHash = errors.New("malformed argon2id hash")
	// ErrSecretTooShort is returned by Hash for inputs under 10 bytes.
	ErrSecretTooShort = errors.New("secret must be at least 10 bytes")
)

// SecretVerifier checks a raw secret against an encoded hash in constant time.
type SecretVerifier interface {
	Verify(raw string, encodedHash string) (bool, error)
}

// Verifier dispatches to argon2id or bcrypt based on the encoded hash prefix.
type Verifier struct {
	argon2 *Argon2
	bcrypt *Bcrypt
}

// NewVerifier returns a Verifier; it fails only when cfg has invalid argon2
// parameters.
func NewVerifier(cfg Config) (*Verifier, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Verifier{argon2: a, bcrypt: b}, nil
}

func (v *Verifier) Verify(raw string, encodedHash string) (bool, error) {
	switch Scheme(encodedHash) {
	case algorithmID:
		return v.argon2.Verify(raw, encodedHash)
	case "bcrypt":
		return v.bcrypt.Verify(raw, encodedHash)
	}
	return false, ErrUnsupportedHash
}

// SupportedHash reports whether encodedHash uses a scheme Verify understands.
func SupportedHash(encodedHash string) bool {
	return Scheme(encodedHash) != ""
}

// Scheme names the hash scheme of encodedHash: "argon2id", "bcrypt", or ""
// when unsupported.
func Scheme(encodedHash string) string {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return algorithmID
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return "bcrypt"
	}
	return ""
}
