package internal

import (
	"testing"
)

// FuzzDecodeRefreshToken exercises refresh token decoding with arbitrary strings.
// Goal: no panics; invalid inputs should return errors cleanly.
func FuzzDecodeRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	if secret, err := NewRefreshSecret(); err == nil {
		f.Add(secret.Encode())
	}

	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		secret, err := DecodeRefreshToken(input)
		if err != nil {
			return
		}

		again, err := DecodeRefreshToken(secret.Encode())
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if again != secret {
			t.Error("roundtrip secret mismatch")
		}
		if again.Hash() != secret.Hash() {
			t.Error("roundtrip hash mismatch")
		}
	})
}
