package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:  15 * time.Minute,
		SigningKey: testKey,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortKey(t *testing.T) {
	_, err := NewManager(Config{AccessTTL: time.Minute, SigningKey: []byte("too-short")})
	if !errors.Is(err, ErrKeyTooShort) {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}
}

func TestNewManagerRejectsLargeLeeway(t *testing.T) {
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningKey: testKey, Leeway: 3 * time.Minute}); err == nil {
		t.Fatal("expected leeway above two minutes to be rejected")
	}
}

func TestCreateParseRoundTrip(t *testing.T) {
	issuedAt := time.Now()
	clock := &fakeClock{now: issuedAt}
	m := newTestManager(t, clock)

	token, err := m.CreateAccess("sid-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.SID != "sid-1" {
		t.Fatalf("expected sid-1, got %q", claims.SID)
	}
	if claims.Subject != DefaultSubject {
		t.Fatalf("expected placeholder subject, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
	if claims.IssuedAt == nil {
		t.Fatal("expected iat to be set")
	}
	if skew := claims.IssuedAt.Time.Sub(issuedAt); skew > DefaultLeeway || skew < -DefaultLeeway {
		t.Fatalf("iat outside skew tolerance: %v", skew)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})

	a, _ := m.CreateAccess("sid")
	b, _ := m.CreateAccess("sid")
	ca, err := m.ParseAccess(a)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	cb, err := m.ParseAccess(b)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if ca.ID == cb.ID {
		t.Fatal("expected distinct jti values")
	}
}

func TestParseAccessHonorsLeeway(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	token, err := m.CreateAccess("sid")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	clock.now = clock.now.Add(15*time.Minute + 20*time.Second)
	if _, err := m.ParseAccess(token); err != nil {
		t.Fatalf("expected token inside leeway to parse: %v", err)
	}

	clock.now = clock.now.Add(time.Minute)
	if _, err := m.ParseAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be ErrInvalidToken, got %v", err)
	}
}

func TestParseAccessRejectsWrongKeyAndAlgorithm(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})

	claims := AccessClaims{
		SID: "s1",
		RegisteredClaims: gjwt.RegisteredClaims{
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}

	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("another-key-another-key-another-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccess(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected forged token rejection, got %v", err)
	}

	other, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign hs384: %v", err)
	}
	if _, err := m.ParseAccess(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS384 token rejection, got %v", err)
	}

	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.ParseAccess(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none rejection, got %v", err)
	}
}

func TestParseAccessRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Now()})
	token, err := m.CreateAccess("sid")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "AA"
	if _, err := m.ParseAccess(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token rejection, got %v", err)
	}
}
