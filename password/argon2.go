package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 10
	algorithmID           = "argon2id"

	// DefaultMaxPasswordBytes caps secret length before any hashing work is done.
	DefaultMaxPasswordBytes = 1024
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

// DefaultConfig returns the argon2id parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies argon2id PHC strings. It is safe for concurrent
// use.
type Argon2 struct {
	config Config
}

// phc is a decoded $argon2id$ string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

// NewArgon2 validates cfg against the minimum costs. A zero MaxPasswordBytes
// selects [DefaultMaxPasswordBytes].
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh-salted PHC string for secret. Bytes are used as given,
// without Unicode normalization.
func (a *Argon2) Hash(secret string) (string, error) {
	if len(secret) < minPassBytes {
		return "", ErrSecretTooShort
	}
	if len(secret) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	return phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
		key:         argon2.IDKey([]byte(secret), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength),
	}.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time. A mismatch is (false, nil).
func (a *Argon2) Verify(secret string, encodedHash string) (bool, error) {
	if len(secret) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker costs or a
// different key length than a's configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism
	return weaker || uint32(len(p.key)) != a.config.KeyLength, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedHash}, args...)...)
}

func parsePHC(encoded string) (phc, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, malformed("expected 5 $-separated fields")
	}
	if fields[1] != algorithmID {
		return phc{}, malformed("algorithm %q", fields[1])
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return phc{}, malformed("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, malformed("version %q", version)
	}

	var p phc
	if err := p.parseParams(fields[3]); err != nil {
		return phc{}, err
	}

	var err error
	if p.salt, err = decodeB64(fields[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return phc{}, malformed("salt")
	}
	if p.key, err = decodeB64(fields[5]); err != nil || len(p.key) == 0 {
		return phc{}, malformed("key")
	}
	return p, nil
}

func (p *phc) parseParams(s string) error {
	var seen [3]bool
	parts := strings.Split(s, ",")
	if len(parts) != len(seen) {
		return malformed("expected m, t and p parameters")
	}

	for _, part := range parts {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return malformed("parameter %q", part)
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return malformed("memory %q", value)
			}
			p.memory, seen[0] = uint32(v), true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return malformed("time %q", value)
			}
			p.time, seen[1] = uint32(v), true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return malformed("parallelism %q", value)
			}
			p.parallelism, seen[2] = uint8(v), true
		default:
			return malformed("unknown parameter %q", name)
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return malformed("missing or repeated parameter")
	}
	return nil
}

// decodeB64 accepts the unpadded PHC alphabet and the padded form.
func decodeB64(s string) ([]byte, error) {
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("argon2 time must be >= %d", minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("argon2 parallelism must be >= %d", minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}
