package password

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names the hashing scheme used for new hashes.
// Verify always dispatches on the encoded hash prefix, regardless of Algorithm.
type Algorithm string

const (
	// AlgorithmArgon2id produces PHC-encoded argon2id hashes (default).
	AlgorithmArgon2id Algorithm = "argon2id"
	// AlgorithmBcrypt produces $2a$ bcrypt hashes.
	AlgorithmBcrypt Algorithm = "bcrypt"
)

// UnmarshalText accepts algorithm names case-insensitively. Empty selects argon2id.
func (a *Algorithm) UnmarshalText(text []byte) error {
	switch v := Algorithm(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case AlgorithmArgon2id, "":
		*a = AlgorithmArgon2id
	case AlgorithmBcrypt:
		*a = AlgorithmBcrypt
	default:
		return fmt.Errorf("unsupported algorithm %q", string(text))
	}
	return nil
}

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32 `env:"JOTTER_ARGON2_MEMORY_KIB"`
	Iterations  uint32 `env:"JOTTER_ARGON2_ITERATIONS"`
	Parallelism uint8  `env:"JOTTER_ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"JOTTER_ARGON2_SALT_LEN"`
	KeyLength   uint32 `env:"JOTTER_ARGON2_KEY_LEN"`
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int `env:"JOTTER_PASSWORD_MIN_LEN"`
	MaxLength int `env:"JOTTER_PASSWORD_MAX_LEN"`
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool `env:"JOTTER_PASSWORD_REJECT_VERY_WEAK"`
}

// Config is the single configuration surface for this package.
// Unset variables keep the DefaultConfig values.
type Config struct {
	Algorithm  Algorithm `env:"JOTTER_PASSWORD_ALGORITHM"`
	Params     Argon2idParams
	BcryptCost int `env:"JOTTER_BCRYPT_COST"`
	Policy     Policy
}

// DefaultConfig returns the baseline used when no env overrides are present.
//
// The policy only requires a non-empty password: accounts created before the
// policy surface existed had no length rule, and operators tighten it via env.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm: AlgorithmArgon2id,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // interactive logins
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: 10,
		Policy: Policy{
			MinLength:      1,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// FromEnv overlays JOTTER_PASSWORD_*, JOTTER_ARGON2_* and JOTTER_BCRYPT_COST
// onto DefaultConfig and checks the result with CheckBounds.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse password env: %w", err)
	}
	if err := cfg.CheckBounds(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CheckBounds rejects cost and policy values outside the supported ranges.
func (c Config) CheckBounds() error {
	checks := []struct {
		key      string
		val      int
		min, max int
	}{
		{"JOTTER_PASSWORD_MIN_LEN", c.Policy.MinLength, 1, 1024},
		{"JOTTER_PASSWORD_MAX_LEN", c.Policy.MaxLength, 1, 4096},
		{"JOTTER_ARGON2_MEMORY_KIB", int(c.Params.MemoryKiB), 8 * 1024, 1024 * 1024}, // 8 MiB .. 1 GiB
		{"JOTTER_ARGON2_ITERATIONS", int(c.Params.Iterations), 1, 20},
		{"JOTTER_ARGON2_PARALLELISM", int(c.Params.Parallelism), 1, 64},
		{"JOTTER_ARGON2_SALT_LEN", int(c.Params.SaltLength), 8, 64},
		{"JOTTER_ARGON2_KEY_LEN", int(c.Params.KeyLength), 16, 64},
		{"JOTTER_BCRYPT_COST", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost},
	}
	for _, ch := range checks {
		if ch.val < ch.min || ch.val > ch.max {
			return fmt.Errorf("%s: out of range [%d..%d]", ch.key, ch.min, ch.max)
		}
	}

	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	return nil
}
