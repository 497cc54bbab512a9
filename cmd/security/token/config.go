package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// MinSecretBytes is the shortest accepted HS256 secret.
	MinSecretBytes = 32

	// SecretEnvKey is the env var holding the signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "JOTTER_TOKEN_SECRET"

	DefaultIssuer = "jotter"
)

// Config is the token signing configuration. It is also embedded in the
// application config so both parse from the same environment.
type Config struct {
	Secret string        `env:"JOTTER_TOKEN_SECRET"`
	Issuer string        `env:"JOTTER_TOKEN_ISSUER" envDefault:"jotter"`
	TTL    time.Duration `env:"JOTTER_TOKEN_TTL" envDefault:"0s"`
}

// LoadConfigFromEnv parses Config and validates it.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse token env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the secret policy. Surrounding whitespace is not counted.
func (c Config) Validate() error {
	s := strings.TrimSpace(c.Secret)
	if s == "" {
		return ErrSecretMissing
	}
	if len(s) < MinSecretBytes {
		return ErrSecretTooShort
	}
	if c.TTL < 0 {
		return fmt.Errorf("%s: negative ttl", "JOTTER_TOKEN_TTL")
	}
	return nil
}
