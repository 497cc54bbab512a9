package authapi

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"jotter/cmd/internal/httpjson"
)

// Config controls auth API behavior.
type Config struct {
	// LaxScheme accepts any first field in the Authorization header instead
	// of requiring "Bearer".
	LaxScheme    bool  `env:"JOTTER_AUTH_LAX_SCHEME" envDefault:"false"`
	TrustProxy   bool  `env:"JOTTER_AUTH_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"JOTTER_MAX_BODY_BYTES" envDefault:"1048576"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: httpjson.DefaultMaxBodyBytes}
}

// LoadConfigFromEnv parses Config from the environment and clamps bad values.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("authapi: parse env: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = httpjson.DefaultMaxBodyBytes
	}
	return c
}
