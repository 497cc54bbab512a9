package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"jotter/cmd/identity"
	authapi "jotter/cmd/internal/auth/api"
	notesapi "jotter/cmd/internal/notes/api"
	"jotter/cmd/security/password"
	"jotter/cmd/security/token"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string `env:"JOTTER_HTTP_ADDR" envDefault:"0.0.0.0:9876"`
	LogLevel string `env:"JOTTER_LOG_LEVEL" envDefault:"info"`

	ReadHeaderTimeout time.Duration `env:"JOTTER_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"JOTTER_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"JOTTER_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"JOTTER_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"JOTTER_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"JOTTER_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// Empty DatabaseURL selects the in-memory stores.
	DatabaseURL string `env:"JOTTER_DATABASE_URL"`
	DBMaxConns  int32  `env:"JOTTER_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"JOTTER_DB_MIN_CONNS" envDefault:"0"`
	DBSchema    string `env:"JOTTER_DB_SCHEMA" envDefault:"jotter"`
	// DBAutoMigrate applies the embedded schema on startup.
	DBAutoMigrate bool `env:"JOTTER_DB_AUTO_MIGRATE" envDefault:"false"`

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"JOTTER_READINESS_REQUIRE_DB" envDefault:"false"`

	CORSAllowedOrigins   []string `env:"JOTTER_CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CORSAllowCredentials bool     `env:"JOTTER_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAgeSeconds    int      `env:"JOTTER_CORS_MAX_AGE_SECONDS" envDefault:"600"`

	MetricsEnabled bool `env:"JOTTER_METRICS_ENABLED" envDefault:"true"`

	Token token.Config
	Auth  authapi.Config
	Notes notesapi.Config

	// Password starts from password.DefaultConfig; unset keys keep those values.
	Password password.Config
}

// EnvFileKey names an optional dotenv file read before parsing. When unset,
// ".env" in the working directory is used if it exists.
const EnvFileKey = "JOTTER_ENV_FILE"

// LoadConfig parses Config from the environment, then clamps values that
// would make the server unusable.
func LoadConfig() (Config, error) {
	environ, err := loadEnvironment()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{Password: password.DefaultConfig()}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Password.CheckBounds(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.normalize()

	if !identity.ValidSchemaName(cfg.DBSchema) {
		return Config{}, fmt.Errorf("config: JOTTER_DB_SCHEMA: invalid schema name %q", cfg.DBSchema)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		c.HTTPAddr = "0.0.0.0:9876"
	}
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.DBSchema = strings.TrimSpace(c.DBSchema)
	if c.DBSchema == "" {
		c.DBSchema = identity.DefaultSchema
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	if c.DBMinConns < 0 {
		c.DBMinConns = 0
	}
	if c.DBMinConns > c.DBMaxConns {
		c.DBMinConns = c.DBMaxConns
	}
	if c.CORSMaxAgeSeconds < 0 {
		c.CORSMaxAgeSeconds = 0
	}

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}

// loadEnvironment merges the dotenv file under the process environment.
// Variables already set in the process are never overridden by the file.
func loadEnvironment() (map[string]string, error) {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}

	path, explicit := os.LookupEnv(EnvFileKey)
	path = strings.TrimSpace(path)
	if path == "" {
		path, explicit = ".env", false
	}

	file, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("%s %q: %w", EnvFileKey, path, err)
	}
	for k, v := range file {
		if _, set := out[k]; !set {
			out[k] = v
		}
	}
	return out, nil
}
