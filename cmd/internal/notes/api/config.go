package notesapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"jotter/cmd/internal/httpjson"
)

const (
	feedMinSendQueue = 16

	defaultFeedSendQueue        = 64
	defaultFeedWriteTimeout     = 5 * time.Second
	defaultFeedHeartbeatEvery   = 30 * time.Second
	defaultFeedHeartbeatTimeout = 10 * time.Second
)

// Config controls the notes handlers.
type Config struct {
	MaxBodyBytes int64 `env:"JOTTER_MAX_BODY_BYTES" envDefault:"1048576"`
	Feed         FeedConfig
}

// FeedConfig controls the WebSocket change feed.
type FeedConfig struct {
	// OriginRequired rejects upgrades without an Origin header. Non-browser
	// clients do not send one, so it is off by default.
	OriginRequired bool     `env:"JOTTER_FEED_ORIGIN_REQUIRED" envDefault:"false"`
	AllowedOrigins []string `env:"JOTTER_FEED_ALLOWED_ORIGINS" envDefault:"http://localhost,http://127.0.0.1" envSeparator:","`

	SendQueue        int           `env:"JOTTER_FEED_SEND_QUEUE" envDefault:"64"`
	WriteTimeout     time.Duration `env:"JOTTER_FEED_WRITE_TIMEOUT" envDefault:"5s"`
	HeartbeatEvery   time.Duration `env:"JOTTER_FEED_HEARTBEAT_INTERVAL" envDefault:"30s"`
	HeartbeatTimeout time.Duration `env:"JOTTER_FEED_HEARTBEAT_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: httpjson.DefaultMaxBodyBytes,
		Feed: FeedConfig{
			AllowedOrigins:   []string{"http://localhost", "http://127.0.0.1"},
			SendQueue:        defaultFeedSendQueue,
			WriteTimeout:     defaultFeedWriteTimeout,
			HeartbeatEvery:   defaultFeedHeartbeatEvery,
			HeartbeatTimeout: defaultFeedHeartbeatTimeout,
		},
	}
}

// LoadConfigFromEnv parses Config from the environment and clamps bad values.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("notesapi: parse env: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = httpjson.DefaultMaxBodyBytes
	}
	if c.Feed.SendQueue <= 0 {
		c.Feed.SendQueue = defaultFeedSendQueue
	}
	if c.Feed.SendQueue < feedMinSendQueue {
		c.Feed.SendQueue = feedMinSendQueue
	}
	if c.Feed.WriteTimeout <= 0 {
		c.Feed.WriteTimeout = defaultFeedWriteTimeout
	}
	if c.Feed.HeartbeatEvery <= 0 {
		c.Feed.HeartbeatEvery = defaultFeedHeartbeatEvery
	}
	if c.Feed.HeartbeatTimeout <= 0 {
		c.Feed.HeartbeatTimeout = defaultFeedHeartbeatTimeout
	}
	return c
}
