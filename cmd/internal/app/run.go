package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"jotter/cmd/internal/migrate"
)

var errNoDatabase = errors.New("JOTTER_DATABASE_URL is not set")

// Run is the serve entrypoint used by cmd/jotter.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// Migrate applies the embedded schema to the configured database.
func Migrate(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		return errNoDatabase
	}
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, cfg.DBSchema); err != nil {
		return err
	}
	log.Info("db.migrate.applied", "schema", cfg.DBSchema)
	return nil
}
