// Package app wires the jotter server runtime: config, logging, storage,
// HTTP routes and the notes change feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"jotter/cmd/identity"
	authapi "jotter/cmd/internal/auth/api"
	"jotter/cmd/internal/migrate"
	"jotter/cmd/internal/notes"
	notesapi "jotter/cmd/internal/notes/api"
	"jotter/cmd/security/token"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type poolStore struct{ pool *pgxpool.Pool }

func (s poolStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the jotter server runtime.
type App struct {
	cfg Config
	log Logger

	store     Store
	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	hub     *notes.Hub

	auth  *authapi.Handler
	notes *notesapi.Handler

	handler http.Handler
}

// New constructs a fully wired App. The persistence handle is created here
// once and injected into both stores.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(cfg.Token)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	idStore, noteStore, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := identity.NewCredentials(idStore, cfg.Password)
	if err != nil {
		_ = a.store.Close(ctx)
		return nil, err
	}

	a.hub = notes.NewHub(log)
	repoOpts := []notes.RepositoryOption{notes.WithPublisher(a.hub)}
	if cfg.MetricsEnabled {
		a.metrics = NewMetrics(prometheus.NewRegistry(), a.hub)
		a.hub.OnDrop = a.metrics.FeedDropped
		repoOpts = append(repoOpts, notes.WithObserver(a.metrics))
	}
	repo := notes.NewRepository(noteStore, repoOpts...)

	a.auth, err = authapi.NewHandler(log, creds, tokens, cfg.Auth)
	if err != nil {
		_ = a.store.Close(ctx)
		return nil, err
	}
	a.notes, err = notesapi.NewHandler(log, repo, a.hub, cfg.Notes)
	if err != nil {
		_ = a.store.Close(ctx)
		return nil, err
	}

	a.handler = a.buildHandler()
	return a, nil
}

// openStores decides between Postgres-backed persistence and the in-memory
// stores, and sets the lifecycle Store accordingly.
func (a *App) openStores(ctx context.Context) (identity.Store, notes.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		a.store = nopStore{}
		return identity.NewInMemoryStore(), notes.NewInMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}

	if a.cfg.DBAutoMigrate {
		if err := migrate.Apply(ctx, pool, a.cfg.DBSchema); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db: migrate: %w", err)
		}
		a.log.Info("db.migrate.applied", "schema", a.cfg.DBSchema)
	}

	idStore, err := identity.NewPostgresStore(pool, identity.WithSchema(a.cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	noteStore, err := notes.NewPostgresStore(pool, a.cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	a.log.Info("db.enabled.postgres_store", "schema", a.cfg.DBSchema)
	a.store = poolStore{pool: pool}
	a.dbPool = pool
	a.dbEnabled = true
	return idStore, noteStore, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled, "metrics_enabled", a.metrics != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		_ = a.store.Close(shutdownCtx)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
