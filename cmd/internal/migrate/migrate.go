// Package migrate applies jotter's embedded Postgres schema.
//
// The DDL is idempotent (IF NOT EXISTS everywhere) and runs in a single
// transaction, so `jotter migrate` can be re-run safely on every deploy.
package migrate

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQL renders the schema DDL for the given Postgres schema name.
func SQL(schema string) (string, error) {
	schema = strings.TrimSpace(schema)
	if !identRe.MatchString(schema) {
		return "", fmt.Errorf("migrate: invalid schema identifier %q", schema)
	}
	return strings.ReplaceAll(schemaSQL, "{{schema}}", pgx.Identifier{schema}.Sanitize()), nil
}

// Apply creates schema and all jotter tables inside it.
func Apply(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return fmt.Errorf("migrate: nil pool")
	}
	ddl, err := SQL(schema)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: apply: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}
