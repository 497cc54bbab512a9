package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jotter/cmd/identity"
)

// PostgresStore implements Store over the notes table.
// The pool is owned by the caller.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore binds the store to schema (identity.DefaultSchema when empty).
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("notes: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = identity.DefaultSchema
	}
	if !identity.ValidSchemaName(schema) {
		return nil, fmt.Errorf("notes: invalid schema identifier")
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{schema, "notes"}.Sanitize(),
	}, nil
}

const noteColumns = `id, owner_id, title, content, tags, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, n Note) error {
	const op = "notes.Insert"

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.OwnerID, n.Title, n.Content, tags, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return invalid(op, "owner does not exist")
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID, tag string) ([]Note, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if tag == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+noteColumns+` FROM `+s.table+`
			  WHERE owner_id = $1
			  ORDER BY created_at, id`,
			ownerID,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+noteColumns+` FROM `+s.table+`
			  WHERE owner_id = $1 AND tags @> ARRAY[$2]::text[]
			  ORDER BY created_at, id`,
			ownerID, tag,
		)
	}
	if err != nil {
		return nil, err
	}

	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Note, error) { return scanNote(r) })
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Note{}
	}
	return out, nil
}

func (s *PostgresStore) UpdateOwned(ctx context.Context, id, ownerID string, p Patch, now time.Time) (Note, bool, error) {
	var tags any
	if p.Tags != nil {
		t := *p.Tags
		if t == nil {
			t = []string{}
		}
		tags = t
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.table+`
		    SET title = COALESCE($3, title),
		        content = COALESCE($4, content),
		        tags = COALESCE($5::text[], tags),
		        updated_at = $6
		  WHERE id = $1 AND owner_id = $2
		RETURNING `+noteColumns,
		id, ownerID, p.Title, p.Content, tags, now,
	)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Note{}, false, nil
		}
		return Note{}, false, err
	}
	return n, true, nil
}

func (s *PostgresStore) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}
