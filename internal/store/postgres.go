package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const zoneTableSchema = `
CREATE TABLE IF NOT EXISTS zone_descriptions (
	domain      TEXT PRIMARY KEY,
	description JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore reads zone records from the zone_descriptions table
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ ReadWriter = (*PostgresStore)(nil)

// NewPostgresStore wraps an established pool. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the zone_descriptions table if it does not exist
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, zoneTableSchema); err != nil {
		ps.logger.Error("failed to create zone table", "error", err)
		return &Error{Op: "migrate", Backend: "postgres", Err: err}
	}
	return nil
}

// Get retrieves a record from Postgres
func (ps *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var description []byte
	err := ps.pool.QueryRow(ctx,
		`SELECT description::text FROM zone_descriptions WHERE domain = $1`, key,
	).Scan(&description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		ps.logger.Error("postgres get failed", "error", err, "key", key)
		return nil, &Error{Op: "get", Backend: "postgres", Key: key, Err: err}
	}

	return description, nil
}

// Put upserts a record
func (ps *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO zone_descriptions (domain, description, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (domain) DO UPDATE
		SET description = EXCLUDED.description, updated_at = NOW()`,
		key, string(value),
	)
	if err != nil {
		ps.logger.Error("postgres put failed", "error", err, "key", key)
		return &Error{Op: "put", Backend: "postgres", Key: key, Err: err}
	}

	return nil
}

// Delete removes a record
func (ps *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM zone_descriptions WHERE domain = $1`, key); err != nil {
		ps.logger.Error("postgres delete failed", "error", err, "key", key)
		return &Error{Op: "delete", Backend: "postgres", Key: key, Err: err}
	}

	return nil
}

// Keys returns the domains matching a wildcard pattern ('*' and '?')
func (ps *PostgresStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT domain FROM zone_descriptions WHERE domain LIKE $1 ESCAPE '\' ORDER BY domain`,
		likePattern(pattern),
	)
	if err != nil {
		return nil, &Error{Op: "keys", Backend: "postgres", Err: err}
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, &Error{Op: "keys", Backend: "postgres", Err: err}
	}

	return keys, nil
}

// Ping checks if the database is reachable
func (ps *PostgresStore) Ping(ctx context.Context) error {
	if err := ps.pool.Ping(ctx); err != nil {
		return &Error{Op: "ping", Backend: "postgres", Err: err}
	}
	return nil
}

// Close is a no-op; the pool is closed by the shutdown manager
func (ps *PostgresStore) Close() error {
	return nil
}

func likePattern(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
