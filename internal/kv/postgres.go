package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/rs/zerolog"
)

const (
	liveCondition = "(expires_at IS NULL OR expires_at > now())"
	expiresAtExpr = "CASE WHEN $3::bigint > 0 THEN now() + ($3::bigint * interval '1 millisecond') END"
)

// PostgresStore keeps entries in the kv_entries table created by the
// migrations directory.
type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPostgresStore wraps an open connection pool
func NewPostgresStore(db *sql.DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: log.With().Str("component", "kv").Str("backend", "postgres").Logger(),
	}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE key = $1 AND "+liveCondition, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, apperrors.Store("get", key, err)
	}
	return value, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, ` + expiresAtExpr + `, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

	_, err := p.db.ExecContext(ctx, query, key, value, ttl.Milliseconds())
	return apperrors.Store("put", key, err)
}

func (p *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE key LIKE $1 ESCAPE '\' AND `+liveCondition+` ORDER BY key COLLATE "C"`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, apperrors.Store("list", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Store("list", prefix, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("list", prefix, err)
	}
	return keys, nil
}

func (p *PostgresStore) CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error) {
	var (
		res sql.Result
		err error
	)

	if old == nil {
		// An expired row counts as absent.
		res, err = p.db.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, expires_at, updated_at)
			VALUES ($1, $2, `+expiresAtExpr+`, now())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
			WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()`,
			key, next, ttl.Milliseconds(),
		)
	} else {
		res, err = p.db.ExecContext(ctx, `
			UPDATE kv_entries
			SET value = $2, expires_at = `+expiresAtExpr+`, updated_at = now()
			WHERE key = $1 AND value = $4 AND `+liveCondition,
			key, next, ttl.Milliseconds(), old,
		)
	}
	if err != nil {
		return false, apperrors.Store("compare-and-swap", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Store("compare-and-swap", key, err)
	}
	return n == 1, nil
}

// PurgeExpired deletes rows whose expiry has passed
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= now()")
	if err != nil {
		return 0, apperrors.Store("purge", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Store("purge", "", err)
	}
	if n > 0 {
		p.log.Debug().Int64("rows", n).Msg("Purged expired entries")
	}
	return n, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return apperrors.Store("ping", "", p.db.PingContext(ctx))
}

// Close is a no-op; the pool belongs to the caller.
func (p *PostgresStore) Close() error { return nil }

// likePrefix escapes LIKE metacharacters in prefix and appends the wildcard
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Purger = (*PostgresStore)(nil)
)
