package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the cache store. pgxmock
// satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on pgxpool for shared production
// deployments.
type PostgresStore struct {
	pool    Pool
	nowFunc func() time.Time
}

// NewPostgres connects a PostgresStore with pool sizing suited to the
// cache's small, hot query set.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS email_cache (
	domain       TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	source       TEXT NOT NULL,
	is_catch_all BOOLEAN NOT NULL DEFAULT FALSE,
	cached_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_email_cache_cached_at ON email_cache(cached_at);
`

// Migrate creates the cache schema if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Get(ctx context.Context, domain string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	err := s.pool.QueryRow(ctx,
		`SELECT domain, email, confidence, source, is_catch_all, cached_at FROM email_cache WHERE domain = $1`,
		domain,
	).Scan(&entry.Domain, &entry.Email, &entry.Confidence, &entry.Source, &entry.IsCatchAll, &entry.CachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", domain)
	}
	return &entry, nil
}

func (s *PostgresStore) Set(ctx context.Context, entry model.CacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_cache (domain, email, confidence, source, is_catch_all, cached_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (domain) DO UPDATE SET
		   email = EXCLUDED.email,
		   confidence = EXCLUDED.confidence,
		   source = EXCLUDED.source,
		   is_catch_all = EXCLUDED.is_catch_all,
		   cached_at = EXCLUDED.cached_at`,
		entry.Domain, entry.Email, entry.Confidence, entry.Source, entry.IsCatchAll, entry.CachedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: set %s", entry.Domain)
}

func (s *PostgresStore) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.nowFunc().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM email_cache WHERE cached_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) TierCounts(ctx context.Context) (map[Freshness]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT cached_at FROM email_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: tier counts")
	}
	defer rows.Close()

	counts := make(map[Freshness]int)
	now := s.nowFunc()
	for rows.Next() {
		var cachedAt time.Time
		if err := rows.Scan(&cachedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cached_at")
		}
		counts[TierFor(now.Sub(cachedAt))]++
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
