package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// SQLiteStore implements Store on modernc.org/sqlite for single-node
// durable caching.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLite opens (or creates) a SQLite cache database and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS email_cache (
	domain       TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	confidence   REAL NOT NULL,
	source       TEXT NOT NULL,
	is_catch_all INTEGER NOT NULL DEFAULT 0,
	cached_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_email_cache_cached_at ON email_cache(cached_at);
`

// Migrate creates the cache schema if missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Get(ctx context.Context, domain string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	var catchAll int
	err := s.db.QueryRowContext(ctx,
		`SELECT domain, email, confidence, source, is_catch_all, cached_at FROM email_cache WHERE domain = ?`,
		domain,
	).Scan(&entry.Domain, &entry.Email, &entry.Confidence, &entry.Source, &catchAll, &entry.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", domain)
	}
	entry.IsCatchAll = catchAll != 0
	return &entry, nil
}

func (s *SQLiteStore) Set(ctx context.Context, entry model.CacheEntry) error {
	catchAll := 0
	if entry.IsCatchAll {
		catchAll = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_cache (domain, email, confidence, source, is_catch_all, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
		   email = excluded.email,
		   confidence = excluded.confidence,
		   source = excluded.source,
		   is_catch_all = excluded.is_catch_all,
		   cached_at = excluded.cached_at`,
		entry.Domain, entry.Email, entry.Confidence, entry.Source, catchAll, entry.CachedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: set %s", entry.Domain)
}

func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.nowFunc().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM email_cache WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) TierCounts(ctx context.Context) (map[Freshness]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cached_at FROM email_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: tier counts")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[Freshness]int)
	now := s.nowFunc()
	for rows.Next() {
		var cachedAt time.Time
		if err := rows.Scan(&cachedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cached_at")
		}
		counts[TierFor(now.Sub(cachedAt))]++
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
