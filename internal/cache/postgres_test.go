package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock, nowFunc: time.Now}, mock
}

func TestPostgresStore_Get_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT domain, email, confidence, source, is_catch_all, cached_at FROM email_cache WHERE domain = \$1`).
		WithArgs("missing.com").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.Get(context.Background(), "missing.com")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cachedAt := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery(`SELECT domain, email, confidence, source, is_catch_all, cached_at FROM email_cache WHERE domain = \$1`).
		WithArgs("smithdental.com").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "email", "confidence", "source", "is_catch_all", "cached_at"}).
			AddRow("smithdental.com", "info@smithdental.com", 0.9, "website_crawl", false, cachedAt))

	entry, err := s.Get(context.Background(), "smithdental.com")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "info@smithdental.com", entry.Email)
	assert.Equal(t, 0.9, entry.Confidence)
	assert.False(t, entry.IsCatchAll)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set_Upserts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entry := model.CacheEntry{
		Domain:     "example.com",
		Email:      "contact@example.com",
		Confidence: 0.85,
		Source:     "intel_api",
		IsCatchAll: true,
		CachedAt:   time.Now(),
	}

	mock.ExpectExec(`INSERT INTO email_cache`).
		WithArgs(entry.Domain, entry.Email, entry.Confidence, entry.Source, entry.IsCatchAll, entry.CachedAt.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Purge(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM email_cache WHERE cached_at < \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.Purge(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TierCounts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now()
	s.nowFunc = func() time.Time { return now }

	mock.ExpectQuery(`SELECT cached_at FROM email_cache`).
		WillReturnRows(pgxmock.NewRows([]string{"cached_at"}).
			AddRow(now.Add(-time.Hour)).
			AddRow(now.Add(-10 * 24 * time.Hour)))

	counts, err := s.TierCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[FreshnessFresh])
	assert.Equal(t, 1, counts[FreshnessAging])
	assert.NoError(t, mock.ExpectationsWereMet())
}
