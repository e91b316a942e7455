package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cache.db")
	st, err := NewSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	st := newTestSQLite(t)
	ctx := context.Background()

	cachedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := model.CacheEntry{
		Domain:     "example.com",
		Email:      "info@example.com",
		Confidence: 0.85,
		Source:     "scraped",
		IsCatchAll: true,
		CachedAt:   cachedAt,
	}
	require.NoError(t, st.Set(ctx, entry))

	got, err := st.Get(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "info@example.com", got.Email)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, "scraped", got.Source)
	assert.True(t, got.IsCatchAll)
	assert.True(t, got.CachedAt.Equal(cachedAt))
}

func TestSQLiteGetMiss(t *testing.T) {
	t.Parallel()

	st := newTestSQLite(t)

	got, err := st.Get(context.Background(), "missing.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteUpsert(t *testing.T) {
	t.Parallel()

	st := newTestSQLite(t)
	ctx := context.Background()

	base := model.CacheEntry{
		Domain: "example.com", Email: "old@example.com",
		Confidence: 0.6, Source: "generated", CachedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Set(ctx, base))

	base.Email = "new@example.com"
	base.Confidence = 0.9
	base.Source = "hunter"
	require.NoError(t, st.Set(ctx, base))

	got, err := st.Get(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "hunter", got.Source)
}

func TestSQLitePurgeAndTierCounts(t *testing.T) {
	t.Parallel()

	st := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.nowFunc = func() time.Time { return now }

	for domain, age := range map[string]time.Duration{
		"fresh.com": time.Hour,
		"aging.com": 10 * 24 * time.Hour,
		"stale.com": 45 * 24 * time.Hour,
	} {
		require.NoError(t, st.Set(ctx, model.CacheEntry{
			Domain: domain, Email: "info@" + domain,
			Confidence: 0.8, Source: "scraped",
			CachedAt: now.Add(-age),
		}))
	}

	counts, err := st.TierCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[FreshnessFresh])
	assert.Equal(t, 1, counts[FreshnessAging])
	assert.Equal(t, 1, counts[FreshnessStale])

	removed, err := st.Purge(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := st.Get(ctx, "stale.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}
