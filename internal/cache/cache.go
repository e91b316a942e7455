// Package cache provides the read-through/write-through email cache keyed
// by normalized domain, with tiered freshness rather than hard expiry.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

// Freshness buckets a cache entry by age. Entries are never hard-deleted
// on read; callers decide whether an aging or stale entry warrants
// re-verification.
type Freshness string

const (
	FreshnessFresh  Freshness = "fresh"  // < 24h
	FreshnessRecent Freshness = "recent" // < 7d
	FreshnessAging  Freshness = "aging"  // < 30d
	FreshnessStale  Freshness = "stale"  // >= 30d
)

// Tier boundaries.
const (
	freshMax  = 24 * time.Hour
	recentMax = 7 * 24 * time.Hour
	agingMax  = 30 * 24 * time.Hour
)

// TierFor returns the freshness tier for an entry of the given age.
func TierFor(age time.Duration) Freshness {
	switch {
	case age < freshMax:
		return FreshnessFresh
	case age < recentMax:
		return FreshnessRecent
	case age < agingMax:
		return FreshnessAging
	default:
		return FreshnessStale
	}
}

// MinWriteConfidence is the floor below which discovered emails are not
// cached; low-confidence entries must never short-circuit the cascade.
const MinWriteConfidence = 0.6

// Store is the injected key-value backend. Get returns (nil, nil) for a
// miss.
type Store interface {
	Get(ctx context.Context, domain string) (*model.CacheEntry, error)
	Set(ctx context.Context, entry model.CacheEntry) error
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
	TierCounts(ctx context.Context) (map[Freshness]int, error)
	Close() error
}

// EmailCache wraps a Store with domain normalization, the minimum
// write-confidence rule, and freshness classification.
type EmailCache struct {
	store Store

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// New creates an EmailCache over the given store.
func New(store Store) *EmailCache {
	return &EmailCache{store: store, nowFunc: time.Now}
}

// Lookup fetches the entry for a domain and classifies its freshness.
// Returns (nil, "", nil) on miss.
func (c *EmailCache) Lookup(ctx context.Context, domain string) (*model.CacheEntry, Freshness, error) {
	key := NormalizeDomain(domain)
	if key == "" {
		return nil, "", nil
	}

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, "", eris.Wrapf(err, "cache: get %s", key)
	}
	if entry == nil {
		return nil, "", nil
	}

	tier := TierFor(c.nowFunc().Sub(entry.CachedAt))
	return entry, tier, nil
}

// Put writes an accepted discovery through to the store. Entries below
// MinWriteConfidence are dropped.
func (c *EmailCache) Put(ctx context.Context, entry model.CacheEntry) error {
	entry.Domain = NormalizeDomain(entry.Domain)
	if entry.Domain == "" || entry.Email == "" {
		return nil
	}
	if entry.Confidence < MinWriteConfidence {
		zap.L().Debug("cache: skipping low-confidence entry",
			zap.String("domain", entry.Domain),
			zap.Float64("confidence", entry.Confidence),
		)
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = c.nowFunc().UTC()
	}

	if err := c.store.Set(ctx, entry); err != nil {
		return eris.Wrapf(err, "cache: set %s", entry.Domain)
	}
	return nil
}

// PurgeStale removes entries older than the stale boundary.
func (c *EmailCache) PurgeStale(ctx context.Context) (int, error) {
	n, err := c.store.Purge(ctx, agingMax)
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge stale")
	}
	return n, nil
}

// TierCounts returns a histogram of entries per freshness tier.
func (c *EmailCache) TierCounts(ctx context.Context) (map[Freshness]int, error) {
	counts, err := c.store.TierCounts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "cache: tier counts")
	}
	return counts, nil
}

// NormalizeDomain lowercases a host or URL and strips protocol, www
// prefix, path, and port, producing the canonical cache key.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}
