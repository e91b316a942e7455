package source

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
)

// defaultOverfetch multiplies the requested count so deduplication has
// enough overlapping listings to collapse.
const defaultOverfetch = 3

// Aggregator queries listing sources in priority order. Each call passes
// through the source's circuit breaker, retry policy, and rate limiter.
// A failing source is skipped, not fatal, unless it was marked required
// or too few sources succeed overall.
type Aggregator struct {
	sources      []Source
	breakers     *resilience.SourceBreakers
	retryCfg     resilience.RetryConfig
	limiters     map[model.SourceID]*rate.Limiter
	metrics      *monitoring.Metrics
	required     map[model.SourceID]bool
	minSuccesses int
	overfetch    int
	logger       *zap.Logger
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithBreakers sets a shared breaker registry. Jobs pass the same
// registry to every aggregator so breaker state survives across queries.
func WithBreakers(sb *resilience.SourceBreakers) AggregatorOption {
	return func(a *Aggregator) { a.breakers = sb }
}

// WithRetryConfig overrides the per-call retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) AggregatorOption {
	return func(a *Aggregator) { a.retryCfg = cfg }
}

// WithRateLimit sets a request rate limit for one source.
func WithRateLimit(id model.SourceID, limit rate.Limit, burst int) AggregatorOption {
	return func(a *Aggregator) { a.limiters[id] = rate.NewLimiter(limit, burst) }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = m }
}

// WithRequired marks sources whose failure fails the whole discovery.
func WithRequired(ids ...model.SourceID) AggregatorOption {
	return func(a *Aggregator) {
		for _, id := range ids {
			a.required[id] = true
		}
	}
}

// WithMinSuccesses sets how many sources must succeed for discovery to
// count as successful. Default 1.
func WithMinSuccesses(n int) AggregatorOption {
	return func(a *Aggregator) { a.minSuccesses = n }
}

// WithOverfetch overrides the overfetch multiplier.
func WithOverfetch(factor int) AggregatorOption {
	return func(a *Aggregator) {
		if factor > 0 {
			a.overfetch = factor
		}
	}
}

// NewAggregator creates an aggregator over the given sources, tried in
// the order given.
func NewAggregator(sources []Source, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		sources:      sources,
		retryCfg:     resilience.DefaultRetryConfig(),
		limiters:     make(map[model.SourceID]*rate.Limiter),
		required:     make(map[model.SourceID]bool),
		minSuccesses: 1,
		overfetch:    defaultOverfetch,
		logger:       zap.L().Named("source"),
	}
	for _, o := range opts {
		o(a)
	}
	if a.breakers == nil {
		a.breakers = resilience.NewSourceBreakers(resilience.DefaultBreakerConfig())
	}
	return a
}

// Discover collects raw listings for a query until targetCount times the
// overfetch factor is reached or every source has been tried. onProgress
// may be nil.
func (a *Aggregator) Discover(ctx context.Context, query, location string, targetCount int, onProgress model.ProgressFunc) ([]model.RawListing, error) {
	if len(a.sources) == 0 {
		return nil, eris.New("source: no sources configured")
	}
	if targetCount <= 0 {
		return nil, eris.New("source: target count must be positive")
	}
	target := targetCount * a.overfetch

	var (
		listings  []model.RawListing
		succeeded []string
		failed    []string
		errs      []error
	)
	requiredFailed := false

	for i, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: discovery cancelled")
		}

		id := src.ID()
		a.metrics.SourceAttempt(string(id))

		got, err := a.fetch(ctx, src, query, location, target-len(listings))
		if err != nil {
			a.metrics.SourceFailure(string(id))
			failed = append(failed, string(id))
			errs = append(errs, eris.Wrapf(err, "source: %s", id))
			if a.required[id] {
				requiredFailed = true
			}
			a.logger.Warn("source failed",
				zap.String("source", string(id)),
				zap.Error(err))
		} else {
			a.metrics.SourceSuccess(string(id))
			succeeded = append(succeeded, string(id))
			listings = append(listings, got...)
			a.logger.Info("source complete",
				zap.String("source", string(id)),
				zap.Int("listings", len(got)),
				zap.Int("total", len(listings)))
		}

		if onProgress != nil {
			onProgress(fmt.Sprintf("%s: %d listings", id, len(listings)),
				float64(i+1)/float64(len(a.sources)))
		}

		if len(listings) >= target {
			break
		}
	}

	if requiredFailed || len(succeeded) < a.minSuccesses {
		return nil, &resilience.GatherError{Failed: failed, Errs: errs}
	}
	return listings, nil
}

// fetch runs one source call through its rate limiter, circuit breaker,
// and retry policy, innermost to outermost in that order so retries honor
// the breaker's verdict.
func (a *Aggregator) fetch(ctx context.Context, src Source, query, location string, limit int) ([]model.RawListing, error) {
	if lim := a.limiters[src.ID()]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate limit wait")
		}
	}

	cb := a.breakers.Get(string(src.ID()))
	return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) ([]model.RawListing, error) {
		cfg := a.retryCfg
		cfg.OnRetry = resilience.RetryLogger(string(src.ID()), "discover")
		return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.RawListing, error) {
			return src.Discover(ctx, query, location, limit)
		})
	})
}

// BreakerSnapshots exposes per-source breaker state for observability.
func (a *Aggregator) BreakerSnapshots() map[string]resilience.BreakerSnapshot {
	return a.breakers.Snapshots()
}
