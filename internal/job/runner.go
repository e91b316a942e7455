// Package job drives the full lead pipeline: source discovery,
// deduplication, then the email cascade for each canonical business
// under a bounded worker pool.
package job

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/email"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/source"
)

const (
	// DefaultDeadline bounds one job end to end.
	DefaultDeadline = 10 * time.Minute

	// DefaultConcurrency is the email-cascade worker pool size.
	DefaultConcurrency = 4
)

// Params describe one discovery job.
type Params struct {
	Query       string
	Location    string
	TargetCount int
}

// Result is the completed job output.
type Result struct {
	Businesses []*model.CanonicalBusiness
	Stats      dedupe.Stats
	Duration   time.Duration
}

// Runner wires the aggregator, dedupe engine, and email resolver into
// one pipeline. Shared state across workers is limited to the cache,
// breaker registry, pattern store, and metrics, all internally guarded.
type Runner struct {
	aggregator  *source.Aggregator
	engine      *dedupe.Engine
	resolver    *email.Resolver
	metrics     *monitoring.Metrics
	concurrency int
	deadline    time.Duration
	logger      *zap.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithConcurrency sets the cascade worker pool size.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDeadline sets the per-job deadline.
func WithDeadline(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.deadline = d
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a job runner.
func NewRunner(agg *source.Aggregator, engine *dedupe.Engine, resolver *email.Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		aggregator:  agg,
		engine:      engine,
		resolver:    resolver,
		concurrency: DefaultConcurrency,
		deadline:    DefaultDeadline,
		logger:      zap.L().Named("job"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Discover runs discovery and deduplication only. Progress covers the
// source walk; onProgress may be nil.
func (r *Runner) Discover(ctx context.Context, p Params, onProgress model.ProgressFunc) (*dedupe.Result, error) {
	listings, err := r.aggregator.Discover(ctx, p.Query, p.Location, p.TargetCount, onProgress)
	if err != nil {
		return nil, eris.Wrap(err, "job: discovery")
	}

	refs := make([]*model.RawListing, len(listings))
	for i := range listings {
		refs[i] = &listings[i]
	}
	return r.engine.Deduplicate(refs), nil
}

// Run executes the whole pipeline under the job deadline. Discovery
// takes the first third of the progress range; email resolution fills
// the rest as businesses complete. Per-business cascade failures are
// logged and leave the business without an email rather than failing
// the job.
func (r *Runner) Run(ctx context.Context, p Params, onProgress model.ProgressFunc) (*Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	deduped, err := r.Discover(ctx, p, scaleProgress(onProgress, 0, 0.3))
	if err != nil {
		return nil, err
	}
	emitProgress(onProgress, fmt.Sprintf("deduplicated to %d businesses", len(deduped.Unique)), 0.35)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "job: cancelled before email resolution")
	}

	// Keep the best-scored businesses when over target; cluster order
	// out of the engine is not deterministic.
	businesses := deduped.Unique
	if len(businesses) > p.TargetCount && p.TargetCount > 0 {
		sort.SliceStable(businesses, func(i, j int) bool {
			return businesses[i].Quality.OverallScore > businesses[j].Quality.OverallScore
		})
		businesses = businesses[:p.TargetCount]
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, biz := range businesses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := r.resolver.Resolve(gctx, biz)
			if err != nil {
				r.logger.Warn("email resolution failed",
					zap.String("business", biz.Name),
					zap.Error(err))
			} else if res != nil {
				biz.Email = res
				if res.DiscoveredWebsite != "" && biz.Website == "" {
					biz.Website = res.DiscoveredWebsite
				}
				// Email changes the quality picture; re-score.
				dedupe.ScoreQuality(biz)
			}

			n := done.Add(1)
			emitProgress(onProgress,
				fmt.Sprintf("resolved %d/%d businesses", n, len(businesses)),
				0.35+0.65*float64(n)/float64(len(businesses)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "job: email resolution")
	}

	return &Result{
		Businesses: businesses,
		Stats:      deduped.Stats,
		Duration:   time.Since(start),
	}, nil
}

func emitProgress(fn model.ProgressFunc, msg string, fraction float64) {
	if fn != nil {
		fn(msg, fraction)
	}
}

// scaleProgress maps a stage's [0,1] progress onto [lo,hi] of the whole
// job.
func scaleProgress(fn model.ProgressFunc, lo, hi float64) model.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(msg string, fraction float64) {
		fn(msg, lo+(hi-lo)*fraction)
	}
}
