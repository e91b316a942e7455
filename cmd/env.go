package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/crawl"
	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/email"
	"github.com/sells-group/leadscout/internal/job"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/source"
	"github.com/sells-group/leadscout/pkg/anthropic"
	"github.com/sells-group/leadscout/pkg/hunter"
	"github.com/sells-group/leadscout/pkg/jina"
	"github.com/sells-group/leadscout/pkg/places"
	"github.com/sells-group/leadscout/pkg/rdap"
	"github.com/sells-group/leadscout/pkg/snov"
	"github.com/sells-group/leadscout/pkg/yelp"
)

// env holds the assembled pipeline for one command invocation.
type env struct {
	Store      cache.Store
	EmailCache *cache.EmailCache
	Metrics    *monitoring.Metrics
	Aggregator *source.Aggregator
	Resolver   *email.Resolver
	Runner     *job.Runner
}

// Close releases the cache backend.
func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for the mode and wires the full stack. Sources
// and providers whose credentials are absent are left out; the aggregator
// and cascade skip what is missing.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.New()
	emailCache := cache.New(store)

	breakers := resilience.NewSourceBreakersWithHook(
		resilience.BreakerConfig{
			FailureThreshold: cfg.Resilience.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.Resilience.BreakerResetSecs) * time.Second,
			HalfOpenRequests: cfg.Resilience.BreakerHalfOpenReqs,
		},
		func(src string, from, to resilience.CircuitState) {
			metrics.CircuitTransition(src, from.String(), to.String())
		})

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.Resilience.RetryMaxAttempts
	retryCfg.InitialBackoff = time.Duration(cfg.Resilience.RetryInitialBackoffMS) * time.Millisecond
	retryCfg.JitterFraction = cfg.Resilience.RetryJitterFraction

	var jinaClient jina.Client
	if cfg.Jina.Key != "" {
		jinaClient = jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}

	agg, err := buildAggregator(jinaClient, breakers, retryCfg, metrics)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	resolver, err := buildResolver(emailCache, jinaClient, metrics)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	runner := job.NewRunner(agg, dedupe.NewEngine(cfg.Dedupe.MergeThreshold), resolver,
		job.WithConcurrency(cfg.Job.Concurrency),
		job.WithDeadline(time.Duration(cfg.Job.DeadlineMins)*time.Minute),
		job.WithMetrics(metrics))

	return &env{
		Store:      store,
		EmailCache: emailCache,
		Metrics:    metrics,
		Aggregator: agg,
		Resolver:   resolver,
		Runner:     runner,
	}, nil
}

func openStore(ctx context.Context) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemory(), nil
	case "sqlite":
		st, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

func buildAggregator(jinaClient jina.Client, breakers *resilience.SourceBreakers, retryCfg resilience.RetryConfig, metrics *monitoring.Metrics) (*source.Aggregator, error) {
	available := map[model.SourceID]source.Source{}
	if cfg.Places.Key != "" {
		available[model.SourcePlaces] = source.NewPlacesSource(places.NewClient(cfg.Places.Key))
	}
	if cfg.Yelp.Key != "" {
		available[model.SourceYelp] = source.NewYelpSource(yelp.NewClient(cfg.Yelp.Key))
	}
	if jinaClient != nil {
		available[model.SourceWebSearch] = source.NewWebSearchSource(jinaClient)
	}

	var sources []source.Source
	for _, name := range cfg.Sources.Priority {
		src, ok := available[model.SourceID(name)]
		if !ok {
			zap.L().Warn("listing source unavailable, skipping",
				zap.String("source", name))
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, eris.New("no listing sources configured")
	}

	opts := []source.AggregatorOption{
		source.WithBreakers(breakers),
		source.WithRetryConfig(retryCfg),
		source.WithMetrics(metrics),
		source.WithOverfetch(cfg.Sources.OverfetchFactor),
		source.WithMinSuccesses(cfg.Sources.MinSuccesses),
	}
	for _, name := range cfg.Sources.Required {
		opts = append(opts, source.WithRequired(model.SourceID(name)))
	}
	if cfg.Sources.RatePerSecond > 0 {
		for id := range available {
			opts = append(opts, source.WithRateLimit(id, rate.Limit(cfg.Sources.RatePerSecond), 1))
		}
	}

	return source.NewAggregator(sources, opts...), nil
}

func buildResolver(emailCache *cache.EmailCache, jinaClient jina.Client, metrics *monitoring.Metrics) (*email.Resolver, error) {
	opts := []email.ResolverOption{
		email.WithCache(emailCache),
		email.WithCrawler(crawl.NewCrawler(crawl.NewHTTPBrowser())),
		email.WithProber(email.NewProber(email.WithHelloDomain(cfg.Cascade.SMTPHelloDomain))),
		email.WithDomainClient(email.NewRDAPDomainClient(rdap.NewClient())),
		email.WithMetrics(metrics),
		email.WithConfig(email.Config{
			BroadCrawlMaxPages: cfg.Cascade.BroadCrawlMaxPages,
			BroadCrawlMaxDepth: cfg.Cascade.BroadCrawlMaxDepth,
			SitemapPageLimit:   cfg.Cascade.SitemapPageLimit,
			SearchResultLimit:  cfg.Cascade.SearchResultLimit,
		}),
	}

	var providers []email.IntelProvider
	if cfg.Hunter.Key != "" {
		providers = append(providers, email.NewHunterProvider(hunter.NewClient(cfg.Hunter.Key)))
	}
	if cfg.Snov.ClientID != "" && cfg.Snov.ClientSecret != "" {
		providers = append(providers, email.NewSnovProvider(snov.NewClient(cfg.Snov.ClientID, cfg.Snov.ClientSecret)))
	}
	if len(providers) > 0 {
		opts = append(opts, email.WithProviders(providers...))
	}

	if jinaClient != nil {
		opts = append(opts, email.WithSearcher(email.NewJinaSearcher(jinaClient)))
	}

	if cfg.Anthropic.Key != "" {
		opts = append(opts, email.WithNameExtractor(
			email.NewLLMNameExtractor(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)))
	}

	if cfg.Cascade.TiersPath != "" {
		tiers, err := email.LoadTiers(cfg.Cascade.TiersPath)
		if err != nil {
			return nil, eris.Wrap(err, "load confidence tiers")
		}
		opts = append(opts, email.WithTiers(tiers))
	}

	return email.NewResolver(opts...), nil
}
