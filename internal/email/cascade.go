package email

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/crawl"
	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
)

// WebSearcher runs open-web queries. Satisfied by the jina client.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// SearchHit is one open-web search result.
type SearchHit struct {
	Title   string
	URL     string
	Content string
}

// DomainClient looks up domain registration contacts. Satisfied by the
// rdap client.
type DomainClient interface {
	DomainContacts(ctx context.Context, domain string) ([]string, error)
}

// Phase is one discovery strategy. Run returns (nil, nil) when the phase
// has nothing: preconditions unmet, or no candidate found. A returned
// candidate below MinConfidence is discarded and the cascade continues.
type Phase struct {
	Name          string
	MinConfidence float64
	Run           func(ctx context.Context, st *resolveState) (*model.EmailCandidate, error)
}

// Config bounds the cascade's crawling appetite.
type Config struct {
	BroadCrawlMaxPages int
	BroadCrawlMaxDepth int
	SitemapPageLimit   int
	SearchResultLimit  int
}

// DefaultConfig returns the stock crawl bounds.
func DefaultConfig() Config {
	return Config{
		BroadCrawlMaxPages: 25,
		BroadCrawlMaxDepth: 2,
		SitemapPageLimit:   10,
		SearchResultLimit:  5,
	}
}

// Resolver drives one business at a time through the phase cascade.
// Safe for concurrent use; per-business state lives in resolveState.
type Resolver struct {
	cache     *cache.EmailCache
	crawler   *crawl.Crawler
	providers []IntelProvider
	searcher  WebSearcher
	domains   DomainClient
	prober    *Prober
	patterns  PatternStore
	names     NameExtractor
	tiers     *Tiers
	metrics   *monitoring.Metrics
	cfg       Config
	logger    *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache sets the email cache used by the first phase and write-through.
func WithCache(c *cache.EmailCache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithCrawler sets the site crawler for the crawl phases.
func WithCrawler(c *crawl.Crawler) ResolverOption {
	return func(r *Resolver) { r.crawler = c }
}

// WithProviders sets the contact-intelligence providers.
func WithProviders(ps ...IntelProvider) ResolverOption {
	return func(r *Resolver) { r.providers = ps }
}

// WithSearcher sets the open-web search client.
func WithSearcher(s WebSearcher) ResolverOption {
	return func(r *Resolver) { r.searcher = s }
}

// WithDomainClient sets the registration-data client.
func WithDomainClient(d DomainClient) ResolverOption {
	return func(r *Resolver) { r.domains = d }
}

// WithProber sets the MX/SMTP prober.
func WithProber(p *Prober) ResolverOption {
	return func(r *Resolver) { r.prober = p }
}

// WithPatternStore sets the learned-pattern store.
func WithPatternStore(s PatternStore) ResolverOption {
	return func(r *Resolver) { r.patterns = s }
}

// WithNameExtractor sets the contact-name extractor for permutations.
func WithNameExtractor(n NameExtractor) ResolverOption {
	return func(r *Resolver) { r.names = n }
}

// WithTiers overrides the confidence calibration.
func WithTiers(t *Tiers) ResolverOption {
	return func(r *Resolver) { r.tiers = t }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithConfig overrides the crawl bounds.
func WithConfig(cfg Config) ResolverOption {
	return func(r *Resolver) { r.cfg = cfg }
}

// NewResolver builds a Resolver. Every collaborator is optional; phases
// whose collaborator is absent skip themselves.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prober:   NewProber(),
		patterns: NewMemoryPatternStore(),
		names:    RegexNameExtractor{},
		tiers:    DefaultTiers(),
		cfg:      DefaultConfig(),
		logger:   zap.L().Named("email"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolveState is the per-business scratch space shared across phases.
type resolveState struct {
	biz    *model.CanonicalBusiness
	domain string
	parked bool

	// siteText accumulates crawled page text for name extraction.
	siteText []string

	// weakCandidates are on-domain finds below the crawl stop rule,
	// kept for the sitemap rescue pass.
	weakCandidates []crawl.Candidate

	// discoveredWebsite is set when a later phase (web search) turns up
	// a domain the listing lacked.
	discoveredWebsite string

	// catchAll carries the probe verdict for the accepted candidate's
	// domain into the cache entry.
	catchAll bool
}

// Resolve runs the cascade for one business. The returned result has
// Found() == false when every phase came up empty; that is not an error.
func (r *Resolver) Resolve(ctx context.Context, biz *model.CanonicalBusiness) (*model.EmailResult, error) {
	st := &resolveState{
		biz:    biz,
		domain: cache.NormalizeDomain(biz.Website),
		parked: dedupe.IsParkedDomain(biz.Website),
	}

	for _, phase := range r.phases() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, err := phase.Run(ctx, st)
		if err != nil {
			r.logger.Debug("phase failed",
				zap.String("phase", phase.Name),
				zap.String("business", biz.Name),
				zap.Error(err))
			continue
		}
		if cand == nil || cand.Email == "" {
			continue
		}

		result := r.finalize(ctx, st, cand)
		if result.Confidence < phase.MinConfidence {
			r.logger.Debug("candidate below phase floor",
				zap.String("phase", phase.Name),
				zap.String("email", cand.Email),
				zap.Float64("confidence", result.Confidence))
			continue
		}

		// The parked cap bounds reported confidence but does not gate
		// acceptance: a discovered email on a parked domain is still
		// better evidence than the generated fallback.
		if st.parked && result.Confidence > r.tiers.ParkedDomainCap {
			result.Confidence = r.tiers.ParkedDomainCap
		}

		r.metrics.PhaseWin(phase.Name)
		r.writeThrough(ctx, st, result)
		r.logger.Info("email resolved",
			zap.String("business", biz.Name),
			zap.String("phase", phase.Name),
			zap.Float64("confidence", result.Confidence))
		return result, nil
	}

	r.metrics.EmailMissed()
	return &model.EmailResult{DiscoveredWebsite: st.discoveredWebsite}, nil
}

// phases returns the strict cascade order.
func (r *Resolver) phases() []Phase {
	return []Phase{
		{Name: PhaseCache, MinConfidence: r.tiers.MinCacheAccept, Run: r.runCache},
		{Name: PhaseIntel, MinConfidence: 0.6, Run: r.runIntel},
		{Name: PhaseWebsite, MinConfidence: 0.6, Run: r.runWebsiteCrawl},
		{Name: PhaseBroaderSite, MinConfidence: 0.6, Run: r.runBroaderCrawl},
		{Name: PhaseSitemap, MinConfidence: 0.6, Run: r.runSitemapRescue},
		{Name: PhaseSocial, MinConfidence: 0.6, Run: r.runSocial},
		{Name: PhaseWebSearch, MinConfidence: 0.6, Run: r.runWebSearch},
		{Name: PhaseLicensing, MinConfidence: 0.6, Run: r.runLicensing},
		{Name: PhasePermutation, MinConfidence: 0.6, Run: r.runPermutation},
		{Name: PhaseDomainRec, MinConfidence: 0.6, Run: r.runDomainRecord},
		{Name: PhaseGenerated, MinConfidence: 0.0, Run: r.runGenerated},
	}
}

// finalize applies catch-all discounting to a candidate. Confidence is
// always catch-all-adjusted before the result is returned or cached; the
// parked-domain cap happens after phase-floor acceptance in Resolve.
func (r *Resolver) finalize(ctx context.Context, st *resolveState, cand *model.EmailCandidate) *model.EmailResult {
	conf := cand.Confidence

	// Cached entries were already adjusted when written; discounting
	// twice would decay confidence on every hit.
	domain := emailDomain(cand.Email)
	if domain != "" && r.prober != nil && cand.Phase != PhaseCache {
		st.catchAll = r.prober.IsCatchAll(ctx, domain)
		conf = r.tiers.AdjustForCatchAll(conf, st.catchAll, smtpDerived(cand.Phase))
	}

	return &model.EmailResult{
		Email:             cand.Email,
		Source:            cand.Phase,
		Confidence:        conf,
		DiscoveredWebsite: st.discoveredWebsite,
	}
}

// smtpDerived reports whether a phase's evidence is SMTP acceptance
// rather than an API verdict or a page the business published.
func smtpDerived(phase string) bool {
	return phase == PhasePermutation || phase == PhaseGenerated
}

func (r *Resolver) writeThrough(ctx context.Context, st *resolveState, result *model.EmailResult) {
	if r.cache == nil || st.domain == "" || !result.Found() {
		return
	}
	// A cache hit re-written would refresh its age for free.
	if result.Source == PhaseCache {
		return
	}
	err := r.cache.Put(ctx, model.CacheEntry{
		Domain:     st.domain,
		Email:      result.Email,
		Confidence: result.Confidence,
		Source:     result.Source,
		IsCatchAll: st.catchAll,
	})
	if err != nil {
		r.logger.Warn("cache write failed", zap.String("domain", st.domain), zap.Error(err))
	}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
