package email

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/crawl"
	"github.com/sells-group/leadscout/internal/model"
)

// runCache short-circuits on a confident, non-stale cache entry.
func (r *Resolver) runCache(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.cache == nil || st.domain == "" {
		return nil, nil
	}

	entry, tier, err := r.cache.Lookup(ctx, st.domain)
	if err != nil {
		return nil, err
	}
	if entry == nil || tier == cache.FreshnessStale {
		r.metrics.CacheMiss()
		return nil, nil
	}
	r.metrics.CacheHit()

	// Aging entries get a cheap re-verification when a provider can
	// give one; a dead cached address must not stop the cascade.
	if tier == cache.FreshnessAging {
		if v, ok := verifyWithProviders(ctx, r.providers, entry.Email); ok && !v.Deliverable {
			r.logger.Debug("aging cache entry failed re-verify",
				zap.String("domain", st.domain), zap.String("email", entry.Email))
			return nil, nil
		}
	}

	return &model.EmailCandidate{
		Email:      entry.Email,
		Confidence: entry.Confidence,
		Phase:      PhaseCache,
	}, nil
}

// runIntel queries the contact-intelligence providers in parallel.
func (r *Resolver) runIntel(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if len(r.providers) == 0 || st.domain == "" {
		return nil, nil
	}

	best, err := searchProviders(ctx, r.providers, st.domain)
	if err != nil || best == nil {
		return nil, err
	}

	conf := best.Confidence
	if base := r.tiers.BaseFor(PhaseIntel); conf < base {
		conf = base
	}
	return &model.EmailCandidate{Email: best.Email, Confidence: conf, Phase: PhaseIntel}, nil
}

// runWebsiteCrawl walks the prioritized contact paths, stopping once two
// top-priority candidates turn up. On-domain candidates below the
// generic/departmental classes are stashed for the rescue pass instead
// of accepted.
func (r *Resolver) runWebsiteCrawl(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.crawler == nil || st.website() == "" {
		return nil, nil
	}

	var found []crawl.Candidate
	err := r.crawler.VisitPriorityPages(ctx, st.website(), func(page crawl.Page) bool {
		st.siteText = append(st.siteText, page.Text())
		found = mergeCandidates(found, crawl.FilterCandidates(crawl.ExtractEmails(ctx, page), st.domain))
		return crawl.CountTopPriority(found) >= 2
	})
	if err != nil {
		return nil, err
	}

	return r.pickCrawlCandidate(st, found, PhaseWebsite), nil
}

// runBroaderCrawl fetches the wider link graph, bounded by config. Only
// reached when the priority paths produced nothing top-priority.
func (r *Resolver) runBroaderCrawl(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.crawler == nil || st.website() == "" {
		return nil, nil
	}

	links, err := r.crawler.DiscoverLinks(ctx, st.website(), r.cfg.BroadCrawlMaxPages, r.cfg.BroadCrawlMaxDepth)
	if err != nil {
		return nil, err
	}

	var found []crawl.Candidate
	for _, link := range links {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page, err := r.crawler.Fetch(ctx, link)
		if err != nil {
			continue
		}
		st.siteText = append(st.siteText, page.Text())
		found = mergeCandidates(found, crawl.FilterCandidates(crawl.ExtractEmails(ctx, page), st.domain))
		if crawl.CountTopPriority(found) >= 2 {
			break
		}
	}

	return r.pickCrawlCandidate(st, found, PhaseBroaderSite), nil
}

// runSitemapRescue visits contact-ish sitemap entries, then falls back
// to the weak on-domain candidates stashed by the earlier crawls.
func (r *Resolver) runSitemapRescue(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.crawler == nil || st.website() == "" {
		return nil, nil
	}

	var found []crawl.Candidate
	for _, u := range r.crawler.ContactSitemapURLs(ctx, st.website(), r.cfg.SitemapPageLimit) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page, err := r.crawler.Fetch(ctx, u)
		if err != nil {
			continue
		}
		found = mergeCandidates(found, crawl.FilterCandidates(crawl.ExtractEmails(ctx, page), st.domain))
	}

	if cand := r.pickCrawlCandidate(st, found, PhaseSitemap); cand != nil {
		return cand, nil
	}

	// Last use of anything the site itself published.
	if len(st.weakCandidates) > 0 {
		return &model.EmailCandidate{
			Email:      st.weakCandidates[0].Email,
			Confidence: r.tiers.CrawlOther,
			Phase:      PhaseSitemap,
		}, nil
	}
	return nil, nil
}

// runSocial scrapes the business's social profiles for a published
// address.
func (r *Resolver) runSocial(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.crawler == nil {
		return nil, nil
	}

	profiles := []string{st.biz.Facebook, st.biz.Instagram, st.biz.LinkedIn}
	for _, profile := range profiles {
		if profile == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page, err := r.crawler.Fetch(ctx, profile)
		if err != nil {
			continue
		}
		for _, cand := range crawl.FilterCandidates(crawl.ExtractEmails(ctx, page), st.domain) {
			// On a social page, anything surviving the filters that
			// matches the business domain is the business's address.
			if st.domain == "" || cand.Priority != crawl.PriorityOffDomain {
				return &model.EmailCandidate{
					Email:      cand.Email,
					Confidence: r.tiers.BaseFor(PhaseSocial),
					Phase:      PhaseSocial,
				}, nil
			}
		}
	}
	return nil, nil
}

// runWebSearch queries the open web for the business and keeps
// domain-matching, non-generic addresses. When the listing had no
// website, a plausible official site found here is recorded for the
// phases that follow.
func (r *Resolver) runWebSearch(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.searcher == nil {
		return nil, nil
	}

	queries := []string{
		fmt.Sprintf("%q %s email contact", st.biz.Name, st.biz.City),
	}
	if st.domain != "" {
		queries = append(queries, fmt.Sprintf("%q email", "@"+st.domain))
	}

	for _, q := range queries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		hits, err := r.searcher.Search(ctx, q)
		if err != nil {
			r.logger.Debug("web search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		if len(hits) > r.cfg.SearchResultLimit {
			hits = hits[:r.cfg.SearchResultLimit]
		}

		for _, hit := range hits {
			if st.domain == "" {
				r.maybeDiscoverWebsite(st, hit.URL)
			}
			for _, cand := range crawl.FilterCandidates(crawl.ExtractFromMarkup(hit.Content), st.domain) {
				if st.domain != "" && cand.Priority == crawl.PriorityOffDomain {
					continue
				}
				if cand.Priority == crawl.PriorityGeneric {
					// Generic hits from random pages are usually
					// scraped directories quoting the same address.
					continue
				}
				return &model.EmailCandidate{
					Email:      cand.Email,
					Confidence: r.tiers.BaseFor(PhaseWebSearch),
					Phase:      PhaseWebSearch,
				}, nil
			}
		}
	}
	return nil, nil
}

// maybeDiscoverWebsite records a search hit as the business's website
// when its host contains the business name's tokens.
func (r *Resolver) maybeDiscoverWebsite(st *resolveState, hitURL string) {
	host := cache.NormalizeDomain(hitURL)
	if host == "" || isAggregatorHost(host) {
		return
	}
	compact := strings.ReplaceAll(strings.ToLower(st.biz.Name), " ", "")
	compact = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, compact)
	if compact == "" {
		return
	}
	hostBase := strings.SplitN(host, ".", 2)[0]
	if strings.Contains(compact, hostBase) || strings.Contains(hostBase, compact) {
		st.domain = host
		st.discoveredWebsite = host
		r.logger.Debug("discovered website via search",
			zap.String("business", st.biz.Name), zap.String("domain", host))
	}
}

// aggregatorHosts never belong to the business itself.
var aggregatorHosts = map[string]bool{
	"yelp.com": true, "facebook.com": true, "instagram.com": true,
	"linkedin.com": true, "google.com": true, "yellowpages.com": true,
	"bbb.org": true, "mapquest.com": true, "foursquare.com": true,
	"angi.com": true, "thumbtack.com": true, "nextdoor.com": true,
}

func isAggregatorHost(host string) bool {
	for agg := range aggregatorHosts {
		if host == agg || strings.HasSuffix(host, "."+agg) {
			return true
		}
	}
	return false
}

// runLicensing searches state licensing and registration boards. Only
// possible when a state is known.
func (r *Resolver) runLicensing(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.searcher == nil || st.biz.State == "" {
		return nil, nil
	}

	q := fmt.Sprintf("%q %s license registration contact email", st.biz.Name, st.biz.State)
	hits, err := r.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(hits) > r.cfg.SearchResultLimit {
		hits = hits[:r.cfg.SearchResultLimit]
	}

	for _, hit := range hits {
		for _, cand := range crawl.FilterCandidates(crawl.ExtractFromMarkup(hit.Content), st.domain) {
			if st.domain != "" && cand.Priority == crawl.PriorityOffDomain {
				continue
			}
			return &model.EmailCandidate{
				Email:      cand.Email,
				Confidence: r.tiers.BaseFor(PhaseLicensing),
				Phase:      PhaseLicensing,
			}, nil
		}
	}
	return nil, nil
}

// maxPermutationProbes bounds SMTP traffic per domain.
const maxPermutationProbes = 16

// runPermutation guesses local-parts from extracted contact names,
// verified through a provider first and MX+SMTP second. Confirmed
// guesses teach the domain's pattern.
func (r *Resolver) runPermutation(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if st.domain == "" || r.prober == nil {
		return nil, nil
	}

	text := strings.Join(st.siteText, "\n")
	if text == "" && r.crawler != nil {
		if page, err := r.crawler.Fetch(ctx, st.website()); err == nil {
			text = page.Text()
		}
	}
	if text == "" {
		return nil, nil
	}

	names, err := r.names.ExtractNames(ctx, text)
	if err != nil {
		r.logger.Debug("name extraction failed", zap.Error(err))
		names, _ = RegexNameExtractor{}.ExtractNames(ctx, text)
	}
	if len(names) == 0 {
		return nil, nil
	}

	patterns, learned := orderedPatterns(r.patterns, st.domain)
	smtpUsable := !r.prober.IsCatchAll(ctx, st.domain)

	probes := 0
	for _, name := range names {
		for _, p := range patterns {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			local := p.Apply(name.First, name.Last)
			if local == "" {
				continue
			}
			guess := local + "@" + st.domain

			conf, ok := r.verifyGuess(ctx, guess, smtpUsable, &probes)
			if !ok {
				if probes >= maxPermutationProbes {
					return nil, nil
				}
				continue
			}

			if p == learned {
				conf += r.tiers.PatternBoost
			}
			r.learnPattern(st.domain, local, name)

			return &model.EmailCandidate{Email: guess, Confidence: conf, Phase: PhasePermutation}, nil
		}
	}
	return nil, nil
}

// verifyGuess checks one permutation, provider-first.
func (r *Resolver) verifyGuess(ctx context.Context, guess string, smtpUsable bool, probes *int) (float64, bool) {
	if v, ok := verifyWithProviders(ctx, r.providers, guess); ok {
		if v.Deliverable {
			conf := r.tiers.BaseFor(PhasePermutation)
			if v.Score > conf {
				conf = v.Score
			}
			return conf, true
		}
		return 0, false
	}

	if !smtpUsable {
		return 0, false
	}
	*probes++
	accepted, err := r.prober.Accepts(ctx, guess)
	if err != nil || !accepted {
		return 0, false
	}
	return r.tiers.BaseFor(PhasePermutation), true
}

func (r *Resolver) learnPattern(domain, local string, name PersonName) {
	if p, ok := InferPattern(local, name.First, name.Last); ok {
		r.patterns.Put(domain, p)
	}
}

// privacyProxyDomains mask the real registrant in RDAP records.
var privacyProxyDomains = []string{
	"domainsbyproxy.com", "whoisguard.com", "withheldforprivacy.com",
	"privacyguardian.org", "contactprivacy.com", "whoisprivacyprotect.com",
	"privacyprotect.org", "identity-protect.org", "perfectprivacy.com",
	"anonymised.email",
}

// genericRegistrarDomains are registrar/provider inboxes, not the owner.
var genericRegistrarDomains = []string{
	"godaddy.com", "namecheap.com", "networksolutions.com", "tucows.com",
	"registrar.eu", "gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
}

// runDomainRecord pulls registrant/admin/tech contacts from registration
// data, skipping privacy proxies and registrar inboxes.
func (r *Resolver) runDomainRecord(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if r.domains == nil || st.domain == "" {
		return nil, nil
	}

	contacts, err := r.domains.DomainContacts(ctx, st.domain)
	if err != nil {
		return nil, err
	}

	for _, email := range contacts {
		email = strings.ToLower(strings.TrimSpace(email))
		domain := emailDomain(email)
		if domain == "" || isProxyOrRegistrar(domain) {
			continue
		}
		return &model.EmailCandidate{
			Email:      email,
			Confidence: r.tiers.BaseFor(PhaseDomainRec),
			Phase:      PhaseDomainRec,
		}, nil
	}
	return nil, nil
}

func isProxyOrRegistrar(domain string) bool {
	for _, d := range privacyProxyDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, d := range genericRegistrarDomains {
		if domain == d {
			return true
		}
	}
	return false
}

// generatedLocals are the role inboxes tried by the last-resort phase.
var generatedLocals = []string{"info", "contact", "hello", "office", "mail"}

// runGenerated fabricates role addresses as the cascade's floor. SMTP
// acceptance picks the best local-part; plain MX validity is enough to
// return the conventional info@ at a visibly lower tier.
func (r *Resolver) runGenerated(ctx context.Context, st *resolveState) (*model.EmailCandidate, error) {
	if st.domain == "" || r.prober == nil {
		return nil, nil
	}

	hasMX := r.prober.HasMX(ctx, st.domain)
	catchAll := hasMX && r.prober.IsCatchAll(ctx, st.domain)

	if hasMX && !catchAll {
		g, gCtx := errgroup.WithContext(ctx)
		accepted := make([]bool, len(generatedLocals))
		for i, local := range generatedLocals {
			g.Go(func() error {
				ok, err := r.prober.Accepts(gCtx, local+"@"+st.domain)
				if err == nil && ok {
					accepted[i] = true
				}
				return nil
			})
		}
		_ = g.Wait()

		for i, local := range generatedLocals {
			if accepted[i] {
				return &model.EmailCandidate{
					Email:      local + "@" + st.domain,
					Confidence: r.tiers.GeneratedMX,
					Phase:      PhaseGenerated,
				}, nil
			}
		}
	}

	conf := r.tiers.GeneratedNoMX
	if hasMX {
		conf = r.tiers.GeneratedMX
	}
	return &model.EmailCandidate{
		Email:      generatedLocals[0] + "@" + st.domain,
		Confidence: conf,
		Phase:      PhaseGenerated,
	}, nil
}

// website returns the crawlable site for the business, preferring the
// listing's own over one discovered mid-cascade.
func (st *resolveState) website() string {
	if st.biz.Website != "" {
		return st.biz.Website
	}
	return st.discoveredWebsite
}

// pickCrawlCandidate accepts generic or departmental finds, generic
// first, and stashes weaker on-domain ones for the rescue pass.
func (r *Resolver) pickCrawlCandidate(st *resolveState, found []crawl.Candidate, phase string) *model.EmailCandidate {
	var departmental *crawl.Candidate
	for i := range found {
		switch found[i].Priority {
		case crawl.PriorityGeneric:
			return &model.EmailCandidate{Email: found[i].Email, Confidence: r.tiers.CrawlGeneric, Phase: phase}
		case crawl.PriorityDepartmental:
			if departmental == nil {
				departmental = &found[i]
			}
		case crawl.PriorityOther:
			st.weakCandidates = append(st.weakCandidates, found[i])
		}
	}
	if departmental != nil {
		return &model.EmailCandidate{Email: departmental.Email, Confidence: r.tiers.CrawlDepartmental, Phase: phase}
	}
	return nil
}

// mergeCandidates unions candidate lists preserving order and priority
// sorting.
func mergeCandidates(a, b []crawl.Candidate) []crawl.Candidate {
	seen := make(map[string]bool, len(a))
	for _, c := range a {
		seen[c.Email] = true
	}
	out := a
	for _, c := range b {
		if !seen[c.Email] {
			seen[c.Email] = true
			out = append(out, c)
		}
	}
	return out
}
