package crawl

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// priorityPaths are the pages most likely to carry a contact email, in
// the order they should be visited after the homepage.
var priorityPaths = []string{
	"/contact",
	"/contact-us",
	"/contactus",
	"/about",
	"/about-us",
	"/team",
	"/our-team",
	"/staff",
	"/meet-the-team",
}

// contactPathHints mark sitemap URLs worth visiting during rescue.
var contactPathHints = []string{"contact", "about", "team", "staff", "location"}

// Crawler walks a business website through a Browser backend.
type Crawler struct {
	browser Browser
	http    *http.Client
	logger  *zap.Logger
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithSitemapHTTPClient overrides the client used for sitemap fetches.
func WithSitemapHTTPClient(c *http.Client) CrawlerOption {
	return func(cr *Crawler) { cr.http = c }
}

// NewCrawler creates a Crawler over the given browser backend.
func NewCrawler(browser Browser, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		browser: browser,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.L().Named("crawl"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch loads a single URL.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (Page, error) {
	return c.browser.Navigate(ctx, rawURL)
}

// VisitPriorityPages loads the homepage and the prioritized contact-ish
// paths, calling visit for each page that loads. Visiting stops when
// visit returns true or the context ends. Missing paths are skipped
// silently; sites rarely have all of them.
func (c *Crawler) VisitPriorityPages(ctx context.Context, site string, visit func(Page) bool) error {
	normalized, err := NormalizeURL(site)
	if err != nil {
		return eris.Wrap(err, "crawl: parse site url")
	}
	base := BaseURL(normalized)

	targets := []string{normalized}
	for _, p := range priorityPaths {
		targets = append(targets, base+p)
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		page, err := c.browser.Navigate(ctx, target)
		if err != nil {
			c.logger.Debug("priority page fetch failed",
				zap.String("url", target), zap.Error(err))
			continue
		}
		if visit(page) {
			return nil
		}
	}
	return nil
}

// DiscoverLinks crawls same-host links breadth-first up to maxPages and
// maxDepth, seeding from the sitemap when one exists. Returns the visited
// URL set in discovery order.
func (c *Crawler) DiscoverLinks(ctx context.Context, site string, maxPages, maxDepth int) ([]string, error) {
	normalized, err := NormalizeURL(site)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse site url")
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse base url")
	}

	type crawlItem struct {
		url   string
		depth int
	}

	seen := map[string]bool{normalized: true}
	queue := []crawlItem{{url: normalized, depth: 0}}
	var urls []string

	for _, su := range c.SitemapURLs(ctx, site) {
		if seen[su] || len(queue) >= maxPages {
			continue
		}
		seen[su] = true
		queue = append(queue, crawlItem{url: su, depth: 1})
	}

	var mu sync.Mutex
	for {
		mu.Lock()
		if len(queue) == 0 || len(urls) >= maxPages {
			mu.Unlock()
			break
		}

		var batch []crawlItem
		for len(batch) < 5 && len(queue) > 0 && len(urls) < maxPages {
			item := queue[0]
			queue = queue[1:]
			urls = append(urls, item.url)
			if item.depth < maxDepth {
				batch = append(batch, item)
			}
		}
		mu.Unlock()

		if len(batch) == 0 {
			continue
		}

		// Fresh errgroup per batch so one batch's cancellation does not
		// poison the next.
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(5)

		for _, item := range batch {
			g.Go(func() error {
				if gCtx.Err() != nil {
					return nil
				}
				page, err := c.browser.Navigate(gCtx, item.url)
				if err != nil {
					c.logger.Debug("link extraction fetch failed",
						zap.String("url", item.url), zap.Error(err))
					return nil
				}

				mu.Lock()
				for _, link := range parseLinks(page.Content(), base) {
					if seen[link] || len(urls)+len(queue) >= maxPages {
						continue
					}
					seen[link] = true
					queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return urls, nil
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// SitemapURLs fetches and parses /sitemap.xml, returning same-host URLs.
// Sitemap index files are not followed.
func (c *Crawler) SitemapURLs(ctx context.Context, site string) []string {
	normalized, err := NormalizeURL(site)
	if err != nil {
		return nil
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BaseURL(normalized)+"/sitemap.xml", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal(body, &urlSet); err != nil {
		return nil
	}

	var urls []string
	for _, entry := range urlSet.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil || u.Host != base.Host {
			continue
		}
		urls = append(urls, loc)
	}
	return urls
}

// ContactSitemapURLs filters sitemap URLs down to the contact-ish pages
// worth a rescue visit, hinted paths first.
func (c *Crawler) ContactSitemapURLs(ctx context.Context, site string, limit int) []string {
	all := c.SitemapURLs(ctx, site)
	var hinted, rest []string
	for _, u := range all {
		path := strings.ToLower(u)
		matched := false
		for _, hint := range contactPathHints {
			if strings.Contains(path, hint) {
				matched = true
				break
			}
		}
		if matched {
			hinted = append(hinted, u)
		} else {
			rest = append(rest, u)
		}
	}
	out := append(hinted, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// parseLinks extracts same-host href targets from raw HTML.
func parseLinks(html string, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	idx := 0
	for {
		pos := strings.Index(html[idx:], "href=\"")
		if pos == -1 {
			break
		}
		idx += pos + 6

		end := strings.Index(html[idx:], "\"")
		if end == -1 {
			break
		}
		href := html[idx : idx+end]
		idx += end + 1

		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			continue
		}

		resolved, err := url.Parse(href)
		if err != nil {
			continue
		}
		absolute := base.ResolveReference(resolved)
		if absolute.Host != base.Host {
			continue
		}
		absolute.Fragment = ""
		normalized := absolute.String()
		if !seen[normalized] {
			seen[normalized] = true
			links = append(links, normalized)
		}
	}
	return links
}
