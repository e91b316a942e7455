// Package crawl fetches business websites and extracts email candidates
// from their markup.
package crawl

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const userAgent = "Mozilla/5.0 (compatible; LeadScoutBot/1.0)"

// maxBodyBytes caps how much of any document we read.
const maxBodyBytes = 512 * 1024

// ExtractorFunc runs against a page's markup and returns whatever it
// found. Extractors must tolerate malformed HTML.
type ExtractorFunc func(markup string) []string

// Page is one loaded document. Backends may be a plain HTTP fetch or a
// headless browser; callers only see this surface.
type Page interface {
	// URL is the final URL after redirects.
	URL() string
	// Content returns the raw markup.
	Content() string
	// Text returns a plain-text rendering with tags stripped.
	Text() string
	// Evaluate applies an extractor to the document.
	Evaluate(fn ExtractorFunc) []string
	// Frames fetches embedded same-host frame documents.
	Frames(ctx context.Context) []string
}

// Browser navigates to URLs and yields Pages.
type Browser interface {
	Navigate(ctx context.Context, rawURL string) (Page, error)
}

// HTTPBrowser is the default Browser backend: plain HTTP with redirect
// following, no script execution.
type HTTPBrowser struct {
	client *http.Client
}

// Option configures an HTTPBrowser.
type Option func(*HTTPBrowser)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *HTTPBrowser) {
		b.client = c
	}
}

// NewHTTPBrowser creates an HTTPBrowser with sane network timeouts.
func NewHTTPBrowser(opts ...Option) *HTTPBrowser {
	b := &HTTPBrowser{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Navigate fetches rawURL and returns the loaded page. Bot-blocked
// responses surface as retryable errors so the resilience layer can back
// off and retry.
func (b *HTTPBrowser) Navigate(ctx context.Context, rawURL string) (Page, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: read body")
	}

	if err := detectBlock(resp.StatusCode, body); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("crawl: unexpected status %d for %s", resp.StatusCode, normalized)
	}

	return &httpPage{
		url:     resp.Request.URL.String(),
		content: string(body),
		browser: b,
	}, nil
}

type httpPage struct {
	url     string
	content string
	browser *HTTPBrowser
}

func (p *httpPage) URL() string     { return p.url }
func (p *httpPage) Content() string { return p.content }

func (p *httpPage) Evaluate(fn ExtractorFunc) []string {
	return fn(p.content)
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	iframeRe = regexp.MustCompile(`(?is)<i?frame[^>]+src="([^"]+)"`)
)

func (p *httpPage) Text() string {
	s := scriptRe.ReplaceAllString(p.content, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&#64;", "@")
	s = strings.ReplaceAll(s, "&#46;", ".")
	return strings.Join(strings.Fields(s), " ")
}

// Frames fetches same-host iframe documents, one level deep.
func (p *httpPage) Frames(ctx context.Context) []string {
	base, err := url.Parse(p.url)
	if err != nil {
		return nil
	}

	var docs []string
	for _, m := range iframeRe.FindAllStringSubmatch(p.content, 5) {
		src, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		abs := base.ResolveReference(src)
		if abs.Host != base.Host {
			continue
		}
		framePage, err := p.browser.Navigate(ctx, abs.String())
		if err != nil {
			continue
		}
		docs = append(docs, framePage.Content())
	}
	return docs
}

// NormalizeURL defaults the scheme to https and ensures a path.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("crawl: empty url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// BaseURL reduces a URL to scheme://host.
func BaseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
