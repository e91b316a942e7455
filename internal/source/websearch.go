package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/jina"
)

// directoryHosts are listing aggregators whose pages describe businesses
// but are not the businesses' own sites. Search hits on these hosts carry
// a name but no usable website.
var directoryHosts = map[string]bool{
	"yelp.com":        true,
	"facebook.com":    true,
	"instagram.com":   true,
	"linkedin.com":    true,
	"google.com":      true,
	"maps.google.com": true,
	"yellowpages.com": true,
	"bbb.org":         true,
	"mapquest.com":    true,
	"foursquare.com":  true,
	"tripadvisor.com": true,
	"angi.com":        true,
	"thumbtack.com":   true,
	"nextdoor.com":    true,
}

// titleNoise trails search-result titles after the business name.
var titleNoise = []string{" | ", " - ", " – ", " — "}

// WebSearchSource is the tertiary listing source: open web search hits
// mapped to thin listings. Hits only ever contribute name and website;
// the dedupe engine merges them into richer records from the primary
// sources.
type WebSearchSource struct {
	client jina.Client
}

// NewWebSearchSource wraps a jina search client.
func NewWebSearchSource(client jina.Client) *WebSearchSource {
	return &WebSearchSource{client: client}
}

func (s *WebSearchSource) ID() model.SourceID { return model.SourceWebSearch }

func (s *WebSearchSource) Discover(ctx context.Context, query, location string, limit int) ([]model.RawListing, error) {
	resp, err := s.client.Search(ctx, fmt.Sprintf("%s %s", query, location))
	if err != nil {
		return nil, err
	}

	listings := make([]model.RawListing, 0, len(resp.Data))
	seen := make(map[string]bool)
	for _, hit := range resp.Data {
		if limit > 0 && len(listings) >= limit {
			break
		}
		name := cleanTitle(hit.Title)
		if name == "" {
			continue
		}
		website := hit.URL
		if isDirectoryHost(website) {
			website = ""
		}
		key := strings.ToLower(name) + "|" + website
		if seen[key] {
			continue
		}
		seen[key] = true
		listings = append(listings, model.RawListing{
			Source:  model.SourceWebSearch,
			Name:    name,
			Website: website,
		})
	}
	return listings, nil
}

// cleanTitle keeps the part of a result title before the first separator,
// which is where sites put the business name.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range titleNoise {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

func isDirectoryHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if directoryHosts[host] {
		return true
	}
	// Subdomains of directories count too.
	for dir := range directoryHosts {
		if strings.HasSuffix(host, "."+dir) {
			return true
		}
	}
	return false
}
