package model

import "time"

// EmailCandidate is one discovered email with the phase that produced it.
// Only the top-priority candidate survives phase selection.
type EmailCandidate struct {
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
	Phase      string  `json:"phase"`
}

// EmailResult is the final, immutable outcome of the discovery cascade for
// one business. Source names the winning phase. Confidence is always
// catch-all-adjusted before the result is returned or cached.
type EmailResult struct {
	Email             string  `json:"email,omitempty"`
	Source            string  `json:"source"`
	Confidence        float64 `json:"confidence"`
	DiscoveredWebsite string  `json:"discovered_website,omitempty"`
}

// Found reports whether the cascade produced an email at all.
func (r EmailResult) Found() bool {
	return r.Email != ""
}

// CacheEntry is a cached email discovery for a domain.
type CacheEntry struct {
	Domain     string    `json:"domain"`
	Email      string    `json:"email"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	IsCatchAll bool      `json:"is_catch_all"`
	CachedAt   time.Time `json:"cached_at"`
}
