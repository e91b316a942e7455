// Package model defines the core data types shared across the discovery
// and email-resolution pipeline.
package model

// SourceID identifies an external listing source.
type SourceID string

const (
	SourcePlaces    SourceID = "places"
	SourceYelp      SourceID = "yelp"
	SourceWebSearch SourceID = "websearch"
)

// RawListing is a single source's view of a business. Listings are
// ephemeral: they exist only between source fetch and deduplication.
type RawListing struct {
	Source      SourceID `json:"source"`
	ExternalID  string   `json:"external_id,omitempty"`
	Name        string   `json:"name"`
	Website     string   `json:"website,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Street      string   `json:"street,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	ZipCode     string   `json:"zip_code,omitempty"`
	Facebook    string   `json:"facebook,omitempty"`
	Instagram   string   `json:"instagram,omitempty"`
	LinkedIn    string   `json:"linkedin,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
}

// Address returns the listing's address as a single display string.
func (l RawListing) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Street, l.City, l.State, l.ZipCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// FieldCount returns how many identity-bearing fields the listing carries.
// Used to pick the more complete listing when merging conflicts.
func (l RawListing) FieldCount() int {
	n := 0
	for _, f := range []string{l.Name, l.Website, l.Phone, l.Street, l.City, l.State, l.ZipCode, l.Facebook, l.Instagram, l.LinkedIn} {
		if f != "" {
			n++
		}
	}
	return n
}

// ProgressFunc receives incremental progress events: a human-readable
// message and a completion fraction in [0, 1].
type ProgressFunc func(message string, fraction float64)
