// Package source aggregates business listings from external directories.
// Each Source wraps one service client; the Aggregator walks sources in
// priority order behind circuit breakers, retries, and rate limits.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/places"
	"github.com/sells-group/leadscout/pkg/yelp"
)

// Source is one external listing directory.
type Source interface {
	ID() model.SourceID
	Discover(ctx context.Context, query, location string, limit int) ([]model.RawListing, error)
}

// PlacesSource is the primary listing source, backed by Google Places
// text search.
type PlacesSource struct {
	client places.Client
}

// NewPlacesSource wraps a places client.
func NewPlacesSource(client places.Client) *PlacesSource {
	return &PlacesSource{client: client}
}

func (s *PlacesSource) ID() model.SourceID { return model.SourcePlaces }

func (s *PlacesSource) Discover(ctx context.Context, query, location string, limit int) ([]model.RawListing, error) {
	resp, err := s.client.TextSearch(ctx, fmt.Sprintf("%s in %s", query, location), limit)
	if err != nil {
		return nil, err
	}

	listings := make([]model.RawListing, 0, len(resp.Places))
	for _, p := range resp.Places {
		street := strings.TrimSpace(p.Component("street_number") + " " + p.Component("route"))
		listings = append(listings, model.RawListing{
			Source:      model.SourcePlaces,
			ExternalID:  p.ID,
			Name:        p.DisplayName.Text,
			Website:     p.WebsiteURI,
			Phone:       p.NationalPhoneNumber,
			Street:      street,
			City:        p.Component("locality"),
			State:       p.Component("administrative_area_level_1"),
			ZipCode:     p.Component("postal_code"),
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
		})
	}
	return listings, nil
}

// YelpSource is the secondary listing source.
type YelpSource struct {
	client yelp.Client
}

// NewYelpSource wraps a yelp client.
func NewYelpSource(client yelp.Client) *YelpSource {
	return &YelpSource{client: client}
}

func (s *YelpSource) ID() model.SourceID { return model.SourceYelp }

func (s *YelpSource) Discover(ctx context.Context, query, location string, limit int) ([]model.RawListing, error) {
	resp, err := s.client.SearchBusinesses(ctx, query, location, limit)
	if err != nil {
		return nil, err
	}

	listings := make([]model.RawListing, 0, len(resp.Businesses))
	for _, b := range resp.Businesses {
		listings = append(listings, model.RawListing{
			Source:      model.SourceYelp,
			ExternalID:  b.ID,
			Name:        b.Name,
			Website:     b.Attributes.BusinessURL,
			Phone:       b.Phone,
			Street:      b.Location.Address1,
			City:        b.Location.City,
			State:       b.Location.State,
			ZipCode:     b.Location.ZipCode,
			Rating:      b.Rating,
			ReviewCount: b.ReviewCount,
		})
	}
	return listings, nil
}
