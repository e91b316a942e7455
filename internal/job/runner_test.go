package job

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/email"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/source"
)

type stubSource struct {
	id       model.SourceID
	listings []model.RawListing
	err      error
}

func (s *stubSource) ID() model.SourceID { return s.id }

func (s *stubSource) Discover(context.Context, string, string, int) ([]model.RawListing, error) {
	return s.listings, s.err
}

// offlineResolver builds a resolver whose only working phase is the
// generated fallback, with DNS replaced by a failing MX lookup.
func offlineResolver(t *testing.T) *email.Resolver {
	t.Helper()
	prober := email.NewProber(email.WithMXLookup(
		func(context.Context, string) ([]*net.MX, error) {
			return nil, errors.New("lookup disabled")
		}))
	return email.NewResolver(
		email.WithCache(cache.New(cache.NewMemory())),
		email.WithProber(prober),
	)
}

func testAggregator(sources ...source.Source) *source.Aggregator {
	return source.NewAggregator(sources,
		source.WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}))
}

func TestRunFullPipeline(t *testing.T) {
	t.Parallel()

	placesSrc := &stubSource{id: model.SourcePlaces, listings: []model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental", Phone: "(512) 555-0101", Website: "https://smithdental.com", City: "Austin", State: "TX", ZipCode: "78701"},
		{Source: model.SourcePlaces, Name: "Jones Orthodontics", Phone: "(512) 555-0202", City: "Austin", State: "TX"},
	}}
	yelpSrc := &stubSource{id: model.SourceYelp, listings: []model.RawListing{
		{Source: model.SourceYelp, Name: "Smith Dental LLC", Phone: "+1 512 555 0101", Street: "100 Main St"},
	}}

	r := NewRunner(
		testAggregator(placesSrc, yelpSrc),
		dedupe.NewEngine(0),
		offlineResolver(t),
	)

	got, err := r.Run(context.Background(), Params{
		Query:       "dentist",
		Location:    "Austin, TX",
		TargetCount: 10,
	}, nil)

	require.NoError(t, err)
	require.Len(t, got.Businesses, 2)
	assert.Equal(t, 3, got.Stats.InputCount)

	var smith *model.CanonicalBusiness
	for _, b := range got.Businesses {
		if b.HasSource(model.SourceYelp) {
			smith = b
		}
	}
	require.NotNil(t, smith, "merged business should carry both sources")
	assert.Len(t, smith.Sources, 2)

	// The only reachable phase is the generated fallback on the one
	// business with a website.
	require.NotNil(t, smith.Email)
	assert.Equal(t, "info@smithdental.com", smith.Email.Email)
	assert.Equal(t, "generated", smith.Email.Source)
	assert.Greater(t, smith.Quality.EmailScore, 0.0)
}

func TestRunProgressMonotonic(t *testing.T) {
	t.Parallel()

	src := &stubSource{id: model.SourcePlaces, listings: []model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental"},
		{Source: model.SourcePlaces, Name: "Jones Orthodontics"},
	}}

	r := NewRunner(testAggregator(src), dedupe.NewEngine(0), offlineResolver(t),
		WithConcurrency(1))

	var fractions []float64
	_, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 5,
	}, func(_ string, fraction float64) {
		fractions = append(fractions, fraction)
	})

	require.NoError(t, err)
	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 0.001)
}

func TestRunDiscoveryFailureIsFatal(t *testing.T) {
	t.Parallel()

	src := &stubSource{id: model.SourcePlaces, err: errors.New("quota exceeded")}
	r := NewRunner(testAggregator(src), dedupe.NewEngine(0), offlineResolver(t))

	_, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 5,
	}, nil)
	require.Error(t, err)
}

func TestRunResolutionFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	// No website anywhere: every cascade phase comes up empty and the
	// job still completes.
	src := &stubSource{id: model.SourcePlaces, listings: []model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental"},
	}}
	m := monitoring.New()

	r := NewRunner(testAggregator(src), dedupe.NewEngine(0),
		email.NewResolver(email.WithMetrics(m)),
		WithMetrics(m))

	got, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 5,
	}, nil)

	require.NoError(t, err)
	require.Len(t, got.Businesses, 1)
	assert.False(t, got.Businesses[0].Email.Found())
	assert.Equal(t, 1, m.Snapshot().EmailsMissed)
}

func TestRunHonorsDeadline(t *testing.T) {
	t.Parallel()

	src := &stubSource{id: model.SourcePlaces, listings: []model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental"},
	}}

	r := NewRunner(testAggregator(src), dedupe.NewEngine(0), offlineResolver(t),
		WithDeadline(time.Nanosecond))

	_, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 5,
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunTruncatesToTargetCount(t *testing.T) {
	t.Parallel()

	listings := make([]model.RawListing, 8)
	for i := range listings {
		listings[i] = model.RawListing{
			Source: model.SourcePlaces,
			Name:   string(rune('A'+i)) + " Dental",
			Phone:  "(512) 555-010" + string(rune('0'+i)),
		}
	}
	src := &stubSource{id: model.SourcePlaces, listings: listings}

	r := NewRunner(testAggregator(src), dedupe.NewEngine(0), offlineResolver(t))

	got, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 3,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, got.Businesses, 3)
}

func TestRunTruncationKeepsBestScored(t *testing.T) {
	t.Parallel()

	// Five name-only listings and one complete business.
	listings := make([]model.RawListing, 0, 6)
	for i := 0; i < 5; i++ {
		listings = append(listings, model.RawListing{
			Source: model.SourcePlaces,
			Name:   string(rune('A'+i)) + " Dental",
		})
	}
	listings = append(listings, model.RawListing{
		Source: model.SourcePlaces, Name: "Smith Dental",
		Phone: "(512) 555-0101", Website: "https://smithdental.com",
		Street: "100 Main St", City: "Austin", State: "TX", ZipCode: "78701",
	})
	src := &stubSource{id: model.SourcePlaces, listings: listings}

	r := NewRunner(testAggregator(src), dedupe.NewEngine(0), offlineResolver(t))

	got, err := r.Run(context.Background(), Params{
		Query: "dentist", Location: "Austin, TX", TargetCount: 2,
	}, nil)
	require.NoError(t, err)
	require.Len(t, got.Businesses, 2)

	names := []string{got.Businesses[0].Name, got.Businesses[1].Name}
	assert.Contains(t, names, "Smith Dental")
	// Best-scored business comes out first.
	assert.Equal(t, "Smith Dental", got.Businesses[0].Name)
}
