package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/cache"
	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/email"
	"github.com/sells-group/leadscout/internal/job"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/source"
)

type stubSource struct {
	id       model.SourceID
	listings []model.RawListing
}

func (s *stubSource) ID() model.SourceID { return s.id }

func (s *stubSource) Discover(context.Context, string, string, int) ([]model.RawListing, error) {
	return s.listings, nil
}

// testEnv wires an env against a stub source and a resolver that never
// touches the network.
func testEnv(t *testing.T) *env {
	t.Helper()

	src := &stubSource{id: model.SourcePlaces, listings: []model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental", Phone: "(512) 555-0101", City: "Austin", State: "TX"},
	}}
	agg := source.NewAggregator([]source.Source{src},
		source.WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}))

	prober := email.NewProber(email.WithMXLookup(
		func(context.Context, string) ([]*net.MX, error) {
			return nil, errors.New("lookup disabled")
		}))
	resolver := email.NewResolver(
		email.WithCache(cache.New(cache.NewMemory())),
		email.WithProber(prober),
	)

	return &env{
		EmailCache: cache.New(cache.NewMemory()),
		Metrics:    monitoring.New(),
		Aggregator: agg,
		Resolver:   resolver,
		Runner:     job.NewRunner(agg, dedupe.NewEngine(0), resolver),
	}
}

func TestRouterHealth(t *testing.T) {
	t.Parallel()

	router := newRouter(context.Background(), testEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouterMetrics(t *testing.T) {
	t.Parallel()

	e := testEnv(t)
	e.Metrics.SourceAttempt("places")
	e.Metrics.SourceSuccess("places")

	router := newRouter(context.Background(), e)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Pipeline monitoring.Snapshot                   `json:"pipeline"`
		Breakers map[string]resilience.BreakerSnapshot `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pipeline.Sources["places"].Attempts)
	assert.Equal(t, 1, body.Pipeline.Sources["places"].Successes)
}

func TestRouterJobsValidation(t *testing.T) {
	t.Parallel()

	router := newRouter(context.Background(), testEnv(t))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing query", `{"location":"Austin, TX"}`},
		{"missing location", `{"query":"dentist"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestRouterJobsAccepted(t *testing.T) {
	t.Parallel()

	router := newRouter(context.Background(), testEnv(t))

	payload := `{"query":"dentist","location":"Austin, TX","target_count":5}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "dentist", resp["query"])
	assert.Equal(t, "Austin, TX", resp["location"])

	// Let the async job finish against the stub source.
	time.Sleep(50 * time.Millisecond)
}
