package yelp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBusinesses_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "plumber", r.URL.Query().Get("term"))
		assert.Equal(t, "Denver, CO", r.URL.Query().Get("location"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{
			Total: 1,
			Businesses: []Business{
				{
					ID:          "biz-1",
					Name:        "Rapid Rooter",
					Phone:       "+13035550142",
					Rating:      4.5,
					ReviewCount: 87,
					Location: Location{
						Address1: "200 Pine St",
						City:     "Denver",
						State:    "CO",
						ZipCode:  "80202",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.SearchBusinesses(context.Background(), "plumber", "Denver, CO", 10)

	require.NoError(t, err)
	require.Len(t, got.Businesses, 1)
	assert.Equal(t, "Rapid Rooter", got.Businesses[0].Name)
	assert.Equal(t, "80202", got.Businesses[0].Location.ZipCode)
}

func TestSearchBusinesses_LimitClamped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.SearchBusinesses(context.Background(), "plumber", "Denver, CO", 500)
	require.NoError(t, err)
}

func TestSearchBusinesses_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"TOKEN_INVALID"}}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.SearchBusinesses(context.Background(), "plumber", "Denver, CO", 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
