package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.nationalPhoneNumber")

		var req textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dentist in Austin, TX", req.TextQuery)
		assert.Equal(t, 20, req.MaxResultCount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TextSearchResponse{
			Places: []Place{
				{
					ID:                  "place-1",
					DisplayName:         DisplayName{Text: "Smith Dental"},
					NationalPhoneNumber: "(512) 555-0101",
					WebsiteURI:          "https://smithdental.com",
					FormattedAddress:    "100 Main St, Austin, TX 78701",
					Rating:              4.8,
					UserRatingCount:     120,
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.TextSearch(context.Background(), "dentist in Austin, TX", 20)

	require.NoError(t, err)
	require.Len(t, got.Places, 1)
	assert.Equal(t, "Smith Dental", got.Places[0].DisplayName.Text)
	assert.Equal(t, "https://smithdental.com", got.Places[0].WebsiteURI)
}

func TestTextSearch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key invalid"}}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), "dentist", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPlaceComponent(t *testing.T) {
	t.Parallel()

	p := Place{
		AddressComponents: []AddressComponent{
			{LongText: "Austin", Types: []string{"locality"}},
			{LongText: "Texas", ShortText: "TX", Types: []string{"administrative_area_level_1"}},
			{LongText: "78701", Types: []string{"postal_code"}},
		},
	}

	assert.Equal(t, "TX", p.Component("administrative_area_level_1"))
	assert.Equal(t, "Austin", p.Component("locality"))
	assert.Equal(t, "", p.Component("country"))
}
