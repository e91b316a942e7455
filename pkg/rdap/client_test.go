package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecord = `{
	"ldhName": "smithdental.com",
	"status": ["active"],
	"entities": [
		{
			"roles": ["registrant"],
			"vcardArray": ["vcard", [
				["version", {}, "text", "4.0"],
				["fn", {}, "text", "Jane Smith"],
				["email", {}, "text", "Jane@SmithDental.com"]
			]],
			"entities": [
				{
					"roles": ["technical"],
					"vcardArray": ["vcard", [
						["version", {}, "text", "4.0"],
						["email", {}, "text", "tech@smithdental.com"]
					]]
				}
			]
		},
		{
			"roles": ["registrar"],
			"vcardArray": ["vcard", [
				["version", {}, "text", "4.0"],
				["email", {}, "text", "jane@smithdental.com"]
			]]
		}
	]
}`

func TestDomain_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain/smithdental.com", r.URL.Path)
		assert.Equal(t, "application/rdap+json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/rdap+json")
		w.Write([]byte(sampleRecord))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Domain(context.Background(), "smithdental.com")

	require.NoError(t, err)
	assert.Equal(t, "smithdental.com", got.LDHName)

	// Lowercased, deduplicated, nested entities included.
	emails := got.ContactEmails()
	assert.Equal(t, []string{"jane@smithdental.com", "tech@smithdental.com"}, emails)
}

func TestDomain_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Domain(context.Background(), "no-such-domain.example")

	require.NoError(t, err)
	assert.Empty(t, got.ContactEmails())
}

func TestDomain_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Domain(context.Background(), "smithdental.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestContactEmails_MalformedVCard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ldhName": "x.com", "entities": [{"roles": ["registrant"], "vcardArray": "not a card"}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Domain(context.Background(), "x.com")

	require.NoError(t, err)
	assert.Empty(t, got.ContactEmails())
}
