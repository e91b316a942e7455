// Package rdap queries RDAP (Registration Data Access Protocol)
// servers for domain registration records and extracts registrant
// contact emails from the embedded vCard entities.
package rdap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://rdap.org"

// Client performs RDAP lookups.
type Client interface {
	Domain(ctx context.Context, domain string) (*DomainResponse, error)
}

// DomainResponse is an RDAP domain record.
type DomainResponse struct {
	LDHName  string   `json:"ldhName"`
	Status   []string `json:"status"`
	Entities []Entity `json:"entities"`
}

// Entity is a registration contact with an embedded jCard.
type Entity struct {
	Roles      []string        `json:"roles"`
	VCardArray json.RawMessage `json:"vcardArray"`
	Entities   []Entity        `json:"entities"`
}

// ContactEmails walks the record's entities and returns every email
// found in a vCard, lowercased and deduplicated.
func (r *DomainResponse) ContactEmails() []string {
	seen := make(map[string]bool)
	var emails []string
	var walk func(entities []Entity)
	walk = func(entities []Entity) {
		for _, e := range entities {
			for _, email := range e.vcardEmails() {
				email = strings.ToLower(email)
				if !seen[email] {
					seen[email] = true
					emails = append(emails, email)
				}
			}
			walk(e.Entities)
		}
	}
	walk(r.Entities)
	return emails
}

// vcardEmails extracts email properties from the jCard structure,
// which is ["vcard", [[name, params, type, value], ...]].
func (e *Entity) vcardEmails() []string {
	if len(e.VCardArray) == 0 {
		return nil
	}
	var card []json.RawMessage
	if err := json.Unmarshal(e.VCardArray, &card); err != nil || len(card) < 2 {
		return nil
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(card[1], &props); err != nil {
		return nil
	}

	var emails []string
	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		var name string
		if err := json.Unmarshal(prop[0], &name); err != nil || name != "email" {
			continue
		}
		var value string
		if err := json.Unmarshal(prop[3], &value); err != nil {
			continue
		}
		if value != "" && strings.Contains(value, "@") {
			emails = append(emails, value)
		}
	}
	return emails
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default RDAP bootstrap URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an RDAP client against the rdap.org bootstrap
// service, which redirects to the registry authoritative for a TLD.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Domain(ctx context.Context, domain string) (*DomainResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domain/"+domain, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rdap: create request")
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "rdap: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rdap: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return &DomainResponse{LDHName: domain}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("rdap: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result DomainResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "rdap: unmarshal response")
	}
	return &result, nil
}
