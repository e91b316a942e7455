// Package hunter is a Hunter.io contact-intelligence client: domain
// email search and deliverability verification.
package hunter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.hunter.io/v2"

// Client performs Hunter API operations.
type Client interface {
	DomainSearch(ctx context.Context, domain string) (*DomainSearchResponse, error)
	Verify(ctx context.Context, email string) (*VerifyResponse, error)
}

// DomainSearchResponse is the domain-search payload.
type DomainSearchResponse struct {
	Data DomainSearchData `json:"data"`
}

// DomainSearchData holds the discovered addresses for a domain.
type DomainSearchData struct {
	Domain  string  `json:"domain"`
	Pattern string  `json:"pattern"`
	Emails  []Email `json:"emails"`
}

// Email is one discovered address.
type Email struct {
	Value      string `json:"value"`
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Position   string `json:"position"`
}

// VerifyResponse is the verification payload.
type VerifyResponse struct {
	Data VerifyData `json:"data"`
}

// VerifyData holds a deliverability verdict.
type VerifyData struct {
	Result     string `json:"result"` // deliverable, undeliverable, risky
	Score      int    `json:"score"`
	Email      string `json:"email"`
	AcceptAll  bool   `json:"accept_all"`
	SMTPCheck  bool   `json:"smtp_check"`
	MXRecords  bool   `json:"mx_records"`
	Disposable bool   `json:"disposable"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Hunter API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
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

func (c *httpClient) DomainSearch(ctx context.Context, domain string) (*DomainSearchResponse, error) {
	params := url.Values{}
	params.Set("domain", domain)
	params.Set("api_key", c.apiKey)

	var result DomainSearchResponse
	if err := c.getJSON(ctx, "/domain-search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Verify(ctx context.Context, email string) (*VerifyResponse, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("api_key", c.apiKey)

	var result VerifyResponse
	if err := c.getJSON(ctx, "/email-verifier?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "hunter: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "hunter: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "hunter: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("hunter: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "hunter: unmarshal response")
	}
	return nil
}
