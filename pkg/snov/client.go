// Package snov is a Snov.io contact-intelligence client: OAuth token
// exchange, domain email search, and single-email verification.
package snov

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.snov.io"

// Client performs Snov API operations.
type Client interface {
	DomainEmails(ctx context.Context, domain string) (*DomainEmailsResponse, error)
	Verify(ctx context.Context, email string) (*VerifyResponse, error)
}

// DomainEmailsResponse is the domain-search payload.
type DomainEmailsResponse struct {
	Success bool    `json:"success"`
	Domain  string  `json:"domain"`
	Emails  []Email `json:"emails"`
}

// Email is one discovered address.
type Email struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position"`
	Status    string `json:"status"` // valid, not_valid, unknown
}

// VerifyResponse is the verification payload.
type VerifyResponse struct {
	Success bool         `json:"success"`
	Data    []VerifyData `json:"data"`
}

// VerifyData holds a deliverability verdict for one address.
type VerifyData struct {
	Email        string `json:"email"`
	Result       string `json:"result"` // deliverable, not_deliverable, unknown
	IsValid      bool   `json:"is_valid"`
	IsGreylisted bool   `json:"is_greylisted"`
	SMTPStatus   string `json:"smtp_status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
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
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Snov API client with OAuth client credentials.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) DomainEmails(ctx context.Context, domain string) (*DomainEmailsResponse, error) {
	params := url.Values{}
	params.Set("domain", domain)
	params.Set("type", "all")

	var result DomainEmailsResponse
	if err := c.postForm(ctx, "/v2/domain-emails-with-info", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Verify(ctx context.Context, email string) (*VerifyResponse, error) {
	params := url.Values{}
	params.Set("emails[]", email)

	var result VerifyResponse
	if err := c.postForm(ctx, "/v1/get-emails-verification-status", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) postForm(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return eris.Wrap(err, "snov: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "snov: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "snov: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("snov: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "snov: unmarshal response")
	}
	return nil
}

// token returns a cached access token, refreshing it when within a
// minute of expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/access_token", strings.NewReader(params.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "snov: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "snov: send token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "snov: read token response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("snov: token exchange status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "snov: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("snov: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
