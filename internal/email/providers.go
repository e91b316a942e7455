package email

import (
	"context"

	"github.com/sells-group/leadscout/pkg/hunter"
	"github.com/sells-group/leadscout/pkg/jina"
	"github.com/sells-group/leadscout/pkg/rdap"
	"github.com/sells-group/leadscout/pkg/snov"
)

// HunterProvider adapts the Hunter API to the IntelProvider interface.
type HunterProvider struct {
	client hunter.Client
}

// NewHunterProvider wraps a Hunter client.
func NewHunterProvider(client hunter.Client) *HunterProvider {
	return &HunterProvider{client: client}
}

func (p *HunterProvider) Name() string { return "hunter" }

func (p *HunterProvider) Search(ctx context.Context, domain string) (*IntelResult, error) {
	resp, err := p.client.DomainSearch(ctx, domain)
	if err != nil {
		return nil, err
	}

	// Prefer the highest-confidence personal address; generic addresses
	// only when nothing better exists.
	var best *hunter.Email
	for i := range resp.Data.Emails {
		e := &resp.Data.Emails[i]
		if best == nil {
			best = e
			continue
		}
		if best.Type == "generic" && e.Type != "generic" {
			best = e
			continue
		}
		if e.Type == best.Type && e.Confidence > best.Confidence {
			best = e
		}
	}
	if best == nil || best.Value == "" {
		return nil, nil
	}

	return &IntelResult{
		Email:      best.Value,
		Confidence: float64(best.Confidence) / 100,
		Provider:   p.Name(),
	}, nil
}

func (p *HunterProvider) Verify(ctx context.Context, addr string) (*Verification, error) {
	resp, err := p.client.Verify(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Verification{
		Deliverable: resp.Data.Result == "deliverable",
		CatchAll:    resp.Data.AcceptAll,
		Score:       float64(resp.Data.Score) / 100,
	}, nil
}

// SnovProvider adapts the Snov API to the IntelProvider interface.
type SnovProvider struct {
	client snov.Client
}

// NewSnovProvider wraps a Snov client.
func NewSnovProvider(client snov.Client) *SnovProvider {
	return &SnovProvider{client: client}
}

func (p *SnovProvider) Name() string { return "snov" }

// snovStatusConfidence maps Snov's coarse verdicts onto scores.
var snovStatusConfidence = map[string]float64{
	"valid":     0.90,
	"unknown":   0.60,
	"not_valid": 0.0,
}

func (p *SnovProvider) Search(ctx context.Context, domain string) (*IntelResult, error) {
	resp, err := p.client.DomainEmails(ctx, domain)
	if err != nil {
		return nil, err
	}

	var best *snov.Email
	var bestScore float64
	for i := range resp.Emails {
		e := &resp.Emails[i]
		score := snovStatusConfidence[e.Status]
		if score == 0 {
			continue
		}
		if best == nil || score > bestScore {
			best = e
			bestScore = score
		}
	}
	if best == nil || best.Email == "" {
		return nil, nil
	}

	return &IntelResult{
		Email:      best.Email,
		Confidence: bestScore,
		Provider:   p.Name(),
	}, nil
}

func (p *SnovProvider) Verify(ctx context.Context, addr string) (*Verification, error) {
	resp, err := p.client.Verify(ctx, addr)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return &Verification{}, nil
	}
	d := resp.Data[0]
	score := snovStatusConfidence["unknown"]
	if d.Result == "deliverable" || d.IsValid {
		score = snovStatusConfidence["valid"]
	} else if d.Result == "not_deliverable" {
		score = 0
	}
	return &Verification{
		Deliverable: d.Result == "deliverable" || d.IsValid,
		Score:       score,
	}, nil
}

// JinaSearcher adapts the jina search client to the WebSearcher
// interface.
type JinaSearcher struct {
	client jina.Client
}

// NewJinaSearcher wraps a jina client.
func NewJinaSearcher(client jina.Client) *JinaSearcher {
	return &JinaSearcher{client: client}
}

func (s *JinaSearcher) Search(ctx context.Context, query string) ([]SearchHit, error) {
	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(resp.Data))
	for _, r := range resp.Data {
		hits = append(hits, SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	return hits, nil
}

// RDAPDomainClient adapts the rdap client to the DomainClient
// interface.
type RDAPDomainClient struct {
	client rdap.Client
}

// NewRDAPDomainClient wraps an rdap client.
func NewRDAPDomainClient(client rdap.Client) *RDAPDomainClient {
	return &RDAPDomainClient{client: client}
}

func (c *RDAPDomainClient) DomainContacts(ctx context.Context, domain string) ([]string, error) {
	resp, err := c.client.Domain(ctx, domain)
	if err != nil {
		return nil, err
	}
	return resp.ContactEmails(), nil
}
