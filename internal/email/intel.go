package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/resilience"
)

// IntelResult is one provider's answer for a domain.
type IntelResult struct {
	Email      string
	Confidence float64
	Provider   string
}

// Verification is a provider's deliverability verdict for one address.
type Verification struct {
	Deliverable bool
	CatchAll    bool
	Score       float64
}

// IntelProvider is a contact-intelligence service. Providers are
// interchangeable and queried in parallel; the best-confidence answer
// wins.
type IntelProvider interface {
	Name() string
	Search(ctx context.Context, domain string) (*IntelResult, error)
	Verify(ctx context.Context, email string) (*Verification, error)
}

// searchProviders queries all providers concurrently and returns the
// highest-confidence hit, re-verified through a second provider when one
// is available. Provider failures are partial-results; only a full wipe
// returns an error.
func searchProviders(ctx context.Context, providers []IntelProvider, domain string) (*IntelResult, error) {
	if len(providers) == 0 {
		return nil, nil
	}

	ops := make([]resilience.Op[*IntelResult], 0, len(providers))
	for _, p := range providers {
		ops = append(ops, resilience.Op[*IntelResult]{
			Name: p.Name(),
			Run: func(ctx context.Context) (*IntelResult, error) {
				return p.Search(ctx, domain)
			},
		})
	}

	res, err := resilience.Gather(ctx, 1, ops)
	if err != nil {
		return nil, err
	}

	var best *IntelResult
	for _, r := range res.Values {
		if r == nil || r.Email == "" {
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}

	// Cross-check through a different provider when possible; a second
	// opinion either firms up or sinks the candidate.
	for _, p := range providers {
		if p.Name() == best.Provider {
			continue
		}
		v, err := p.Verify(ctx, best.Email)
		if err != nil {
			zap.L().Debug("intel re-verify failed",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if !v.Deliverable {
			return nil, nil
		}
		if v.Score > best.Confidence {
			best.Confidence = v.Score
		}
		break
	}
	return best, nil
}

// verifyWithProviders asks each provider in turn for a deliverability
// verdict, returning the first definitive answer.
func verifyWithProviders(ctx context.Context, providers []IntelProvider, email string) (*Verification, bool) {
	for _, p := range providers {
		v, err := p.Verify(ctx, email)
		if err != nil {
			continue
		}
		return v, true
	}
	return nil, false
}
