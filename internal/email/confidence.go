// Package email resolves a best-effort verified email address per
// business by running an ordered cascade of discovery phases.
package email

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Phase names double as confidence-table keys and cache source labels.
const (
	PhaseCache       = "cache"
	PhaseIntel       = "intel"
	PhaseWebsite     = "website"
	PhaseBroaderSite = "broader_site"
	PhaseSitemap     = "sitemap_rescue"
	PhaseSocial      = "social"
	PhaseWebSearch   = "web_search"
	PhaseLicensing   = "licensing"
	PhasePermutation = "permutation"
	PhaseDomainRec   = "domain_record"
	PhaseGenerated   = "generated"
)

// Tiers is the single source of truth for phase confidence calibration.
// Every constant here is an initial calibration, re-tunable via YAML
// without touching phase code.
type Tiers struct {
	Base map[string]float64 `yaml:"base"`

	// Website crawl sub-tiers by candidate priority class.
	CrawlGeneric      float64 `yaml:"crawl_generic"`
	CrawlDepartmental float64 `yaml:"crawl_departmental"`
	CrawlOther        float64 `yaml:"crawl_other"`

	// Generated fallback with and without MX records.
	GeneratedMX   float64 `yaml:"generated_mx"`
	GeneratedNoMX float64 `yaml:"generated_no_mx"`

	// PatternBoost is added when a learned pattern matches.
	PatternBoost float64 `yaml:"pattern_boost"`

	// Catch-all multipliers. SMTP acceptance means little on a domain
	// that accepts everything, so it is down-weighted hardest.
	CatchAllSMTPFactor  float64 `yaml:"catch_all_smtp_factor"`
	CatchAllOtherFactor float64 `yaml:"catch_all_other_factor"`

	// ParkedDomainCap bounds any result whose domain is a parking page.
	ParkedDomainCap float64 `yaml:"parked_domain_cap"`

	// MinCacheAccept is the floor for short-circuiting on a cache hit.
	MinCacheAccept float64 `yaml:"min_cache_accept"`
}

// DefaultTiers returns the built-in calibration.
func DefaultTiers() *Tiers {
	return &Tiers{
		Base: map[string]float64{
			PhaseIntel:       0.85,
			PhaseWebsite:     0.90,
			PhaseBroaderSite: 0.85,
			PhaseSitemap:     0.82,
			PhaseSocial:      0.85,
			PhaseWebSearch:   0.80,
			PhaseLicensing:   0.82,
			PhasePermutation: 0.80,
			PhaseDomainRec:   0.72,
		},
		CrawlGeneric:        0.92,
		CrawlDepartmental:   0.87,
		CrawlOther:          0.82,
		GeneratedMX:         0.60,
		GeneratedNoMX:       0.50,
		PatternBoost:        0.02,
		CatchAllSMTPFactor:  0.70,
		CatchAllOtherFactor: 0.85,
		ParkedDomainCap:     0.55,
		MinCacheAccept:      0.70,
	}
}

// LoadTiers reads a YAML calibration file over the defaults. Absent keys
// keep their default values.
func LoadTiers(path string) (*Tiers, error) {
	t := DefaultTiers()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "email: read tiers file")
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, eris.Wrap(err, "email: parse tiers file")
	}
	return t, nil
}

// BaseFor returns the calibrated base confidence for a phase.
func (t *Tiers) BaseFor(phase string) float64 {
	return t.Base[phase]
}

// AdjustForCatchAll discounts confidence on catch-all domains. Delivery
// acceptance proves nothing when the server accepts every local-part, so
// SMTP-derived results (pattern guesses, generated addresses) lose more
// than API-verified or crawl-discovered ones.
func (t *Tiers) AdjustForCatchAll(conf float64, isCatchAll, isSMTPDerived bool) float64 {
	if !isCatchAll {
		return conf
	}
	if isSMTPDerived {
		return conf * t.CatchAllSMTPFactor
	}
	return conf * t.CatchAllOtherFactor
}
