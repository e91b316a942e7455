package model

// QualityFlag marks a data-quality concern on a canonical business.
type QualityFlag string

const (
	FlagMissingPhone        QualityFlag = "missing_phone"
	FlagMissingWebsite      QualityFlag = "missing_website"
	FlagMissingAddress      QualityFlag = "missing_address"
	FlagGenericEmail        QualityFlag = "generic_email"
	FlagPersonalEmailDomain QualityFlag = "personal_email_domain"
	FlagParkedDomain        QualityFlag = "parked_domain"
)

// QualityProfile holds per-field quality scores and the overall score for
// a canonical business. Field scores are in [0, 1]; OverallScore is the
// weighted field sum plus the cross-reference bonus, capped at 1.0.
type QualityProfile struct {
	NameScore     float64       `json:"name_score"`
	PhoneScore    float64       `json:"phone_score"`
	AddressScore  float64       `json:"address_score"`
	WebsiteScore  float64       `json:"website_score"`
	EmailScore    float64       `json:"email_score"`
	Flags         []QualityFlag `json:"flags,omitempty"`
	SourceCount   int           `json:"source_count"`
	CrossRefScore float64       `json:"cross_ref_score"`
	OverallScore  float64       `json:"overall_score"`
}

// HasFlag reports whether the profile carries the given flag.
func (q QualityProfile) HasFlag(flag QualityFlag) bool {
	for _, f := range q.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// CanonicalBusiness is the merged record for one real-world business.
// Created on first sighting of a business signature and mutated as later
// listings merge in; treated as immutable once emitted from the engine.
type CanonicalBusiness struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Website     string         `json:"website,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Street      string         `json:"street,omitempty"`
	City        string         `json:"city,omitempty"`
	State       string         `json:"state,omitempty"`
	ZipCode     string         `json:"zip_code,omitempty"`
	Facebook    string         `json:"facebook,omitempty"`
	Instagram   string         `json:"instagram,omitempty"`
	LinkedIn    string         `json:"linkedin,omitempty"`
	Rating      float64        `json:"rating,omitempty"`
	ReviewCount int            `json:"review_count,omitempty"`
	Sources     []SourceID     `json:"sources"`
	Quality     QualityProfile `json:"quality"`
	Email       *EmailResult   `json:"email,omitempty"`
}

// HasSource reports whether the business was confirmed by the given source.
func (b *CanonicalBusiness) HasSource(id SourceID) bool {
	for _, s := range b.Sources {
		if s == id {
			return true
		}
	}
	return false
}

// AddSource records a confirming source, keeping the set deduplicated.
func (b *CanonicalBusiness) AddSource(id SourceID) {
	if !b.HasSource(id) {
		b.Sources = append(b.Sources, id)
	}
}
