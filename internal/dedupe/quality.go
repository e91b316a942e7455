package dedupe

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// Overall score weights per field.
const (
	qwName    = 0.15
	qwPhone   = 0.25
	qwAddress = 0.15
	qwWebsite = 0.25
	qwEmail   = 0.20
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// genericLocalParts are role inboxes rather than a person's mailbox.
var genericLocalParts = map[string]bool{
	"info": true, "contact": true, "hello": true, "office": true,
	"mail": true, "admin": true, "sales": true, "support": true,
	"team": true, "help": true, "service": true, "frontdesk": true,
}

// personalEmailDomains host personal mailboxes, not business domains.
var personalEmailDomains = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "aol.com": true, "icloud.com": true,
	"live.com": true, "msn.com": true, "me.com": true, "comcast.net": true,
}

// parkedDomainMarkers appear in hostnames of placeholder and for-sale
// domains that directories hand out as a business "website".
var parkedDomainMarkers = []string{
	"godaddysites.com", "domainmarket.com", "hugedomains.com",
	"sedoparking.com", "parkingcrew.net", "bodis.com", "afternic.com",
	"dan.com", "undeveloped.com", "above.com",
}

// EmailValidation is the outcome of scoring a single email address.
type EmailValidation struct {
	Valid bool
	Score float64
	Flags []model.QualityFlag
}

// ValidateEmail checks format and classifies the address. Generic role
// inboxes and personal-provider domains stay valid but score lower and
// carry flags so callers can prefer better addresses.
func ValidateEmail(email string) EmailValidation {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return EmailValidation{}
	}

	v := EmailValidation{Valid: true, Score: 1.0}
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	if genericLocalParts[local] {
		v.Flags = append(v.Flags, model.FlagGenericEmail)
		v.Score -= 0.2
	}
	if personalEmailDomains[domain] {
		v.Flags = append(v.Flags, model.FlagPersonalEmailDomain)
		v.Score -= 0.3
	}
	if v.Score < 0.1 {
		v.Score = 0.1
	}
	return v
}

// IsParkedDomain reports whether a website points at a parking or
// for-sale page rather than a real business site.
func IsParkedDomain(website string) bool {
	host := NormalizeWebsite(website)
	if host == "" {
		return false
	}
	for _, marker := range parkedDomainMarkers {
		if host == marker || strings.HasSuffix(host, "."+marker) {
			return true
		}
	}
	return false
}

// ScoreQuality fills in the business's quality profile: per-field scores,
// flags for gaps and weak signals, and the weighted overall score with the
// cross-reference bonus folded in. Overall is capped at 1.0.
func ScoreQuality(biz *model.CanonicalBusiness) {
	q := model.QualityProfile{
		SourceCount:   len(biz.Sources),
		CrossRefScore: CrossRefScore(biz.Sources),
	}

	if strings.TrimSpace(biz.Name) != "" {
		q.NameScore = 1.0
	}

	switch phone := NormalizePhone(biz.Phone); {
	case phone == "":
		q.Flags = append(q.Flags, model.FlagMissingPhone)
	case len(phone) == 10:
		q.PhoneScore = 1.0
	default:
		q.PhoneScore = 0.5
	}

	addr := ParseAddress(biz.Street, biz.City, biz.State, biz.ZipCode)
	switch {
	case addr.Normalized == "":
		q.Flags = append(q.Flags, model.FlagMissingAddress)
	case addr.Zip != "" && addr.State != "":
		q.AddressScore = 1.0
	default:
		q.AddressScore = 0.6
	}

	switch {
	case NormalizeWebsite(biz.Website) == "":
		q.Flags = append(q.Flags, model.FlagMissingWebsite)
	case IsParkedDomain(biz.Website):
		q.WebsiteScore = 0.2
		q.Flags = append(q.Flags, model.FlagParkedDomain)
	default:
		q.WebsiteScore = 1.0
	}

	if biz.Email != nil && biz.Email.Found() {
		v := ValidateEmail(biz.Email.Email)
		q.EmailScore = v.Score
		q.Flags = append(q.Flags, v.Flags...)
	}

	q.OverallScore = qwName*q.NameScore +
		qwPhone*q.PhoneScore +
		qwAddress*q.AddressScore +
		qwWebsite*q.WebsiteScore +
		qwEmail*q.EmailScore +
		q.CrossRefScore
	if q.OverallScore > 1.0 {
		q.OverallScore = 1.0
	}

	biz.Quality = q
}
