package crawl

import (
	"sort"
	"strings"
)

// Priority ranks extracted addresses for outreach. Generic business
// inboxes beat departmental ones because they are monitored; anything
// else, including personal-looking addresses on the right domain, ranks
// below both since we cannot tell whether the person still works there.
type Priority int

const (
	PriorityGeneric Priority = iota
	PriorityDepartmental
	PriorityOther
	PriorityOffDomain
)

// Candidate is one filtered, ranked address.
type Candidate struct {
	Email    string
	Priority Priority
}

var genericLocals = map[string]bool{
	"info": true, "contact": true, "hello": true, "office": true,
	"mail": true, "frontdesk": true, "reception": true,
}

var departmentalLocals = map[string]bool{
	"sales": true, "support": true, "admin": true, "billing": true,
	"hr": true, "jobs": true, "careers": true, "marketing": true,
	"help": true, "service": true, "orders": true, "booking": true,
}

// placeholderDomains appear in templates and examples, never real inboxes.
var placeholderDomains = map[string]bool{
	"example.com": true, "example.org": true, "example.net": true,
	"domain.com": true, "yourdomain.com": true, "email.com": true,
	"company.com": true, "test.com": true, "yoursite.com": true,
	"mysite.com": true, "sentry.io": true, "wixpress.com": true,
	"sentry.wixpress.com": true, "godaddy.com": true,
}

var placeholderLocals = map[string]bool{
	"yourname": true, "name": true, "username": true, "user": true,
	"example": true, "someone": true, "firstname.lastname": true,
	"email": true, "youremail": true, "john.doe": true, "jane.doe": true,
}

// imageExtensions catch filenames the raw regex mistakes for addresses
// ("logo@2x.png").
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js"}

// FilterCandidates drops placeholders and junk, classifies the rest
// against the business domain, and returns them best-first. Order within
// a priority class preserves extraction order.
func FilterCandidates(emails []string, businessDomain string) []Candidate {
	businessDomain = strings.ToLower(strings.TrimPrefix(businessDomain, "www."))

	var out []Candidate
	seen := make(map[string]bool)
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		at := strings.LastIndex(email, "@")
		if at <= 0 {
			continue
		}
		local, domain := email[:at], email[at+1:]

		if placeholderDomains[domain] || placeholderLocals[local] {
			continue
		}
		if hasImageExtension(email) {
			continue
		}

		out = append(out, Candidate{Email: email, Priority: classify(local, domain, businessDomain)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

func classify(local, domain, businessDomain string) Priority {
	onDomain := businessDomain != "" && (domain == businessDomain || strings.HasSuffix(domain, "."+businessDomain))
	if !onDomain && businessDomain != "" {
		return PriorityOffDomain
	}
	switch {
	case genericLocals[local]:
		return PriorityGeneric
	case departmentalLocals[local]:
		return PriorityDepartmental
	default:
		return PriorityOther
	}
}

func hasImageExtension(email string) bool {
	for _, ext := range imageExtensions {
		if strings.HasSuffix(email, ext) {
			return true
		}
	}
	return false
}

// CountTopPriority reports how many candidates sit in the generic
// business class. The website crawl stops early once this reaches two.
func CountTopPriority(cands []Candidate) int {
	n := 0
	for _, c := range cands {
		if c.Priority == PriorityGeneric {
			n++
		}
	}
	return n
}
