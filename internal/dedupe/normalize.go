// Package dedupe merges noisy listings from multiple sources into one
// canonical record per real business and scores record quality.
package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are stripped from business names before comparison.
var legalSuffixes = []string{
	"llc", "l.l.c", "inc", "inc.", "incorporated", "corp", "corp.",
	"corporation", "co", "co.", "company", "ltd", "ltd.", "limited",
	"llp", "l.l.p", "pllc", "p.l.l.c", "pc", "p.c", "pa", "p.a",
	"plc", "lp", "l.p",
}

// noisePrefixes are directory artifacts that leak into listing names.
var noisePrefixes = []string{
	"sponsored:", "sponsored -", "ad:", "featured:", "promoted:",
}

var (
	namePunctRe  = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// stripDiacritics removes combining marks so "Café" compares as "Cafe".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases, strips diacritics, noise prefixes, legal
// suffixes, and punctuation. Idempotent.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}

	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}

	s = namePunctRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	// Strip trailing legal suffixes, possibly stacked ("co llc").
	for changed := true; changed; {
		changed = false
		for _, suffix := range legalSuffixes {
			bare := namePunctRe.ReplaceAllString(suffix, "")
			if s == bare {
				continue
			}
			if strings.HasSuffix(s, " "+bare) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+bare))
				changed = true
			}
		}
	}

	return s
}

// NormalizePhone reduces a phone number to bare digits with the US/CA
// country code stripped. Idempotent.
func NormalizePhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}

// NormalizeWebsite reduces a URL to its bare lowercase host. Idempotent.
func NormalizeWebsite(rawURL string) string {
	s := strings.TrimSpace(strings.ToLower(rawURL))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, ".")
}

var zipRe = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

var stateCodes = map[string]bool{
	"al": true, "ak": true, "az": true, "ar": true, "ca": true, "co": true,
	"ct": true, "de": true, "fl": true, "ga": true, "hi": true, "id": true,
	"il": true, "in": true, "ia": true, "ks": true, "ky": true, "la": true,
	"me": true, "md": true, "ma": true, "mi": true, "mn": true, "ms": true,
	"mo": true, "mt": true, "ne": true, "nv": true, "nh": true, "nj": true,
	"nm": true, "ny": true, "nc": true, "nd": true, "oh": true, "ok": true,
	"or": true, "pa": true, "ri": true, "sc": true, "sd": true, "tn": true,
	"tx": true, "ut": true, "vt": true, "va": true, "wa": true, "wv": true,
	"wi": true, "wy": true, "dc": true,
}

// AddressParts is the comparable skeleton of a street address.
type AddressParts struct {
	Normalized string
	City       string
	State      string
	Zip        string
}

// ParseAddress extracts zip and state from a free-form address string and
// normalizes the remainder for string comparison.
func ParseAddress(street, city, state, zip string) AddressParts {
	full := strings.ToLower(strings.TrimSpace(street + " " + city + " " + state + " " + zip))

	parts := AddressParts{
		City:  strings.ToLower(strings.TrimSpace(city)),
		State: strings.ToLower(strings.TrimSpace(state)),
		Zip:   strings.TrimSpace(zip),
	}

	if parts.Zip == "" {
		if m := zipRe.FindStringSubmatch(full); m != nil {
			parts.Zip = m[1]
		}
	} else if m := zipRe.FindStringSubmatch(parts.Zip); m != nil {
		parts.Zip = m[1]
	}

	if !stateCodes[parts.State] {
		parts.State = ""
		for _, tok := range strings.Fields(full) {
			tok = strings.Trim(tok, ".,")
			if stateCodes[tok] {
				parts.State = tok
			}
		}
	}

	s := namePunctRe.ReplaceAllString(full, "")
	parts.Normalized = multiSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return parts
}
