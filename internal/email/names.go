package email

import (
	"context"
	"regexp"
	"strings"
)

// PersonName is one candidate contact extracted from site text.
type PersonName struct {
	First string
	Last  string
}

// NameExtractor pulls likely contact names out of page text. The model
// backed implementation is optional; the regex extractor always works.
type NameExtractor interface {
	ExtractNames(ctx context.Context, text string) ([]PersonName, error)
}

// titleMarkers near a capitalized pair strongly suggest a real person
// rather than a business name.
var titleMarkers = map[string]bool{
	"dr": true, "dds": true, "dmd": true, "md": true, "owner": true,
	"founder": true, "president": true, "principal": true, "manager": true,
	"director": true, "attorney": true, "esq": true, "agent": true,
	"broker": true, "ceo": true, "realtor": true, "dvm": true, "cpa": true,
}

var capitalizedPairRe = regexp.MustCompile(`\b([A-Z][a-z]{1,19})\s+([A-Z][a-z]{1,19})\b`)

// nameStopwords reject capitalized pairs that are page furniture, not
// people.
var nameStopwords = map[string]bool{
	"contact": true, "about": true, "our": true, "the": true, "privacy": true,
	"terms": true, "home": true, "new": true, "all": true, "best": true,
	"main": true, "read": true, "learn": true, "more": true, "get": true,
	"call": true, "free": true, "united": true, "north": true, "south": true,
	"east": true, "west": true, "street": true, "suite": true, "monday": true,
}

// RegexNameExtractor finds capitalized name pairs adjacent to title
// markers. Conservative on purpose: a bad guess burns SMTP probes.
type RegexNameExtractor struct{}

// maxNameCandidates bounds permutation fan-out per business.
const maxNameCandidates = 5

func (RegexNameExtractor) ExtractNames(_ context.Context, text string) ([]PersonName, error) {
	var names []PersonName
	seen := make(map[string]bool)

	for _, m := range capitalizedPairRe.FindAllStringSubmatchIndex(text, -1) {
		first := text[m[2]:m[3]]
		last := text[m[4]:m[5]]
		if nameStopwords[strings.ToLower(first)] || nameStopwords[strings.ToLower(last)] {
			continue
		}
		if !nearTitleMarker(text, m[0], m[1]) {
			continue
		}

		key := strings.ToLower(first + " " + last)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, PersonName{First: first, Last: last})
		if len(names) >= maxNameCandidates {
			break
		}
	}
	return names, nil
}

// nearTitleMarker checks a window around the match for a title token.
func nearTitleMarker(text string, start, end int) bool {
	lo := start - 60
	if lo < 0 {
		lo = 0
	}
	hi := end + 60
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, tok := range strings.Fields(window) {
		tok = strings.Trim(tok, ".,;:()")
		if titleMarkers[tok] {
			return true
		}
	}
	return false
}
