package dedupe

import (
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// Signal weights. Phone and website dominate: two listings sharing a phone
// line or a domain are almost always the same business, while names and
// addresses vary freely across directories.
const (
	weightPhone   = 0.35
	weightWebsite = 0.30
	weightName    = 0.20
	weightAddress = 0.15

	// phoneMatchFloor guarantees that an exact phone match produces a
	// score high enough to merge regardless of how messy the other
	// fields are.
	phoneMatchFloor = 0.8
)

// NameSimilarity scores two business names in [0,1] by blending token
// overlap with character edit distance. Normalization runs first, so
// "Joe's Pizza LLC" and "Joes Pizza" compare equal.
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	jaccard := tokenJaccard(na, nb)
	edit := editRatio(na, nb)

	sim := 0.6*jaccard + 0.4*edit

	// Names sharing a long common prefix are usually the same business
	// with a trailing qualifier ("smith dental" / "smith dental care").
	if p := commonPrefixLen(na, nb); p >= 6 {
		sim += 0.1
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}

func tokenJaccard(a, b string) float64 {
	as, bs := wordSet(a), wordSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	inter := 0
	for w := range as {
		if bs[w] {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func editRatio(a, b string) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Similarity scores two raw listings in [0,1] as a weighted blend of the
// signals both listings actually carry. Weights for absent signals are
// redistributed over the present ones, so two listings that share only a
// name and a website can still merge.
func Similarity(a, b *model.RawListing) float64 {
	var score, weight float64
	phoneMatch := false

	pa, pb := NormalizePhone(a.Phone), NormalizePhone(b.Phone)
	if pa != "" && pb != "" {
		weight += weightPhone
		if pa == pb {
			score += weightPhone
			phoneMatch = true
		}
	}

	wa, wb := NormalizeWebsite(a.Website), NormalizeWebsite(b.Website)
	if wa != "" && wb != "" {
		weight += weightWebsite
		if wa == wb {
			score += weightWebsite
		}
	}

	if a.Name != "" && b.Name != "" {
		weight += weightName
		score += weightName * NameSimilarity(a.Name, b.Name)
	}

	addrSim, addrOK := addressSimilarity(a, b)
	if addrOK {
		weight += weightAddress
		score += weightAddress * addrSim
	}

	if weight == 0 {
		return 0
	}
	sim := score / weight

	if phoneMatch && sim < phoneMatchFloor {
		sim = phoneMatchFloor
	}
	return sim
}

func addressSimilarity(a, b *model.RawListing) (float64, bool) {
	aa := ParseAddress(a.Street, a.City, a.State, a.ZipCode)
	bb := ParseAddress(b.Street, b.City, b.State, b.ZipCode)
	if aa.Normalized == "" || bb.Normalized == "" {
		return 0, false
	}

	// Different zip codes are a hard mismatch; directories rarely get
	// the zip wrong for the same storefront.
	if aa.Zip != "" && bb.Zip != "" && aa.Zip != bb.Zip {
		return 0, true
	}

	sim := 0.5 * editRatio(aa.Normalized, bb.Normalized)
	if aa.Zip != "" && aa.Zip == bb.Zip {
		sim += 0.3
	}
	if aa.City != "" && aa.City == bb.City {
		sim += 0.2
	}
	if sim > 1 {
		sim = 1
	}
	return sim, true
}
