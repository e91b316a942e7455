package dedupe

import "github.com/sells-group/leadscout/internal/model"

// crossRefCap bounds the confirmation bonus so corroboration can never
// outweigh the quality of the record itself.
const crossRefCap = 0.5

// Each additional confirming source is worth less than the last.
var crossRefSteps = []float64{0.25, 0.15, 0.10, 0.05}

// highTrustPairs earn a small extra bump: agreement between the two
// structured directories is a stronger identity signal than agreement
// involving scraped web results.
var highTrustPairs = [][2]model.SourceID{
	{model.SourcePlaces, model.SourceYelp},
}

// CrossRefScore rewards a business confirmed by multiple independent
// sources. A single-source record scores exactly zero; each additional
// source adds a diminishing bonus, capped at crossRefCap.
func CrossRefScore(sources []model.SourceID) float64 {
	if len(sources) <= 1 {
		return 0
	}

	score := 0.0
	for i := 0; i < len(sources)-1; i++ {
		step := crossRefSteps[len(crossRefSteps)-1]
		if i < len(crossRefSteps) {
			step = crossRefSteps[i]
		}
		score += step
	}

	for _, pair := range highTrustPairs {
		if hasSource(sources, pair[0]) && hasSource(sources, pair[1]) {
			score += 0.05
			break
		}
	}

	if score > crossRefCap {
		score = crossRefCap
	}
	return score
}

func hasSource(sources []model.SourceID, id model.SourceID) bool {
	for _, s := range sources {
		if s == id {
			return true
		}
	}
	return false
}
