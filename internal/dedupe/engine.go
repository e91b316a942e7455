package dedupe

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

// DefaultMergeThreshold is the minimum pairwise similarity at which two
// listings are treated as the same business.
const DefaultMergeThreshold = 0.8

// Engine deduplicates raw listings into canonical businesses.
type Engine struct {
	threshold float64
	logger    *zap.Logger
}

// Result summarizes one deduplication pass.
type Result struct {
	Unique     []*model.CanonicalBusiness
	Duplicates int
	Stats      Stats
}

// Stats breaks down where listings came from and how they clustered.
type Stats struct {
	InputCount   int
	ClusterCount int
	BySource     map[model.SourceID]int
	MultiSource  int
	LargestGroup int
}

// NewEngine returns an engine using threshold, or the default when
// threshold is zero.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	return &Engine{threshold: threshold, logger: zap.L().Named("dedupe")}
}

// Deduplicate clusters listings by pairwise similarity with transitive
// merging, collapses each cluster into one canonical business, and scores
// quality for every survivor.
func (e *Engine) Deduplicate(listings []*model.RawListing) *Result {
	res := &Result{
		Stats: Stats{
			InputCount: len(listings),
			BySource:   make(map[model.SourceID]int),
		},
	}
	for _, l := range listings {
		res.Stats.BySource[l.Source]++
	}
	if len(listings) == 0 {
		return res
	}

	uf := newUnionFind(len(listings))
	for i := 0; i < len(listings); i++ {
		for j := i + 1; j < len(listings); j++ {
			if Similarity(listings[i], listings[j]) >= e.threshold {
				uf.union(i, j)
			}
		}
	}

	clusters := make(map[int][]*model.RawListing)
	for i, l := range listings {
		root := uf.find(i)
		clusters[root] = append(clusters[root], l)
	}

	for _, cluster := range clusters {
		biz := mergeCluster(cluster)
		ScoreQuality(biz)
		res.Unique = append(res.Unique, biz)

		res.Duplicates += len(cluster) - 1
		if len(cluster) > res.Stats.LargestGroup {
			res.Stats.LargestGroup = len(cluster)
		}
		if len(biz.Sources) > 1 {
			res.Stats.MultiSource++
		}
	}
	res.Stats.ClusterCount = len(res.Unique)

	e.logger.Info("deduplicated listings",
		zap.Int("input", res.Stats.InputCount),
		zap.Int("unique", len(res.Unique)),
		zap.Int("duplicates", res.Duplicates))
	return res
}
