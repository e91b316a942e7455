package dedupe

import (
	"github.com/google/uuid"

	"github.com/sells-group/leadscout/internal/model"
)

// unionFind groups listings transitively: if A matches B and B matches C,
// all three land in one cluster even when A and C score below threshold.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// mergeCluster collapses a group of duplicate listings into one canonical
// business. The listing with the most populated fields anchors the record;
// gaps are filled from the rest in order of completeness.
func mergeCluster(listings []*model.RawListing) *model.CanonicalBusiness {
	anchor := listings[0]
	for _, l := range listings[1:] {
		if l.FieldCount() > anchor.FieldCount() {
			anchor = l
		}
	}

	biz := &model.CanonicalBusiness{
		ID:        uuid.NewString(),
		Name:      anchor.Name,
		Website:   anchor.Website,
		Phone:     anchor.Phone,
		Street:    anchor.Street,
		City:      anchor.City,
		State:     anchor.State,
		ZipCode:   anchor.ZipCode,
		Facebook:  anchor.Facebook,
		Instagram: anchor.Instagram,
		LinkedIn:  anchor.LinkedIn,
		Rating:    anchor.Rating,
	}
	biz.AddSource(anchor.Source)

	for _, l := range listings {
		if l == anchor {
			continue
		}
		fillGaps(biz, l)
		biz.AddSource(l.Source)
		if l.ReviewCount > biz.ReviewCount {
			biz.ReviewCount = l.ReviewCount
			if l.Rating != 0 {
				biz.Rating = l.Rating
			}
		}
	}
	biz.ReviewCount = maxReviewCount(listings)
	return biz
}

func fillGaps(biz *model.CanonicalBusiness, l *model.RawListing) {
	if biz.Website == "" {
		biz.Website = l.Website
	}
	if biz.Phone == "" {
		biz.Phone = l.Phone
	}
	if biz.Street == "" {
		biz.Street = l.Street
	}
	if biz.City == "" {
		biz.City = l.City
	}
	if biz.State == "" {
		biz.State = l.State
	}
	if biz.ZipCode == "" {
		biz.ZipCode = l.ZipCode
	}
	if biz.Facebook == "" {
		biz.Facebook = l.Facebook
	}
	if biz.Instagram == "" {
		biz.Instagram = l.Instagram
	}
	if biz.LinkedIn == "" {
		biz.LinkedIn = l.LinkedIn
	}
}

func maxReviewCount(listings []*model.RawListing) int {
	n := 0
	for _, l := range listings {
		if l.ReviewCount > n {
			n = l.ReviewCount
		}
	}
	return n
}
