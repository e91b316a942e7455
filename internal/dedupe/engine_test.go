package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func TestDeduplicateMergesAcrossSources(t *testing.T) {
	t.Parallel()

	listings := []*model.RawListing{
		{
			Source: model.SourcePlaces, ExternalID: "pl-1",
			Name: "Smith Dental Care", Phone: "(512) 555-0147",
			Website: "https://www.smithdental.com",
			Street:  "123 Main St", City: "Austin", State: "TX", ZipCode: "78701",
			Rating: 4.8, ReviewCount: 120,
		},
		{
			Source: model.SourceYelp, ExternalID: "yl-1",
			Name: "Smith Dental, LLC", Phone: "+1 512 555 0147",
			Street: "123 Main Street", City: "Austin", State: "TX", ZipCode: "78701",
			Rating: 4.5, ReviewCount: 45,
		},
		{
			Source: model.SourcePlaces, ExternalID: "pl-2",
			Name: "Jones Orthodontics", Phone: "(512) 555-0200",
			Website: "jonesortho.com",
			Street:  "456 Oak Ave", City: "Austin", State: "TX", ZipCode: "78704",
		},
	}

	res := NewEngine(0).Deduplicate(listings)

	require.Len(t, res.Unique, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 3, res.Stats.InputCount)
	assert.Equal(t, 2, res.Stats.ClusterCount)
	assert.Equal(t, 1, res.Stats.MultiSource)
	assert.Equal(t, 2, res.Stats.LargestGroup)
	assert.Equal(t, 2, res.Stats.BySource[model.SourcePlaces])
	assert.Equal(t, 1, res.Stats.BySource[model.SourceYelp])

	var smith, jones *model.CanonicalBusiness
	for _, b := range res.Unique {
		if NormalizeName(b.Name) == "jones orthodontics" {
			jones = b
		} else {
			smith = b
		}
	}
	require.NotNil(t, smith)
	require.NotNil(t, jones)

	// Merged record keeps the richer listing's fields and the union of
	// sources; the yelp listing had no website.
	assert.Equal(t, "https://www.smithdental.com", smith.Website)
	assert.True(t, smith.HasSource(model.SourcePlaces))
	assert.True(t, smith.HasSource(model.SourceYelp))
	assert.Equal(t, 120, smith.ReviewCount)
	assert.NotEmpty(t, smith.ID)

	assert.Equal(t, []model.SourceID{model.SourcePlaces}, jones.Sources)
	assert.Zero(t, jones.Quality.CrossRefScore)
	assert.Positive(t, smith.Quality.CrossRefScore)
}

func TestDeduplicateTransitive(t *testing.T) {
	t.Parallel()

	// A matches B on phone, B matches C on website. A and C share
	// nothing directly but must land in one cluster.
	listings := []*model.RawListing{
		{Source: model.SourcePlaces, Name: "Austin Roofing Pros", Phone: "(512) 555-0300"},
		{Source: model.SourceYelp, Name: "Austin Roofing Pros LLC", Phone: "512-555-0300", Website: "austinroofing.com"},
		{Source: model.SourceWebSearch, Name: "Austin Roofing", Website: "https://austinroofing.com"},
	}

	res := NewEngine(0).Deduplicate(listings)

	require.Len(t, res.Unique, 1)
	assert.Equal(t, 2, res.Duplicates)
	assert.Len(t, res.Unique[0].Sources, 3)
}

func TestDeduplicateEmpty(t *testing.T) {
	t.Parallel()

	res := NewEngine(0).Deduplicate(nil)
	assert.Empty(t, res.Unique)
	assert.Zero(t, res.Duplicates)
}

func TestDeduplicateNoDuplicates(t *testing.T) {
	t.Parallel()

	listings := []*model.RawListing{
		{Source: model.SourcePlaces, Name: "Smith Dental", Phone: "5125550147", Website: "smithdental.com"},
		{Source: model.SourcePlaces, Name: "Jones Orthodontics", Phone: "5125550200", Website: "jonesortho.com"},
	}

	res := NewEngine(0).Deduplicate(listings)
	assert.Len(t, res.Unique, 2)
	assert.Zero(t, res.Duplicates)
}
