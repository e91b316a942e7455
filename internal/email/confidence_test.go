package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTiersOrdering(t *testing.T) {
	t.Parallel()

	tiers := DefaultTiers()

	// Guessed and generated results must sit visibly below crawled and
	// verified ones.
	assert.Less(t, tiers.GeneratedMX, tiers.CrawlOther)
	assert.Less(t, tiers.GeneratedNoMX, tiers.GeneratedMX)
	assert.LessOrEqual(t, tiers.GeneratedMX, 0.6)
	assert.Equal(t, 0.5, tiers.GeneratedNoMX)

	assert.GreaterOrEqual(t, tiers.BaseFor(PhaseIntel), 0.8)
	assert.GreaterOrEqual(t, tiers.CrawlGeneric, 0.82)
	assert.LessOrEqual(t, tiers.CrawlGeneric, 0.95)
	assert.Less(t, tiers.BaseFor(PhaseDomainRec), tiers.BaseFor(PhaseWebSearch))
}

func TestAdjustForCatchAll(t *testing.T) {
	t.Parallel()

	tiers := DefaultTiers()

	t.Run("no change off catch-all", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.9, tiers.AdjustForCatchAll(0.9, false, true))
		assert.Equal(t, 0.9, tiers.AdjustForCatchAll(0.9, false, false))
	})

	t.Run("smtp down-weighted more than api or crawl", func(t *testing.T) {
		t.Parallel()
		smtp := tiers.AdjustForCatchAll(0.9, true, true)
		other := tiers.AdjustForCatchAll(0.9, true, false)
		assert.Less(t, smtp, other)
		assert.Less(t, other, 0.9)
	})
}

func TestLoadTiers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base:
  intel: 0.91
crawl_generic: 0.88
catch_all_smtp_factor: 0.5
`), 0o644))

	tiers, err := LoadTiers(path)
	require.NoError(t, err)

	assert.Equal(t, 0.91, tiers.BaseFor(PhaseIntel))
	assert.Equal(t, 0.88, tiers.CrawlGeneric)
	assert.Equal(t, 0.5, tiers.CatchAllSMTPFactor)

	// Untouched keys keep defaults.
	assert.Equal(t, DefaultTiers().GeneratedMX, tiers.GeneratedMX)
}

func TestLoadTiersMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTiers(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
