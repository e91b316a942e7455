package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCandidates(t *testing.T) {
	t.Parallel()

	emails := []string{
		"sales@smithdental.com",
		"info@smithdental.com",
		"yourname@example.com",
		"logo@2x.png",
		"jsmith@smithdental.com",
		"drsmith@gmail.com",
		"contact@smithdental.com",
	}

	got := FilterCandidates(emails, "smithdental.com")

	require.Len(t, got, 5)

	// Generic first, then departmental, then other on-domain, then
	// off-domain. Placeholders and image junk dropped.
	assert.Equal(t, "info@smithdental.com", got[0].Email)
	assert.Equal(t, PriorityGeneric, got[0].Priority)
	assert.Equal(t, "contact@smithdental.com", got[1].Email)
	assert.Equal(t, PriorityGeneric, got[1].Priority)
	assert.Equal(t, "sales@smithdental.com", got[2].Email)
	assert.Equal(t, PriorityDepartmental, got[2].Priority)
	assert.Equal(t, "jsmith@smithdental.com", got[3].Email)
	assert.Equal(t, PriorityOther, got[3].Priority)
	assert.Equal(t, "drsmith@gmail.com", got[4].Email)
	assert.Equal(t, PriorityOffDomain, got[4].Priority)
}

func TestFilterCandidatesNoDomain(t *testing.T) {
	t.Parallel()

	// Without a known business domain nothing is off-domain.
	got := FilterCandidates([]string{"info@somewhere.com"}, "")
	require.Len(t, got, 1)
	assert.Equal(t, PriorityGeneric, got[0].Priority)
}

func TestFilterCandidatesDropsPlaceholders(t *testing.T) {
	t.Parallel()

	got := FilterCandidates([]string{
		"john.doe@smithdental.com",
		"email@yourdomain.com",
		"user@smithdental.com",
	}, "smithdental.com")
	assert.Empty(t, got)
}

func TestCountTopPriority(t *testing.T) {
	t.Parallel()

	cands := []Candidate{
		{Email: "info@x.com", Priority: PriorityGeneric},
		{Email: "contact@x.com", Priority: PriorityGeneric},
		{Email: "sales@x.com", Priority: PriorityDepartmental},
	}
	assert.Equal(t, 2, CountTopPriority(cands))
	assert.Zero(t, CountTopPriority(nil))
	assert.Zero(t, CountTopPriority(cands[2:]))
}
