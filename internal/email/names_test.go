package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexNameExtractor(t *testing.T) {
	t.Parallel()

	text := `Welcome to Smith Dental. Our practice is led by Dr. John Smith,
	DDS, and office manager Maria Garcia. Contact Us today. Read More about
	our services on Main Street.`

	names, err := RegexNameExtractor{}.ExtractNames(context.Background(), text)
	require.NoError(t, err)

	assert.Contains(t, names, PersonName{First: "John", Last: "Smith"})
	assert.Contains(t, names, PersonName{First: "Maria", Last: "Garcia"})
	assert.NotContains(t, names, PersonName{First: "Contact", Last: "Us"})
	assert.NotContains(t, names, PersonName{First: "Read", Last: "More"})
}

func TestRegexNameExtractorNoTitles(t *testing.T) {
	t.Parallel()

	// Capitalized pairs with no title marker nearby are page furniture.
	names, err := RegexNameExtractor{}.ExtractNames(context.Background(),
		"Quality Service Best Prices Great Value")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRegexNameExtractorBounded(t *testing.T) {
	t.Parallel()

	text := ""
	for _, n := range []string{
		"Alan Adams", "Bob Brown", "Carl Clark", "Dan Davis",
		"Ed Evans", "Frank Ford", "Gina Gray",
	} {
		text += "Dr. " + n + " joined the team. "
	}

	names, err := RegexNameExtractor{}.ExtractNames(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, names, maxNameCandidates)
}
