package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern Pattern
		want    string
	}{
		{PatternFirstDotLast, "john.smith"},
		{PatternFirstLast, "johnsmith"},
		{PatternFLast, "jsmith"},
		{PatternFDotLast, "j.smith"},
		{PatternFirst, "john"},
		{PatternFirstL, "johns"},
		{PatternLastDotFirst, "smith.john"},
		{PatternLast, "smith"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.pattern.Apply("John", "Smith"), string(tt.pattern))
	}
}

func TestPatternApplyMissingParts(t *testing.T) {
	t.Parallel()

	assert.Empty(t, PatternFirstDotLast.Apply("John", ""))
	assert.Empty(t, PatternFLast.Apply("", "Smith"))
	assert.Equal(t, "john", PatternFirst.Apply("John", ""))
}

func TestInferPattern(t *testing.T) {
	t.Parallel()

	p, ok := InferPattern("jsmith", "John", "Smith")
	require.True(t, ok)
	assert.Equal(t, PatternFLast, p)

	_, ok = InferPattern("frontdesk", "John", "Smith")
	assert.False(t, ok)
}

func TestMemoryPatternStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryPatternStore()

	_, ok := store.Get("smithdental.com")
	assert.False(t, ok)

	store.Put("SmithDental.com", PatternFLast)
	p, ok := store.Get("smithdental.com")
	require.True(t, ok)
	assert.Equal(t, PatternFLast, p)
}

func TestOrderedPatterns(t *testing.T) {
	t.Parallel()

	store := NewMemoryPatternStore()

	order, learned := orderedPatterns(store, "smithdental.com")
	assert.Empty(t, string(learned))
	assert.Equal(t, allPatterns, order)

	store.Put("smithdental.com", PatternLastDotFirst)
	order, learned = orderedPatterns(store, "smithdental.com")
	assert.Equal(t, PatternLastDotFirst, learned)
	require.NotEmpty(t, order)
	assert.Equal(t, PatternLastDotFirst, order[0])
	assert.Len(t, order, len(allPatterns))
}
