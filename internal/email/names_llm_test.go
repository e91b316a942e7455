package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/pkg/anthropic"
)

type stubAnthropic struct {
	text string
	err  error
}

func (s *stubAnthropic) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

func TestLLMExtractNames(t *testing.T) {
	t.Parallel()

	e := NewLLMNameExtractor(&stubAnthropic{
		text: `[{"first":"Jane","last":"Smith"},{"first":"Bob","last":"Jones"},{"first":"Jane","last":"Smith"}]`,
	}, "")

	names, err := e.ExtractNames(context.Background(), "Meet our team: Dr. Jane Smith and Bob Jones.")
	require.NoError(t, err)
	assert.Equal(t, []PersonName{
		{First: "Jane", Last: "Smith"},
		{First: "Bob", Last: "Jones"},
	}, names)
}

func TestLLMExtractNamesFencedJSON(t *testing.T) {
	t.Parallel()

	e := NewLLMNameExtractor(&stubAnthropic{
		text: "```json\n[{\"first\":\"Jane\",\"last\":\"Smith\"}]\n```",
	}, "")

	names, err := e.ExtractNames(context.Background(), "Dr. Jane Smith, DDS")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, PersonName{First: "Jane", Last: "Smith"}, names[0])
}

func TestLLMExtractNamesFallsBackOnError(t *testing.T) {
	t.Parallel()

	e := NewLLMNameExtractor(&stubAnthropic{err: errors.New("overloaded")}, "")

	names, err := e.ExtractNames(context.Background(), "Our practice is led by Dr. Jane Smith.")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, PersonName{First: "Jane", Last: "Smith"}, names[0])
}

func TestLLMExtractNamesFallsBackOnGarbage(t *testing.T) {
	t.Parallel()

	e := NewLLMNameExtractor(&stubAnthropic{text: "I could not find any names, sorry!"}, "")

	names, err := e.ExtractNames(context.Background(), "Our practice is led by Dr. Jane Smith.")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, PersonName{First: "Jane", Last: "Smith"}, names[0])
}

func TestLLMExtractNamesEmptyText(t *testing.T) {
	t.Parallel()

	e := NewLLMNameExtractor(&stubAnthropic{text: "[]"}, "")

	names, err := e.ExtractNames(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, names)
}
