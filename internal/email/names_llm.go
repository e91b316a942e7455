package email

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/pkg/anthropic"
)

const nameExtractionSystem = `You extract the names of people who work at a business from website text.
Respond with a JSON array of objects with "first" and "last" keys, for example:
[{"first":"Jane","last":"Doe"}]
Only include real people likely to work at the business. Exclude brand names,
place names, and testimonial authors. Respond with [] if no names are present.
Respond with JSON only, no prose.`

const (
	nameExtractionModel     = "claude-haiku-4-5-20251001"
	nameExtractionMaxTokens = 512
	nameExtractionMaxInput  = 8000
)

// LLMNameExtractor asks a language model to pull staff names out of
// page text, falling back to the regex extractor when the call fails.
type LLMNameExtractor struct {
	client   anthropic.Client
	model    string
	fallback RegexNameExtractor
	logger   *zap.Logger
}

// NewLLMNameExtractor creates a model-backed name extractor. An empty
// model selects the default.
func NewLLMNameExtractor(client anthropic.Client, model string) *LLMNameExtractor {
	if model == "" {
		model = nameExtractionModel
	}
	return &LLMNameExtractor{
		client: client,
		model:  model,
		logger: zap.L().Named("email.names"),
	}
}

func (e *LLMNameExtractor) ExtractNames(ctx context.Context, text string) ([]PersonName, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) > nameExtractionMaxInput {
		text = text[:nameExtractionMaxInput]
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: nameExtractionMaxTokens,
		System:    nameExtractionSystem,
		Messages: []anthropic.Message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		e.logger.Warn("name extraction model call failed, using regex fallback",
			zap.Error(err))
		return e.fallback.ExtractNames(ctx, text)
	}

	names, err := parseNameJSON(resp.Text())
	if err != nil {
		e.logger.Warn("name extraction response unparseable, using regex fallback",
			zap.Error(err))
		return e.fallback.ExtractNames(ctx, text)
	}

	if len(names) > maxNameCandidates {
		names = names[:maxNameCandidates]
	}
	return names, nil
}

func parseNameJSON(raw string) ([]PersonName, error) {
	raw = strings.TrimSpace(raw)
	// Models occasionally fence the JSON despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, eris.Wrap(err, "email: unmarshal extracted names")
	}

	var names []PersonName
	seen := make(map[string]bool)
	for _, p := range parsed {
		first := strings.TrimSpace(p.First)
		last := strings.TrimSpace(p.Last)
		if first == "" || last == "" {
			continue
		}
		key := strings.ToLower(first + " " + last)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, PersonName{First: first, Last: last})
	}
	return names, nil
}
