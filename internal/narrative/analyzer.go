// Package narrative turns a prediction timeline into a year-by-year story
// using the Anthropic Messages API.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quantfable/oracle/internal/domain"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	requestTimeout   = 2 * time.Minute

	// chaptersPerYearCap bounds how many events per year go into the prompt
	// so a large timeline does not blow the context window.
	eventsPerYearCap = 12
)

const systemPrompt = `You are a financial analyst writing a speculative almanac of the future.
You are given prediction-market data: for each year, a list of market questions with their implied probabilities.
Write one chapter per year. Respond ONLY with JSON matching this schema, no prose outside the JSON:
{"chapters":[{"year":"2027","title":"...","story":"...","highlights":["...","..."]}]}
The story field is 2-4 sentences grounded in the listed predictions and their probabilities. Highlights are the 2-5 most consequential predictions restated briefly.`

// Analyzer generates narratives from timelines via the Anthropic API.
type Analyzer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger
}

// Config holds Analyzer construction parameters.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewAnalyzer creates an Analyzer. The API key must be non-empty; callers
// should skip narrative generation entirely when no key is configured.
func NewAnalyzer(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("narrative: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Analyzer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		logger:    logger.With(slog.String("component", "narrative")),
	}, nil
}

// Generate produces one chapter per timeline year. Years with no events are
// absent from the result, matching the timeline itself.
func (a *Analyzer) Generate(ctx context.Context, t domain.Timeline) (domain.Narrative, error) {
	if t.EventCount() == 0 {
		return domain.Narrative{}, fmt.Errorf("narrative: empty timeline")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := BuildPrompt(t)

	a.logger.InfoContext(ctx, "requesting narrative",
		slog.Int("years", len(t)),
		slog.Int("events", t.EventCount()))

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return domain.Narrative{}, fmt.Errorf("narrative: messages api: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.Narrative{}, fmt.Errorf("narrative: empty model response")
	}

	n, err := ParseNarrative(text.String())
	if err != nil {
		return domain.Narrative{}, err
	}

	a.logger.InfoContext(ctx, "narrative generated",
		slog.Int("chapters", len(n.Chapters)))
	return n, nil
}

// BuildPrompt renders the timeline as a compact per-year listing for the
// model. Years appear in chronological order; within a year events are
// already ordered by descending probability, so capping keeps the most
// confident predictions.
func BuildPrompt(t domain.Timeline) string {
	var b strings.Builder
	b.WriteString("Prediction market data by year:\n")
	for _, year := range t.Years() {
		events := t[year]
		if len(events) > eventsPerYearCap {
			events = events[:eventsPerYearCap]
		}
		fmt.Fprintf(&b, "\n## %s\n", year)
		for _, ev := range events {
			fmt.Fprintf(&b, "- [%.0f%%] (%s) %s\n", ev.Probability*100, ev.Category, ev.Event)
		}
	}
	return b.String()
}

// ParseNarrative decodes the model's JSON reply into a Narrative. It strips
// markdown code fences when present and rejects structurally invalid
// chapters instead of passing them downstream.
func ParseNarrative(text string) (domain.Narrative, error) {
	cleaned := stripFences(strings.TrimSpace(text))

	var n domain.Narrative
	if err := json.Unmarshal([]byte(cleaned), &n); err != nil {
		return domain.Narrative{}, fmt.Errorf("narrative: decode reply: %w", err)
	}
	if len(n.Chapters) == 0 {
		return domain.Narrative{}, fmt.Errorf("narrative: reply has no chapters")
	}
	for i, ch := range n.Chapters {
		if ch.Year == "" || ch.Title == "" || ch.Story == "" {
			return domain.Narrative{}, fmt.Errorf("narrative: chapter %d is missing required fields", i)
		}
	}
	return n, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
