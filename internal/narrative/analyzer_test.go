package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
)

func TestParseNarrative(t *testing.T) {
	reply := `{"chapters":[{"year":"2027","title":"The Crypto Rally","story":"Markets price a Bitcoin milestone.","highlights":["Bitcoin reaches $100k"]}]}`

	n, err := ParseNarrative(reply)
	require.NoError(t, err)
	require.Len(t, n.Chapters, 1)
	assert.Equal(t, "2027", n.Chapters[0].Year)
	assert.Equal(t, "The Crypto Rally", n.Chapters[0].Title)
	assert.Equal(t, []string{"Bitcoin reaches $100k"}, n.Chapters[0].Highlights)
}

func TestParseNarrativeStripsCodeFence(t *testing.T) {
	reply := "```json\n{\"chapters\":[{\"year\":\"2026\",\"title\":\"T\",\"story\":\"S\"}]}\n```"

	n, err := ParseNarrative(reply)
	require.NoError(t, err)
	require.Len(t, n.Chapters, 1)
	assert.Equal(t, "2026", n.Chapters[0].Year)
}

func TestParseNarrativeRejectsBadReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Sure! Here is your narrative."},
		{"no chapters", `{"chapters":[]}`},
		{"missing year", `{"chapters":[{"title":"T","story":"S"}]}`},
		{"missing story", `{"chapters":[{"year":"2026","title":"T"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNarrative(tt.reply)
			assert.Error(t, err)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	timeline := domain.Timeline{
		"2027": {
			{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73, Category: domain.CategoryCrypto},
		},
		"2026": {
			{Event: "Will gold hit $3,000 in 2026?", Probability: 0.41, Category: domain.CategoryCommodities},
		},
	}

	prompt := BuildPrompt(timeline)

	// Years in chronological order.
	assert.Less(t, strings.Index(prompt, "## 2026"), strings.Index(prompt, "## 2027"))
	assert.Contains(t, prompt, "[73%] (Crypto) Will Bitcoin reach $100,000 by 2027?")
	assert.Contains(t, prompt, "[41%] (Commodities) Will gold hit $3,000 in 2026?")
}

func TestBuildPromptCapsEventsPerYear(t *testing.T) {
	events := make([]domain.PredictionEvent, 20)
	for i := range events {
		events[i] = domain.PredictionEvent{Event: "event", Probability: 0.5}
	}
	prompt := BuildPrompt(domain.Timeline{"2030": events})

	assert.Equal(t, eventsPerYearCap, strings.Count(prompt, "- ["))
}
