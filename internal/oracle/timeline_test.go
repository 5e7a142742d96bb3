package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
)

func event(text string, prob float64) domain.PredictionEvent {
	return domain.PredictionEvent{
		Event:       text,
		Probability: prob,
		Category:    domain.CategoryCrypto,
		Confidence:  domain.ConfidenceUncertain,
		Source:      domain.SourcePolymarket,
	}
}

func TestGroupTimelineSortsDescendingByProbability(t *testing.T) {
	events := []domain.PredictionEvent{
		event("Bitcoin dips in 2026?", 0.3),
		event("Ethereum ETF inflows record in 2026?", 0.9),
	}

	timeline := GroupTimeline(events)

	require.Len(t, timeline, 1)
	bucket := timeline["2026"]
	require.Len(t, bucket, 2)
	assert.InDelta(t, 0.9, bucket[0].Probability, 1e-9)
	assert.InDelta(t, 0.3, bucket[1].Probability, 1e-9)
}

func TestGroupTimelineStableOnTies(t *testing.T) {
	events := []domain.PredictionEvent{
		event("Solana flips Ethereum in 2027? (first)", 0.5),
		event("Bitcoin dominance above 60% in 2027? (second)", 0.5),
	}

	timeline := GroupTimeline(events)

	bucket := timeline["2027"]
	require.Len(t, bucket, 2)
	assert.Contains(t, bucket[0].Event, "(first)")
	assert.Contains(t, bucket[1].Event, "(second)")
}

func TestGroupTimelineBucketsByYear(t *testing.T) {
	events := []domain.PredictionEvent{
		event("Halving rally peaks in 2028?", 0.6),
		event("Bitcoin at $1M by 2030?", 0.1),
		event("New all-time high in 2028?", 0.8),
	}

	timeline := GroupTimeline(events)

	assert.Equal(t, []string{"2028", "2030"}, timeline.Years())
	assert.Len(t, timeline["2028"], 2)
	assert.Len(t, timeline["2030"], 1)
	assert.Equal(t, 3, timeline.EventCount())
}

// The grouper re-extracts the year from the event text instead of trusting
// the Timeframe field, so an event whose year only ever lived in the market
// description is dropped here.
func TestGroupTimelineDropsEventsWithoutYearInText(t *testing.T) {
	ev := event("Bitcoin reaches $100k?", 0.7)
	ev.Timeframe = "2027" // set by the processor from the description

	timeline := GroupTimeline([]domain.PredictionEvent{ev})
	assert.Empty(t, timeline)
}
