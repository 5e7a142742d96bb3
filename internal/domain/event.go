package domain

import "sort"

// SourcePolymarket tags events extracted from the Polymarket Gamma API.
const SourcePolymarket = "polymarket"

// Category classifies a prediction event into a finance vertical. The
// extractor checks categories in a fixed priority order; CategoryOther marks
// events outside the finance verticals we track.
type Category string

const (
	CategoryEquities    Category = "Equities"
	CategoryCommodities Category = "Commodities"
	CategoryCrypto      Category = "Crypto"
	CategoryIndices     Category = "Indices"
	CategoryForex       Category = "Forex"
	CategoryEconomy     Category = "Economy"
	CategoryOther       Category = "Other"
)

// Confidence is a coarse bucketing of market-implied probability.
type Confidence string

const (
	ConfidenceFact      Confidence = "fact"      // prob >= 0.75
	ConfidenceLikely    Confidence = "likely"    // prob >= 0.60
	ConfidenceUncertain Confidence = "uncertain" // everything else
)

// Signal is the directional read of a market question combined with its
// implied probability.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// PredictionEvent is a normalized, immutable prediction extracted from a raw
// market record. Field names in JSON match the artifact contract consumed by
// the narrative analyzer and the dashboard frontend.
type PredictionEvent struct {
	Event       string     `json:"event"`                 // verbatim market question
	Probability float64    `json:"prob"`                  // Yes-outcome price, 0..1
	Category    Category   `json:"category"`
	Confidence  Confidence `json:"confidence"`
	Source      string     `json:"source"`
	Ticker      string     `json:"ticker,omitempty"`
	PriceTarget float64    `json:"priceTarget,omitempty"`
	Timeframe   string     `json:"timeframe,omitempty"` // stringified year
	Signal      Signal     `json:"signal,omitempty"`
}

// Timeline maps a year (as a string key, matching the JSON artifact) to the
// events extracted for that year, ordered by descending probability.
type Timeline map[string][]PredictionEvent

// Years returns the timeline's year keys in ascending order. Year keys are
// fixed-width 4-digit strings, so lexicographic order is chronological order.
func (t Timeline) Years() []string {
	years := make([]string, 0, len(t))
	for y := range t {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// EventCount returns the total number of events across all years.
func (t Timeline) EventCount() int {
	n := 0
	for _, evs := range t {
		n += len(evs)
	}
	return n
}
