// Package oracle turns raw Polymarket records into normalized, year-bucketed
// prediction events: filter gates, field extraction, and timeline grouping.
package oracle

import (
	"strconv"
	"strings"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/oracle/extract"
	"github.com/quantfable/oracle/internal/platform/polymarket"
)

// MinVolumeUSD is the traded-volume floor; records strictly below it are
// skipped. Volume exactly at the floor passes.
const MinVolumeUSD = 5000

// Processed pairs a normalized event with its source market identity so the
// persistence layer can upsert by market ID.
type Processed struct {
	MarketID string
	Slug     string
	Year     int
	Event    domain.PredictionEvent
}

// Process filters raw market records and maps the survivors into normalized
// prediction events. It is a deterministic single pass: input order is
// preserved and the returned stats are a fresh value, so repeated calls on
// the same input yield identical output.
func Process(records []polymarket.APIMarket) ([]Processed, domain.ProcessStats) {
	events := make([]Processed, 0, len(records))
	var stats domain.ProcessStats

	for i := range records {
		rec := &records[i]

		if rec.Question == "" {
			stats.NoQuestion++
			continue
		}

		if rec.VolumeUSD() < MinVolumeUSD {
			stats.LowVolume++
			continue
		}

		year, ok := extract.Year(rec.Question)
		if !ok {
			year, ok = extract.Year(rec.Description)
		}
		if !ok {
			stats.NoYearOrOffTopic++
			continue
		}

		// A bad outcomePrices payload is fatal for the record; a bad
		// outcomes payload only loses label alignment.
		prices, err := rec.OutcomePrices.Strings()
		if err != nil {
			stats.InvalidProbability++
			continue
		}
		if len(prices) == 0 {
			stats.NoPrices++
			continue
		}
		labels, _ := rec.Outcomes.Strings()

		prob, ok := resolveProbability(labels, prices)
		if !ok {
			stats.InvalidProbability++
			continue
		}
		if prob == 0 {
			// A zero price means the market carries no meaningful data.
			stats.InvalidProbability++
			continue
		}

		category := extract.Categorize(rec.Question, rec.Description)
		if category == domain.CategoryOther {
			// Off-topic markets share the no-year counter.
			stats.NoYearOrOffTopic++
			continue
		}

		event := domain.PredictionEvent{
			Event:       rec.Question,
			Probability: prob,
			Category:    category,
			Confidence:  extract.Confidence(prob),
			Source:      domain.SourcePolymarket,
			Timeframe:   strconv.Itoa(year),
			Signal:      extract.Signal(rec.Question, prob),
		}
		if ticker, ok := extract.Ticker(rec.Question); ok {
			event.Ticker = ticker
		}
		if target, ok := extract.PriceTarget(rec.Question); ok {
			event.PriceTarget = target
		}

		events = append(events, Processed{
			MarketID: rec.ID,
			Slug:     rec.Slug,
			Year:     year,
			Event:    event,
		})
		stats.Accepted++
	}

	return events, stats
}

// resolveProbability picks the Yes-outcome price: the price aligned with a
// case-insensitive "yes" label when labels exist, else the first price. It
// reports false when the chosen price is not numeric.
func resolveProbability(labels, prices []string) (float64, bool) {
	idx := 0
	for i, label := range labels {
		if strings.EqualFold(label, "yes") && i < len(prices) {
			idx = i
			break
		}
	}
	p, err := strconv.ParseFloat(prices[idx], 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// Events strips the persistence identity and returns just the normalized
// prediction events, in input order.
func Events(processed []Processed) []domain.PredictionEvent {
	events := make([]domain.PredictionEvent, 0, len(processed))
	for _, p := range processed {
		events = append(events, p.Event)
	}
	return events
}
