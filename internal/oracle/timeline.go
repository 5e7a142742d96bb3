package oracle

import (
	"sort"
	"strconv"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/oracle/extract"
)

// GroupTimeline buckets events by year and sorts each bucket by descending
// probability. The year is re-extracted from each event's text rather than
// read from the Timeframe field, so events whose text yields no year are
// silently dropped here even if they passed the processor's gate. The sort
// is stable: equal probabilities keep their input order.
func GroupTimeline(events []domain.PredictionEvent) domain.Timeline {
	timeline := make(domain.Timeline)

	for _, ev := range events {
		year, ok := yearOf(ev)
		if !ok {
			continue
		}
		key := strconv.Itoa(year)
		timeline[key] = append(timeline[key], ev)
	}

	for _, bucket := range timeline {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Probability > bucket[j].Probability
		})
	}

	return timeline
}

// yearOf re-runs year extraction on the event text.
func yearOf(ev domain.PredictionEvent) (int, bool) {
	return extract.Year(ev.Event)
}
