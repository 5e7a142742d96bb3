package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/platform/polymarket"
)

func validMarket() polymarket.APIMarket {
	return polymarket.APIMarket{
		ID:            "m1",
		Slug:          "btc-100k-2027",
		Question:      "Will Bitcoin reach $100,000 by 2027?",
		Outcomes:      polymarket.ParsedStringList("Yes", "No"),
		OutcomePrices: polymarket.ParsedStringList("0.73", "0.27"),
		Volume:        "250000",
	}
}

func TestProcessAcceptsValidRecord(t *testing.T) {
	events, stats := Process([]polymarket.APIMarket{validMarket()})

	require.Len(t, events, 1)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 0, stats.Skipped())

	got := events[0]
	assert.Equal(t, "m1", got.MarketID)
	assert.Equal(t, 2027, got.Year)

	ev := got.Event
	assert.Equal(t, "Will Bitcoin reach $100,000 by 2027?", ev.Event)
	assert.InDelta(t, 0.73, ev.Probability, 1e-9)
	assert.Equal(t, domain.CategoryCrypto, ev.Category)
	assert.Equal(t, domain.ConfidenceLikely, ev.Confidence)
	assert.Equal(t, domain.SourcePolymarket, ev.Source)
	assert.Equal(t, "BTC", ev.Ticker)
	assert.InDelta(t, 100000, ev.PriceTarget, 1e-9)
	assert.Equal(t, "2027", ev.Timeframe)
	assert.Equal(t, domain.SignalBullish, ev.Signal)
}

func TestProcessGates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*polymarket.APIMarket)
		count  func(domain.ProcessStats) int
	}{
		{
			"missing question",
			func(m *polymarket.APIMarket) { m.Question = "" },
			func(s domain.ProcessStats) int { return s.NoQuestion },
		},
		{
			"low volume",
			func(m *polymarket.APIMarket) { m.Volume = "4999" },
			func(s domain.ProcessStats) int { return s.LowVolume },
		},
		{
			"unparseable volume treated as zero",
			func(m *polymarket.APIMarket) { m.Volume = "lots" },
			func(s domain.ProcessStats) int { return s.LowVolume },
		},
		{
			"no extractable year",
			func(m *polymarket.APIMarket) { m.Question = "Will Bitcoin reach $100,000?" },
			func(s domain.ProcessStats) int { return s.NoYearOrOffTopic },
		},
		{
			"bad prices payload",
			func(m *polymarket.APIMarket) { m.OutcomePrices = polymarket.RawStringList("not json") },
			func(s domain.ProcessStats) int { return s.InvalidProbability },
		},
		{
			"empty prices",
			func(m *polymarket.APIMarket) { m.OutcomePrices = polymarket.ParsedStringList() },
			func(s domain.ProcessStats) int { return s.NoPrices },
		},
		{
			"non-numeric price",
			func(m *polymarket.APIMarket) { m.OutcomePrices = polymarket.ParsedStringList("maybe", "0.3") },
			func(s domain.ProcessStats) int { return s.InvalidProbability },
		},
		{
			"zero probability",
			func(m *polymarket.APIMarket) { m.OutcomePrices = polymarket.ParsedStringList("0", "1") },
			func(s domain.ProcessStats) int { return s.InvalidProbability },
		},
		{
			"off-topic category",
			func(m *polymarket.APIMarket) { m.Question = "Will the next pope be elected by 2027?" },
			func(s domain.ProcessStats) int { return s.NoYearOrOffTopic },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMarket()
			tt.mutate(&m)
			events, stats := Process([]polymarket.APIMarket{m})
			assert.Empty(t, events)
			assert.Equal(t, 1, tt.count(stats), "expected the gate counter to increment")
			assert.Equal(t, 0, stats.Accepted)
		})
	}
}

func TestProcessVolumeBoundary(t *testing.T) {
	m := validMarket()
	m.Volume = "5000"
	events, stats := Process([]polymarket.APIMarket{m})
	assert.Len(t, events, 1, "volume exactly 5000 passes the gate")
	assert.Equal(t, 0, stats.LowVolume)
}

func TestProcessYearFallsBackToDescription(t *testing.T) {
	m := validMarket()
	m.Question = "Will Bitcoin reach $100,000?"
	m.Description = "Resolves yes if BTC trades at 100k before 2028."
	events, _ := Process([]polymarket.APIMarket{m})
	require.Len(t, events, 1)
	assert.Equal(t, 2028, events[0].Year)
}

func TestProcessProbabilityResolution(t *testing.T) {
	// "Yes" label aligned with its price.
	m := validMarket()
	m.Outcomes = polymarket.ParsedStringList("No", "Yes")
	m.OutcomePrices = polymarket.ParsedStringList("0.27", "0.73")
	events, _ := Process([]polymarket.APIMarket{m})
	require.Len(t, events, 1)
	assert.InDelta(t, 0.73, events[0].Event.Probability, 1e-9)

	// No "Yes" label: first price wins.
	m = validMarket()
	m.Outcomes = polymarket.ParsedStringList("Up", "Down")
	m.OutcomePrices = polymarket.ParsedStringList("0.4", "0.6")
	events, _ = Process([]polymarket.APIMarket{m})
	require.Len(t, events, 1)
	assert.InDelta(t, 0.4, events[0].Event.Probability, 1e-9)

	// Prices without labels: first price wins; label parse failure is
	// tolerated the same way.
	m = validMarket()
	m.Outcomes = polymarket.RawStringList("{broken")
	m.OutcomePrices = polymarket.ParsedStringList("0.4")
	events, _ = Process([]polymarket.APIMarket{m})
	require.Len(t, events, 1)
	assert.InDelta(t, 0.4, events[0].Event.Probability, 1e-9)
}

func TestProcessIsIdempotent(t *testing.T) {
	input := []polymarket.APIMarket{validMarket(), {
		ID:            "m2",
		Question:      "Gold above $3,000 in 2026?",
		Outcomes:      polymarket.RawStringList(`["Yes","No"]`),
		OutcomePrices: polymarket.RawStringList(`["0.55","0.45"]`),
		Volume:        "90000",
	}}

	first, firstStats := Process(input)
	second, secondStats := Process(input)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
	require.Len(t, first, 2)
	assert.Equal(t, "m1", first[0].MarketID, "input order is preserved")
	assert.Equal(t, "m2", first[1].MarketID)
}
