// Package extract provides the pure text-heuristic layer of the oracle
// pipeline: year, ticker, price-target, category, and directional-signal
// extraction from free-text market questions. All functions are stateless
// and perform no I/O.
//
// Every pattern and keyword list in this package is an ordered slice, never a
// map: evaluation order is a priority order and part of the contract.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quantfable/oracle/internal/domain"
)

// Years outside this window are treated as noise (old markets, typos,
// century dates in descriptions).
const (
	MinYear = 2025
	MaxYear = 2040
)

// yearPatterns are tried in order; the first pattern that yields an in-range
// year wins. Multi-part patterns put the year in the last capture group.
var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(20\d{2})\b`),
	regexp.MustCompile(`(?i)\b(by|in|before|after)\s+(20\d{2})\b`),
	regexp.MustCompile(`(?i)\bQ([1-4])\s+(20\d{2})\b`),
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.?,?\s+(20\d{2})\b`),
}

// Year extracts the target year from text. It returns the year from the
// first matching pattern, reading the last capture group of that match, and
// reports false when no pattern yields a year in [MinYear, MaxYear].
func Year(text string) (int, bool) {
	for _, re := range yearPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[len(m)-1])
		if err != nil {
			continue
		}
		if year >= MinYear && year <= MaxYear {
			return year, true
		}
	}
	return 0, false
}

// categoryKeywords pairs each category with its trigger substrings. Checked
// in declaration order: a text hitting both "gold" and "bitcoin" resolves to
// Commodities because Commodities is declared before Crypto.
var categoryKeywords = []struct {
	category domain.Category
	keywords []string
}{
	{domain.CategoryEquities, []string{
		"stock", "shares", "equity", "ipo", "earnings",
		"tesla", "apple", "nvidia", "microsoft", "amazon", "meta",
	}},
	{domain.CategoryCommodities, []string{
		"gold", "silver", "oil", "crude", "copper", "wheat",
		"natural gas", "lithium", "uranium",
	}},
	{domain.CategoryCrypto, []string{
		"bitcoin", "btc", "ethereum", "crypto", "solana",
		"dogecoin", "stablecoin", "blockchain",
	}},
	{domain.CategoryIndices, []string{
		"s&p", "nasdaq", "dow jones", "russell", "vix", "ftse", "index",
	}},
	{domain.CategoryForex, []string{
		"dollar", "euro", "yen", "yuan", "pound sterling",
		"exchange rate", "forex", "currency",
	}},
	{domain.CategoryEconomy, []string{
		"fed", "federal reserve", "inflation", "interest rate", "gdp",
		"recession", "unemployment", "cpi", "tariff",
	}},
}

// Categorize assigns a finance category from the lower-cased concatenation
// of title and description. The first category with any keyword hit wins;
// texts with no hit fall through to CategoryOther.
func Categorize(title, description string) domain.Category {
	text := strings.ToLower(title + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryOther
}

// tickerPatterns are tried in order before falling back to the name
// whitelist.
var tickerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([A-Za-z]{1,5})\s+stock\b`),
	regexp.MustCompile(`\$([A-Za-z]{1,5})\b`),
	regexp.MustCompile(`(?i)\bticker:\s*([A-Za-z]{1,5})\b`),
}

// knownTickers maps company/asset names to their symbols. Ordered so the
// lookup is deterministic when a question mentions several names.
var knownTickers = []struct {
	name   string
	symbol string
}{
	{"tesla", "TSLA"},
	{"apple", "AAPL"},
	{"nvidia", "NVDA"},
	{"microsoft", "MSFT"},
	{"amazon", "AMZN"},
	{"alphabet", "GOOGL"},
	{"google", "GOOGL"},
	{"meta", "META"},
	{"netflix", "NFLX"},
	{"coinbase", "COIN"},
	{"gamestop", "GME"},
	{"bitcoin", "BTC"},
	{"ethereum", "ETH"},
	{"solana", "SOL"},
}

// Ticker extracts an asset symbol from text, upper-cased. Pattern matches
// take priority over the name whitelist.
func Ticker(text string) (string, bool) {
	for _, re := range tickerPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	lower := strings.ToLower(text)
	for _, t := range knownTickers {
		if strings.Contains(lower, t.name) {
			return t.symbol, true
		}
	}
	return "", false
}

// pricePatterns are tried in order; the capture group holds the dollar
// amount, possibly with thousands separators.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)\bprice\s+(?:of|at|to)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)\breach(?:es)?\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)\b(?:above|below)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)`),
}

// PriceTarget extracts a dollar price target from text. Thousands
// separators are stripped before parsing.
func PriceTarget(text string) (float64, bool) {
	for _, re := range pricePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

var (
	bearishWords = []string{
		"fall", "drop", "crash", "decline", "below", "dip",
		"plunge", "collapse", "lose", "bear",
	}
	bullishWords = []string{
		"rise", "reach", "above", "hit", "surpass", "exceed",
		"soar", "rally", "gain", "bull", "all-time high",
	}
)

// Signal combines the question's phrasing with its implied probability.
// A high-probability bearish question is a bearish signal; a low-probability
// bearish question inverts to bullish (the market disbelieves the framing),
// and symmetrically for bullish phrasing. Probabilities in [0.4, 0.6] and
// unphrased questions are neutral. Bearish phrasing is checked first.
func Signal(question string, prob float64) domain.Signal {
	lower := strings.ToLower(question)

	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny(bearishWords):
		if prob > 0.6 {
			return domain.SignalBearish
		}
		if prob < 0.4 {
			return domain.SignalBullish
		}
	case containsAny(bullishWords):
		if prob > 0.6 {
			return domain.SignalBullish
		}
		if prob < 0.4 {
			return domain.SignalBearish
		}
	}
	return domain.SignalNeutral
}

// Confidence buckets a probability into coarse tiers.
func Confidence(prob float64) domain.Confidence {
	switch {
	case prob >= 0.75:
		return domain.ConfidenceFact
	case prob >= 0.60:
		return domain.ConfidenceLikely
	default:
		return domain.ConfidenceUncertain
	}
}
