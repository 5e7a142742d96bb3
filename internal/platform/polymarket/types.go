package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// StringList is a tagged union for Gamma fields that arrive either as a JSON
// array of strings or as a JSON-encoded string (e.g. "[\"Yes\",\"No\"]").
// Unmarshaling never fails on the encoded-string form; the parse is deferred
// to Strings so callers decide whether a bad payload is fatal.
type StringList struct {
	values []string
	raw    string
	parsed bool
}

// ParsedStringList builds an already-resolved StringList, mainly for tests
// and fixtures.
func ParsedStringList(values ...string) StringList {
	return StringList{values: values, parsed: true}
}

// RawStringList builds a StringList holding an unparsed JSON-encoded string.
func RawStringList(raw string) StringList {
	return StringList{raw: raw}
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err == nil {
		*l = StringList{values: values, parsed: true}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = StringList{raw: raw}
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	values, err := l.Strings()
	if err != nil {
		return json.Marshal(l.raw)
	}
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

// Strings resolves the union to its string slice, parsing the encoded form
// on demand. An absent field resolves to an empty slice without error.
func (l StringList) Strings() ([]string, error) {
	if l.parsed {
		return l.values, nil
	}
	if l.raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(l.raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// APIMarket is a market record as returned by the Polymarket Gamma API.
// Outcomes and OutcomePrices are positionally aligned when both are present;
// either may be absent or arrive JSON-encoded.
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Slug          string     `json:"slug"`
	Description   string     `json:"description"`
	Outcomes      StringList `json:"outcomes"`
	OutcomePrices StringList `json:"outcomePrices"`
	Volume        string     `json:"volume"`
	Active        flexBool   `json:"active"`
	Closed        bool       `json:"closed"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	Tags          []string   `json:"tags"`
}

// VolumeUSD parses the traded volume, defaulting to 0 when absent or
// unparseable.
func (m *APIMarket) VolumeUSD() float64 {
	v, err := strconv.ParseFloat(m.Volume, 64)
	if err != nil {
		return 0
	}
	return v
}
