package domain

// Chapter is one year of the generated narrative: a short story arc built
// from that year's prediction events, plus the events worth calling out.
type Chapter struct {
	Year       string   `json:"year"`
	Title      string   `json:"title"`
	Story      string   `json:"story"`
	Highlights []string `json:"highlights,omitempty"`
}

// Narrative is the full ordered chapter sequence produced from a timeline.
type Narrative struct {
	Chapters []Chapter `json:"chapters"`
}
