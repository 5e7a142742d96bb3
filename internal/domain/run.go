package domain

import "time"

// ProcessStats counts the per-gate skip reasons from one EventProcessor pass.
// It is returned by value alongside the event list so concurrent pipeline
// invocations never share mutable counters.
type ProcessStats struct {
	Accepted           int `json:"accepted"`
	NoQuestion         int `json:"noQuestion"`
	LowVolume          int `json:"lowVolume"`
	NoYearOrOffTopic   int `json:"noYearOrOffTopic"`
	NoPrices           int `json:"noPrices"`
	InvalidProbability int `json:"invalidProbability"`
}

// Skipped returns the total number of rejected records.
func (s ProcessStats) Skipped() int {
	return s.NoQuestion + s.LowVolume + s.NoYearOrOffTopic + s.NoPrices + s.InvalidProbability
}

// PipelineRun records one end-to-end invocation of the extraction pipeline.
type PipelineRun struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Fetched     int          `json:"fetched"`
	Stats       ProcessStats `json:"stats"`
	Years       int          `json:"years"`
	StopReason  string       `json:"stopReason"` // why the fetcher stopped paginating
	NarrativeOK bool         `json:"narrativeOk"`
}
