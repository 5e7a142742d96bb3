package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyRespectsEventFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventRunFailed}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventRunCompleted, "done", "ok"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), EventRunFailed, "boom", "bad"))
	assert.Equal(t, []string{"boom"}, s.titles)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventRunCompleted, "done", "ok"))
	assert.Len(t, s.titles, 1)
}

func TestDispatchCollectsSenderErrors(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("webhook down")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventRunCompleted, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: webhook down")

	// The failing sender did not block the healthy one.
	assert.Len(t, good.titles, 1)
}

func TestFormatRun(t *testing.T) {
	start := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	run := domain.PipelineRun{
		ID:         "0b6e7f1e-1111-2222-3333-444455556666",
		StartedAt:  start,
		FinishedAt: start.Add(3200 * time.Millisecond),
		Fetched:    500,
		Stats: domain.ProcessStats{
			Accepted:         42,
			LowVolume:        10,
			NoYearOrOffTopic: 5,
		},
		Years:       6,
		StopReason:  "end_of_data",
		NarrativeOK: true,
	}

	msg := FormatRun(run)
	assert.Contains(t, msg, "fetched 500 markets, accepted 42 events across 6 years")
	assert.Contains(t, msg, "skipped: 15")
	assert.Contains(t, msg, "fetch stop: end_of_data")
	assert.Contains(t, msg, "narrative: ok")
	assert.Contains(t, msg, "3.2s")
}
