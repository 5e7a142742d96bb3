// Package notify reports pipeline outcomes to operator channels. Each run
// produces one summary message fanned out to all configured senders.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantfable/oracle/internal/domain"
)

// Event types used to filter which notifications operators receive.
const (
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders, filtered by
// event type. An empty allow list means every event type passes.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. Only
// events whose type appears in the events slice are forwarded; an empty
// slice allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyRun sends a summary of one completed pipeline run.
func (n *Notifier) NotifyRun(ctx context.Context, run domain.PipelineRun) error {
	title := fmt.Sprintf("Pipeline run %s", shortID(run.ID))
	return n.Notify(ctx, EventRunCompleted, title, FormatRun(run))
}

// NotifyRunError reports a run that failed before producing a timeline.
func (n *Notifier) NotifyRunError(ctx context.Context, runID string, err error) error {
	title := fmt.Sprintf("Pipeline run %s FAILED", shortID(runID))
	return n.Notify(ctx, EventRunFailed, title, err.Error())
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch fans the notification out to every sender. Errors from individual
// senders are collected and returned combined; one failing sender does not
// block delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatRun renders a run summary as a compact multi-line message.
func FormatRun(run domain.PipelineRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetched %d markets, accepted %d events across %d years\n",
		run.Fetched, run.Stats.Accepted, run.Years)
	fmt.Fprintf(&b, "skipped: %d (no question %d, low volume %d, no year/off-topic %d, no prices %d, invalid prob %d)\n",
		run.Stats.Skipped(), run.Stats.NoQuestion, run.Stats.LowVolume,
		run.Stats.NoYearOrOffTopic, run.Stats.NoPrices, run.Stats.InvalidProbability)
	fmt.Fprintf(&b, "fetch stop: %s, narrative: %s, took %s",
		run.StopReason, okString(run.NarrativeOK),
		run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond))
	return b.String()
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "skipped"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
