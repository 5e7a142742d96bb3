// Package pipeline sequences one end-to-end extraction cycle: fetch raw
// markets, filter and normalize them into prediction events, group the
// events into a year-keyed timeline, and hand the results to the
// persistence, caching, publishing, and notification collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/oracle"
	"github.com/quantfable/oracle/internal/platform/polymarket"
)

// pipelineLockKey guards against overlapping runs across instances.
const pipelineLockKey = "pipeline"

// MarketSource fetches raw market records. The fetch is best-effort; the
// diagnostics say how far it got.
type MarketSource interface {
	FetchActiveMarkets(ctx context.Context, maxRecords int) ([]polymarket.APIMarket, polymarket.FetchDiag)
}

// NarrativeGenerator turns a timeline into a chaptered narrative.
type NarrativeGenerator interface {
	Generate(ctx context.Context, t domain.Timeline) (domain.Narrative, error)
}

// NarrativeSink receives the latest narrative for API reads.
type NarrativeSink interface {
	Set(n domain.Narrative)
}

// ArtifactWriter persists local JSON artifacts.
type ArtifactWriter interface {
	WriteJSON(name string, v any) error
}

// Publisher uploads artifacts to object storage.
type Publisher interface {
	PublishTimeline(ctx context.Context, t domain.Timeline) error
	PublishNarrative(ctx context.Context, n domain.Narrative) error
	PublishRawMarkets(ctx context.Context, markets any) error
}

// RunNotifier reports completed runs to operator channels.
type RunNotifier interface {
	NotifyRun(ctx context.Context, run domain.PipelineRun) error
}

// Broadcaster pushes live updates to connected dashboard clients.
type Broadcaster interface {
	BroadcastRun(run domain.PipelineRun)
	BroadcastTimeline(t domain.Timeline)
}

// Deps carries the orchestrator's collaborators. Source, Events, Runs,
// Cache, Locks, and Artifacts are required; the rest may be nil and the
// corresponding step is skipped.
type Deps struct {
	Source    MarketSource
	Events    domain.EventStore
	Runs      domain.RunStore
	Cache     domain.TimelineCache
	Locks     domain.LockManager
	Artifacts ArtifactWriter

	Analyzer  NarrativeGenerator
	Narrative NarrativeSink
	Publisher Publisher
	Notifier  RunNotifier
	Hub       Broadcaster
}

// Orchestrator runs the extraction pipeline, one cycle at a time.
type Orchestrator struct {
	deps       Deps
	maxRecords int
	lockTTL    time.Duration
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. maxRecords caps how many raw
// markets one cycle fetches; lockTTL bounds how long a crashed run can block
// its successors.
func NewOrchestrator(deps Deps, maxRecords int, lockTTL time.Duration, logger *slog.Logger) *Orchestrator {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &Orchestrator{
		deps:       deps,
		maxRecords: maxRecords,
		lockTTL:    lockTTL,
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// Run executes one pipeline cycle and returns the run record. It returns
// domain.ErrLockHeld without doing any work when another run is in flight.
//
// A store failure fails the run; cache, artifact, publish, narrative, and
// notification failures degrade to log lines so one flaky collaborator does
// not cost a whole cycle's output.
func (o *Orchestrator) Run(ctx context.Context) (domain.PipelineRun, error) {
	unlock, err := o.deps.Locks.Acquire(ctx, pipelineLockKey, o.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			o.logger.InfoContext(ctx, "run skipped, lock held")
			return domain.PipelineRun{}, domain.ErrLockHeld
		}
		return domain.PipelineRun{}, fmt.Errorf("pipeline: acquire lock: %w", err)
	}
	defer unlock()

	run := domain.PipelineRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	o.logger.InfoContext(ctx, "run starting",
		slog.String("run_id", run.ID),
		slog.Int("max_records", o.maxRecords),
	)

	markets, diag := o.deps.Source.FetchActiveMarkets(ctx, o.maxRecords)
	run.Fetched = len(markets)
	run.StopReason = diag.StopReason

	if o.deps.Publisher != nil && len(markets) > 0 {
		if err := o.deps.Publisher.PublishRawMarkets(ctx, markets); err != nil {
			o.logger.WarnContext(ctx, "raw markets publish failed",
				slog.String("error", err.Error()),
			)
		}
	}

	processed, stats := oracle.Process(markets)
	run.Stats = stats

	timeline := oracle.GroupTimeline(oracle.Events(processed))
	run.Years = len(timeline)

	o.logger.InfoContext(ctx, "markets processed",
		slog.String("run_id", run.ID),
		slog.Int("fetched", run.Fetched),
		slog.Int("accepted", stats.Accepted),
		slog.Int("skipped", stats.Skipped()),
		slog.Int("years", run.Years),
		slog.String("stop_reason", diag.StopReason),
	)

	if err := o.persist(ctx, processed, timeline); err != nil {
		return run, err
	}

	run.NarrativeOK = o.generateNarrative(ctx, timeline)

	run.FinishedAt = time.Now().UTC()

	if err := o.deps.Runs.Insert(ctx, run); err != nil {
		o.logger.ErrorContext(ctx, "run insert failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}

	o.announce(ctx, run, timeline)

	o.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", run.ID),
		slog.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

// persist writes the cycle's output to the store, cache, local artifacts,
// and object storage. Only the store write is fatal.
func (o *Orchestrator) persist(ctx context.Context, processed []oracle.Processed, timeline domain.Timeline) error {
	stored := make([]domain.StoredEvent, 0, len(processed))
	for _, p := range processed {
		stored = append(stored, domain.StoredEvent{
			MarketID: p.MarketID,
			Slug:     p.Slug,
			Year:     strconv.Itoa(p.Year),
			Event:    p.Event,
		})
	}

	if err := o.deps.Events.UpsertBatch(ctx, stored); err != nil {
		return fmt.Errorf("pipeline: persist events: %w", err)
	}

	if err := o.deps.Cache.Set(ctx, timeline); err != nil {
		o.logger.WarnContext(ctx, "cache write failed",
			slog.String("error", err.Error()),
		)
	}

	if err := o.deps.Artifacts.WriteJSON("timeline.json", timeline); err != nil {
		o.logger.WarnContext(ctx, "artifact write failed",
			slog.String("error", err.Error()),
		)
	}

	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishTimeline(ctx, timeline); err != nil {
			o.logger.WarnContext(ctx, "timeline publish failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// generateNarrative runs the analyzer when one is wired and the timeline has
// events. It reports whether a narrative was produced.
func (o *Orchestrator) generateNarrative(ctx context.Context, timeline domain.Timeline) bool {
	if o.deps.Analyzer == nil || timeline.EventCount() == 0 {
		return false
	}

	n, err := o.deps.Analyzer.Generate(ctx, timeline)
	if err != nil {
		o.logger.ErrorContext(ctx, "narrative generation failed",
			slog.String("error", err.Error()),
		)
		return false
	}

	if o.deps.Narrative != nil {
		o.deps.Narrative.Set(n)
	}
	if err := o.deps.Artifacts.WriteJSON("narrative.json", n); err != nil {
		o.logger.WarnContext(ctx, "narrative artifact write failed",
			slog.String("error", err.Error()),
		)
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishNarrative(ctx, n); err != nil {
			o.logger.WarnContext(ctx, "narrative publish failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return true
}

// announce fans the finished run out to the notifier and WebSocket clients.
func (o *Orchestrator) announce(ctx context.Context, run domain.PipelineRun, timeline domain.Timeline) {
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyRun(ctx, run); err != nil {
			o.logger.WarnContext(ctx, "run notification failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if o.deps.Hub != nil {
		o.deps.Hub.BroadcastRun(run)
		o.deps.Hub.BroadcastTimeline(timeline)
	}
}

// RunLoop runs pipeline cycles on a repeating interval until the context is
// cancelled. An optional trigger channel forces an immediate cycle (used by
// the POST /api/pipeline/trigger handler).
func (o *Orchestrator) RunLoop(ctx context.Context, interval time.Duration, trigger <-chan struct{}) error {
	// Run immediately on start.
	o.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline loop stopped")
			return ctx.Err()
		case <-ticker.C:
			o.runOnce(ctx)
		case <-trigger:
			o.logger.InfoContext(ctx, "manual trigger received")
			o.runOnce(ctx)
		}
	}
}

func (o *Orchestrator) runOnce(ctx context.Context) {
	if _, err := o.Run(ctx); err != nil && !errors.Is(err, domain.ErrLockHeld) {
		o.logger.ErrorContext(ctx, "run failed",
			slog.String("error", err.Error()),
		)
	}
}
