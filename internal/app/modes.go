package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfable/oracle/internal/pipeline"
	"github.com/quantfable/oracle/internal/server"
	"github.com/quantfable/oracle/internal/server/handler"
	"github.com/quantfable/oracle/internal/server/ws"
	"github.com/quantfable/oracle/internal/service"
)

// shutdownTimeout bounds how long graceful HTTP shutdown may take.
const shutdownTimeout = 10 * time.Second

// ScrapeMode runs the extraction pipeline on its interval with no API
// surface. Useful for cron-style deployments where another instance serves
// reads.
func (a *App) ScrapeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scrape mode")

	orch := a.newOrchestrator(deps, nil)
	err := orch.RunLoop(ctx, a.cfg.Pipeline.Interval.Duration, nil)
	if ctx.Err() != nil {
		return nil // clean shutdown
	}
	return fmt.Errorf("scrape mode: %w", err)
}

// ServeMode serves the read API from the store and cache without running
// the pipeline.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, nil, nil)
	return waitGroup(ctx, g)
}

// FullMode runs the pipeline loop and the API server together. The server's
// trigger endpoint can force an immediate cycle, and the WebSocket hub
// pushes each finished run to connected clients.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	triggerCh := make(chan struct{}, 1)
	a.startServer(ctx, g, deps, hub, triggerCh)

	orch := a.newOrchestrator(deps, hub)
	g.Go(func() error {
		err := orch.RunLoop(ctx, a.cfg.Pipeline.Interval.Duration, triggerCh)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("pipeline loop: %w", err)
	})

	return waitGroup(ctx, g)
}

// newOrchestrator assembles the pipeline from wired dependencies. hub may be
// nil when no WebSocket surface exists.
func (a *App) newOrchestrator(deps *Dependencies, hub *ws.Hub) *pipeline.Orchestrator {
	pd := pipeline.Deps{
		Source:    deps.Gamma,
		Events:    deps.Events,
		Runs:      deps.Runs,
		Cache:     deps.Cache,
		Locks:     deps.Locks,
		Artifacts: deps.Artifacts,
		Narrative: deps.Narrative,
		Notifier:  deps.Notifier,
	}
	// Typed nils must not reach the orchestrator's interface fields.
	if deps.Analyzer != nil {
		pd.Analyzer = deps.Analyzer
	}
	if deps.Publisher != nil {
		pd.Publisher = deps.Publisher
	}
	if hub != nil {
		pd.Hub = hub
	}

	return pipeline.NewOrchestrator(pd,
		a.cfg.Polymarket.MaxRecords,
		a.cfg.Pipeline.LockTTL.Duration,
		a.logger,
	)
}

// startServer registers the HTTP API on the errgroup when the server is
// enabled. triggerCh may be nil in serve mode, where there is no pipeline to
// trigger.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub, triggerCh chan struct{}) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	timelines := service.NewTimelineService(deps.Cache, deps.Events, deps.Runs, a.logger)

	pipelineH := handler.NewPipelineHandler(a.logger)
	if triggerCh != nil {
		pipelineH = pipelineH.WithTriggerChannel(triggerCh)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Timeline:  handler.NewTimelineHandler(timelines, a.logger),
		Narrative: handler.NewNarrativeHandler(deps.Narrative, a.logger),
		Pipeline:  pipelineH,
	}, hub, a.logger)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
}

// waitGroup waits for the errgroup and maps context cancellation to a clean
// exit.
func waitGroup(ctx context.Context, g *errgroup.Group) error {
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
