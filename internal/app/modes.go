package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/pipeline"
	"github.com/crowdwisdom/marketfuse/internal/server"
	"github.com/crowdwisdom/marketfuse/internal/server/handler"
	"github.com/crowdwisdom/marketfuse/internal/server/ws"
)

// CollectMode executes a single collect-and-unify run and exits. Intended
// for cron-style scheduling.
func (a *App) CollectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting collect mode")

	orch := a.buildOrchestrator(deps)
	run, err := orch.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("app: collect run: %w", err)
	}

	a.logger.InfoContext(ctx, "collect run finished",
		slog.String("run_id", run.ID),
		slog.Int("groups", run.GroupCount),
		slog.Int("rows", run.RowCount),
	)
	return nil
}

// ScrapeMode runs the pipeline on its configured interval until cancelled,
// without the API server.
func (a *App) ScrapeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scrape mode")

	err := a.buildOrchestrator(deps).RunLoop(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ServerMode serves the HTTP + WebSocket API over previously collected data
// without running the pipeline. Manual triggers via the API are disabled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.runServer(ctx, deps, nil)
}

// FullMode runs the pipeline loop and the API server side by side. The
// API's trigger endpoint starts ad-hoc runs on the shared orchestrator.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "server disabled, running pipeline loop only")
		return a.ScrapeMode(ctx, deps)
	}

	orch := a.buildOrchestrator(deps)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := orch.RunLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("pipeline loop: %w", err)
	})

	g.Go(func() error {
		err := a.runServer(ctx, deps, orch.Trigger)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	return g.Wait()
}

// buildOrchestrator assembles the pipeline from the wired dependencies.
func (a *App) buildOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	collect := pipeline.NewCollectRunner(
		deps.Collectors,
		deps.RecordStore,
		deps.RecordCache,
		deps.RateLimiter,
		a.cfg.Pipeline.RateLimitPerMin,
		0, // per-site fetch limits are fixed at wire time
		a.logger,
	)

	unify := pipeline.NewUnifyRunner(
		a.cfg.MatchConfig(),
		deps.Embedder,
		deps.GroupStore,
		deps.Archiver,
		a.cfg.Pipeline.ExportPath,
		a.logger,
	)

	return pipeline.NewOrchestrator(
		collect,
		unify,
		deps.RunStore,
		deps.SignalBus,
		deps.Notifier,
		a.cfg.Pipeline.CollectInterval.Duration,
		a.logger,
	)
}

// runServer starts the websocket hub and the HTTP server, shutting both down
// when the context is cancelled. trigger may be nil when no pipeline runs in
// this process.
func (a *App) runServer(ctx context.Context, deps *Dependencies, trigger handler.TriggerFunc) error {
	hub := ws.NewHub(deps.SignalBus, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Health, a.logger),
		Groups: handler.NewGroupHandler(deps.GroupStore, a.logger),
		Runs:   handler.NewRunHandler(deps.RunStore, trigger, a.logger),
		Rows:   handler.NewRowHandler(rowService{deps}, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIToken:    a.cfg.Server.ApiToken,
		Limiter:     deps.RateLimiter,
		LimiterRPM:  a.cfg.Pipeline.RateLimitPerMin,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// rowService adapts the wired run and group stores to the row handler's
// combined view.
type rowService struct {
	deps *Dependencies
}

func (s rowService) GetLatest(ctx context.Context) (domain.PipelineRun, error) {
	return s.deps.RunStore.GetLatest(ctx)
}

func (s rowService) GetByID(ctx context.Context, id string) (domain.PipelineRun, error) {
	return s.deps.RunStore.GetByID(ctx, id)
}

func (s rowService) ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.UnifiedGroup, error) {
	return s.deps.GroupStore.ListByRun(ctx, runID, opts)
}

func (s rowService) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	return s.deps.GroupStore.ListMembers(ctx, groupID)
}
