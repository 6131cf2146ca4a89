package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/notify"
)

// Orchestrator drives complete pipeline runs: collect, unify, record the run
// outcome, and fan the result out to the signal bus and notifier. At most
// one run executes at a time; overlapping triggers are rejected.
type Orchestrator struct {
	collect  *CollectRunner
	unify    *UnifyRunner
	runs     domain.RunStore
	bus      domain.SignalBus // nil disables run events
	notifier *notify.Notifier // nil disables notifications
	interval time.Duration
	logger   *slog.Logger

	runMu sync.Mutex
}

// NewOrchestrator creates an Orchestrator. bus and notifier may be nil.
func NewOrchestrator(
	collect *CollectRunner,
	unify *UnifyRunner,
	runs domain.RunStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		collect:  collect,
		unify:    unify,
		runs:     runs,
		bus:      bus,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// RunOnce executes a single pipeline run and returns its recorded outcome.
// A second concurrent call returns domain.ErrAlreadyExists.
func (o *Orchestrator) RunOnce(ctx context.Context) (domain.PipelineRun, error) {
	return o.runWithID(ctx, uuid.NewString())
}

// Trigger starts a run in the background and returns its ID immediately.
// The run outlives the caller's request context.
func (o *Orchestrator) Trigger(ctx context.Context) (string, error) {
	if !o.runMu.TryLock() {
		return "", fmt.Errorf("pipeline: run already in progress: %w", domain.ErrAlreadyExists)
	}
	o.runMu.Unlock()

	runID := uuid.NewString()
	bctx := context.WithoutCancel(ctx)
	go func() {
		if _, err := o.runWithID(bctx, runID); err != nil {
			o.logger.Error("triggered run failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
		}
	}()
	return runID, nil
}

// RunLoop runs the pipeline immediately and then on every interval tick
// until the context is cancelled. Individual run failures are logged and do
// not stop the loop.
func (o *Orchestrator) RunLoop(ctx context.Context) error {
	o.logger.Info("starting pipeline loop", slog.Duration("interval", o.interval))

	if _, err := o.RunOnce(ctx); err != nil {
		o.logger.Error("pipeline run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := o.RunOnce(ctx); err != nil {
				o.logger.Error("pipeline run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runWithID executes one run under the given ID, recording its lifecycle in
// the run store.
func (o *Orchestrator) runWithID(ctx context.Context, runID string) (domain.PipelineRun, error) {
	if !o.runMu.TryLock() {
		return domain.PipelineRun{}, fmt.Errorf("pipeline: run already in progress: %w", domain.ErrAlreadyExists)
	}
	defer o.runMu.Unlock()

	run := domain.PipelineRun{
		ID:        runID,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return run, fmt.Errorf("pipeline: record run start: %w", err)
	}

	o.logger.InfoContext(ctx, "run started", slog.String("run_id", runID))

	records, err := o.collect.Run(ctx)
	if err != nil {
		return o.finish(ctx, run, nil, err)
	}
	run.RecordCount = len(records)

	outcome, err := o.unify.Run(ctx, runID, records)
	return o.finish(ctx, run, outcome, err)
}

// finish closes out a run: persists the final status, publishes the run
// event, and notifies operators. The original pipeline error, if any, is
// returned to the caller.
func (o *Orchestrator) finish(ctx context.Context, run domain.PipelineRun, outcome *Outcome, runErr error) (domain.PipelineRun, error) {
	now := time.Now().UTC()
	run.FinishedAt = &now

	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunStatusCompleted
		run.GroupCount = len(outcome.Groups)
		run.RowCount = len(outcome.Rows)
	}

	if err := o.runs.Finish(ctx, run); err != nil {
		o.logger.ErrorContext(ctx, "record run finish failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}

	o.publish(ctx, run)

	if o.notifier != nil {
		if err := o.notifier.NotifyRun(ctx, run); err != nil {
			o.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}

	o.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Int("records", run.RecordCount),
		slog.Int("groups", run.GroupCount),
		slog.Int("rows", run.RowCount),
	)
	return run, runErr
}

// publish emits the run event on the signal bus for websocket clients.
func (o *Orchestrator) publish(ctx context.Context, run domain.PipelineRun) {
	if o.bus == nil {
		return
	}

	event := domain.RunEvent{
		RunID:       run.ID,
		Status:      run.Status,
		RecordCount: run.RecordCount,
		GroupCount:  run.GroupCount,
		RowCount:    run.RowCount,
	}
	if run.FinishedAt != nil {
		event.FinishedAt = *run.FinishedAt
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, domain.ChannelRuns, payload); err != nil {
		o.logger.WarnContext(ctx, "publish run event failed", slog.String("error", err.Error()))
	}
}
