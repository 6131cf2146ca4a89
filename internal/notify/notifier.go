// Package notify delivers operational alerts about pipeline runs to external
// channels (Telegram, Discord). Alerts are dispatched to every configured
// sender and filtered by event type, so operators can subscribe to failures
// only or to every completed run.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Event types emitted by the pipeline.
const (
	EventPipelineCompleted = "pipeline_completed"
	EventPipelineFailed    = "pipeline_failed"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a short identifier for the channel (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders, filtered by an
// allowed set of event types. An empty event list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded; an empty slice allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyRun formats and dispatches an alert for a finished pipeline run. The
// event type is derived from the run status; failed runs include the error.
func (n *Notifier) NotifyRun(ctx context.Context, run domain.PipelineRun) error {
	event := EventPipelineCompleted
	title := "Pipeline run completed"
	if run.Status == domain.RunStatusFailed {
		event = EventPipelineFailed
		title = "Pipeline run failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", run.ID)
	fmt.Fprintf(&b, "Records: %d | Groups: %d | Rows: %d\n", run.RecordCount, run.GroupCount, run.RowCount)
	if run.FinishedAt != nil {
		fmt.Fprintf(&b, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(1e6))
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", run.Error)
	}

	return n.Notify(ctx, event, title, strings.TrimRight(b.String(), "\n"))
}

// Notify dispatches a notification to all senders if the event type passes
// the configured filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender, collecting failures. One failing channel
// does not prevent delivery on the others.
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
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
