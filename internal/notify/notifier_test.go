package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

type fakeSender struct {
	name     string
	fail     bool
	titles   []string
	messages []string
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	if f.fail {
		return errors.New("boom")
	}
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventPipelineFailed}, discard())

	if err := n.Notify(context.Background(), EventPipelineCompleted, "t", "m"); err != nil {
		t.Fatal(err)
	}
	if len(s.titles) != 0 {
		t.Fatalf("filtered event was delivered: %v", s.titles)
	}

	if err := n.Notify(context.Background(), EventPipelineFailed, "t", "m"); err != nil {
		t.Fatal(err)
	}
	if len(s.titles) != 1 {
		t.Fatalf("allowed event not delivered")
	}
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discard())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatal(err)
	}
	if len(s.titles) != 1 {
		t.Fatal("event not delivered")
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "bad", fail: true}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), "x", "t", "m")
	if err == nil {
		t.Fatal("expected error from failing sender")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Fatalf("error does not name failing sender: %v", err)
	}
	if len(good.titles) != 1 {
		t.Fatal("healthy sender skipped after failure")
	}
}

func TestNotifyRunFormatsFailure(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discard())

	done := time.Now()
	run := domain.PipelineRun{
		ID:          "run-1",
		Status:      domain.RunStatusFailed,
		RecordCount: 10,
		Error:       "polymarket: fetch markets: timeout",
		StartedAt:   done.Add(-3 * time.Second),
		FinishedAt:  &done,
	}

	if err := n.NotifyRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if s.titles[0] != "Pipeline run failed" {
		t.Fatalf("title = %q", s.titles[0])
	}
	msg := s.messages[0]
	for _, want := range []string{"run-1", "Records: 10", "Error: polymarket"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}
