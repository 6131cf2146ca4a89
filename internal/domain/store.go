package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RecordStore persists raw per-site records.
type RecordStore interface {
	UpsertBatch(ctx context.Context, records []RawRecord) error
	ListBySite(ctx context.Context, site Site, opts ListOpts) ([]RawRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]RawRecord, error)
	Count(ctx context.Context) (int64, error)
}

// GroupStore persists unified groups and their members.
type GroupStore interface {
	InsertRun(ctx context.Context, groups []UnifiedGroup, members []GroupMember) error
	GetByID(ctx context.Context, id string) (UnifiedGroup, error)
	ListByRun(ctx context.Context, runID string, opts ListOpts) ([]UnifiedGroup, error)
	ListMembers(ctx context.Context, groupID string) ([]GroupMember, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]UnifiedGroup, error)
}

// RunStore persists pipeline run history.
type RunStore interface {
	Create(ctx context.Context, run PipelineRun) error
	Finish(ctx context.Context, run PipelineRun) error
	GetByID(ctx context.Context, id string) (PipelineRun, error)
	GetLatest(ctx context.Context) (PipelineRun, error)
	List(ctx context.Context, opts ListOpts) ([]PipelineRun, error)
}
