package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/export"
)

// ArchiveImpl implements domain.Archiver by serializing a run's output rows
// and raw input records and uploading them to S3, partitioned by run date and
// run ID. Exported CSVs on local disk get overwritten every run; the archive
// is the durable history.
type ArchiveImpl struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter) *ArchiveImpl {
	return &ArchiveImpl{writer: writer}
}

// ArchiveRows uploads a run's output rows as CSV to
// archive/rows/YYYY-MM-DD/{runID}.csv and returns the object path.
func (a *ArchiveImpl) ArchiveRows(ctx context.Context, runID string, rows []domain.OutputRow) (string, error) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return "", fmt.Errorf("s3blob: archive rows encode: %w", err)
	}

	path := archivePath("rows", runID, "csv")
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
		return "", fmt.Errorf("s3blob: archive rows upload: %w", err)
	}
	return path, nil
}

// ArchiveRecords uploads a run's raw input records as JSONL to
// archive/records/YYYY-MM-DD/{runID}.jsonl and returns the object path.
func (a *ArchiveImpl) ArchiveRecords(ctx context.Context, runID string, records []domain.RawRecord) (string, error) {
	buf, err := marshalJSONL(records)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive records marshal: %w", err)
	}

	path := archivePath("records", runID, "jsonl")
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive records upload: %w", err)
	}
	return path, nil
}

// archivePath builds the S3 key for an archive file, partitioned by day.
//
//	archive/rows/2026-08-28/{runID}.csv
//	archive/records/2026-08-28/{runID}.jsonl
func archivePath(kind, runID, ext string) string {
	return fmt.Sprintf("archive/%s/%s/%s.%s", kind, time.Now().UTC().Format("2006-01-02"), runID, ext)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
