package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// memWriter captures uploads in memory.
type memWriter struct {
	objects map[string]string
	types   map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = string(b)
	m.types[path] = contentType
	return nil
}

func (m *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

func TestArchiveRows(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w)

	rows := []domain.OutputRow{{
		UnifiedTitle: "x",
		Site:         domain.SitePolymarket,
		ProductID:    "1",
		Price:        0.5,
		HasPrice:     true,
		Confidence:   1,
	}}

	path, err := a.ArchiveRows(context.Background(), "run-1", rows)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, "archive/rows/") || !strings.HasSuffix(path, "/run-1.csv") {
		t.Fatalf("path = %q", path)
	}
	body := w.objects[path]
	if !strings.HasPrefix(body, "unified_title,") || !strings.Contains(body, "x,polymarket,1,0.5000,1.000") {
		t.Fatalf("body = %q", body)
	}
	if w.types[path] != "text/csv" {
		t.Fatalf("content type = %q", w.types[path])
	}
}

func TestArchiveRecords(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w)

	records := []domain.RawRecord{
		{Site: domain.SiteManifold, ProductID: "m1", Title: "a"},
		{Site: domain.SitePredictIt, ProductID: "i1", Title: "b"},
	}

	path, err := a.ArchiveRecords(context.Background(), "run-2", records)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "/run-2.jsonl") {
		t.Fatalf("path = %q", path)
	}
	lines := strings.Split(strings.TrimRight(w.objects[path], "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if w.types[path] != "application/x-ndjson" {
		t.Fatalf("content type = %q", w.types[path])
	}
}
