package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/IIP-Design/orchestra/internal/sources"
)

func TestNew(t *testing.T) {
	m := New("")
	if m.Websites == nil {
		t.Fatal("Websites map should be initialized, got nil")
	}
	if m.Version != "1.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.0")
	}
	if err := m.Save(); err != nil {
		t.Errorf("Save on an in-memory manifest: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "manifest.json")
	m := New(path)
	if err := m.Update("website", []sources.Resource{{"id": "1", "title": "A"}, {"id": "2", "title": "B"}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len("website") != 2 {
		t.Errorf("expected 2 entries, got %d", loaded.Len("website"))
	}
	if loaded.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}
}

func TestLoad_NonExistent(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if m.Len("website") != 0 {
		t.Error("expected empty manifest")
	}
}

func TestHash_StableAcrossKeyOrder(t *testing.T) {
	a, _ := Hash(sources.Resource{"id": "1", "title": "A", "link": "x"})
	b, _ := Hash(sources.Resource{"link": "x", "title": "A", "id": "1"})
	if a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
}

func TestDetectChanges(t *testing.T) {
	m := New("")
	m.Update("website", []sources.Resource{
		{"id": "1", "title": "Same"},
		{"id": "2", "title": "Old"},
	})

	cs, err := m.DetectChanges("website", []sources.Resource{
		{"id": "1", "title": "Same"},
		{"id": "2", "title": "New"},
		{"id": "3", "title": "Added"},
		{"title": "No id"},
	})
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(cs.Added) != 2 {
		t.Errorf("Added = %v, want 2 entries", cs.Added)
	}
	if len(cs.Modified) != 1 || cs.Modified[0].ID() != "2" {
		t.Errorf("Modified = %v", cs.Modified)
	}
	if cs.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", cs.Unchanged)
	}
	if len(cs.Changed()) != 3 {
		t.Errorf("Changed() = %d, want 3", len(cs.Changed()))
	}

	other, _ := m.DetectChanges("other", []sources.Resource{{"id": "1", "title": "Same"}})
	if len(other.Added) != 1 {
		t.Error("websites should be tracked independently")
	}
}

type recordingSink struct {
	calls [][]sources.Resource
	err   error
}

func (r *recordingSink) Store(_ context.Context, _ string, resources []sources.Resource) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, resources)
	return nil
}

func TestSink_ForwardsOnlyChanges(t *testing.T) {
	next := &recordingSink{}
	path := filepath.Join(t.TempDir(), "manifest.json")
	s := NewSink(New(path), next)
	ctx := context.Background()

	batch := []sources.Resource{{"id": "1", "title": "A"}, {"id": "2", "title": "B"}}
	if err := s.Store(ctx, "website", batch); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if err := s.Store(ctx, "website", batch); err != nil {
		t.Fatalf("second Store: %v", err)
	}
	batch[1] = sources.Resource{"id": "2", "title": "B, edited"}
	if err := s.Store(ctx, "website", batch); err != nil {
		t.Fatalf("third Store: %v", err)
	}

	if len(next.calls) != 2 {
		t.Fatalf("expected 2 forwarded batches, got %d", len(next.calls))
	}
	if len(next.calls[0]) != 2 || len(next.calls[1]) != 1 || next.calls[1][0].ID() != "2" {
		t.Errorf("unexpected batches: %v", next.calls)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len("website") != 2 {
		t.Errorf("saved manifest has %d entries, want 2", loaded.Len("website"))
	}
}

func TestSink_FailureIsRetried(t *testing.T) {
	next := &recordingSink{err: errors.New("db down")}
	s := NewSink(New(""), next)
	batch := []sources.Resource{{"id": "1"}}

	if err := s.Store(context.Background(), "website", batch); err == nil {
		t.Fatal("expected error from next sink")
	}
	next.err = nil
	if err := s.Store(context.Background(), "website", batch); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(next.calls) != 1 {
		t.Errorf("failed batch should be forwarded again, calls = %d", len(next.calls))
	}
}
