package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoragePutGetExport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"batch":{},"issues":[]}`)
	if err := s.PutExport(ctx, "P1", "batch1", data); err != nil {
		t.Fatalf("PutExport: %v", err)
	}

	got, err := s.GetExport(ctx, "P1", "batch1")
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetExport = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "P1", "exports", "batch1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageDeleteExport(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	if err := s.PutExport(ctx, "P1", "batch1", []byte("{}")); err != nil {
		t.Fatalf("PutExport: %v", err)
	}
	if err := s.DeleteExport(ctx, "P1", "batch1"); err != nil {
		t.Fatalf("DeleteExport: %v", err)
	}
	if _, err := s.GetExport(ctx, "P1", "batch1"); err == nil {
		t.Error("expected error reading a deleted export")
	}
	if err := s.DeleteExport(ctx, "P1", "batch1"); err != nil {
		t.Errorf("deleting a missing export should succeed, got %v", err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	_, err := s.GetExport(context.Background(), "P1", "nonexistent")
	if !errors.Is(err, ErrExportNotFound) {
		t.Errorf("GetExport error = %v, want ErrExportNotFound", err)
	}
}

func TestExportKey(t *testing.T) {
	if got := ExportKey("P1", "abc"); got != "P1/exports/abc.json" {
		t.Errorf("ExportKey = %q", got)
	}
}
