// Package ingestion imports sprint batch exports: validation, archival of
// the raw export in blob storage, and persistence of the parsed records.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExportNotFound is returned by GetExport when no archive exists.
var ErrExportNotFound = errors.New("export not found")

// StorageClient abstracts blob storage for archived batch exports.
type StorageClient interface {
	PutExport(ctx context.Context, projectID, batchID string, data []byte) error
	GetExport(ctx context.Context, projectID, batchID string) ([]byte, error)
	DeleteExport(ctx context.Context, projectID, batchID string) error
}

// ExportKey is the object key of an archived export, relative to the
// storage root or bucket.
func ExportKey(projectID, batchID string) string {
	return projectID + "/exports/" + batchID + ".json"
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(projectID, batchID string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(ExportKey(projectID, batchID)))
}

// PutExport stores an export blob.
func (s *LocalStorage) PutExport(ctx context.Context, projectID, batchID string, data []byte) error {
	path := s.path(projectID, batchID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetExport retrieves an export blob.
func (s *LocalStorage) GetExport(ctx context.Context, projectID, batchID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(projectID, batchID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ExportKey(projectID, batchID), ErrExportNotFound)
	}
	return data, err
}

// DeleteExport removes an export blob. Deleting a missing blob is not an error.
func (s *LocalStorage) DeleteExport(ctx context.Context, projectID, batchID string) error {
	err := os.Remove(s.path(projectID, batchID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove export: %w", err)
	}
	return nil
}
