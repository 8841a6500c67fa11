package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sprintpulse/sprintpulse/internal/store"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// ErrInvalidBatch is returned (wrapped with detail) when an import fails validation.
var ErrInvalidBatch = errors.New("invalid batch")

// projectIDPattern keeps project ids safe to use as a storage key segment.
var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ImportRequest is one sprint export as submitted by a client.
type ImportRequest struct {
	ProjectID string         `json:"-"`
	Sprint    string         `json:"sprint"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Issues    []sprint.Issue `json:"issues"`
}

// BatchStore is the persistence the import pipeline needs.
type BatchStore interface {
	CreateBatch(ctx context.Context, b *sprint.SprintBatch, storageRef string, issues []sprint.Issue) error
	GetBatch(ctx context.Context, batchID string) (*store.BatchRow, error)
	DeleteBatch(ctx context.Context, batchID string) (string, error)
	ListProjectBatches(ctx context.Context, projectID string) ([]store.BatchRow, error)
}

// Service runs the import pipeline.
type Service struct {
	batches BatchStore
	storage StorageClient
	log     zerolog.Logger
	newID   func() string
}

// NewService creates a new ingestion Service.
func NewService(batches BatchStore, storage StorageClient, log zerolog.Logger) *Service {
	return &Service{
		batches: batches,
		storage: storage,
		log:     log,
		newID:   uuid.NewString,
	}
}

// Validate checks an import and returns the batch it describes.
func Validate(req ImportRequest) (sprint.SprintBatch, error) {
	var b sprint.SprintBatch
	if strings.TrimSpace(req.ProjectID) == "" {
		return b, fmt.Errorf("%w: project id is required", ErrInvalidBatch)
	}
	if !projectIDPattern.MatchString(req.ProjectID) {
		return b, fmt.Errorf("%w: project id %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidBatch, req.ProjectID)
	}
	start, ok := sprint.ParseDate(req.StartDate)
	if !ok {
		return b, fmt.Errorf("%w: startDate %q is not a date", ErrInvalidBatch, req.StartDate)
	}
	end, ok := sprint.ParseDate(req.EndDate)
	if !ok {
		return b, fmt.Errorf("%w: endDate %q is not a date", ErrInvalidBatch, req.EndDate)
	}
	if end.Before(start) {
		return b, fmt.Errorf("%w: endDate %s is before startDate %s", ErrInvalidBatch, req.EndDate, req.StartDate)
	}

	seen := make(map[string]bool, len(req.Issues))
	for i, is := range req.Issues {
		key := strings.TrimSpace(is.Key)
		if key == "" {
			return b, fmt.Errorf("%w: issue %d has no key", ErrInvalidBatch, i)
		}
		if seen[key] {
			return b, fmt.Errorf("%w: duplicate issue key %s", ErrInvalidBatch, key)
		}
		seen[key] = true
	}

	return sprint.SprintBatch{
		ProjectID:  req.ProjectID,
		Sprint:     req.Sprint,
		StartDate:  start,
		EndDate:    end,
		IssueCount: len(req.Issues),
	}, nil
}

// Import validates the export, archives it and stores its records. The
// archive is written first; if the database insert fails it is removed again.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*store.BatchRow, error) {
	batch, err := Validate(req)
	if err != nil {
		return nil, err
	}
	batch.ID = s.newID()

	issues := make([]sprint.Issue, len(req.Issues))
	for i, is := range req.Issues {
		is.Key = strings.TrimSpace(is.Key)
		is.BatchID = batch.ID
		issues[i] = is
	}

	data, err := json.Marshal(sprint.BatchFile{Batch: batch, Issues: issues})
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	if err := s.storage.PutExport(ctx, batch.ProjectID, batch.ID, data); err != nil {
		return nil, fmt.Errorf("archive export: %w", err)
	}

	ref := ExportKey(batch.ProjectID, batch.ID)
	if err := s.batches.CreateBatch(ctx, &batch, ref, issues); err != nil {
		if delErr := s.storage.DeleteExport(ctx, batch.ProjectID, batch.ID); delErr != nil {
			s.log.Warn().Err(delErr).Str("batch", batch.ID).Msg("failed to remove orphaned export")
		}
		return nil, fmt.Errorf("store batch: %w", err)
	}

	s.log.Info().
		Str("project", batch.ProjectID).
		Str("batch", batch.ID).
		Str("sprint", batch.Sprint).
		Int("issues", batch.IssueCount).
		Msg("batch imported")

	return &store.BatchRow{SprintBatch: batch, StorageRef: ref}, nil
}

// Export returns the archived export of a batch.
func (s *Service) Export(ctx context.Context, batchID string) ([]byte, error) {
	b, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.GetExport(ctx, b.ProjectID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", b.StorageRef, err)
	}
	return data, nil
}

// Delete removes a batch, its issues and its archived export.
func (s *Service) Delete(ctx context.Context, batchID string) error {
	b, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if _, err := s.batches.DeleteBatch(ctx, batchID); err != nil {
		return err
	}
	if err := s.storage.DeleteExport(ctx, b.ProjectID, b.ID); err != nil {
		s.log.Warn().Err(err).Str("batch", batchID).Msg("failed to remove export")
	}
	s.log.Info().Str("project", b.ProjectID).Str("batch", batchID).Msg("batch deleted")
	return nil
}

// List returns a project's batches, newest import first.
func (s *Service) List(ctx context.Context, projectID string) ([]store.BatchRow, error) {
	return s.batches.ListProjectBatches(ctx, projectID)
}
