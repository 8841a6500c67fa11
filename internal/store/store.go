// Package store persists sprint batches and their issues in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("not found")

// Store provides batch and issue access backed by Postgres.
type Store struct {
	db *sql.DB
}

// BatchRow is a stored batch plus the location of its archived export.
type BatchRow struct {
	sprint.SprintBatch
	StorageRef string `json:"storageRef"`
}

// New creates a Store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const batchColumns = `id, project_id, sprint, start_date, end_date, issue_count, storage_ref, created_at`

func scanBatch(sc interface{ Scan(...any) error }) (BatchRow, error) {
	var b BatchRow
	err := sc.Scan(&b.ID, &b.ProjectID, &b.Sprint, &b.StartDate, &b.EndDate, &b.IssueCount, &b.StorageRef, &b.CreatedAt)
	return b, err
}

// ListSprintBatches returns a project's batches whose start date falls in
// the window, oldest first.
func (s *Store) ListSprintBatches(ctx context.Context, projectID string, w sprint.Window) ([]sprint.SprintBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+`
		 FROM sprint_batches
		 WHERE project_id = $1
		   AND ($2::timestamptz IS NULL OR start_date >= $2)
		   AND ($3::timestamptz IS NULL OR start_date <= $3)
		 ORDER BY start_date ASC, created_at ASC`,
		projectID, w.From, w.To,
	)
	if err != nil {
		return nil, fmt.Errorf("list sprint batches for %s: %w", projectID, err)
	}
	defer rows.Close()

	var batches []sprint.SprintBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint batch: %w", err)
		}
		batches = append(batches, b.SprintBatch)
	}
	return batches, rows.Err()
}

// ListProjectBatches returns every batch of a project, newest import first.
func (s *Store) ListProjectBatches(ctx context.Context, projectID string) ([]BatchRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+`
		 FROM sprint_batches WHERE project_id = $1
		 ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches for %s: %w", projectID, err)
	}
	defer rows.Close()

	batches := []BatchRow{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetBatch returns one batch by ID.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*BatchRow, error) {
	if !validID(batchID) {
		return nil, fmt.Errorf("get batch %s: %w", batchID, ErrNotFound)
	}
	b, err := scanBatch(s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM sprint_batches WHERE id = $1`, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get batch %s: %w", batchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", batchID, err)
	}
	return &b, nil
}

// ListIssues loads the issues of the given batches, keyed by batch ID.
func (s *Store) ListIssues(ctx context.Context, batchIDs []string) (map[string][]sprint.Issue, error) {
	out := make(map[string][]sprint.Issue, len(batchIDs))
	if len(batchIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, key,
		        COALESCE(issue_type, ''), COALESCE(status, ''), COALESCE(priority, ''),
		        COALESCE(assignee, ''), COALESCE(reporter, ''),
		        created_at_src, updated_at_src, COALESCE(resolution, ''), raw
		 FROM issues WHERE batch_id = ANY($1)
		 ORDER BY batch_id, key`,
		pq.Array(batchIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			is               sprint.Issue
			created, updated sql.NullTime
			raw              []byte
		)
		if err := rows.Scan(&is.BatchID, &is.Key, &is.IssueType, &is.Status, &is.Priority,
			&is.Assignee, &is.Reporter, &created, &updated, &is.Resolution, &raw); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		is.CreatedAt = timePtr(created)
		is.UpdatedAt = timePtr(updated)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &is.Fields); err != nil {
				return nil, fmt.Errorf("decode fields of issue %s: %w", is.Key, err)
			}
		}
		out[is.BatchID] = append(out[is.BatchID], is)
	}
	return out, rows.Err()
}

// CreateBatch inserts a batch and all of its issues in one transaction.
// b.ID must already be set.
func (s *Store) CreateBatch(ctx context.Context, b *sprint.SprintBatch, storageRef string, issues []sprint.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	err = tx.QueryRowContext(ctx,
		`INSERT INTO sprint_batches (id, project_id, sprint, start_date, end_date, issue_count, storage_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		b.ID, b.ProjectID, b.Sprint, b.StartDate, b.EndDate, len(issues), storageRef,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	b.IssueCount = len(issues)

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO issues (batch_id, key, issue_type, status, priority, assignee, reporter,
		                     created_at_src, updated_at_src, resolution, raw)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("prepare issue insert: %w", err)
	}
	defer stmt.Close()

	for _, is := range issues {
		raw, err := encodeFields(is.Fields)
		if err != nil {
			return fmt.Errorf("encode fields of issue %s: %w", is.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, b.ID, is.Key, is.IssueType, is.Status, is.Priority,
			is.Assignee, is.Reporter, is.CreatedAt, is.UpdatedAt, is.Resolution, raw); err != nil {
			return fmt.Errorf("insert issue %s: %w", is.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBatch removes a batch and, by cascade, its issues. It returns the
// storage reference of the archived export.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (string, error) {
	if !validID(batchID) {
		return "", fmt.Errorf("delete batch %s: %w", batchID, ErrNotFound)
	}
	var ref string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM sprint_batches WHERE id = $1 RETURNING storage_ref`, batchID,
	).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("delete batch %s: %w", batchID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	return ref, nil
}

// validID reports whether id can name a row; batch ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(fields)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
