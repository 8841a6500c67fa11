// Package report runs one analytics computation per request: resolve the
// window, load batches and issues, compute, and describe the outcome.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// MaxIssues caps the flattened issue listing.
const MaxIssues = 1000

// Report kinds, used in logs and metrics.
const (
	KindVelocity = "velocity"
	KindBurndown = "burndown"
	KindQuality  = "quality"
	KindIssues   = "issues"
)

// Computation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// IssueSource supplies sprint batches and their issues.
type IssueSource interface {
	ListSprintBatches(ctx context.Context, projectID string, w sprint.Window) ([]sprint.SprintBatch, error)
	ListIssues(ctx context.Context, batchIDs []string) (map[string][]sprint.Issue, error)
}

// Observer is told about every computation.
type Observer interface {
	ReportComputed(kind, outcome string)
}

// Query selects the batches a report covers.
type Query struct {
	ProjectID string
	Window    sprint.Window
}

// Meta describes a computation for the response envelope.
type Meta struct {
	Total        int
	ReportsCount int
	Message      string
}

// Service computes reports over an IssueSource.
type Service struct {
	source   IssueSource
	engine   *analytics.Engine
	log      zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithObserver registers an observer for computation outcomes.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides the time used for burndown time pressure.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a report Service.
func NewService(source IssueSource, engine *analytics.Engine, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{source: source, engine: engine, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func noSprintsMessage(projectID string) string {
	return fmt.Sprintf("No sprint data found for project %s in the selected date range", projectID)
}

// load fetches the window's batches and, when any exist, their issues.
func (s *Service) load(ctx context.Context, q Query) ([]sprint.SprintBatch, map[string][]sprint.Issue, error) {
	batches, err := s.source.ListSprintBatches(ctx, q.ProjectID, q.Window)
	if err != nil {
		return nil, nil, fmt.Errorf("load sprint batches: %w", err)
	}
	if len(batches) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	issues, err := s.source.ListIssues(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load issues: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return batches, issues, nil
}

func (s *Service) finish(kind string, q Query, outcome string, err error) {
	if err != nil {
		outcome = OutcomeError
		s.log.Error().Err(err).Str("projectId", q.ProjectID).Str("report", kind).Msg("report failed")
	}
	if s.observer != nil {
		s.observer.ReportComputed(kind, outcome)
	}
}

// Velocity returns one record per batch in the window, oldest first.
func (s *Service) Velocity(ctx context.Context, q Query) (records []analytics.VelocityRecord, meta Meta, err error) {
	outcome := OutcomeOK
	defer func() { s.finish(KindVelocity, q, outcome, err) }()

	batches, issues, err := s.load(ctx, q)
	if err != nil {
		return nil, Meta{}, err
	}
	if len(batches) == 0 {
		outcome = OutcomeEmpty
		return []analytics.VelocityRecord{}, Meta{Message: noSprintsMessage(q.ProjectID)}, nil
	}

	records = s.engine.VelocityHistory(batches, issues)
	return records, Meta{
		Total:        len(records),
		ReportsCount: len(batches),
		Message:      fmt.Sprintf("Velocity computed for %d sprint(s)", len(records)),
	}, nil
}

// Burndown charts the most recent batch in the window. The report is nil
// when the window has no batches.
func (s *Service) Burndown(ctx context.Context, q Query) (report *analytics.BurndownReport, meta Meta, err error) {
	outcome := OutcomeOK
	defer func() { s.finish(KindBurndown, q, outcome, err) }()

	batches, err := s.source.ListSprintBatches(ctx, q.ProjectID, q.Window)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("load sprint batches: %w", err)
	}
	latest, ok := sprint.Latest(batches)
	if !ok {
		outcome = OutcomeEmpty
		return nil, Meta{Message: noSprintsMessage(q.ProjectID)}, nil
	}

	issues, err := s.source.ListIssues(ctx, []string{latest.ID})
	if err != nil {
		return nil, Meta{}, fmt.Errorf("load issues: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, err
	}

	r := s.engine.Burndown(analytics.BurndownInput{
		Batch:  latest,
		Issues: issues[latest.ID],
		AsOf:   s.now(),
	})
	return &r, Meta{
		ReportsCount: len(batches),
		Message:      fmt.Sprintf("Burndown for %s (%d issue(s))", displayName(latest), len(issues[latest.ID])),
	}, nil
}

// Quality scores defects across every batch in the window.
func (s *Service) Quality(ctx context.Context, q Query) (report analytics.QualityReport, meta Meta, err error) {
	outcome := OutcomeOK
	defer func() { s.finish(KindQuality, q, outcome, err) }()

	empty := analytics.QualityReport{DefectData: []analytics.DefectPeriodSummary{}}
	batches, issues, err := s.load(ctx, q)
	if err != nil {
		return empty, Meta{}, err
	}
	if len(batches) == 0 {
		outcome = OutcomeEmpty
		return empty, Meta{Message: noSprintsMessage(q.ProjectID)}, nil
	}

	var all []sprint.Issue
	for _, b := range batches {
		all = append(all, issues[b.ID]...)
	}
	if len(all) == 0 {
		outcome = OutcomeEmpty
		return empty, Meta{ReportsCount: len(batches), Message: "No issues found in the matching sprints"}, nil
	}

	report = s.engine.Quality(all)
	return report, Meta{
		Total:        len(all),
		ReportsCount: len(batches),
		Message: fmt.Sprintf("Quality metrics computed from %d defect(s) across %d sprint(s)",
			report.QualityMetrics.TotalDefects, len(batches)),
	}, nil
}

// Issues flattens the window's issues, newest batch first. The first
// occurrence of a key wins and the list is capped at MaxIssues; Total is the
// de-duplicated count before the cap.
func (s *Service) Issues(ctx context.Context, q Query) (list []sprint.Issue, meta Meta, err error) {
	outcome := OutcomeOK
	defer func() { s.finish(KindIssues, q, outcome, err) }()

	batches, issues, err := s.load(ctx, q)
	if err != nil {
		return nil, Meta{}, err
	}
	if len(batches) == 0 {
		outcome = OutcomeEmpty
		return []sprint.Issue{}, Meta{Message: noSprintsMessage(q.ProjectID)}, nil
	}

	ordered := make([]sprint.SprintBatch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.After(ordered[j].StartDate)
	})

	seen := make(map[string]bool)
	list = []sprint.Issue{}
	for _, b := range ordered {
		for _, is := range issues[b.ID] {
			if seen[is.Key] {
				continue
			}
			seen[is.Key] = true
			list = append(list, is)
		}
	}

	total := len(list)
	if len(list) > MaxIssues {
		list = list[:MaxIssues]
	}
	msg := fmt.Sprintf("Found %d issue(s) across %d sprint(s)", total, len(batches))
	if total > MaxIssues {
		msg = fmt.Sprintf("Showing the first %d of %d issues across %d sprint(s)", MaxIssues, total, len(batches))
	}
	return list, Meta{Total: total, ReportsCount: len(batches), Message: msg}, nil
}

func displayName(b sprint.SprintBatch) string {
	if b.Sprint != "" {
		return b.Sprint
	}
	return b.StartDate.Format("2006-01-02")
}
