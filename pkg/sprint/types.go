// Package sprint defines the imported issue-tracker data model for Sprintpulse.
// These types are the shared vocabulary between the store, the import pipeline
// and the analytics engine.
package sprint

import (
	"strings"
	"time"
)

// Issue is one tracked work item from an imported export.
// Issues are immutable once stored; the analytics engine only reads them.
type Issue struct {
	Key        string         `json:"key"`
	BatchID    string         `json:"batchId,omitempty"`
	IssueType  string         `json:"issueType"`
	Status     string         `json:"status"`
	Priority   string         `json:"priority"`
	Assignee   string         `json:"assignee,omitempty"`
	Reporter   string         `json:"reporter,omitempty"`
	CreatedAt  *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time     `json:"updatedAt,omitempty"`
	Resolution string         `json:"resolution,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"` // raw source payload
}

// SprintBatch is one imported file's worth of issues for a project and sprint.
// StartDate is before EndDate; the import pipeline enforces it.
type SprintBatch struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Sprint     string    `json:"sprint"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	IssueCount int       `json:"issueCount"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Window filters sprint batches by their own start date. A nil bound is open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether a batch starting at t falls inside the window.
// Both bounds are inclusive.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// dateLayouts are tried in order when parsing window bounds.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses an ISO date or timestamp. ok is false for empty or
// malformed input.
func ParseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// ParseWindow builds a Window from raw query values. Values that fail to
// parse are dropped, leaving that side of the window open.
func ParseWindow(from, to string) Window {
	var w Window
	if t, ok := ParseDate(from); ok {
		w.From = &t
	}
	if t, ok := ParseDate(to); ok {
		// A bare date covers the whole day.
		if len(strings.TrimSpace(to)) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		w.To = &t
	}
	return w
}

// FilterBatches returns the batches whose start date falls inside the window,
// preserving input order.
func FilterBatches(batches []SprintBatch, w Window) []SprintBatch {
	var out []SprintBatch
	for _, b := range batches {
		if w.Contains(b.StartDate) {
			out = append(out, b)
		}
	}
	return out
}

// Latest returns the batch with the most recent start date.
func Latest(batches []SprintBatch) (SprintBatch, bool) {
	if len(batches) == 0 {
		return SprintBatch{}, false
	}
	latest := batches[0]
	for _, b := range batches[1:] {
		if b.StartDate.After(latest.StartDate) {
			latest = b
		}
	}
	return latest, true
}
