package analytics

import (
	"sort"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// Velocity computes planned vs. completed effort for one sprint batch.
//
// Effort is measured in story points when at least one issue carries an
// estimate (issues without one count the default). Otherwise it falls back
// to issue counts.
func (e *Engine) Velocity(b sprint.SprintBatch, issues []sprint.Issue) VelocityRecord {
	rec := VelocityRecord{
		Sprint:      b.Sprint,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		TotalIssues: len(issues),
	}

	var planned, completed float64
	estimated := false
	for _, is := range issues {
		sp, ok := e.points.Lookup(is.Fields)
		if ok {
			estimated = true
		} else {
			sp = e.policy.DefaultStoryPoints
		}
		planned += sp
		if e.classifier.IsResolved(is) {
			rec.CompletedIssues++
			completed += sp
		}
	}

	if estimated {
		rec.Planned, rec.Completed = planned, completed
	} else {
		rec.Planned, rec.Completed = float64(rec.TotalIssues), float64(rec.CompletedIssues)
	}
	rec.GoalMet = rec.Completed >= e.policy.GoalThreshold*rec.Planned
	return rec
}

// VelocityHistory computes one record per batch, oldest sprint first.
// issuesByBatch is keyed by batch ID; batches without issues yield an
// empty record.
func (e *Engine) VelocityHistory(batches []sprint.SprintBatch, issuesByBatch map[string][]sprint.Issue) []VelocityRecord {
	ordered := make([]sprint.SprintBatch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})

	records := make([]VelocityRecord, 0, len(ordered))
	for _, b := range ordered {
		records = append(records, e.Velocity(b, issuesByBatch[b.ID]))
	}
	return records
}
