package analytics_test

import (
	"testing"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

func TestVelocityIssueCounts(t *testing.T) {
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)
	batch := sprint.SprintBatch{ID: "b1", Sprint: "Sprint 1", StartDate: date("2024-01-01"), EndDate: date("2024-01-10")}

	rec := engine.Velocity(batch, makeIssues(10, 6, "Story", -1))

	if rec.Planned != 10 || rec.Completed != 6 {
		t.Errorf("planned/completed = %v/%v, want 10/6", rec.Planned, rec.Completed)
	}
	if rec.TotalIssues != 10 || rec.CompletedIssues != 6 {
		t.Errorf("issues = %d/%d, want 10/6", rec.TotalIssues, rec.CompletedIssues)
	}
	if rec.GoalMet {
		t.Error("6 of 10 is below the 80% goal")
	}
	if rec.Sprint != "Sprint 1" || !rec.StartDate.Equal(batch.StartDate) {
		t.Errorf("sprint metadata not carried over: %+v", rec)
	}
}

func TestVelocityStoryPoints(t *testing.T) {
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)
	issues := []sprint.Issue{
		{Key: "A", Status: "Done", Fields: map[string]any{"customfield_10016": 5.0}},
		{Key: "B", Status: "Open", Fields: map[string]any{"customfield_10016": 3.0}},
		{Key: "C", Status: "Closed"}, // no estimate, counts the default
	}

	rec := engine.Velocity(sprint.SprintBatch{}, issues)
	if rec.Planned != 9 || rec.Completed != 6 {
		t.Errorf("planned/completed = %v/%v, want 9/6", rec.Planned, rec.Completed)
	}
	if rec.CompletedIssues != 2 {
		t.Errorf("CompletedIssues = %d, want 2", rec.CompletedIssues)
	}
}

func TestVelocityGoalThreshold(t *testing.T) {
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)

	tests := []struct {
		n, resolved int
		want        bool
	}{
		{0, 0, true}, // vacuous
		{10, 8, true},
		{10, 7, false},
		{5, 5, true},
		{4, 0, false},
	}

	for _, tt := range tests {
		rec := engine.Velocity(sprint.SprintBatch{}, makeIssues(tt.n, tt.resolved, "Task", -1))
		if rec.GoalMet != tt.want {
			t.Errorf("%d/%d: GoalMet = %v, want %v", tt.resolved, tt.n, rec.GoalMet, tt.want)
		}
		if rec.GoalMet != (rec.Completed >= 0.8*rec.Planned) {
			t.Errorf("%d/%d: GoalMet disagrees with completed >= 0.8*planned", tt.resolved, tt.n)
		}
	}
}

func TestVelocityHistoryOrder(t *testing.T) {
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)
	batches := []sprint.SprintBatch{
		{ID: "late", Sprint: "S2", StartDate: date("2024-02-01")},
		{ID: "early", Sprint: "S1", StartDate: date("2024-01-01")},
	}
	issues := map[string][]sprint.Issue{
		"early": makeIssues(3, 3, "Story", -1),
	}

	got := engine.VelocityHistory(batches, issues)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Sprint != "S1" || got[1].Sprint != "S2" {
		t.Errorf("order = %s,%s; want S1,S2", got[0].Sprint, got[1].Sprint)
	}
	if got[1].TotalIssues != 0 || !got[1].GoalMet {
		t.Errorf("batch without issues = %+v, want empty record with vacuous goal", got[1])
	}
}
