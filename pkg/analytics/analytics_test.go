package analytics_test

import (
	"fmt"
	"math"
	"time"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// makeIssues builds n issues of the given type; the first resolved of them
// are Done. points < 0 leaves the field bag empty.
func makeIssues(n, resolved int, issueType string, points float64) []sprint.Issue {
	issues := make([]sprint.Issue, 0, n)
	for i := 0; i < n; i++ {
		is := sprint.Issue{
			Key:       fmt.Sprintf("P-%d", i+1),
			IssueType: issueType,
			Status:    "To Do",
		}
		if i < resolved {
			is.Status = "Done"
		}
		if points >= 0 {
			is.Fields = map[string]any{"customfield_10016": points}
		}
		issues = append(issues, is)
	}
	return issues
}
