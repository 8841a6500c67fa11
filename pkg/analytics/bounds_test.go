package analytics_test

import (
	"math"
	"testing"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

func inBounds(t *testing.T, label string, v float64) {
	t.Helper()
	if v < 0 || v > 100 || math.IsNaN(v) {
		t.Errorf("%s = %v, want within [0, 100]", label, v)
	}
}

func TestScoresStayWithinBounds(t *testing.T) {
	p := analytics.DefaultPolicy()
	sim := p
	sim.ScopeModel = analytics.ScopeSimulated
	engines := []*analytics.Engine{analytics.NewEngine(p, nil), analytics.NewEngine(sim, nil)}

	priorities := []string{"Blocker", "High", "", "Low"}
	ends := []string{"2024-01-01", "2024-01-03", "2024-01-10", "2024-02-28"}
	asOfs := []string{"", "2023-12-01", "2024-01-02", "2024-06-01"}

	for _, engine := range engines {
		for n := 0; n <= 40; n += 8 {
			for resolved := 0; resolved <= n; resolved += 4 {
				issues := makeIssues(n, resolved, "Bug", float64(n%5))
				for i := range issues {
					issues[i].Priority = priorities[i%len(priorities)]
					issues[i].CreatedAt = datePtr("2024-01-01")
					issues[i].UpdatedAt = datePtr("2024-03-15")
				}

				q := engine.Quality(issues)
				for _, d := range q.DefectData {
					inBounds(t, "qualityScore", d.QualityScore)
				}
				if m := q.QualityMetrics; m != nil {
					inBounds(t, "overallQualityScore", m.OverallQualityScore)
					inBounds(t, "overallGateScore", m.OverallGateScore)
					for _, g := range []analytics.QualityGate{m.QualityGates.DefectDensity, m.QualityGates.EscapeRate, m.QualityGates.CriticalRatio, m.QualityGates.ResolutionTime} {
						inBounds(t, "gate score", g.Score)
					}
					pe := m.PreventionEffectiveness
					for _, v := range []float64{pe.Requirements, pe.Design, pe.Coding, pe.Testing} {
						inBounds(t, "prevention", v)
					}
				}

				for _, end := range ends {
					for _, asOf := range asOfs {
						in := analytics.BurndownInput{
							Batch:  sprint.SprintBatch{StartDate: date("2024-01-01"), EndDate: date(end)},
							Issues: issues,
						}
						if asOf != "" {
							in.AsOf = date(asOf)
						}
						m := engine.Burndown(in).Metrics
						inBounds(t, "healthScore", m.HealthScore)
						inBounds(t, "completionProbability", m.CompletionProbability)
						inBounds(t, "scopeImpactScore", m.ScopeImpactScore)
					}
				}
			}
		}
	}
}
