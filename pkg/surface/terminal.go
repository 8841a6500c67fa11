package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
)

// TerminalRenderer renders reports as colored terminal output.
type TerminalRenderer struct{}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

const dateLayout = "2006-01-02"

// scoreColor buckets a 0-100 score.
func scoreColor(score float64) string {
	if noColor() {
		return ""
	}
	switch {
	case score >= 80:
		return colorGreen
	case score >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func passFail(passed bool) string {
	if passed {
		return colored("PASS", colorGreen)
	}
	return colored("FAIL", colorRed)
}

func (r *TerminalRenderer) RenderVelocity(w io.Writer, records []analytics.VelocityRecord) error {
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("Sprintpulse: Velocity across %d sprint(s)", len(records))))
	if len(records) == 0 {
		fmt.Fprintln(w, "No sprints in range.")
		return nil
	}

	var completed float64
	met := 0
	for _, rec := range records {
		pct := 0.0
		if rec.Planned > 0 {
			pct = rec.Completed / rec.Planned * 100
		}
		goal := colored("goal missed", colorRed)
		if rec.GoalMet {
			goal = colored("goal met", colorGreen)
			met++
		}
		fmt.Fprintf(w, "  %-20s %s  planned %6.1f  completed %6.1f (%3.0f%%)  %s\n",
			bold(rec.Sprint),
			dim(rec.StartDate.Format(dateLayout)+" .. "+rec.EndDate.Format(dateLayout)),
			rec.Planned, rec.Completed, pct, goal)
		completed += rec.Completed
	}

	fmt.Fprintf(w, "\nAverage velocity: %.1f  Goals met: %d/%d\n",
		completed/float64(len(records)), met, len(records))
	return nil
}

func (r *TerminalRenderer) RenderBurndown(w io.Writer, report *analytics.BurndownReport) error {
	m := report.Metrics
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("Sprintpulse: Burndown for %s, health %s",
		report.Sprint, colored(fmt.Sprintf("%.0f", m.HealthScore), scoreColor(m.HealthScore)))))

	fmt.Fprintf(w, "Scope: %.1f points, %.1f completed, %.1f remaining over %d day(s)\n\n",
		m.TotalStoryPoints, m.CompletedStoryPoints, m.RemainingStoryPoints, m.SprintDuration)

	fmt.Fprintln(w, "Day  Remaining  Ideal  Added")
	for _, p := range report.BurndownData {
		fmt.Fprintf(w, "%3d  %9.0f  %5.0f  %5.1f  %s\n",
			p.Day, p.Remaining, p.Ideal, p.WorkAdded, bar(p.Remaining, m.TotalStoryPoints, 30))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Variance:   %+.1f points (%+.1f%%)\n", m.AbsoluteVariance, m.PercentageVariance)
	fmt.Fprintf(w, "Burn rate:  %.1f points/day, projected completion on day %.1f (%+.1f)\n",
		m.CurrentBurnRate, m.ProjectedCompletionDay, m.DaysOverUnder)
	fmt.Fprintf(w, "Completion probability: %s\n",
		colored(fmt.Sprintf("%.0f%%", m.CompletionProbability), scoreColor(m.CompletionProbability)))
	if m.TimePressurePenalty > 0 {
		fmt.Fprintf(w, "Time pressure: -%.1f with %d day(s) left\n", m.TimePressurePenalty, m.DaysRemaining)
	}
	fmt.Fprintf(w, "Scope change: %.1f%% (impact %.0f)\n", m.ScopeChangePercentage, m.ScopeImpactScore)
	fmt.Fprintf(w, "Pattern: %s\n", bold(string(m.Pattern)))
	return nil
}

func (r *TerminalRenderer) RenderQuality(w io.Writer, report *analytics.QualityReport) error {
	q := report.QualityMetrics
	if q == nil {
		fmt.Fprintf(w, "%s\n\nNo issues in range.\n", bold("Sprintpulse: Quality"))
		return nil
	}

	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("Sprintpulse: Quality %s, gates %s",
		colored(fmt.Sprintf("%.0f", q.OverallQualityScore), scoreColor(q.OverallQualityScore)),
		colored(fmt.Sprintf("%.0f/100", q.OverallGateScore), scoreColor(q.OverallGateScore)))))

	fmt.Fprintf(w, "Defects: %d over %.1f story points\n\n", q.TotalDefects, q.TotalStoryPoints)

	g := q.QualityGates
	fmt.Fprintln(w, "Gates:")
	fmt.Fprintf(w, "  %s  defect density   %.3f (max %.3f)\n", passFail(g.DefectDensity.Passed), g.DefectDensity.Value, g.DefectDensity.Threshold)
	fmt.Fprintf(w, "  %s  escape rate      %.1f%% (max %.1f%%)\n", passFail(g.EscapeRate.Passed), g.EscapeRate.Value, g.EscapeRate.Threshold)
	fmt.Fprintf(w, "  %s  critical ratio   %.1f%% (max %.1f%%)\n", passFail(g.CriticalRatio.Passed), g.CriticalRatio.Value, g.CriticalRatio.Threshold)
	fmt.Fprintf(w, "  %s  resolution time  %.1fd (max %.1fd)\n", passFail(g.ResolutionTime.Passed), g.ResolutionTime.Value, g.ResolutionTime.Threshold)
	fmt.Fprintln(w)

	if len(report.DefectData) > 0 {
		fmt.Fprintln(w, "Period   Crit  High   Med   Low  Total  Resolved  Score")
		for _, d := range report.DefectData {
			fmt.Fprintf(w, "%-7s  %4d  %4d  %4d  %4d  %5d  %8d  %s\n",
				d.Period, d.Critical, d.High, d.Medium, d.Low, d.Total, d.Resolved,
				colored(fmt.Sprintf("%5.1f", d.QualityScore), scoreColor(d.QualityScore)))
		}
		fmt.Fprintln(w)
	}

	pe := q.PreventionEffectiveness
	fmt.Fprintf(w, "Rework: %.1f%% of effort (%.1f points, %.1f unresolved)\n",
		q.QualityImpact.ReworkPercentage, q.QualityImpact.DefectStoryPoints, q.QualityImpact.UnresolvedDefectPoints)
	fmt.Fprintf(w, "Prevention: requirements %.0f%%, design %.0f%%, coding %.0f%%, testing %.0f%%\n",
		pe.Requirements, pe.Design, pe.Coding, pe.Testing)
	return nil
}

// bar draws value as a share of total in width cells.
func bar(value, total float64, width int) string {
	if total <= 0 || value <= 0 {
		return ""
	}
	n := int(value / total * float64(width))
	if n > width {
		n = width
	}
	return dim(strings.Repeat("#", n))
}
