package analytics

import (
	"math"
	"sort"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// defectTally accumulates one group of defects, either a calendar month or
// the whole window.
type defectTally struct {
	critical, high, medium, low int
	total, resolved             int
	resolutionDays              []float64
	points, unresolvedPoints    float64
	phases                      map[Phase]int
}

func (t *defectTally) add(c *Classifier, is sprint.Issue, sp float64) {
	switch c.Tier(is.Priority) {
	case TierCritical:
		t.critical++
	case TierHigh:
		t.high++
	case TierMedium:
		t.medium++
	default:
		t.low++
	}

	t.total++
	t.points += sp
	if c.IsResolved(is) {
		t.resolved++
		if is.CreatedAt != nil && is.UpdatedAt != nil {
			days := math.Ceil(float64(is.UpdatedAt.Sub(*is.CreatedAt)) / float64(oneDay))
			t.resolutionDays = append(t.resolutionDays, math.Max(0, days))
		}
	} else {
		t.unresolvedPoints += sp
	}

	if t.phases == nil {
		t.phases = make(map[Phase]int)
	}
	t.phases[c.Phase(is.IssueType)]++
}

// tallyScores are the derived values shared by periods and the aggregate.
type tallyScores struct {
	resolutionRate float64
	density        float64
	escapeRate     float64
	avgResolution  float64
	criticalRatio  float64
	score          float64
}

func (e *Engine) score(t *defectTally, totalPoints float64) tallyScores {
	p := e.policy
	total := float64(t.total)

	var avg float64
	if len(t.resolutionDays) > 0 {
		var sum float64
		for _, d := range t.resolutionDays {
			sum += d
		}
		avg = sum / float64(len(t.resolutionDays))
	}

	s := tallyScores{
		resolutionRate: ratio(float64(t.resolved), total) * 100,
		density:        ratio(total, totalPoints),
		escapeRate:     ratio(float64(t.total-t.resolved), total) * 100,
		avgResolution:  avg,
		criticalRatio:  ratio(float64(t.critical), total) * 100,
	}
	s.score = clamp(100 -
		math.Min(p.MaxDensityPenalty, s.density*p.DensityWeight) -
		math.Min(p.MaxEscapePenalty, s.escapeRate*p.EscapeWeight) -
		math.Min(p.MaxResolutionPenalty, math.Max(0, (s.avgResolution-p.ResolutionGraceDays)*p.ResolutionWeight)) -
		math.Min(p.MaxCriticalPenalty, s.criticalRatio*p.CriticalWeight))
	return s
}

// Quality scores defects across every issue in the window. Defects are
// grouped by the calendar month of createdAt; defects without a creation
// date still count toward the aggregate. With no issues at all the report
// has no periods and nil metrics.
func (e *Engine) Quality(issues []sprint.Issue) QualityReport {
	report := QualityReport{DefectData: []DefectPeriodSummary{}}
	if len(issues) == 0 {
		return report
	}

	var totalPoints float64
	all := &defectTally{}
	periods := make(map[string]*defectTally)
	for _, is := range issues {
		sp := e.StoryPoints(is.Fields)
		totalPoints += sp
		if !e.classifier.IsDefect(is) {
			continue
		}
		all.add(e.classifier, is, sp)
		if is.CreatedAt == nil {
			continue
		}
		key := is.CreatedAt.UTC().Format("2006-01")
		t, ok := periods[key]
		if !ok {
			t = &defectTally{}
			periods[key] = t
		}
		t.add(e.classifier, is, sp)
	}

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t := periods[k]
		s := e.score(t, totalPoints)
		report.DefectData = append(report.DefectData, DefectPeriodSummary{
			Period:            k,
			Critical:          t.critical,
			High:              t.high,
			Medium:            t.medium,
			Low:               t.low,
			Total:             t.total,
			Resolved:          t.resolved,
			QualityScore:      s.score,
			ResolutionRate:    s.resolutionRate,
			DefectDensity:     s.density,
			EscapeRate:        s.escapeRate,
			AvgResolutionTime: s.avgResolution,
			CriticalRatio:     s.criticalRatio,
		})
	}

	s := e.score(all, totalPoints)
	gates := e.gates(s)
	report.QualityMetrics = &QualityMetrics{
		OverallQualityScore: s.score,
		DefectDensity:       s.density,
		EscapeRate:          s.escapeRate,
		AvgResolutionTime:   s.avgResolution,
		CriticalDefectRatio: s.criticalRatio,
		QualityGates:        gates,
		OverallGateScore: clamp(gates.DefectDensity.Score + gates.EscapeRate.Score +
			gates.CriticalRatio.Score + gates.ResolutionTime.Score),
		QualityImpact: QualityImpact{
			DefectStoryPoints:      all.points,
			ReworkPercentage:       ratio(all.points, totalPoints) * 100,
			UnresolvedDefectPoints: all.unresolvedPoints,
		},
		PreventionEffectiveness: PreventionEffectiveness{
			Requirements: effectiveness(all, PhaseRequirements),
			Design:       effectiveness(all, PhaseDesign),
			Coding:       effectiveness(all, PhaseCoding),
			Testing:      effectiveness(all, PhaseTesting),
		},
		TotalDefects:     all.total,
		TotalStoryPoints: totalPoints,
	}
	return report
}

func (e *Engine) gates(s tallyScores) QualityGates {
	g := e.policy.Gates
	return QualityGates{
		DefectDensity:  gate(s.density, g.MaxDefectDensity, g.PointsPerGate),
		EscapeRate:     gate(s.escapeRate, g.MaxEscapeRate, g.PointsPerGate),
		CriticalRatio:  gate(s.criticalRatio, g.MaxCriticalRatio, g.PointsPerGate),
		ResolutionTime: gate(s.avgResolution, g.MaxResolutionDays, g.PointsPerGate),
	}
}

// gate passes when value is at or below threshold.
func gate(value, threshold, points float64) QualityGate {
	g := QualityGate{Value: value, Threshold: threshold, Passed: value <= threshold}
	if g.Passed {
		g.Score = clamp(points)
	}
	return g
}

func effectiveness(t *defectTally, phase Phase) float64 {
	if t.total == 0 {
		return 100
	}
	return clamp((1 - float64(t.phases[phase])/float64(t.total)) * 100)
}
