package analytics

import (
	"math"
	"time"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

const oneDay = 24 * time.Hour

// BurndownInput is a sprint batch with its issues. AsOf is the moment the
// report is computed for; the zero value disables the time-pressure term.
type BurndownInput struct {
	Batch  sprint.SprintBatch
	Issues []sprint.Issue
	AsOf   time.Time
}

// SprintDuration is the inclusive number of calendar days between start and
// end, at least 1 and at most maxDays (when maxDays > 0).
func SprintDuration(start, end time.Time, maxDays int) int {
	days := int(math.Ceil(float64(end.Sub(start))/float64(oneDay))) + 1
	if days < 1 {
		days = 1
	}
	if maxDays > 0 && days > maxDays {
		days = maxDays
	}
	return days
}

// Burndown builds the burndown curve and its metrics. Completion is spread
// linearly over the sprint since issue records carry no per-day history.
func (e *Engine) Burndown(in BurndownInput) BurndownReport {
	p := e.policy
	total, completed := e.effort(in.Issues)
	remaining := total - completed
	duration := SprintDuration(in.Batch.StartDate, in.Batch.EndDate, p.MaxSprintDays)
	added := e.scopeAdditions(in, duration, total)

	points := make([]BurndownPoint, 0, duration)
	for d := 1; d <= duration; d++ {
		ideal := total
		if duration > 1 {
			ideal = total - total/float64(duration-1)*float64(d-1)
		}
		progress := float64(d) / float64(duration)
		done := completed * progress
		points = append(points, BurndownPoint{
			Day:       d,
			Remaining: round(math.Max(0, total-done)),
			WorkAdded: added[d-1],
			Ideal:     round(ideal),
			Completed: round(done),
		})
	}

	dur := float64(duration)
	absVariance := remaining - total/dur*(dur-1)
	pctVariance := ratio(absVariance, total) * 100

	burnRate := completed / dur
	var daysNeeded float64
	if burnRate > 0 {
		daysNeeded = remaining / burnRate
	}
	projected := dur + daysNeeded
	overUnder := projected - dur

	var probability float64
	if overUnder <= 0 {
		probability = math.Min(100, 100-math.Abs(overUnder)*p.EarlyFinishWeight)
	} else {
		probability = math.Max(0, 100-overUnder*p.LateFinishWeight)
	}

	daysRemaining, pressure := e.timePressure(in, duration, remaining, total)
	variancePenalty := math.Min(p.MaxVariancePenalty, math.Abs(pctVariance)*p.VariancePenaltyWeight)

	var totalAdded float64
	for _, a := range added {
		totalAdded += a
	}
	scopeChange := ratio(totalAdded, total) * 100

	return BurndownReport{
		BurndownData: points,
		Sprint:       in.Batch.Sprint,
		StartDate:    in.Batch.StartDate,
		EndDate:      in.Batch.EndDate,
		Metrics: BurndownMetrics{
			AbsoluteVariance:       absVariance,
			PercentageVariance:     pctVariance,
			CurrentBurnRate:        burnRate,
			ProjectedCompletionDay: projected,
			DaysOverUnder:          overUnder,
			CompletionProbability:  clamp(probability),
			HealthScore:            clamp(100 - variancePenalty - pressure),
			TimePressurePenalty:    pressure,
			DaysRemaining:          daysRemaining,
			ScopeChangePercentage:  scopeChange,
			ScopeImpactScore:       clamp(scopeChange * p.ScopeImpactWeight),
			Pattern:                p.ClassifyPattern(DailyWork(points)),
			TotalStoryPoints:       total,
			CompletedStoryPoints:   completed,
			RemainingStoryPoints:   remaining,
			SprintDuration:         duration,
		},
	}
}

// scopeAdditions returns work added per day, indexed by day-1.
func (e *Engine) scopeAdditions(in BurndownInput, duration int, total float64) []float64 {
	added := make([]float64, duration)
	p := e.policy

	switch p.ScopeModel {
	case ScopeSimulated:
		if p.SimulatedScopeDay >= 1 && p.SimulatedScopeDay <= duration {
			added[p.SimulatedScopeDay-1] = total * p.SimulatedScopeFraction
		}
	default:
		// Issues created after day 1 count as added scope on their creation
		// day. Anything created past the last charted day lands on it.
		start := in.Batch.StartDate
		for _, is := range in.Issues {
			if is.CreatedAt == nil {
				continue
			}
			d := int(math.Floor(float64(is.CreatedAt.Sub(start))/float64(oneDay))) + 1
			if d < 2 {
				continue
			}
			if d > duration {
				d = duration
			}
			added[d-1] += e.StoryPoints(is.Fields)
		}
	}
	return added
}

// timePressure penalises remaining work that outpaces remaining time.
func (e *Engine) timePressure(in BurndownInput, duration int, remaining, total float64) (int, float64) {
	if in.AsOf.IsZero() || total == 0 {
		return 0, 0
	}
	daysRemaining := int(math.Ceil(float64(in.Batch.EndDate.Sub(in.AsOf)) / float64(oneDay)))
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > duration {
		daysRemaining = duration
	}

	workShare := remaining / total
	timeShare := float64(daysRemaining) / float64(duration)
	penalty := math.Max(0, workShare-timeShare) * 100 * e.policy.TimePressureWeight
	return daysRemaining, math.Min(e.policy.MaxTimePressurePenalty, penalty)
}
