// Package analytics implements the Sprintpulse sprint analytics engine.
// It turns loosely-typed issue records into velocity, burndown and quality
// metrics. Every function here is pure: no I/O, no shared state.
package analytics

import "time"

// VelocityRecord is planned vs. completed effort for one sprint.
type VelocityRecord struct {
	Sprint          string    `json:"sprint"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Planned         float64   `json:"planned"`
	Completed       float64   `json:"completed"`
	TotalIssues     int       `json:"totalIssues"`
	CompletedIssues int       `json:"completedIssues"`
	GoalMet         bool      `json:"goalMet"`
}

// BurndownPoint is one day of the burndown curve.
type BurndownPoint struct {
	Day       int     `json:"day"` // 1-based
	Remaining float64 `json:"remaining"`
	WorkAdded float64 `json:"workAdded"`
	Ideal     float64 `json:"ideal"`
	Completed float64 `json:"completed"`
}

// Pattern labels the shape of the daily work curve.
type Pattern string

const (
	PatternConsistent   Pattern = "Consistent"
	PatternBursty       Pattern = "Bursty"
	PatternAccelerating Pattern = "Accelerating"
	PatternDecelerating Pattern = "Decelerating"
)

// BurndownMetrics are the projection and health figures derived from a burndown.
type BurndownMetrics struct {
	AbsoluteVariance       float64 `json:"absoluteVariance"`
	PercentageVariance     float64 `json:"percentageVariance"`
	CurrentBurnRate        float64 `json:"currentBurnRate"`
	ProjectedCompletionDay float64 `json:"projectedCompletionDay"`
	DaysOverUnder          float64 `json:"daysOverUnder"`
	CompletionProbability  float64 `json:"completionProbability"`
	HealthScore            float64 `json:"healthScore"`
	TimePressurePenalty    float64 `json:"timePressurePenalty"`
	DaysRemaining          int     `json:"daysRemaining"`
	ScopeChangePercentage  float64 `json:"scopeChangePercentage"`
	ScopeImpactScore       float64 `json:"scopeImpactScore"`
	Pattern                Pattern `json:"pattern"`
	TotalStoryPoints       float64 `json:"totalStoryPoints"`
	CompletedStoryPoints   float64 `json:"completedStoryPoints"`
	RemainingStoryPoints   float64 `json:"remainingStoryPoints"`
	SprintDuration         int     `json:"sprintDuration"`
}

// BurndownReport is the burndown curve and metrics for one sprint.
type BurndownReport struct {
	BurndownData []BurndownPoint `json:"burndownData"`
	Metrics      BurndownMetrics `json:"metrics"`
	Sprint       string          `json:"sprint"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
}

// DefectPeriodSummary is the defect breakdown for one calendar month.
type DefectPeriodSummary struct {
	Period            string  `json:"period"` // YYYY-MM
	Critical          int     `json:"critical"`
	High              int     `json:"high"`
	Medium            int     `json:"medium"`
	Low               int     `json:"low"`
	Total             int     `json:"total"`
	Resolved          int     `json:"resolved"`
	QualityScore      float64 `json:"qualityScore"`
	ResolutionRate    float64 `json:"resolutionRate"`
	DefectDensity     float64 `json:"defectDensity"`
	EscapeRate        float64 `json:"escapeRate"`
	AvgResolutionTime float64 `json:"avgResolutionTime"`
	CriticalRatio     float64 `json:"criticalRatio"`
}

// QualityGate is one pass/fail threshold check.
type QualityGate struct {
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
}

// QualityGates groups the four gates.
type QualityGates struct {
	DefectDensity  QualityGate `json:"defectDensity"`
	EscapeRate     QualityGate `json:"escapeRate"`
	CriticalRatio  QualityGate `json:"criticalRatio"`
	ResolutionTime QualityGate `json:"resolutionTime"`
}

// QualityImpact is the effort attributed to defects.
type QualityImpact struct {
	DefectStoryPoints      float64 `json:"defectStoryPoints"`
	ReworkPercentage       float64 `json:"reworkPercentage"`
	UnresolvedDefectPoints float64 `json:"unresolvedDefectPoints"`
}

// PreventionEffectiveness is the inverse share of defects per lifecycle phase.
type PreventionEffectiveness struct {
	Requirements float64 `json:"requirements"`
	Design       float64 `json:"design"`
	Coding       float64 `json:"coding"`
	Testing      float64 `json:"testing"`
}

// QualityMetrics is the aggregate quality view across all defects in a window.
type QualityMetrics struct {
	OverallQualityScore     float64                 `json:"overallQualityScore"`
	DefectDensity           float64                 `json:"defectDensity"`
	EscapeRate              float64                 `json:"escapeRate"`
	AvgResolutionTime       float64                 `json:"avgResolutionTime"`
	CriticalDefectRatio     float64                 `json:"criticalDefectRatio"`
	QualityGates            QualityGates            `json:"qualityGates"`
	OverallGateScore        float64                 `json:"overallGateScore"`
	QualityImpact           QualityImpact           `json:"qualityImpact"`
	PreventionEffectiveness PreventionEffectiveness `json:"preventionEffectiveness"`
	TotalDefects            int                     `json:"totalDefects"`
	TotalStoryPoints        float64                 `json:"totalStoryPoints"`
}

// QualityReport is the per-period breakdown plus aggregate metrics.
// QualityMetrics is nil when there were no issues at all.
type QualityReport struct {
	DefectData     []DefectPeriodSummary `json:"defectData"`
	QualityMetrics *QualityMetrics       `json:"qualityMetrics"`
}
