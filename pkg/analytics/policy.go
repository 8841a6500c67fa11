package analytics

// ScopeModel selects how the burndown derives daily scope additions.
type ScopeModel string

const (
	// ScopeTracked derives work added from issue creation dates.
	ScopeTracked ScopeModel = "tracked"
	// ScopeSimulated injects a fixed share of total scope on a fixed day.
	ScopeSimulated ScopeModel = "simulated"
)

// Policy holds every tunable constant used by the engine.
type Policy struct {
	// Story points
	DefaultStoryPoints float64
	StoryPointFields   []string // probed in order

	// Velocity
	GoalThreshold float64 // completed >= threshold * planned

	// Burndown
	MaxSprintDays          int
	ScopeModel             ScopeModel
	SimulatedScopeDay      int
	SimulatedScopeFraction float64
	VariancePenaltyWeight  float64
	MaxVariancePenalty     float64
	TimePressureWeight     float64
	MaxTimePressurePenalty float64
	EarlyFinishWeight      float64 // probability lost per day ahead of schedule
	LateFinishWeight       float64 // probability lost per day behind schedule
	ScopeImpactWeight      float64

	// Pattern classifier
	ConsistentVarianceRatio float64 // variance < ratio * mean
	BurstyPeakRatio         float64 // max > ratio * mean

	// Quality score penalties
	DensityWeight        float64
	MaxDensityPenalty    float64
	EscapeWeight         float64
	MaxEscapePenalty     float64
	ResolutionGraceDays  float64
	ResolutionWeight     float64
	MaxResolutionPenalty float64
	CriticalWeight       float64
	MaxCriticalPenalty   float64

	Gates GatePolicy
}

// GatePolicy holds the pass/fail thresholds. Every bound is inclusive.
type GatePolicy struct {
	MaxDefectDensity  float64
	MaxEscapeRate     float64 // percent
	MaxCriticalRatio  float64 // percent
	MaxResolutionDays float64
	PointsPerGate     float64
}

// DefaultPolicy returns the default engine policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultStoryPoints: 1,
		StoryPointFields: []string{
			"customfield_10016",
			"customfield_10002",
			"Story Points",
			"storyPoints",
			"story_points",
		},

		GoalThreshold: 0.8,

		MaxSprintDays:          10,
		ScopeModel:             ScopeTracked,
		SimulatedScopeDay:      3,
		SimulatedScopeFraction: 0.10,
		VariancePenaltyWeight:  2,
		MaxVariancePenalty:     50,
		TimePressureWeight:     0.5,
		MaxTimePressurePenalty: 20,
		EarlyFinishWeight:      5,
		LateFinishWeight:       10,
		ScopeImpactWeight:      2,

		ConsistentVarianceRatio: 0.1,
		BurstyPeakRatio:         2,

		DensityWeight:        15,
		MaxDensityPenalty:    30,
		EscapeWeight:         0.5,
		MaxEscapePenalty:     25,
		ResolutionGraceDays:  5,
		ResolutionWeight:     2,
		MaxResolutionPenalty: 20,
		CriticalWeight:       0.8,
		MaxCriticalPenalty:   25,

		Gates: GatePolicy{
			MaxDefectDensity:  0.1,
			MaxEscapeRate:     5,
			MaxCriticalRatio:  10,
			MaxResolutionDays: 7,
			PointsPerGate:     25,
		},
	}
}
