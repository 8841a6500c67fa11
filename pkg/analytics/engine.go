package analytics

import (
	"math"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// Engine computes every report from a policy and a classifier.
type Engine struct {
	policy     Policy
	classifier *Classifier
	points     StoryPointResolver
}

// NewEngine creates an engine. A nil classifier uses the default vocabulary.
func NewEngine(p Policy, c *Classifier) *Engine {
	if c == nil {
		c = NewClassifier(DefaultVocabulary())
	}
	return &Engine{
		policy:     p,
		classifier: c,
		points:     StoryPointResolver{Fields: p.StoryPointFields, Default: p.DefaultStoryPoints},
	}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// StoryPoints resolves the estimate for a raw field bag.
func (e *Engine) StoryPoints(fields map[string]any) float64 {
	return e.points.Resolve(fields)
}

// effort sums story points over issues and over the resolved subset.
func (e *Engine) effort(issues []sprint.Issue) (total, completed float64) {
	for _, is := range issues {
		sp := e.StoryPoints(is.Fields)
		total += sp
		if e.classifier.IsResolved(is) {
			completed += sp
		}
	}
	return total, completed
}

// round rounds half toward +Inf, so -2.5 becomes -2.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// clamp bounds a score to [0, 100].
func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(100, x))
}

// ratio returns num/den, or 0 when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
