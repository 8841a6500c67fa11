package analytics_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
)

func TestStoryPoints(t *testing.T) {
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)

	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{"nil bag", nil, 1},
		{"empty bag", map[string]any{}, 1},
		{"primary field", map[string]any{"customfield_10016": 5}, 5},
		{"declared order wins", map[string]any{"story_points": 8.0, "customfield_10002": 3.0}, 3},
		{"non-matching field ignored", map[string]any{"estimate": 13.0, "storyPoints": 2.0}, 2},
		{"string is not a number", map[string]any{"customfield_10016": "5"}, 1},
		{"string skipped for next field", map[string]any{"customfield_10016": "5", "Story Points": 4.0}, 4},
		{"json number", map[string]any{"customfield_10016": json.Number("2.5")}, 2.5},
		{"zero is a value", map[string]any{"customfield_10016": 0.0}, 0},
		{"negative rejected", map[string]any{"customfield_10016": -3.0}, 1},
		{"NaN rejected", map[string]any{"customfield_10016": math.NaN()}, 1},
		{"null value", map[string]any{"customfield_10016": nil}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.StoryPoints(tt.fields); got != tt.want {
				t.Errorf("StoryPoints(%v) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}

func TestStoryPointResolverLookup(t *testing.T) {
	r := analytics.StoryPointResolver{Fields: []string{"a", "b"}, Default: 2}

	if _, ok := r.Lookup(map[string]any{"c": 1.0}); ok {
		t.Error("Lookup should miss when no declared field is present")
	}
	if v, ok := r.Lookup(map[string]any{"b": int64(7)}); !ok || v != 7 {
		t.Errorf("Lookup = %v, %v; want 7, true", v, ok)
	}
	if got := r.Resolve(nil); got != 2 {
		t.Errorf("Resolve(nil) = %v, want configured default 2", got)
	}
}
