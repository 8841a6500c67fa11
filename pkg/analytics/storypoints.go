package analytics

import (
	"encoding/json"
	"math"
)

// StoryPointResolver extracts an effort estimate from an issue's raw field bag.
type StoryPointResolver struct {
	Fields  []string // probed in order; first numeric value wins
	Default float64
}

// Lookup returns the first usable estimate and whether one was found.
func (r StoryPointResolver) Lookup(fields map[string]any) (float64, bool) {
	if fields == nil {
		return 0, false
	}
	for _, name := range r.Fields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if v, ok := numeric(raw); ok {
			return v, true
		}
	}
	return 0, false
}

// Resolve returns the estimate for the field bag, or the default. It never fails.
func (r StoryPointResolver) Resolve(fields map[string]any) float64 {
	if v, ok := r.Lookup(fields); ok {
		return v
	}
	return r.Default
}

// numeric accepts finite, non-negative numbers of any Go numeric kind.
// Numeric-looking strings are not estimates.
func numeric(raw any) (float64, bool) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int8:
		v = float64(n)
	case int16:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint:
		v = float64(n)
	case uint8:
		v = float64(n)
	case uint16:
		v = float64(n)
	case uint32:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
