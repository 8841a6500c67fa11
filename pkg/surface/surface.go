// Package surface defines output rendering for Sprintpulse reports.
// Implementations handle different output targets: terminal and JSON.
package surface

import (
	"io"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
)

// Renderer produces formatted output from analytics reports.
type Renderer interface {
	// RenderVelocity writes one line of history per sprint.
	RenderVelocity(w io.Writer, records []analytics.VelocityRecord) error
	// RenderBurndown writes the burndown curve and its metrics.
	RenderBurndown(w io.Writer, report *analytics.BurndownReport) error
	// RenderQuality writes per-period defects and the aggregate quality view.
	RenderQuality(w io.Writer, report *analytics.QualityReport) error
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string) (Renderer, bool) {
	switch format {
	case "", "text":
		return &TerminalRenderer{}, true
	case "json":
		return &JSONRenderer{}, true
	default:
		return nil, false
	}
}
