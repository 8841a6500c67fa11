package surface

import (
	"encoding/json"
	"io"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
)

// JSONRenderer marshals reports to indented JSON using the same field names
// as the HTTP API.
type JSONRenderer struct{}

func (r *JSONRenderer) RenderVelocity(w io.Writer, records []analytics.VelocityRecord) error {
	if records == nil {
		records = []analytics.VelocityRecord{}
	}
	return encode(w, records)
}

func (r *JSONRenderer) RenderBurndown(w io.Writer, report *analytics.BurndownReport) error {
	return encode(w, report)
}

func (r *JSONRenderer) RenderQuality(w io.Writer, report *analytics.QualityReport) error {
	return encode(w, report)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
