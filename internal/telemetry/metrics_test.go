package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintpulse/sprintpulse/internal/telemetry"
)

func scrape(t *testing.T, m *telemetry.Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	return rec.Body.String()
}

func TestHandlerServesServiceMetrics(t *testing.T) {
	t.Parallel()

	m := telemetry.New()
	m.ObserveRequest("/api/v1/project/{projectId}/sprint-velocity", http.MethodGet, 200, 15*time.Millisecond)
	m.ReportComputed("velocity", "ok")

	body := scrape(t, m)
	assert.Contains(t, body, `sprintpulse_http_requests_total{method="GET",route="/api/v1/project/{projectId}/sprint-velocity",status="200"} 1`)
	assert.Contains(t, body, "sprintpulse_http_request_duration_seconds_bucket")
	assert.Contains(t, body, `sprintpulse_report_computations_total{outcome="ok",report="velocity"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestIndependentRegistries(t *testing.T) {
	t.Parallel()

	a, b := telemetry.New(), telemetry.New()
	a.ReportComputed("quality", "empty")

	assert.Contains(t, scrape(t, a), `report="quality"`)
	assert.NotContains(t, scrape(t, b), `report="quality"`)
}

func TestReportComputedCounts(t *testing.T) {
	t.Parallel()

	m := telemetry.New()
	m.ReportComputed("burndown", "error")
	m.ReportComputed("burndown", "error")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "sprintpulse_report_computations_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1, "one labelled series")
		assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
		return
	}
	t.Fatal("computation counter not gathered")
}
