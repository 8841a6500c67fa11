package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintpulse/sprintpulse/internal/ingestion"
	"github.com/sprintpulse/sprintpulse/internal/report"
	"github.com/sprintpulse/sprintpulse/internal/store"
	"github.com/sprintpulse/sprintpulse/internal/telemetry"
	"github.com/sprintpulse/sprintpulse/pkg/analytics"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// memDB backs both the report source and the batch store.
type memDB struct {
	mu      sync.Mutex
	batches map[string]store.BatchRow
	issues  map[string][]sprint.Issue
	listErr error
	pingErr error
}

func newMemDB() *memDB {
	return &memDB{batches: map[string]store.BatchRow{}, issues: map[string][]sprint.Issue{}}
}

func (m *memDB) ListSprintBatches(ctx context.Context, projectID string, w sprint.Window) ([]sprint.SprintBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []sprint.SprintBatch
	for _, b := range m.batches {
		if b.ProjectID == projectID && w.Contains(b.StartDate) {
			out = append(out, b.SprintBatch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *memDB) ListIssues(ctx context.Context, ids []string) (map[string][]sprint.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]sprint.Issue)
	for _, id := range ids {
		out[id] = m.issues[id]
	}
	return out, nil
}

func (m *memDB) CreateBatch(ctx context.Context, b *sprint.SprintBatch, ref string, issues []sprint.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.CreatedAt = time.Now()
	m.batches[b.ID] = store.BatchRow{SprintBatch: *b, StorageRef: ref}
	m.issues[b.ID] = issues
	return nil
}

func (m *memDB) GetBatch(ctx context.Context, id string) (*store.BatchRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("get batch %s: %w", id, store.ErrNotFound)
	}
	return &b, nil
}

func (m *memDB) DeleteBatch(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return "", fmt.Errorf("delete batch %s: %w", id, store.ErrNotFound)
	}
	delete(m.batches, id)
	delete(m.issues, id)
	return b.StorageRef, nil
}

func (m *memDB) ListProjectBatches(ctx context.Context, projectID string) ([]store.BatchRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.BatchRow{}
	for _, b := range m.batches {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memDB) Ping(ctx context.Context) error { return m.pingErr }

type testServer struct {
	db      *memDB
	metrics *telemetry.Metrics
	handler http.Handler
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	db := newMemDB()
	metrics := telemetry.New()
	engine := analytics.NewEngine(analytics.DefaultPolicy(), nil)
	reports := report.NewService(db, engine, zerolog.Nop(),
		report.WithObserver(metrics),
		report.WithClock(func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) }))
	batches := ingestion.NewService(db, ingestion.NewLocalStorage(t.TempDir()), zerolog.Nop())
	h := NewHandler(reports, batches, zerolog.Nop(), Options{
		APIKey:  apiKey,
		Metrics: metrics,
		Health:  db,
	})
	return &testServer{db: db, metrics: metrics, handler: h.Routes()}
}

type response struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data"`
	Total        *int            `json:"total"`
	ReportsCount *int            `json:"reportsCount"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

const sprintOne = `{
  "sprint": "Sprint 1",
  "startDate": "2024-01-01",
  "endDate": "2024-01-10",
  "issues": [
    {"key": "P1-1", "issueType": "Story", "status": "Done", "priority": "High", "fields": {"customfield_10016": 5}},
    {"key": "P1-2", "issueType": "Story", "status": "In Progress", "priority": "Medium", "fields": {"customfield_10016": 3}},
    {"key": "P1-3", "issueType": "Bug", "status": "Closed", "priority": "Critical", "createdAt": "2024-01-03T10:00:00Z", "updatedAt": "2024-01-05T10:00:00Z"}
  ]
}`

func (s *testServer) importBatch(t *testing.T, project, body string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/api/v1/projects/"+project+"/batches", strings.NewReader(body), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var row store.BatchRow
	require.NoError(t, json.Unmarshal(resp.Data, &row))
	return row.ID
}

func TestReportsOnEmptyProject(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		path string
		data string
	}{
		{"/api/v1/project/P9/sprint-velocity", "[]"},
		{"/api/v1/project/P9/burndown", "null"},
		{"/api/v1/project/P9/quality-metrics", `{"defectData":[],"qualityMetrics":null}`},
		{"/api/v1/project/P9/issues", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
			assert.JSONEq(t, tt.data, string(resp.Data))
		})
	}
}

func TestImportThenReport(t *testing.T) {
	s := newTestServer(t, "")
	s.importBatch(t, "P1", sprintOne)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/project/P1/sprint-velocity", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []analytics.VelocityRecord
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
	// Story points are present, so the bug without points counts as the default.
	assert.Equal(t, 9.0, records[0].Planned)
	assert.Equal(t, 6.0, records[0].Completed)
	require.NotNil(t, resp.Total)
	assert.Equal(t, 1, *resp.Total)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/project/P1/burndown", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bd analytics.BurndownReport
	require.NoError(t, json.Unmarshal(resp.Data, &bd))
	assert.Equal(t, "Sprint 1", bd.Sprint)
	assert.Len(t, bd.BurndownData, 10)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/project/P1/quality-metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qr analytics.QualityReport
	require.NoError(t, json.Unmarshal(resp.Data, &qr))
	require.NotNil(t, qr.QualityMetrics)
	assert.Equal(t, 1, qr.QualityMetrics.TotalDefects)
	require.Len(t, qr.DefectData, 1)
	assert.Equal(t, "2024-01", qr.DefectData[0].Period)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/project/P1/issues", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.ReportsCount)
	assert.Equal(t, 1, *resp.ReportsCount)
	assert.Equal(t, 3, *resp.Total)
}

func TestReportWindowFilter(t *testing.T) {
	s := newTestServer(t, "")
	s.importBatch(t, "P1", sprintOne)

	_, resp := s.do(t, http.MethodGet, "/api/v1/project/P1/sprint-velocity?startDate=2024-02-01", nil, nil)
	assert.True(t, resp.Success)
	assert.JSONEq(t, "[]", string(resp.Data))

	// Malformed dates are ignored.
	_, resp = s.do(t, http.MethodGet, "/api/v1/project/P1/sprint-velocity?startDate=yesterday", nil, nil)
	assert.Equal(t, 1, *resp.Total)
}

func TestReportInternalError(t *testing.T) {
	s := newTestServer(t, "")
	s.db.listErr = errors.New("connection refused")

	rec, resp := s.do(t, http.MethodGet, "/api/v1/project/P1/quality-metrics", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
	assert.Contains(t, resp.Error, "connection refused")
}

func TestImportValidation(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"sprint":`, http.StatusBadRequest},
		{"end before start", `{"startDate":"2024-01-10","endDate":"2024-01-01","issues":[]}`, http.StatusBadRequest},
		{"missing key", `{"startDate":"2024-01-01","endDate":"2024-01-10","issues":[{"issueType":"Bug"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodPost, "/api/v1/projects/P1/batches", strings.NewReader(tt.body), nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestImportGzip(t *testing.T) {
	s := newTestServer(t, "")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sprintOne))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	rec, resp := s.do(t, http.MethodPost, "/api/v1/projects/P1/batches", &buf, map[string]string{"Content-Encoding": "gzip"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/projects/P1/batches", strings.NewReader("not gzip"), map[string]string{"Content-Encoding": "gzip"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	id := s.importBatch(t, "P1", sprintOne)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/projects/P1/batches", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *resp.Total)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/projects/P1/batches?endDate=2023-12-31", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/batches/"+id+"/export", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bf sprint.BatchFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bf))
	assert.Equal(t, id, bf.Batch.ID)
	assert.Len(t, bf.Issues, 3)

	rec, resp = s.do(t, http.MethodDelete, "/api/v1/batches/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/batches/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/batches/"+id+"/export", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, "secret")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/projects/P1/batches", strings.NewReader(sprintOne), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/projects/P1/batches", strings.NewReader(sprintOne), map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reports stay open.
	rec, _ = s.do(t, http.MethodGet, "/api/v1/project/P1/sprint-velocity", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "")

	rec, _ := s.do(t, http.MethodOptions, "/api/v1/projects/P1/batches", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")

	rec, _ := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.db.pingErr = errors.New("down")
	rec, resp := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", resp.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodGet, "/api/v1/project/P1/sprint-velocity", nil, nil)

	rec, _ := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/api/v1/project/{projectId}/sprint-velocity"`)
	assert.Contains(t, body, `sprintpulse_report_computations_total{outcome="empty",report="velocity"} 1`)
}

func TestPanicIsRecordedAsServerError(t *testing.T) {
	s := newTestServer(t, "")
	mux, ok := s.handler.(*chi.Mux)
	require.True(t, ok)
	mux.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Contains(t, rec.Body.String(), `sprintpulse_http_requests_total{method="GET",route="/boom",status="500"} 1`)
}
