package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	report *pipeline.RunReport
}

func (m *mockRuns) LastRun() (pipeline.RunReport, bool) {
	if m.report == nil {
		return pipeline.RunReport{}, false
	}
	return *m.report, true
}

type mockTrigger struct {
	calls int
}

func (m *mockTrigger) RunNow() { m.calls++ }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockRuns{}, nil, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("database: connection refused"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database: connection refused", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLastRunNotFoundBeforeFirstRun(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/last", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastRunReturnsReport(t *testing.T) {
	report := pipeline.RunReport{
		ID:         "3f0c",
		Outcome:    "success",
		LookupRows: 10,
		Snapshot:   &domain.SnapshotHandle{Key: "joined_weather_data_17122024154530.csv", Rows: 1},
	}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockRuns{report: &report}, nil, slog.Default())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/last", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got pipeline.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "3f0c", got.ID)
	assert.Equal(t, "success", got.Outcome)
	require.NotNil(t, got.Snapshot)
	assert.Equal(t, "joined_weather_data_17122024154530.csv", got.Snapshot.Key)
}

func TestTriggerRun(t *testing.T) {
	trigger := &mockTrigger{}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockRuns{}, trigger, slog.Default())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trigger.calls)
}

func TestTriggerRouteAbsentWithoutTrigger(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChecks(t *testing.T) {
	ok := &mockReadiness{}
	dbDown := &mockReadiness{err: errors.New("database down")}
	lastRunFailed := &mockReadiness{err: errors.New("last run failed")}

	assert.NoError(t, httpadapter.Checks{ok, ok}.CheckReadiness(context.Background()))
	assert.NoError(t, httpadapter.Checks{}.CheckReadiness(context.Background()))

	err := httpadapter.Checks{ok, dbDown, lastRunFailed}.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database down")
	assert.Contains(t, err.Error(), "last run failed")
}
