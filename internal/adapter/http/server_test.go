package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/firms-ingest/internal/adapter/http"
	"github.com/couchcryptid/firms-ingest/internal/domain"
	"github.com/couchcryptid/firms-ingest/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPoller struct {
	err    error
	status []pipeline.SourceStatus
}

func (m *mockPoller) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockPoller) Status() []pipeline.SourceStatus { return m.status }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockPoller{err: readyErr}, slog.Default())
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
	srv := newTestServer(fmt.Errorf("poller has not completed a cycle yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "poller has not completed a cycle yet", body["error"])
}

func TestStatusListsSources(t *testing.T) {
	polled := time.Date(2024, 8, 14, 4, 20, 0, 0, time.UTC)
	poller := &mockPoller{status: []pipeline.SourceStatus{
		{Source: domain.SourceSNPP, Rows: 120, NewRows: 4, LastPoll: polled, LastSuccess: polled},
		{Source: domain.SourceNOAA20, LastPoll: polled, LastError: "status 503"},
	}}
	srv := httpadapter.NewServer(":0", poller, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sources []map[string]any `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sources, 2)
	assert.Equal(t, "SNPP", body.Sources[0]["source"])
	assert.EqualValues(t, 120, body.Sources[0]["rows"])
	assert.EqualValues(t, 4, body.Sources[0]["new_rows_last_poll"])
	assert.Equal(t, "2024-08-14T04:20:00Z", body.Sources[0]["last_success"])
	assert.NotContains(t, body.Sources[1], "last_success")
	assert.Equal(t, "status 503", body.Sources[1]["last_error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
