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

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-evacuation/internal/adapter/httpadapter"
	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
	"github.com/couchcryptid/storm-data-evacuation/internal/observability"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockOutcomes []domain.Outcome

func (m mockOutcomes) LastOutcomes() []domain.Outcome { return m }

func newTestServer(readyErr error, outcomes mockOutcomes) *httpadapter.Server {
	metrics := observability.NewMetricsForTesting()
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, outcomes, metrics.Gatherer(), slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("no evacuation routes have been persisted yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evac_router_planner_running")
}

func TestRoutesEndpoint(t *testing.T) {
	srv := newTestServer(nil, mockOutcomes{
		{
			City:     "Alpha",
			State:    domain.StateRouted,
			Attempts: 1,
			Route: &domain.Route{
				City:        "Alpha",
				Coordinates: orb.LineString{{10, 10}, {10, 10.18}},
				Cost:        2.5,
				RunID:       "run-1",
			},
		},
		{City: "Beta", State: domain.StateFetchFailed, Attempts: 3, Err: errors.New("network fetch failed")},
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Cities   int `json:"cities"`
		Routed   int `json:"routed"`
		Outcomes []struct {
			City     string          `json:"city"`
			State    string          `json:"state"`
			Attempts int             `json:"attempts"`
			Error    string          `json:"error"`
			RunID    string          `json:"run_id"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Cities)
	assert.Equal(t, 1, body.Routed)
	require.Len(t, body.Outcomes, 2)

	assert.Equal(t, "routed", body.Outcomes[0].State)
	assert.Equal(t, "run-1", body.Outcomes[0].RunID)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[[10,10],[10,10.18]]}`, string(body.Outcomes[0].Geometry))

	assert.Equal(t, "fetch_failed", body.Outcomes[1].State)
	assert.Equal(t, 3, body.Outcomes[1].Attempts)
	assert.Equal(t, "network fetch failed", body.Outcomes[1].Error)
	assert.Empty(t, body.Outcomes[1].Geometry)
}

func TestRoutesEndpoint_BeforeFirstRun(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cities":0,"routed":0,"outcomes":[]}`, rec.Body.String())
}
