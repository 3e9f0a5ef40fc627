package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
	"github.com/quantrisk/irrbb/internal/domain/bucketing"
	"github.com/quantrisk/irrbb/internal/domain/valuation"
	"github.com/quantrisk/irrbb/internal/metrics"
	"github.com/quantrisk/irrbb/internal/persistence"
)

func testServer(t *testing.T, store ReportStore) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.Port = 0 // any free port
	srv, err := NewServer(cfg, store, metrics.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	return srv
}

func populatedStore() *MemoryStore {
	store := NewMemoryStore()
	store.Record(&pipeline.RunReport{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Baseline: &pipeline.BaselineResult{
			RunID:         "run-1",
			ValuationDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Valuation:     valuation.Result{PVAssets: 1_100_000, PVLiabilities: 400_000, EVE: 700_000},
			GapTable:      []bucketing.NetGapRow{{Bucket: "0-1M", TotalInflows: 100, NetGap: 100}},
		},
		Rows: []pipeline.ReportRow{
			{Scenario: "Parallel Up", EVE: 680_000, DeltaEVE: -20_000, DeltaEVEPctTier1: -2},
		},
		WorstCase: pipeline.ReportRow{Scenario: "Parallel Up", DeltaEVE: -20_000},
	}, 1_000_000)
	return store
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := testServer(t, populatedStore())
	rec := get(t, srv, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.LatestRun)
}

func TestLatestReport(t *testing.T) {
	srv := testServer(t, populatedStore())
	rec := get(t, srv, "/v1/reports/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Run.RunID)
	assert.Equal(t, 700_000.0, resp.Run.BaselineEVE)
	require.Len(t, resp.Scenarios, 1)
	assert.Equal(t, -2.0, resp.Scenarios[0].DeltaEVEPctTier1)
}

func TestLatestReport_EmptyStore(t *testing.T) {
	srv := testServer(t, NewMemoryStore())
	rec := get(t, srv, "/v1/reports/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestGap(t *testing.T) {
	srv := testServer(t, populatedStore())
	rec := get(t, srv, "/v1/gap/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp gapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Buckets, 1)
	assert.Equal(t, 100.0, resp.Buckets[0].NetGap)
}

func TestListRuns_LimitValidation(t *testing.T) {
	srv := testServer(t, populatedStore())

	rec := get(t, srv, "/v1/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []persistence.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}

func TestRequestIDMiddleware_StampsHeaderAndContext(t *testing.T) {
	srv := testServer(t, populatedStore())

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.requestIDMiddleware(inner).ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestNotFound(t *testing.T) {
	srv := testServer(t, populatedStore())
	rec := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, populatedStore())
	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	store := populatedStore()
	store.Record(&pipeline.RunReport{
		RunID:       "run-2",
		GeneratedAt: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
		Baseline:    &pipeline.BaselineResult{RunID: "run-2", ValuationDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}, 1_000_000)

	latest, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
}
