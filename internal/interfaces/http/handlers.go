package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quantrisk/irrbb/internal/persistence"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LatestRun string    `json:"latest_run,omitempty"`
}

// reportResponse is the latest run with its scenario deltas.
type reportResponse struct {
	Run       persistence.RunRecord        `json:"run"`
	Scenarios []persistence.ScenarioRecord `json:"scenarios"`
}

type gapResponse struct {
	RunID         string                  `json:"run_id"`
	ValuationDate time.Time               `json:"valuation_date"`
	Buckets       []persistence.GapRecord `json:"buckets"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC()}
	if run, err := s.store.LatestRun(r.Context()); err == nil && run != nil {
		resp.LatestRun = run.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no valuation runs recorded"})
		return
	}
	scenarios, err := s.store.ListScenarios(r.Context(), run.RunID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Run: *run, Scenarios: scenarios})
}

func (s *Server) handleLatestGap(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no valuation runs recorded"})
		return
	}
	buckets, err := s.store.ListGap(r.Context(), run.RunID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, gapResponse{RunID: run.RunID, ValuationDate: run.ValuationDate, Buckets: buckets})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer in [1,500]"})
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []persistence.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found: " + r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
