// Package persistence stores completed valuation runs: the baseline
// valuation, the per-scenario deltas, and the repricing-gap table.
package persistence

import (
	"context"
	"time"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
)

// RunRecord is the stored summary of one valuation run.
type RunRecord struct {
	RunID         string    `json:"run_id" db:"run_id"`
	ValuationDate time.Time `json:"valuation_date" db:"valuation_date"`
	PVAssets      float64   `json:"pv_assets" db:"pv_assets"`
	PVLiabilities float64   `json:"pv_liabilities" db:"pv_liabilities"`
	BaselineEVE   float64   `json:"baseline_eve" db:"baseline_eve"`
	BaselineNII   float64   `json:"baseline_nii" db:"baseline_nii"`
	Tier1Capital  float64   `json:"tier1_capital" db:"tier1_capital"`
	WorstScenario string    `json:"worst_scenario" db:"worst_scenario"`
	WorstDeltaEVE float64   `json:"worst_delta_eve" db:"worst_delta_eve"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ScenarioRecord is one stored scenario outcome of a run.
type ScenarioRecord struct {
	RunID            string  `json:"run_id" db:"run_id"`
	Scenario         string  `json:"scenario" db:"scenario"`
	EVE              float64 `json:"eve" db:"eve"`
	DeltaEVE         float64 `json:"delta_eve" db:"delta_eve"`
	DeltaEVEPctTier1 float64 `json:"delta_eve_pct_tier1" db:"delta_eve_pct_tier1"`
	DeltaNII         float64 `json:"delta_nii" db:"delta_nii"`
}

// GapRecord is one stored repricing-gap bucket of a run.
type GapRecord struct {
	RunID         string  `json:"run_id" db:"run_id"`
	Bucket        string  `json:"bucket" db:"bucket"`
	TotalInflows  float64 `json:"total_inflows" db:"total_inflows"`
	TotalOutflows float64 `json:"total_outflows" db:"total_outflows"`
	NetGap        float64 `json:"net_gap" db:"net_gap"`
}

// RunsRepo persists valuation runs. SaveRun is atomic: the run row, its
// scenario rows, and its gap rows commit together or not at all.
type RunsRepo interface {
	SaveRun(ctx context.Context, run RunRecord, scenarios []ScenarioRecord, gap []GapRecord) error

	LatestRun(ctx context.Context) (*RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	ListScenarios(ctx context.Context, runID string) ([]ScenarioRecord, error)
	ListGap(ctx context.Context, runID string) ([]GapRecord, error)
}

// FromReport flattens an engine run report into storable records.
func FromReport(report *pipeline.RunReport, tier1 float64) (RunRecord, []ScenarioRecord, []GapRecord) {
	b := report.Baseline
	run := RunRecord{
		RunID:         report.RunID,
		ValuationDate: b.ValuationDate,
		PVAssets:      b.Valuation.PVAssets,
		PVLiabilities: b.Valuation.PVLiabilities,
		BaselineEVE:   b.Valuation.EVE,
		BaselineNII:   b.NII,
		Tier1Capital:  tier1,
		WorstScenario: report.WorstCase.Scenario,
		WorstDeltaEVE: report.WorstCase.DeltaEVE,
		CreatedAt:     report.GeneratedAt,
	}
	scenarios := make([]ScenarioRecord, 0, len(report.Rows))
	for _, row := range report.Rows {
		scenarios = append(scenarios, ScenarioRecord{
			RunID:            report.RunID,
			Scenario:         row.Scenario,
			EVE:              row.EVE,
			DeltaEVE:         row.DeltaEVE,
			DeltaEVEPctTier1: row.DeltaEVEPctTier1,
			DeltaNII:         row.DeltaNII,
		})
	}
	gap := make([]GapRecord, 0, len(b.GapTable))
	for _, row := range b.GapTable {
		gap = append(gap, GapRecord{
			RunID:         report.RunID,
			Bucket:        row.Bucket,
			TotalInflows:  row.TotalInflows,
			TotalOutflows: row.TotalOutflows,
			NetGap:        row.NetGap,
		})
	}
	return run, scenarios, gap
}
