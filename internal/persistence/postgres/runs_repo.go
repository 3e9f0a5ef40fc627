package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quantrisk/irrbb/internal/persistence"
)

// Schema creates the run-result tables. Applied by the serve command at
// startup when the store is enabled.
const Schema = `
CREATE TABLE IF NOT EXISTS valuation_runs (
	run_id          TEXT PRIMARY KEY,
	valuation_date  DATE NOT NULL,
	pv_assets       DOUBLE PRECISION NOT NULL,
	pv_liabilities  DOUBLE PRECISION NOT NULL,
	baseline_eve    DOUBLE PRECISION NOT NULL,
	baseline_nii    DOUBLE PRECISION NOT NULL,
	tier1_capital   DOUBLE PRECISION NOT NULL,
	worst_scenario  TEXT NOT NULL,
	worst_delta_eve DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scenario_results (
	run_id              TEXT NOT NULL REFERENCES valuation_runs(run_id) ON DELETE CASCADE,
	scenario            TEXT NOT NULL,
	eve                 DOUBLE PRECISION NOT NULL,
	delta_eve           DOUBLE PRECISION NOT NULL,
	delta_eve_pct_tier1 DOUBLE PRECISION NOT NULL,
	delta_nii           DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, scenario)
);

CREATE TABLE IF NOT EXISTS gap_results (
	run_id         TEXT NOT NULL REFERENCES valuation_runs(run_id) ON DELETE CASCADE,
	bucket         TEXT NOT NULL,
	total_inflows  DOUBLE PRECISION NOT NULL,
	total_outflows DOUBLE PRECISION NOT NULL,
	net_gap        DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, bucket)
);
`

type runsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRunsRepo creates a PostgreSQL-backed run store.
func NewRunsRepo(db *sqlx.DB, timeout time.Duration) persistence.RunsRepo {
	return &runsRepo{db: db, timeout: timeout}
}

// EnsureSchema creates the result tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply run store schema: %w", err)
	}
	return nil
}

// SaveRun writes the run summary plus its scenario and gap rows in one
// transaction.
func (r *runsRepo) SaveRun(ctx context.Context, run persistence.RunRecord, scenarios []persistence.ScenarioRecord, gap []persistence.GapRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO valuation_runs
			(run_id, valuation_date, pv_assets, pv_liabilities, baseline_eve,
			 baseline_nii, tier1_capital, worst_scenario, worst_delta_eve, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.RunID, run.ValuationDate, run.PVAssets, run.PVLiabilities, run.BaselineEVE,
		run.BaselineNII, run.Tier1Capital, run.WorstScenario, run.WorstDeltaEVE, run.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate run %s: %w", run.RunID, err)
		}
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range scenarios {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scenario_results
				(run_id, scenario, eve, delta_eve, delta_eve_pct_tier1, delta_nii)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.RunID, s.Scenario, s.EVE, s.DeltaEVE, s.DeltaEVEPctTier1, s.DeltaNII)
		if err != nil {
			return fmt.Errorf("insert scenario %s: %w", s.Scenario, err)
		}
	}

	for _, g := range gap {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gap_results
				(run_id, bucket, total_inflows, total_outflows, net_gap)
			VALUES ($1, $2, $3, $4, $5)`,
			g.RunID, g.Bucket, g.TotalInflows, g.TotalOutflows, g.NetGap)
		if err != nil {
			return fmt.Errorf("insert gap bucket %s: %w", g.Bucket, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run save: %w", err)
	}
	return nil
}

// LatestRun returns the most recently stored run, or nil when the store is
// empty.
func (r *runsRepo) LatestRun(ctx context.Context) (*persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.RunRecord
	err := r.db.GetContext(ctx, &run, `
		SELECT run_id, valuation_date, pv_assets, pv_liabilities, baseline_eve,
		       baseline_nii, tier1_capital, worst_scenario, worst_delta_eve, created_at
		FROM valuation_runs
		ORDER BY created_at DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return &run, nil
}

func (r *runsRepo) GetRun(ctx context.Context, runID string) (*persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.RunRecord
	err := r.db.GetContext(ctx, &run, `
		SELECT run_id, valuation_date, pv_assets, pv_liabilities, baseline_eve,
		       baseline_nii, tier1_capital, worst_scenario, worst_delta_eve, created_at
		FROM valuation_runs
		WHERE run_id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return &run, nil
}

func (r *runsRepo) ListRuns(ctx context.Context, limit int) ([]persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	var runs []persistence.RunRecord
	err := r.db.SelectContext(ctx, &runs, `
		SELECT run_id, valuation_date, pv_assets, pv_liabilities, baseline_eve,
		       baseline_nii, tier1_capital, worst_scenario, worst_delta_eve, created_at
		FROM valuation_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListScenarios returns a run's scenario rows in stored report order.
func (r *runsRepo) ListScenarios(ctx context.Context, runID string) ([]persistence.ScenarioRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []persistence.ScenarioRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, scenario, eve, delta_eve, delta_eve_pct_tier1, delta_nii
		FROM scenario_results
		WHERE run_id = $1
		ORDER BY scenario`, runID)
	if err != nil {
		return nil, fmt.Errorf("list scenarios for run %s: %w", runID, err)
	}
	return rows, nil
}

func (r *runsRepo) ListGap(ctx context.Context, runID string) ([]persistence.GapRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []persistence.GapRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, bucket, total_inflows, total_outflows, net_gap
		FROM gap_results
		WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("list gap for run %s: %w", runID, err)
	}
	return rows, nil
}
