package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrisk/irrbb/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.RunsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunsRepo(sqlx.NewDb(db, "sqlmock"), 5*time.Second), mock
}

func sampleRun() persistence.RunRecord {
	return persistence.RunRecord{
		RunID:         "run-1",
		ValuationDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PVAssets:      1_100_000,
		PVLiabilities: 400_000,
		BaselineEVE:   700_000,
		BaselineNII:   50_000,
		Tier1Capital:  1_000_000,
		WorstScenario: "Parallel Up",
		WorstDeltaEVE: -20_000,
		CreatedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveRun_CommitsAllRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO valuation_runs").
		WithArgs(run.RunID, run.ValuationDate, run.PVAssets, run.PVLiabilities, run.BaselineEVE,
			run.BaselineNII, run.Tier1Capital, run.WorstScenario, run.WorstDeltaEVE, run.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scenario_results").
		WithArgs(run.RunID, "Parallel Up", 680_000.0, -20_000.0, -2.0, 3_000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gap_results").
		WithArgs(run.RunID, "0-1M", 100.0, 40.0, 60.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SaveRun(context.Background(), run,
		[]persistence.ScenarioRecord{{RunID: run.RunID, Scenario: "Parallel Up", EVE: 680_000, DeltaEVE: -20_000, DeltaEVEPctTier1: -2, DeltaNII: 3_000}},
		[]persistence.GapRecord{{RunID: run.RunID, Bucket: "0-1M", TotalInflows: 100, TotalOutflows: 40, NetGap: 60}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun_RollsBackOnScenarioFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO valuation_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scenario_results").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.SaveRun(context.Background(), run,
		[]persistence.ScenarioRecord{{RunID: run.RunID, Scenario: "Parallel Up"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parallel Up")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func runColumns() []string {
	return []string{"run_id", "valuation_date", "pv_assets", "pv_liabilities", "baseline_eve",
		"baseline_nii", "tier1_capital", "worst_scenario", "worst_delta_eve", "created_at"}
}

func TestLatestRun(t *testing.T) {
	repo, mock := newMockRepo(t)
	run := sampleRun()

	mock.ExpectQuery("SELECT (.+) FROM valuation_runs").
		WillReturnRows(sqlmock.NewRows(runColumns()).
			AddRow(run.RunID, run.ValuationDate, run.PVAssets, run.PVLiabilities, run.BaselineEVE,
				run.BaselineNII, run.Tier1Capital, run.WorstScenario, run.WorstDeltaEVE, run.CreatedAt))

	got, err := repo.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.BaselineEVE, got.BaselineEVE)
}

func TestLatestRun_EmptyStore(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM valuation_runs").
		WillReturnRows(sqlmock.NewRows(runColumns()))

	got, err := repo.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListScenarios(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM scenario_results").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "scenario", "eve", "delta_eve", "delta_eve_pct_tier1", "delta_nii"}).
			AddRow("run-1", "Parallel Down", 730_000.0, 30_000.0, 3.0, -7_000.0).
			AddRow("run-1", "Parallel Up", 680_000.0, -20_000.0, -2.0, 3_000.0))

	rows, err := repo.ListScenarios(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Parallel Down", rows[0].Scenario)
	assert.Equal(t, -2.0, rows[1].DeltaEVEPctTier1)
}

func TestListGap(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM gap_results").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "bucket", "total_inflows", "total_outflows", "net_gap"}).
			AddRow("run-1", "0-1M", 100.0, 40.0, 60.0))

	rows, err := repo.ListGap(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 60.0, rows[0].NetGap)
}
