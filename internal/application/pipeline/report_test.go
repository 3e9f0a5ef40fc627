package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrisk/irrbb/internal/domain/shock"
	"github.com/quantrisk/irrbb/internal/domain/valuation"
)

func TestBuildReport_PctOfTier1(t *testing.T) {
	baseline := &BaselineResult{Valuation: valuation.Result{EVE: 500_000}, NII: 10_000}
	results := []ScenarioResult{
		{Scenario: shock.Scenario{Name: "Parallel Up"}, Valuation: valuation.Result{EVE: 520_000}, NII: 14_000},
		{Scenario: shock.Scenario{Name: "Parallel Down"}, Valuation: valuation.Result{EVE: 470_000}, NII: 7_000},
	}

	rows, err := BuildReport(baseline, results, 1_000_000)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Parallel Up", rows[0].Scenario)
	assert.InDelta(t, 20_000, rows[0].DeltaEVE, 1e-9)
	assert.InDelta(t, 2.0, rows[0].DeltaEVEPctTier1, 1e-9)
	assert.InDelta(t, 4_000, rows[0].DeltaNII, 1e-9)

	assert.InDelta(t, -30_000, rows[1].DeltaEVE, 1e-9)
	assert.InDelta(t, -3.0, rows[1].DeltaEVEPctTier1, 1e-9)
}

func TestBuildReport_RejectsNonPositiveTier1(t *testing.T) {
	baseline := &BaselineResult{Valuation: valuation.Result{EVE: 100}}
	for _, tier1 := range []float64{0, -5} {
		_, err := BuildReport(baseline, nil, tier1)
		var cerr *shock.ConfigurationError
		require.Error(t, err)
		assert.True(t, errors.As(err, &cerr))
	}
}

func TestWorstCase(t *testing.T) {
	rows := []ReportRow{
		{Scenario: "Parallel Up", DeltaEVE: -20_000},
		{Scenario: "Short-Down", DeltaEVE: -45_000},
		{Scenario: "Parallel Down", DeltaEVE: 30_000},
	}
	assert.Equal(t, "Short-Down", WorstCase(rows).Scenario)
	assert.Zero(t, WorstCase(nil).Scenario)
}
