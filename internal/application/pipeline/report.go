package pipeline

import (
	"fmt"

	"github.com/quantrisk/irrbb/internal/domain/shock"
)

// ReportRow is one scenario line of the delta report: the EVE change, the
// same change expressed as a percentage of Tier-1 capital, and the change
// in net interest income over the configured horizon.
type ReportRow struct {
	Scenario         string
	EVE              float64
	DeltaEVE         float64
	DeltaEVEPctTier1 float64
	DeltaNII         float64
}

// BuildReport computes the per-scenario deltas against the baseline. Rows
// follow the scenario order of the results. Tier-1 capital must be
// positive; a zero capital base would make the percentage undefined.
func BuildReport(baseline *BaselineResult, results []ScenarioResult, tier1 float64) ([]ReportRow, error) {
	if tier1 <= 0 {
		return nil, &shock.ConfigurationError{
			Param:  "tier1_capital",
			Reason: fmt.Sprintf("must be > 0, got %v", tier1),
		}
	}
	rows := make([]ReportRow, 0, len(results))
	for _, r := range results {
		delta := shock.DeltaEVE(baseline.Valuation.EVE, r.Valuation.EVE)
		rows = append(rows, ReportRow{
			Scenario:         r.Scenario.Name,
			EVE:              r.Valuation.EVE,
			DeltaEVE:         delta,
			DeltaEVEPctTier1: delta / tier1 * 100,
			DeltaNII:         r.NII - baseline.NII,
		})
	}
	return rows, nil
}

// WorstCase returns the row with the most negative EVE change; the
// supervisory outlier test keys off this scenario. An empty report yields
// a zero row.
func WorstCase(rows []ReportRow) ReportRow {
	var worst ReportRow
	for i, r := range rows {
		if i == 0 || r.DeltaEVE < worst.DeltaEVE {
			worst = r
		}
	}
	return worst
}
