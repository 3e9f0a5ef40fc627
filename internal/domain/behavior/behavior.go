package behavior

import (
	"math"
	"time"

	"github.com/quantrisk/irrbb/internal/domain/cashflow"
	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/position"
)

// Params carries the behavioral assumptions applied on top of contractual
// cash flows.
type Params struct {
	PrepaymentRateAnnual       float64
	NMDBeta                    float64 // volatile (immediately repriceable) fraction
	NMDBehavioralMaturityYears float64
}

// Apply adjusts one instrument's projected cash flows for its behavioral
// flag. Unrecognized flags pass through untouched.
//
// MortgagePrepay scales every future Principal amount by
// exp(-rate * yearsToCashflow): a continuous-hazard decay that is monotone
// in time and bounded in (0, 1], so the adjusted amount can never go
// negative or exceed the contractual amount.
//
// NMD discards the instrument's records and emits exactly two: a volatile
// tranche of balance*beta at the valuation date and a stable tranche of the
// remainder at the behavioral maturity. The two amounts always sum to the
// original balance.
func Apply(records []cashflow.Record, flag position.BehavioralFlag, params Params, valuationDate time.Time) []cashflow.Record {
	if len(records) == 0 {
		return records
	}

	switch flag {
	case position.BehaviorMortgagePrepay:
		out := make([]cashflow.Record, len(records))
		copy(out, records)
		for i := range out {
			if out[i].Type != cashflow.TypePrincipal || !out[i].Date.After(valuationDate) {
				continue
			}
			years := out[i].Date.Sub(valuationDate).Hours() / 24 / curve.DaysPerYear
			out[i].Amount *= math.Exp(-params.PrepaymentRateAnnual * years)
		}
		return out

	case position.BehaviorNMD:
		first := records[0]
		balance := first.OriginalBalance
		volatile := balance * params.NMDBeta
		stable := balance - volatile // exact conservation by construction
		return []cashflow.Record{
			{
				InstrumentID:    first.InstrumentID,
				Date:            valuationDate,
				Amount:          volatile,
				Type:            cashflow.TypeBehavioralVolatile,
				Category:        first.Category,
				RateType:        first.RateType,
				OriginalBalance: balance,
			},
			{
				InstrumentID:    first.InstrumentID,
				Date:            addYears(valuationDate, params.NMDBehavioralMaturityYears),
				Amount:          stable,
				Type:            cashflow.TypeBehavioralStable,
				Category:        first.Category,
				RateType:        first.RateType,
				OriginalBalance: balance,
			},
		}

	default:
		return records
	}
}

// addYears advances a date by a possibly fractional number of years, using
// calendar years for the whole part and the fixed 365.25-day year for the
// remainder.
func addYears(t time.Time, years float64) time.Time {
	whole := int(years)
	frac := years - float64(whole)
	out := t.AddDate(whole, 0, 0)
	if frac > 0 {
		out = out.Add(time.Duration(frac * curve.DaysPerYear * 24 * float64(time.Hour)))
	}
	return out
}
