package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/quantrisk/irrbb/internal/domain/cashflow"
	"github.com/quantrisk/irrbb/internal/domain/curve"
)

// Result holds the discounted portfolio values for one curve.
type Result struct {
	PVAssets      float64
	PVLiabilities float64
	EVE           float64
}

// ValuationError reports a discount basis that cannot be raised to a
// fractional power, i.e. (1+rate) <= 0 at some cash-flow horizon. It is
// never silently absorbed.
type ValuationError struct {
	InstrumentID string
	Date         time.Time
	Rate         float64
}

func (e *ValuationError) Error() string {
	return fmt.Sprintf("valuation: instrument %s at %s: discount basis (1+%v) <= 0",
		e.InstrumentID, e.Date.Format("2006-01-02"), e.Rate)
}

// PresentValue discounts cash flows on the given date curve and accumulates
// them by balance-sheet side. Cash flows dated before the valuation date are
// skipped; a flow on the valuation date has discount factor 1.
func PresentValue(records []cashflow.Record, dc curve.DateCurve, valuationDate time.Time) (Result, error) {
	var res Result
	for _, r := range records {
		days := r.Date.Sub(valuationDate).Hours() / 24
		if days < 0 {
			continue
		}
		df := 1.0
		if days > 0 {
			rate := dc.RateAtDays(days)
			if 1+rate <= 0 {
				return Result{}, &ValuationError{InstrumentID: r.InstrumentID, Date: r.Date, Rate: rate}
			}
			df = 1 / math.Pow(1+rate, days/curve.DaysPerYear)
		}
		pv := r.Amount * df
		if r.Category.IsAsset() {
			res.PVAssets += pv
		} else {
			res.PVLiabilities += pv
		}
	}
	res.EVE = res.PVAssets - res.PVLiabilities
	return res, nil
}

// EVE is the economic value of equity: PV(assets) - PV(liabilities).
func EVE(pvAssets, pvLiabilities float64) float64 {
	return pvAssets - pvLiabilities
}

// NetInterestIncome sums undiscounted Interest flows within the horizon:
// asset interest counts as income, liability interest as expense. Flows on
// the horizon boundary are included.
func NetInterestIncome(records []cashflow.Record, valuationDate time.Time, horizonMonths int) float64 {
	if horizonMonths <= 0 {
		return 0
	}
	cutoff := valuationDate.AddDate(0, horizonMonths, 0)
	var nii float64
	for _, r := range records {
		if r.Type != cashflow.TypeInterest {
			continue
		}
		if r.Date.Before(valuationDate) || r.Date.After(cutoff) {
			continue
		}
		if r.Category.IsAsset() {
			nii += r.Amount
		} else {
			nii -= r.Amount
		}
	}
	return nii
}
