package cashflow

import (
	"fmt"
	"time"

	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/position"
)

// Type classifies a projected cash-flow record.
type Type string

const (
	TypeInterest           Type = "Interest"
	TypePrincipal          Type = "Principal"
	TypeBehavioralStable   Type = "BehavioralStable"
	TypeBehavioralVolatile Type = "BehavioralVolatile"
)

// Record is a single projected cash flow. Amount is an unsigned magnitude;
// direction is derived from the category at valuation time, which keeps sign
// conventions out of the projection and aggregation code entirely.
type Record struct {
	InstrumentID    string
	Date            time.Time
	Amount          float64
	Type            Type
	Category        position.Category
	RateType        position.RateType
	OriginalBalance float64
}

// Projector expands positions into contractual cash-flow schedules against a
// governing date curve.
type Projector struct {
	ValuationDate time.Time
	Curve         curve.DateCurve
}

// Project emits the contractual schedule for one position: one Interest
// record per payment period after the valuation date through maturity, and a
// bullet Principal record at maturity. Floating coupons switch from the
// contractual rate to the curve rate plus spread at the next reprice date.
//
// Core-NMD positions get a single placeholder record at the valuation date;
// the behavioral overlay owns everything after that.
func (p Projector) Project(pos position.Position) ([]Record, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	if pos.Balance <= 0 {
		return nil, nil
	}

	if pos.IsCoreNMD {
		return []Record{{
			InstrumentID:    pos.InstrumentID,
			Date:            p.ValuationDate,
			Amount:          pos.Balance,
			Type:            TypeBehavioralStable,
			Category:        pos.Category,
			RateType:        pos.RateType,
			OriginalBalance: pos.Balance,
		}}, nil
	}

	intervalMonths := pos.PaymentFreq.Months()
	if intervalMonths == 0 {
		return nil, &position.ValidationError{
			Instrument: pos.InstrumentID,
			Field:      "PaymentFreq",
			Reason:     fmt.Sprintf("unknown payment frequency %q", pos.PaymentFreq),
		}
	}

	schedule := paymentSchedule(p.ValuationDate, pos.MaturityDate, intervalMonths)
	if len(schedule) == 0 {
		// Matured or maturing before the first period.
		return nil, nil
	}

	spread := 0.0
	if pos.RateType == position.RateFloating {
		spread = pos.SpreadBPS / 10000.0
	}
	periodYears := float64(intervalMonths) / 12.0

	records := make([]Record, 0, len(schedule)+1)
	for _, d := range schedule {
		eff := pos.CurrentRate + spread
		if pos.RateType == position.RateFloating && !pos.NextRepriceDate.IsZero() && !d.Before(pos.NextRepriceDate) {
			eff = p.Curve.RateAt(d) + spread
		}
		records = append(records, Record{
			InstrumentID:    pos.InstrumentID,
			Date:            d,
			Amount:          pos.Balance * eff * periodYears,
			Type:            TypeInterest,
			Category:        pos.Category,
			RateType:        pos.RateType,
			OriginalBalance: pos.Balance,
		})
	}
	records = append(records, Record{
		InstrumentID:    pos.InstrumentID,
		Date:            pos.MaturityDate,
		Amount:          pos.Balance,
		Type:            TypePrincipal,
		Category:        pos.Category,
		RateType:        pos.RateType,
		OriginalBalance: pos.Balance,
	})
	return records, nil
}

// ProjectAll expands a whole portfolio, preserving position order.
func (p Projector) ProjectAll(positions []position.Position) ([]Record, error) {
	var all []Record
	for _, pos := range positions {
		recs, err := p.Project(pos)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// paymentSchedule enumerates payment dates strictly after the valuation date
// through maturity, stepping in whole months from the valuation date.
func paymentSchedule(valuation, maturity time.Time, intervalMonths int) []time.Time {
	var dates []time.Time
	for k := 1; ; k++ {
		d := valuation.AddDate(0, k*intervalMonths, 0)
		if d.After(maturity) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}
