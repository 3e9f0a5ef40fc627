package cashflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/position"
)

var valuation = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatDateCurve(rate float64) curve.DateCurve {
	c := curve.Curve{Points: []curve.Point{
		{TenorMonths: 1, Rate: rate},
		{TenorMonths: 360, Rate: rate},
	}}
	return c.ToDateCurve(valuation)
}

func TestProject_FixedAnnualBullet(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}
	pos := position.Position{
		InstrumentID: "LOAN-1",
		Category:     position.CategoryLoan,
		Balance:      1_000_000,
		RateType:     position.RateFixed,
		CurrentRate:  0.05,
		PaymentFreq:  position.FreqAnnual,
		MaturityDate: valuation.AddDate(2, 0, 0),
	}
	recs, err := p.Project(pos)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, TypeInterest, recs[0].Type)
	assert.Equal(t, valuation.AddDate(1, 0, 0), recs[0].Date)
	assert.InDelta(t, 50_000, recs[0].Amount, 1e-9)

	assert.Equal(t, TypeInterest, recs[1].Type)
	assert.Equal(t, valuation.AddDate(2, 0, 0), recs[1].Date)
	assert.InDelta(t, 50_000, recs[1].Amount, 1e-9)

	assert.Equal(t, TypePrincipal, recs[2].Type)
	assert.Equal(t, valuation.AddDate(2, 0, 0), recs[2].Date)
	assert.InDelta(t, 1_000_000, recs[2].Amount, 1e-9)
}

func TestProject_QuarterlyInterestAccrual(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}
	pos := position.Position{
		InstrumentID: "BOND-1",
		Category:     position.CategoryBond,
		Balance:      400_000,
		RateType:     position.RateFixed,
		CurrentRate:  0.04,
		PaymentFreq:  position.FreqQuarterly,
		MaturityDate: valuation.AddDate(1, 0, 0),
	}
	recs, err := p.Project(pos)
	require.NoError(t, err)
	require.Len(t, recs, 5) // 4 coupons + principal
	for _, r := range recs[:4] {
		assert.InDelta(t, 400_000*0.04*0.25, r.Amount, 1e-9)
	}
}

func TestProject_FloatingRepricesOffCurve(t *testing.T) {
	// Curve is flat at 6%; contract pays 2%+100bps until the reprice date.
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0.06)}
	pos := position.Position{
		InstrumentID:    "FLOAT-1",
		Category:        position.CategoryLoan,
		Balance:         1_200_000,
		RateType:        position.RateFloating,
		CurrentRate:     0.02,
		SpreadBPS:       100,
		PaymentFreq:     position.FreqSemiAnnual,
		MaturityDate:    valuation.AddDate(2, 0, 0),
		NextRepriceDate: valuation.AddDate(1, 0, 0),
	}
	recs, err := p.Project(pos)
	require.NoError(t, err)
	require.Len(t, recs, 5)

	// Periods before the reprice date accrue at the contractual 3%.
	assert.InDelta(t, 1_200_000*0.03*0.5, recs[0].Amount, 1e-9)
	// Periods on/after it accrue at curve + spread = 7%.
	assert.InDelta(t, 1_200_000*0.07*0.5, recs[1].Amount, 1e-6)
	assert.InDelta(t, 1_200_000*0.07*0.5, recs[2].Amount, 1e-6)
	assert.InDelta(t, 1_200_000*0.07*0.5, recs[3].Amount, 1e-6)
}

func TestProject_CoreNMDPlaceholder(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}
	pos := position.Position{
		InstrumentID:   "NMD-1",
		Category:       position.CategoryNMD,
		Balance:        500_000,
		RateType:       position.RateFloating,
		CurrentRate:    0.001,
		PaymentFreq:    position.FreqMonthly,
		BehavioralFlag: position.BehaviorNMD,
		IsCoreNMD:      true,
	}
	recs, err := p.Project(pos)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, valuation, recs[0].Date)
	assert.InDelta(t, 500_000, recs[0].Amount, 1e-9)
}

func TestProject_EmptyCases(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}

	zero := position.Position{
		InstrumentID: "Z-1",
		Category:     position.CategoryLoan,
		Balance:      0,
		RateType:     position.RateFixed,
		CurrentRate:  0.05,
		PaymentFreq:  position.FreqAnnual,
		MaturityDate: valuation.AddDate(2, 0, 0),
	}
	recs, err := p.Project(zero)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// Maturity before the first scheduled payment yields nothing at all.
	short := zero
	short.InstrumentID = "Z-2"
	short.Balance = 100
	short.MaturityDate = valuation.AddDate(0, 6, 0)
	recs, err = p.Project(short)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestProject_ValidationErrorPropagates(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}
	bad := position.Position{
		Category:     position.CategoryLoan,
		Balance:      100,
		RateType:     position.RateFixed,
		PaymentFreq:  position.FreqAnnual,
		MaturityDate: valuation.AddDate(1, 0, 0),
	}
	_, err := p.Project(bad)
	var verr *position.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "InstrumentID", verr.Field)
}

func TestProjectAll_PreservesOrder(t *testing.T) {
	p := Projector{ValuationDate: valuation, Curve: flatDateCurve(0)}
	a := position.Position{
		InstrumentID: "A", Category: position.CategoryLoan, Balance: 100,
		RateType: position.RateFixed, CurrentRate: 0.01,
		PaymentFreq: position.FreqAnnual, MaturityDate: valuation.AddDate(1, 0, 0),
	}
	b := a
	b.InstrumentID = "B"
	recs, err := p.ProjectAll([]position.Position{a, b})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "A", recs[0].InstrumentID)
	assert.Equal(t, "B", recs[2].InstrumentID)
}
