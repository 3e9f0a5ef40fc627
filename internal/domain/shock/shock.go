package shock

import (
	"fmt"

	"github.com/quantrisk/irrbb/internal/domain/cashflow"
	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/position"
)

// Scenario is one prescribed interest-rate shock: a short-end and a
// long-end shift in basis points, interpolated across the curve.
type Scenario struct {
	Name     string
	ShortBPS float64
	LongBPS  float64
}

// ConfigurationError reports an invalid or unknown piece of run
// configuration, such as an unrecognized scenario name or zero Tier-1
// capital.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Reason)
}

// BaselScenarios returns the six canonical Basel shock scenarios.
func BaselScenarios() []Scenario {
	return []Scenario{
		{Name: "Parallel Up", ShortBPS: 200, LongBPS: 200},
		{Name: "Parallel Down", ShortBPS: -200, LongBPS: -200},
		{Name: "Steepener", ShortBPS: -100, LongBPS: 100},
		{Name: "Flattener", ShortBPS: 100, LongBPS: -100},
		{Name: "Short-Up", ShortBPS: 200, LongBPS: 0},
		{Name: "Short-Down", ShortBPS: -200, LongBPS: 0},
	}
}

// ByName finds a scenario in the configured set.
func ByName(scenarios []Scenario, name string) (Scenario, error) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, &ConfigurationError{
		Param:  "scenario",
		Reason: fmt.Sprintf("unknown scenario %q", name),
	}
}

// ShockedCurve applies a scenario to the baseline curve. Equal short and
// long shocks shift every node in parallel; otherwise the shock magnitude is
// interpolated linearly between the curve's shortest and longest tenor and
// clamped flat outside that range.
func ShockedCurve(baseline curve.Curve, sc Scenario) curve.Curve {
	out := curve.Curve{Points: make([]curve.Point, len(baseline.Points))}
	copy(out.Points, baseline.Points)
	if len(out.Points) == 0 {
		return out
	}

	shortShock := sc.ShortBPS / 10000.0
	longShock := sc.LongBPS / 10000.0

	if sc.ShortBPS == sc.LongBPS {
		for i := range out.Points {
			out.Points[i].Rate += shortShock
		}
		return out
	}

	lo := baseline.ShortestTenor()
	hi := baseline.LongestTenor()
	for i := range out.Points {
		out.Points[i].Rate += tiltShock(out.Points[i].TenorMonths, lo, hi, shortShock, longShock)
	}
	return out
}

// tiltShock interpolates the shock between the curve endpoints, flat
// outside them.
func tiltShock(months, lo, hi, shortShock, longShock float64) float64 {
	switch {
	case hi == lo, months <= lo:
		return shortShock
	case months >= hi:
		return longShock
	default:
		w := (months - lo) / (hi - lo)
		return shortShock + w*(longShock-shortShock)
	}
}

// RepriceFloating recomputes floating Interest coupons dated on or after the
// position's next reprice date using the shocked curve rate at the coupon
// date plus the contractual spread. Fixed-rate and Principal records are
// returned unchanged.
func RepriceFloating(records []cashflow.Record, pos position.Position, shocked curve.DateCurve) []cashflow.Record {
	if pos.RateType != position.RateFloating || pos.NextRepriceDate.IsZero() {
		return records
	}
	out := make([]cashflow.Record, len(records))
	copy(out, records)

	spread := pos.SpreadBPS / 10000.0
	periodYears := float64(pos.PaymentFreq.Months()) / 12.0
	for i := range out {
		r := &out[i]
		if r.Type != cashflow.TypeInterest || r.RateType != position.RateFloating {
			continue
		}
		if r.Date.Before(pos.NextRepriceDate) {
			continue
		}
		r.Amount = r.OriginalBalance * (shocked.RateAt(r.Date) + spread) * periodYears
	}
	return out
}

// AdjustPrepaymentRate scales the baseline mortgage prepayment rate for a
// scenario: borrowers prepay faster when rates fall and slower when rates
// rise. The direction is taken from the short-end shock; a zero short shock
// leaves the rate unchanged.
func AdjustPrepaymentRate(sc Scenario, baselineRate, adjustmentFactor float64) float64 {
	switch {
	case sc.ShortBPS < 0:
		return baselineRate * (1 + adjustmentFactor)
	case sc.ShortBPS > 0:
		return baselineRate * (1 - adjustmentFactor)
	default:
		return baselineRate
	}
}

// DeltaEVE is the change in economic value of equity under a scenario.
func DeltaEVE(baselineEVE, shockedEVE float64) float64 {
	return shockedEVE - baselineEVE
}
