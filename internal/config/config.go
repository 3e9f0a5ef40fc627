package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/quantrisk/irrbb/internal/domain/behavior"
	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/shock"
)

// Assumptions is the run-level configuration: valuation date, capital base,
// curve spread, and the behavioral parameter set.
type Assumptions struct {
	ValuationDate      string  `yaml:"valuation_date"`
	Tier1Capital       float64 `yaml:"tier1_capital"`
	LiquiditySpreadBPS float64 `yaml:"liquidity_spread_bps"`
	NIIHorizonMonths   int     `yaml:"nii_horizon_months" default:"12"`
	ScenarioWorkers    int     `yaml:"scenario_workers" default:"4"`

	Behavioral BehavioralAssumptions `yaml:"behavioral"`
}

// BehavioralAssumptions mirrors behavior.Params plus the shock sensitivity
// applied to the prepayment rate per scenario.
type BehavioralAssumptions struct {
	PrepaymentRateAnnual       float64 `yaml:"prepayment_rate_annual" default:"0.05"`
	ShockAdjustmentFactor      float64 `yaml:"shock_adjustment_factor" default:"0.25"`
	NMDBeta                    float64 `yaml:"nmd_beta" default:"0.3"`
	NMDBehavioralMaturityYears float64 `yaml:"nmd_behavioral_maturity_years" default:"5"`
}

// LoadAssumptions reads and validates the assumptions YAML, applying
// defaults to omitted fields.
func LoadAssumptions(path string) (*Assumptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assumptions config: %w", err)
	}
	var a Assumptions
	if err := defaults.Set(&a); err != nil {
		return nil, fmt.Errorf("apply assumption defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse assumptions config: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks parameter ranges at load time so a bad file fails fast
// instead of mid-run.
func (a *Assumptions) Validate() error {
	if a.ValuationDate != "" {
		if _, err := time.Parse("2006-01-02", a.ValuationDate); err != nil {
			return &shock.ConfigurationError{Param: "valuation_date", Reason: fmt.Sprintf("invalid date %q", a.ValuationDate)}
		}
	}
	b := a.Behavioral
	if b.NMDBeta < 0 || b.NMDBeta > 1 {
		return &shock.ConfigurationError{Param: "behavioral.nmd_beta", Reason: fmt.Sprintf("must be in [0,1], got %v", b.NMDBeta)}
	}
	if b.PrepaymentRateAnnual < 0 {
		return &shock.ConfigurationError{Param: "behavioral.prepayment_rate_annual", Reason: fmt.Sprintf("must be >= 0, got %v", b.PrepaymentRateAnnual)}
	}
	if b.NMDBehavioralMaturityYears < 0 {
		return &shock.ConfigurationError{Param: "behavioral.nmd_behavioral_maturity_years", Reason: fmt.Sprintf("must be >= 0, got %v", b.NMDBehavioralMaturityYears)}
	}
	if b.ShockAdjustmentFactor < 0 || b.ShockAdjustmentFactor > 1 {
		return &shock.ConfigurationError{Param: "behavioral.shock_adjustment_factor", Reason: fmt.Sprintf("must be in [0,1], got %v", b.ShockAdjustmentFactor)}
	}
	if a.ScenarioWorkers < 1 {
		return &shock.ConfigurationError{Param: "scenario_workers", Reason: fmt.Sprintf("must be >= 1, got %v", a.ScenarioWorkers)}
	}
	return nil
}

// Valuation returns the parsed valuation date, defaulting to today (UTC,
// midnight) when unset.
func (a *Assumptions) Valuation() time.Time {
	if a.ValuationDate == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	t, _ := time.Parse("2006-01-02", a.ValuationDate) // validated at load
	return t
}

// BehaviorParams converts the YAML view to the domain parameter set.
func (a *Assumptions) BehaviorParams() behavior.Params {
	return behavior.Params{
		PrepaymentRateAnnual:       a.Behavioral.PrepaymentRateAnnual,
		NMDBeta:                    a.Behavioral.NMDBeta,
		NMDBehavioralMaturityYears: a.Behavioral.NMDBehavioralMaturityYears,
	}
}

// Market holds the sparse market quotes and the standard tenor grid the
// baseline curve is built on.
type Market struct {
	Rates              map[string]float64 `yaml:"rates"`
	TargetTenorsMonths []float64          `yaml:"target_tenors_months"`
}

// LoadMarket reads the market-rate YAML.
func LoadMarket(path string) (*Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}
	var m Market
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse market config: %w", err)
	}
	return &m, nil
}

// RatePoints converts the quote map into a deterministic, tenor-ordered
// point list.
func (m *Market) RatePoints() ([]curve.MarketRatePoint, error) {
	type parsed struct {
		months float64
		point  curve.MarketRatePoint
	}
	pts := make([]parsed, 0, len(m.Rates))
	for tenor, rate := range m.Rates {
		months, err := curve.ParseTenorMonths(tenor)
		if err != nil {
			return nil, err
		}
		pts = append(pts, parsed{months: months, point: curve.MarketRatePoint{Tenor: tenor, Rate: rate}})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].months < pts[j].months })
	out := make([]curve.MarketRatePoint, len(pts))
	for i, p := range pts {
		out[i] = p.point
	}
	return out, nil
}
