// Package pipeline orchestrates the valuation run: curve construction,
// cash-flow projection, behavioral overlays, gap analysis, baseline
// valuation, and the shock scenario fan-out.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantrisk/irrbb/internal/domain/behavior"
	"github.com/quantrisk/irrbb/internal/domain/bucketing"
	"github.com/quantrisk/irrbb/internal/domain/cashflow"
	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/position"
	"github.com/quantrisk/irrbb/internal/domain/shock"
	"github.com/quantrisk/irrbb/internal/domain/valuation"
	"github.com/quantrisk/irrbb/internal/metrics"
)

// Engine runs the full valuation pipeline over a portfolio. All inputs are
// treated as immutable: scenario workers share the baseline curve and the
// position slice read-only and build their own shocked copies.
type Engine struct {
	ValuationDate      time.Time
	Market             []curve.MarketRatePoint
	TargetTenorsMonths []float64
	LiquiditySpreadBPS float64

	Scenarios             []shock.Scenario
	Behavior              behavior.Params
	ShockAdjustmentFactor float64
	NIIHorizonMonths      int
	Workers               int
	Buckets               []bucketing.Definition

	Logger  zerolog.Logger
	Metrics *metrics.Registry

	// OnScenario, when set, is invoked with the scenario name after each
	// successful scenario valuation. Must be safe for concurrent use.
	OnScenario func(name string)
}

// BaselineResult is the unshocked state of one run.
type BaselineResult struct {
	RunID         string
	ValuationDate time.Time
	Curve         curve.Curve
	CashFlows     []cashflow.Record
	GapTable      []bucketing.NetGapRow
	Valuation     valuation.Result
	NII           float64
}

// ScenarioResult is one shocked valuation.
type ScenarioResult struct {
	Scenario  shock.Scenario
	Valuation valuation.Result
	NII       float64
}

// RunReport bundles everything a single engine invocation produces.
type RunReport struct {
	RunID       string
	GeneratedAt time.Time
	Baseline    *BaselineResult
	Scenarios   []ScenarioResult
	Rows        []ReportRow
	WorstCase   ReportRow
}

// Run executes the baseline and every configured scenario and assembles
// the delta report against the given Tier-1 capital base.
func (e *Engine) Run(ctx context.Context, positions []position.Position, tier1 float64) (*RunReport, error) {
	e.Metrics.RunStarted()
	defer e.Metrics.RunFinished()

	baseline, err := e.RunBaseline(ctx, positions)
	if err != nil {
		return nil, err
	}
	results, err := e.RunScenarios(ctx, positions, baseline)
	if err != nil {
		return nil, err
	}
	rows, err := BuildReport(baseline, results, tier1)
	if err != nil {
		return nil, err
	}
	report := &RunReport{
		RunID:       baseline.RunID,
		GeneratedAt: time.Now().UTC(),
		Baseline:    baseline,
		Scenarios:   results,
		Rows:        rows,
		WorstCase:   WorstCase(rows),
	}
	e.Logger.Info().
		Str("run_id", report.RunID).
		Float64("baseline_eve", baseline.Valuation.EVE).
		Str("worst_scenario", report.WorstCase.Scenario).
		Float64("worst_delta_eve", report.WorstCase.DeltaEVE).
		Msg("valuation run complete")
	return report, nil
}

// RunBaseline validates the portfolio, builds the baseline curve, projects
// and overlays cash flows, and produces the gap table and the unshocked
// valuation.
func (e *Engine) RunBaseline(ctx context.Context, positions []position.Position) (*BaselineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := e.Logger.With().Str("run_id", runID).Logger()
	log.Info().Int("positions", len(positions)).Time("valuation_date", e.ValuationDate).Msg("baseline run started")

	start := time.Now()
	if err := position.ValidateAll(positions); err != nil {
		e.Metrics.ObserveStep("validate", start, err)
		return nil, err
	}
	e.Metrics.ObserveStep("validate", start, nil)

	start = time.Now()
	base, err := curve.Build(e.Market, e.TargetTenorsMonths, e.LiquiditySpreadBPS)
	e.Metrics.ObserveStep("curve_build", start, err)
	if err != nil {
		return nil, err
	}
	dc := base.ToDateCurve(e.ValuationDate)

	start = time.Now()
	flows, err := e.projectPortfolio(positions, dc, e.Behavior)
	e.Metrics.ObserveStep("project", start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	bucketed := bucketing.MapToBuckets(flows, e.ValuationDate, e.bucketDefs())
	gap := bucketing.NetGap(bucketed, e.bucketDefs())
	e.Metrics.ObserveStep("gap", start, nil)

	start = time.Now()
	val, err := valuation.PresentValue(flows, dc, e.ValuationDate)
	e.Metrics.ObserveStep("valuation", start, err)
	if err != nil {
		return nil, err
	}
	nii := valuation.NetInterestIncome(flows, e.ValuationDate, e.NIIHorizonMonths)

	log.Info().
		Int("cash_flows", len(flows)).
		Float64("pv_assets", val.PVAssets).
		Float64("pv_liabilities", val.PVLiabilities).
		Float64("eve", val.EVE).
		Msg("baseline valued")

	return &BaselineResult{
		RunID:         runID,
		ValuationDate: e.ValuationDate,
		Curve:         base,
		CashFlows:     flows,
		GapTable:      gap,
		Valuation:     val,
		NII:           nii,
	}, nil
}

// RunScenarios values the portfolio under each configured scenario on a
// bounded worker pool. Results keep the configured scenario order. A
// cancelled context discards in-flight scenarios and returns the context
// error.
func (e *Engine) RunScenarios(ctx context.Context, positions []position.Position, baseline *BaselineResult) ([]ScenarioResult, error) {
	if len(e.Scenarios) == 0 {
		return nil, nil
	}
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(e.Scenarios) {
		workers = len(e.Scenarios)
	}

	log := e.Logger.With().Str("run_id", baseline.RunID).Logger()
	log.Info().Int("scenarios", len(e.Scenarios)).Int("workers", workers).Msg("scenario fan-out started")

	jobs := make(chan int)
	results := make([]ScenarioResult, len(e.Scenarios))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	// Workers keep receiving until jobs closes even after a failure, so the
	// dispatcher can never block on an unbuffered send with no receiver left.
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					setErr(ctx.Err())
					continue
				}
				if failed() {
					continue
				}
				sc := e.Scenarios[i]
				start := time.Now()
				res, err := e.runScenario(positions, baseline, sc)
				e.Metrics.ObserveStep("scenario", start, err)
				e.Metrics.CountScenario(sc.Name, err)
				if err != nil {
					log.Error().Err(err).Str("scenario", sc.Name).Msg("scenario failed")
					setErr(err)
					continue
				}
				log.Debug().
					Str("scenario", sc.Name).
					Float64("eve", res.Valuation.EVE).
					Dur("elapsed", time.Since(start)).
					Msg("scenario valued")
				results[i] = res
				if e.OnScenario != nil {
					e.OnScenario(sc.Name)
				}
			}
		}()
	}

dispatch:
	for i := range e.Scenarios {
		select {
		case jobs <- i:
		case <-ctx.Done():
			setErr(ctx.Err())
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// runScenario values the portfolio under one shocked curve: floating
// coupons reprice off the shocked curve from their next reprice date, the
// mortgage prepayment rate shifts with the short-end shock, and all flows
// discount on the shocked curve.
func (e *Engine) runScenario(positions []position.Position, baseline *BaselineResult, sc shock.Scenario) (ScenarioResult, error) {
	shocked := shock.ShockedCurve(baseline.Curve, sc)
	shockedDC := shocked.ToDateCurve(e.ValuationDate)

	params := e.Behavior
	params.PrepaymentRateAnnual = shock.AdjustPrepaymentRate(sc, params.PrepaymentRateAnnual, e.ShockAdjustmentFactor)

	projector := cashflow.Projector{ValuationDate: e.ValuationDate, Curve: baseline.Curve.ToDateCurve(e.ValuationDate)}
	var flows []cashflow.Record
	for _, pos := range positions {
		recs, err := projector.Project(pos)
		if err != nil {
			return ScenarioResult{}, err
		}
		recs = shock.RepriceFloating(recs, pos, shockedDC)
		recs = behavior.Apply(recs, pos.BehavioralFlag, params, e.ValuationDate)
		flows = append(flows, recs...)
	}

	val, err := valuation.PresentValue(flows, shockedDC, e.ValuationDate)
	if err != nil {
		return ScenarioResult{}, err
	}
	nii := valuation.NetInterestIncome(flows, e.ValuationDate, e.NIIHorizonMonths)
	return ScenarioResult{Scenario: sc, Valuation: val, NII: nii}, nil
}

// projectPortfolio expands the portfolio on the given curve and applies
// each instrument's behavioral overlay.
func (e *Engine) projectPortfolio(positions []position.Position, dc curve.DateCurve, params behavior.Params) ([]cashflow.Record, error) {
	projector := cashflow.Projector{ValuationDate: e.ValuationDate, Curve: dc}
	var flows []cashflow.Record
	for _, pos := range positions {
		recs, err := projector.Project(pos)
		if err != nil {
			return nil, err
		}
		recs = behavior.Apply(recs, pos.BehavioralFlag, params, e.ValuationDate)
		flows = append(flows, recs...)
	}
	return flows, nil
}

func (e *Engine) bucketDefs() []bucketing.Definition {
	if len(e.Buckets) > 0 {
		return e.Buckets
	}
	return bucketing.BaselDefinitions()
}
