package main

import (
	"github.com/rs/zerolog"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
	"github.com/quantrisk/irrbb/internal/config"
	"github.com/quantrisk/irrbb/internal/domain/position"
	"github.com/quantrisk/irrbb/internal/io/positioncsv"
)

// buildEngine loads the configuration files and the portfolio and wires
// the valuation engine.
func buildEngine(logger zerolog.Logger) (*pipeline.Engine, *config.Assumptions, []position.Position, error) {
	assumptions, err := config.LoadAssumptions(flagAssumptions)
	if err != nil {
		return nil, nil, nil, err
	}
	market, err := config.LoadMarket(flagMarket)
	if err != nil {
		return nil, nil, nil, err
	}
	ratePoints, err := market.RatePoints()
	if err != nil {
		return nil, nil, nil, err
	}
	scenarios, err := config.LoadScenarios(flagScenarios)
	if err != nil {
		return nil, nil, nil, err
	}
	positions, err := positioncsv.ReadFile(flagPositions)
	if err != nil {
		return nil, nil, nil, err
	}

	engine := &pipeline.Engine{
		ValuationDate:         assumptions.Valuation(),
		Market:                ratePoints,
		TargetTenorsMonths:    market.TargetTenorsMonths,
		LiquiditySpreadBPS:    assumptions.LiquiditySpreadBPS,
		Scenarios:             scenarios,
		Behavior:              assumptions.BehaviorParams(),
		ShockAdjustmentFactor: assumptions.Behavioral.ShockAdjustmentFactor,
		NIIHorizonMonths:      assumptions.NIIHorizonMonths,
		Workers:               assumptions.ScenarioWorkers,
		Logger:                logger,
	}
	return engine, assumptions, positions, nil
}
