package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds the Prometheus metrics for the valuation engine.
type Registry struct {
	registry *prometheus.Registry

	// Pipeline step durations, labelled by step and outcome.
	StepDuration *prometheus.HistogramVec

	// Scenario executions, labelled by scenario and outcome.
	ScenarioRuns *prometheus.CounterVec

	// Full engine runs.
	TotalRuns  prometheus.Counter
	ActiveRuns prometheus.Gauge
}

// NewRegistry creates the engine metrics and registers them on a private
// Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "irrbb_step_duration_seconds",
				Help:    "Duration of each valuation pipeline step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"step", "result"},
		),
		ScenarioRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irrbb_scenario_runs_total",
				Help: "Shock scenario executions by scenario and result",
			},
			[]string{"scenario", "result"},
		),
		TotalRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrbb_runs_total",
			Help: "Completed full valuation runs",
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrbb_active_runs",
			Help: "Valuation runs currently in flight",
		}),
	}
	r.registry.MustRegister(r.StepDuration, r.ScenarioRuns, r.TotalRuns, r.ActiveRuns)
	return r
}

// Gatherer exposes the underlying registry for promhttp handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveStep records a step duration. Nil-safe so the engine can run
// without metrics wired.
func (r *Registry) ObserveStep(step string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.StepDuration.WithLabelValues(step, result).Observe(time.Since(start).Seconds())
}

// CountScenario records one scenario execution. Nil-safe.
func (r *Registry) CountScenario(scenario string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ScenarioRuns.WithLabelValues(scenario, result).Inc()
}

// RunStarted/RunFinished bracket a full engine run. Nil-safe.
func (r *Registry) RunStarted() {
	if r == nil {
		return
	}
	r.ActiveRuns.Inc()
}

func (r *Registry) RunFinished() {
	if r == nil {
		return
	}
	r.ActiveRuns.Dec()
	r.TotalRuns.Inc()
}

// ScenarioRunCount reads back the counter value for one scenario/result
// pair from the gathered metric families. Used by the HTTP status surface
// and tests.
func (r *Registry) ScenarioRunCount(scenario, result string) (float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return 0, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if mf.GetName() != "irrbb_scenario_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, map[string]string{"scenario": scenario, "result": result}) {
				return m.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, nil
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
