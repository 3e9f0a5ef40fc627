package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountScenario_ByResult(t *testing.T) {
	r := NewRegistry()
	r.CountScenario("Parallel Up", nil)
	r.CountScenario("Parallel Up", nil)
	r.CountScenario("Parallel Up", errors.New("boom"))

	ok, err := r.ScenarioRunCount("Parallel Up", "ok")
	require.NoError(t, err)
	assert.Equal(t, 2.0, ok)

	failed, err := r.ScenarioRunCount("Parallel Up", "error")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failed)

	unseen, err := r.ScenarioRunCount("Steepener", "ok")
	require.NoError(t, err)
	assert.Zero(t, unseen)
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveStep("curve_build", time.Now(), nil)
		r.CountScenario("Parallel Up", nil)
		r.RunStarted()
		r.RunFinished()
	})
}

func TestRunGauge(t *testing.T) {
	r := NewRegistry()
	r.RunStarted()
	r.RunFinished()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var sawRuns bool
	for _, mf := range families {
		if mf.GetName() == "irrbb_runs_total" {
			sawRuns = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, sawRuns)
}
