package http

import (
	"context"
	"sync"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
	"github.com/quantrisk/irrbb/internal/persistence"
)

// MemoryStore keeps the most recent run reports in memory. Used when the
// server runs without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      []persistence.RunRecord // newest first
	scenarios map[string][]persistence.ScenarioRecord
	gaps      map[string][]persistence.GapRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string][]persistence.ScenarioRecord),
		gaps:      make(map[string][]persistence.GapRecord),
	}
}

// Record stores a finished run report.
func (m *MemoryStore) Record(report *pipeline.RunReport, tier1 float64) {
	run, scenarios, gap := persistence.FromReport(report, tier1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append([]persistence.RunRecord{run}, m.runs...)
	m.scenarios[run.RunID] = scenarios
	m.gaps[run.RunID] = gap
}

func (m *MemoryStore) LatestRun(ctx context.Context) (*persistence.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	run := m.runs[0]
	return &run, nil
}

func (m *MemoryStore) ListRuns(ctx context.Context, limit int) ([]persistence.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]persistence.RunRecord, limit)
	copy(out, m.runs[:limit])
	return out, nil
}

func (m *MemoryStore) ListScenarios(ctx context.Context, runID string) ([]persistence.ScenarioRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]persistence.ScenarioRecord(nil), m.scenarios[runID]...), nil
}

func (m *MemoryStore) ListGap(ctx context.Context, runID string) ([]persistence.GapRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]persistence.GapRecord(nil), m.gaps[runID]...), nil
}
