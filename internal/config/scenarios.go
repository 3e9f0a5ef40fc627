package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/quantrisk/irrbb/internal/domain/shock"
)

// scenarioEntry is one shock definition in scenarios.yaml. The file is a
// list so that report ordering follows the configured order.
type scenarioEntry struct {
	Name     string  `yaml:"name"`
	ShortBPS float64 `yaml:"short"`
	LongBPS  float64 `yaml:"long"`
}

type scenariosFile struct {
	Scenarios []scenarioEntry `yaml:"scenarios"`
}

// LoadScenarios reads the shock scenario YAML. An empty or absent scenario
// list falls back to the six Basel scenarios.
func LoadScenarios(path string) ([]shock.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios config: %w", err)
	}
	var f scenariosFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenarios config: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return shock.BaselScenarios(), nil
	}

	out := make([]shock.Scenario, 0, len(f.Scenarios))
	seen := make(map[string]bool, len(f.Scenarios))
	for _, e := range f.Scenarios {
		if e.Name == "" {
			return nil, &shock.ConfigurationError{Param: "scenarios", Reason: "scenario with empty name"}
		}
		if seen[e.Name] {
			return nil, &shock.ConfigurationError{Param: "scenarios", Reason: fmt.Sprintf("duplicate scenario %q", e.Name)}
		}
		seen[e.Name] = true
		out = append(out, shock.Scenario{Name: e.Name, ShortBPS: e.ShortBPS, LongBPS: e.LongBPS})
	}
	return out, nil
}
