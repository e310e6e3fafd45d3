package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/bandit-sim/sim"
)

// Scenario describes a preset run in defaults.yaml. Unset fields keep the
// built-in defaults, so a scenario only lists what it changes.
type Scenario struct {
	Description       string    `yaml:"description"`
	Arms              *int      `yaml:"arms"`
	Rounds            *int      `yaml:"rounds"`
	Policy            *string   `yaml:"policy"`
	Temperature       *float64  `yaml:"temperature"`
	LearningRate      *float64  `yaml:"learning_rate"`
	ObservationStdDev *float64  `yaml:"observation_stddev"`
	DriftStdDev       *float64  `yaml:"drift_stddev"`
	InitialMeanMin    *float64  `yaml:"initial_mean_min"`
	InitialMeanMax    *float64  `yaml:"initial_mean_max"`
	MinLatency        *float64  `yaml:"min_latency"`
	InitialMeans      []float64 `yaml:"initial_means"`
}

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version   string              `yaml:"version"`
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Unknown fields are rejected so that typos surface as errors.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading defaults file: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing defaults YAML %s: %w", path, err)
	}
	return cfg, nil
}

// Scenario looks up a preset by name.
func (c Config) Scenario(name string) (Scenario, error) {
	s, ok := c.Scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q; available: %s", name, c.scenarioNames())
	}
	return s, nil
}

func (c Config) scenarioNames() string {
	names := make([]string, 0, len(c.Scenarios))
	for n := range c.Scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Apply overwrites the fields of cfg that the scenario sets.
// Explicit initial means without an arm count imply k = len(initial_means).
func (s Scenario) Apply(cfg *sim.SimConfig) {
	if s.Arms != nil {
		cfg.Arms.NumArms = *s.Arms
	}
	if s.Rounds != nil {
		cfg.Rounds = *s.Rounds
	}
	if s.Policy != nil {
		cfg.Policy.Name = *s.Policy
	}
	if s.Temperature != nil {
		cfg.Policy.Temperature = *s.Temperature
	}
	if s.LearningRate != nil {
		cfg.Learning.Alpha = *s.LearningRate
	}
	if s.ObservationStdDev != nil {
		cfg.Environment.ObservationStdDev = *s.ObservationStdDev
	}
	if s.DriftStdDev != nil {
		cfg.Environment.DriftStdDev = *s.DriftStdDev
	}
	if s.InitialMeanMin != nil {
		cfg.Arms.InitialMeanMin = *s.InitialMeanMin
	}
	if s.InitialMeanMax != nil {
		cfg.Arms.InitialMeanMax = *s.InitialMeanMax
	}
	if s.MinLatency != nil {
		cfg.Environment.MinLatency = *s.MinLatency
	}
	if len(s.InitialMeans) > 0 {
		cfg.Arms.InitialMeans = append([]float64(nil), s.InitialMeans...)
		if s.Arms == nil {
			cfg.Arms.NumArms = len(s.InitialMeans)
		}
	}
}
