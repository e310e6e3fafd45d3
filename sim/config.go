package sim

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for a standard run.
const (
	DefaultNumArms           = 5
	DefaultRounds            = 10000
	DefaultTemperature       = 0.5
	DefaultLearningRate      = 0.1
	DefaultObservationStdDev = 5.0
	DefaultDriftStdDev       = 0.5
	DefaultInitialMeanMin    = 50.0
	DefaultInitialMeanMax    = 100.0
	DefaultMinLatency        = 1.0
)

// ErrInvalidConfig is wrapped by every SimConfig.Validate failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// ArmConfig groups the arm population parameters.
type ArmConfig struct {
	NumArms        int       // k, fixed for the run (must be > 0)
	InitialMeanMin float64   // lower bound of the random initial true mean (ms)
	InitialMeanMax float64   // upper bound (exclusive) of the random initial true mean (ms)
	InitialMeans   []float64 // explicit initial true means; overrides the range when non-empty
}

// PolicyConfig groups selection policy parameters.
type PolicyConfig struct {
	Name        string  // "softmax" (default), "round-robin", "greedy"
	Temperature float64 // softmax τ (must be > 0)
}

// LearningConfig groups value-estimate update parameters.
type LearningConfig struct {
	Alpha float64 // constant EMA step size in (0, 1]
}

// EnvironmentConfig groups the non-stationary environment parameters.
type EnvironmentConfig struct {
	ObservationStdDev float64 // noise on each observed latency (ms)
	DriftStdDev       float64 // per-round random-walk step of every true mean (ms)
	MinLatency        float64 // floor applied to observed latency (ms)
}

// SimConfig is the complete configuration of one simulation run.
type SimConfig struct {
	Arms        ArmConfig
	Policy      PolicyConfig
	Learning    LearningConfig
	Environment EnvironmentConfig
	Rounds      int
	Seed        int64
}

// NewArmConfig creates an ArmConfig with random initial means in [minMean, maxMean).
func NewArmConfig(numArms int, minMean, maxMean float64) ArmConfig {
	return ArmConfig{NumArms: numArms, InitialMeanMin: minMean, InitialMeanMax: maxMean}
}

// NewPolicyConfig creates a PolicyConfig.
func NewPolicyConfig(name string, temperature float64) PolicyConfig {
	return PolicyConfig{Name: name, Temperature: temperature}
}

// NewEnvironmentConfig creates an EnvironmentConfig.
func NewEnvironmentConfig(observationStdDev, driftStdDev, minLatency float64) EnvironmentConfig {
	return EnvironmentConfig{
		ObservationStdDev: observationStdDev,
		DriftStdDev:       driftStdDev,
		MinLatency:        minLatency,
	}
}

// DefaultSimConfig returns the standard 5-arm, 10000-round configuration.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Arms:        NewArmConfig(DefaultNumArms, DefaultInitialMeanMin, DefaultInitialMeanMax),
		Policy:      NewPolicyConfig(PolicySoftmax, DefaultTemperature),
		Learning:    LearningConfig{Alpha: DefaultLearningRate},
		Environment: NewEnvironmentConfig(DefaultObservationStdDev, DefaultDriftStdDev, DefaultMinLatency),
		Rounds:      DefaultRounds,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if any field is unusable.
func (c SimConfig) Validate() error {
	if c.Arms.NumArms <= 0 {
		return fmt.Errorf("%w: number of arms must be positive, got %d", ErrInvalidConfig, c.Arms.NumArms)
	}
	if c.Rounds < 0 {
		return fmt.Errorf("%w: rounds must be non-negative, got %d", ErrInvalidConfig, c.Rounds)
	}
	if !IsValidPolicy(c.Policy.Name) {
		return fmt.Errorf("%w: unknown policy %q; valid: %s", ErrInvalidConfig, c.Policy.Name, validPolicyList())
	}
	if err := validateFinitePositive("temperature", c.Policy.Temperature); err != nil {
		return err
	}
	if err := validateFinitePositive("learning rate", c.Learning.Alpha); err != nil {
		return err
	}
	if c.Learning.Alpha > 1 {
		return fmt.Errorf("%w: learning rate must be in (0, 1], got %v", ErrInvalidConfig, c.Learning.Alpha)
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"observation stddev", c.Environment.ObservationStdDev},
		{"drift stddev", c.Environment.DriftStdDev},
		{"min latency", c.Environment.MinLatency},
	} {
		if err := validateFiniteNonNegative(f.name, f.val); err != nil {
			return err
		}
	}
	if len(c.Arms.InitialMeans) > 0 {
		if len(c.Arms.InitialMeans) != c.Arms.NumArms {
			return fmt.Errorf("%w: %d initial means given for %d arms", ErrInvalidConfig, len(c.Arms.InitialMeans), c.Arms.NumArms)
		}
		for i, m := range c.Arms.InitialMeans {
			if math.IsNaN(m) || math.IsInf(m, 0) {
				return fmt.Errorf("%w: initial mean %d must be finite, got %v", ErrInvalidConfig, i, m)
			}
		}
		return nil
	}
	if math.IsNaN(c.Arms.InitialMeanMin) || math.IsInf(c.Arms.InitialMeanMin, 0) ||
		math.IsNaN(c.Arms.InitialMeanMax) || math.IsInf(c.Arms.InitialMeanMax, 0) {
		return fmt.Errorf("%w: initial mean range must be finite, got [%v, %v)", ErrInvalidConfig, c.Arms.InitialMeanMin, c.Arms.InitialMeanMax)
	}
	if c.Arms.InitialMeanMin > c.Arms.InitialMeanMax {
		return fmt.Errorf("%w: initial mean min %v exceeds max %v", ErrInvalidConfig, c.Arms.InitialMeanMin, c.Arms.InitialMeanMax)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %f", ErrInvalidConfig, name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %f", ErrInvalidConfig, name, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %f", ErrInvalidConfig, name, val)
	}
	if val < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %f", ErrInvalidConfig, name, val)
	}
	return nil
}
