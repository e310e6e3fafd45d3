package sim

// Environment is the hidden, non-stationary world the policy interacts with.
// It turns a chosen arm's true mean into a noisy latency observation and
// random-walks every arm's true mean after each round.
type Environment struct {
	cfg EnvironmentConfig
	rs  *RandomSource
}

// NewEnvironment creates an Environment drawing from rs.
func NewEnvironment(cfg EnvironmentConfig, rs *RandomSource) *Environment {
	return &Environment{cfg: cfg, rs: rs}
}

// Observe returns a latency sample for an arm with the given true mean.
// The result is never below the configured minimum latency.
// Exactly two Uniform draws are consumed.
func (e *Environment) Observe(trueMean float64) float64 {
	latency := e.rs.Gaussian(trueMean, e.cfg.ObservationStdDev)
	if latency < e.cfg.MinLatency {
		latency = e.cfg.MinLatency
	}
	return latency
}

// Drift perturbs every arm's true mean by an independent Gaussian step, in arm order.
// True means are not bounded; only observations are floored.
func (e *Environment) Drift(arms []Arm) {
	for i := range arms {
		arms[i].TrueMean += e.rs.Gaussian(0.0, e.cfg.DriftStdDev)
	}
}
