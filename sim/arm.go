package sim

import "fmt"

// Arm models one server as a bandit arm.
//
// TrueMean is hidden from the policy and moves every round (see Environment.Drift).
// EstimatedValue is the learned reward estimate (negative latency) and is only
// changed by Learn for the chosen arm. SelectionCount is incremented once per
// round in which the arm is chosen.
type Arm struct {
	ID             int
	TrueMean       float64
	EstimatedValue float64
	SelectionCount int
}

// ArmSnapshot is a value copy of an Arm for reporting.
type ArmSnapshot struct {
	ID             int     `json:"id"`
	SelectionCount int     `json:"selection_count"`
	TrueMean       float64 `json:"true_mean"`
	EstimatedValue float64 `json:"estimated_value"`
}

// Snapshot returns a copy of the arm's current state.
func (a *Arm) Snapshot() ArmSnapshot {
	return ArmSnapshot{
		ID:             a.ID,
		SelectionCount: a.SelectionCount,
		TrueMean:       a.TrueMean,
		EstimatedValue: a.EstimatedValue,
	}
}

// NewArms creates len(means) arms with IDs 0..k-1, the given true means,
// zero estimates and zero counts.
func NewArms(means []float64) []Arm {
	arms := make([]Arm, len(means))
	for i, m := range means {
		arms[i] = Arm{ID: i, TrueMean: m}
	}
	return arms
}

// InitialMeans returns the starting true means for cfg. Explicit
// cfg.InitialMeans are copied; otherwise k means are drawn uniformly from
// [InitialMeanMin, InitialMeanMax) using rs.
func InitialMeans(cfg ArmConfig, rs *RandomSource) ([]float64, error) {
	if len(cfg.InitialMeans) > 0 {
		if len(cfg.InitialMeans) != cfg.NumArms {
			return nil, fmt.Errorf("initial means: got %d values for %d arms", len(cfg.InitialMeans), cfg.NumArms)
		}
		return append([]float64(nil), cfg.InitialMeans...), nil
	}
	span := cfg.InitialMeanMax - cfg.InitialMeanMin
	means := make([]float64, cfg.NumArms)
	for i := range means {
		means[i] = cfg.InitialMeanMin + rs.Uniform()*span
	}
	return means, nil
}

// estimates copies the arms' estimated values into dst, growing it if needed.
func estimates(arms []Arm, dst []float64) []float64 {
	dst = dst[:0]
	for i := range arms {
		dst = append(dst, arms[i].EstimatedValue)
	}
	return dst
}
