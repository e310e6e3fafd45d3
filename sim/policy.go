package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Policy names accepted by NewSelectionPolicy.
const (
	PolicySoftmax    = "softmax"
	PolicyRoundRobin = "round-robin"
	PolicyGreedy     = "greedy"
)

var validPolicies = map[string]bool{
	PolicySoftmax:    true,
	PolicyRoundRobin: true,
	PolicyGreedy:     true,
}

// IsValidPolicy returns true if name is a recognized selection policy.
func IsValidPolicy(name string) bool {
	return validPolicies[name]
}

func validPolicyList() string {
	names := make([]string, 0, len(validPolicies))
	for n := range validPolicies {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// SelectionDecision encapsulates the choice of arm for one round.
type SelectionDecision struct {
	Arm           int       // index of the chosen arm, in [0, k)
	Reason        string    // human-readable explanation
	Probabilities []float64 // selection distribution the arm was drawn from (nil for deterministic policies)
}

// SelectionPolicy picks an arm given the current value estimates.
// values is indexed by arm and always non-empty; implementations must not retain it.
type SelectionPolicy interface {
	Select(values []float64) SelectionDecision
}

// NewSelectionPolicy creates the policy named by cfg. Stochastic policies draw from rs.
func NewSelectionPolicy(cfg PolicyConfig, rs *RandomSource) (SelectionPolicy, error) {
	switch cfg.Name {
	case PolicySoftmax:
		if err := validateFinitePositive("temperature", cfg.Temperature); err != nil {
			return nil, err
		}
		return &Softmax{Temperature: cfg.Temperature, rs: rs}, nil
	case PolicyRoundRobin:
		return &RoundRobin{}, nil
	case PolicyGreedy:
		return &Greedy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q; valid: %s", ErrInvalidConfig, cfg.Name, validPolicyList())
	}
}

// SoftmaxProbabilities converts value estimates into a Boltzmann distribution
// at temperature tau. The maximum is subtracted before exponentiating so that
// extreme estimates cannot overflow.
func SoftmaxProbabilities(values []float64, tau float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("softmax over empty value set")
	}
	if math.IsNaN(tau) || math.IsInf(tau, 0) || tau <= 0 {
		return nil, fmt.Errorf("softmax temperature must be a finite positive number, got %v", tau)
	}
	probs := make([]float64, len(values))
	softmaxInto(probs, values, tau)
	return probs, nil
}

// softmaxInto writes the distribution into dst (len(dst) == len(values)).
func softmaxInto(dst, values []float64, tau float64) {
	maxValue := values[0]
	for _, v := range values[1:] {
		if v > maxValue {
			maxValue = v
		}
	}
	sum := 0.0
	for i, v := range values {
		dst[i] = math.Exp((v - maxValue) / tau)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// Softmax samples an arm with probability proportional to exp(value/τ).
// Lower temperatures concentrate on the best estimate, higher ones approach uniform.
type Softmax struct {
	Temperature float64
	rs          *RandomSource
}

// Select implements SelectionPolicy for Softmax. Exactly one Uniform draw is consumed.
func (s *Softmax) Select(values []float64) SelectionDecision {
	if len(values) == 0 {
		panic("Softmax.Select: empty values")
	}
	probs := make([]float64, len(values))
	softmaxInto(probs, values, s.Temperature)

	r := s.rs.Uniform()
	arm, ok := sampleIndex(probs, r)
	if !ok {
		logrus.Warnf("softmax cumulative probability below draw %.17g; falling back to arm %d", r, arm)
		return SelectionDecision{
			Arm:           arm,
			Reason:        fmt.Sprintf("softmax-fallback (r=%.4f)", r),
			Probabilities: probs,
		}
	}
	return SelectionDecision{
		Arm:           arm,
		Reason:        fmt.Sprintf("softmax (p=%.4f, r=%.4f)", probs[arm], r),
		Probabilities: probs,
	}
}

// sampleIndex walks the cumulative sum of probs and returns the first index
// whose running sum reaches r. If rounding leaves the total short of r, the
// last index is returned with ok=false.
func sampleIndex(probs []float64, r float64) (idx int, ok bool) {
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if cumulative >= r {
			return i, true
		}
	}
	return len(probs) - 1, false
}

// RoundRobin cycles through arms in index order, ignoring estimates.
type RoundRobin struct {
	counter int
}

// Select implements SelectionPolicy for RoundRobin.
func (rr *RoundRobin) Select(values []float64) SelectionDecision {
	if len(values) == 0 {
		panic("RoundRobin.Select: empty values")
	}
	arm := rr.counter % len(values)
	rr.counter++
	return SelectionDecision{
		Arm:    arm,
		Reason: fmt.Sprintf("round-robin[%d]", rr.counter-1),
	}
}

// Greedy always picks the highest estimate.
// Ties are broken by first occurrence (lowest index).
type Greedy struct{}

// Select implements SelectionPolicy for Greedy.
func (g *Greedy) Select(values []float64) SelectionDecision {
	if len(values) == 0 {
		panic("Greedy.Select: empty values")
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return SelectionDecision{
		Arm:    best,
		Reason: fmt.Sprintf("greedy (value=%.2f)", values[best]),
	}
}
