// Package trace provides decision-trace recording for bandit policy analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// RoundRecord captures a single selection decision and what it cost.
type RoundRecord struct {
	Round           int
	ChosenArm       int
	Reason          string
	Probabilities   []float64 // selection distribution (nil unless kept and the policy is stochastic)
	ObservedLatency float64
	Reward          float64
	EstimateBefore  float64
	EstimateAfter   float64
	Regret          float64 // chosen arm's true mean minus the best true mean; 0 if chosen is best
}
