package sim

// RoundOutcome describes one completed select → observe → update step.
// True means are captured before the round's drift is applied.
type RoundOutcome struct {
	Round           int // zero-based round index
	Decision        SelectionDecision
	ObservedLatency float64
	Reward          float64
	EstimateBefore  float64
	EstimateAfter   float64
	ChosenTrueMean  float64
	BestTrueMean    float64 // lowest true mean over all arms this round
}

// Regret is the expected latency paid over the best arm this round.
func (o RoundOutcome) Regret() float64 {
	return o.ChosenTrueMean - o.BestTrueMean
}

// RoundObserver is notified after every round, before the environment drifts.
// Observers must not retain o.Decision.Probabilities beyond the call unless copied.
type RoundObserver interface {
	ObserveRound(o RoundOutcome)
}

// RoundObserverFunc adapts a plain function to RoundObserver.
type RoundObserverFunc func(o RoundOutcome)

// ObserveRound implements RoundObserver.
func (f RoundObserverFunc) ObserveRound(o RoundOutcome) { f(o) }
