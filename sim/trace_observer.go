package sim

import "github.com/inference-sim/bandit-sim/sim/trace"

// TraceRecorder records every round into a SimulationTrace.
type TraceRecorder struct {
	Trace *trace.SimulationTrace
}

// NewTraceRecorder creates a recorder writing into st.
func NewTraceRecorder(st *trace.SimulationTrace) *TraceRecorder {
	return &TraceRecorder{Trace: st}
}

// ObserveRound implements RoundObserver.
func (tr *TraceRecorder) ObserveRound(o RoundOutcome) {
	record := trace.RoundRecord{
		Round:           o.Round,
		ChosenArm:       o.Decision.Arm,
		Reason:          o.Decision.Reason,
		ObservedLatency: o.ObservedLatency,
		Reward:          o.Reward,
		EstimateBefore:  o.EstimateBefore,
		EstimateAfter:   o.EstimateAfter,
		Regret:          o.Regret(),
	}
	if tr.Trace.Config.KeepProbabilities && o.Decision.Probabilities != nil {
		record.Probabilities = append([]float64(nil), o.Decision.Probabilities...)
	}
	tr.Trace.RecordRound(record)
}
