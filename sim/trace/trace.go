package trace

// TraceLevel selects how much of each round is recorded.
type TraceLevel string

const (
	// TraceLevelNone records nothing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions records one RoundRecord per round.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// KeepProbabilities stores each round's selection distribution.
	// Off by default: it costs k floats per round.
	KeepProbabilities bool
}

// Enabled reports whether records should be collected at all.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// SimulationTrace holds the per-round records of one run, in round order.
type SimulationTrace struct {
	Config TraceConfig
	Rounds []RoundRecord
}

// NewSimulationTrace creates an empty trace for config.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Rounds: make([]RoundRecord, 0),
	}
}

// RecordRound appends record. It is a no-op when tracing is disabled.
func (st *SimulationTrace) RecordRound(record RoundRecord) {
	if !st.Config.Enabled() {
		return
	}
	st.Rounds = append(st.Rounds, record)
}

// ArmSequence returns the chosen arm of every recorded round.
func (st *SimulationTrace) ArmSequence() []int {
	arms := make([]int, len(st.Rounds))
	for i, r := range st.Rounds {
		arms[i] = r.ChosenArm
	}
	return arms
}

// CumulativeRegret returns the running sum of regret after each recorded round.
func (st *SimulationTrace) CumulativeRegret() []float64 {
	out := make([]float64, len(st.Rounds))
	total := 0.0
	for i, r := range st.Rounds {
		total += r.Regret
		out[i] = total
	}
	return out
}
