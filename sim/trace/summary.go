package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRounds int
	MeanRegret  float64
	MaxRegret   float64

	// ZeroRegretRatio is the fraction of rounds where the best arm was chosen.
	ZeroRegretRatio float64

	UniqueArms      int
	ArmDistribution map[int]int // arm ID → number of rounds it was chosen

	// ArmSwitches counts rounds whose chosen arm differs from the previous round's.
	ArmSwitches int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ArmDistribution: make(map[int]int),
	}
	if st == nil || len(st.Rounds) == 0 {
		return summary
	}

	summary.TotalRounds = len(st.Rounds)
	totalRegret := 0.0
	zeroRegret := 0
	for i, r := range st.Rounds {
		summary.ArmDistribution[r.ChosenArm]++
		totalRegret += r.Regret
		if r.Regret > summary.MaxRegret {
			summary.MaxRegret = r.Regret
		}
		if r.Regret == 0 {
			zeroRegret++
		}
		if i > 0 && r.ChosenArm != st.Rounds[i-1].ChosenArm {
			summary.ArmSwitches++
		}
	}
	summary.MeanRegret = totalRegret / float64(len(st.Rounds))
	summary.ZeroRegretRatio = float64(zeroRegret) / float64(len(st.Rounds))
	summary.UniqueArms = len(summary.ArmDistribution)

	return summary
}
