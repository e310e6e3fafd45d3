package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/bandit-sim/sim/trace"
)

// newTestConfig returns the default configuration with a fixed seed and round count.
func newTestConfig(seed int64, rounds int) SimConfig {
	cfg := DefaultSimConfig()
	cfg.Seed = seed
	cfg.Rounds = rounds
	return cfg
}

func mustSimulator(t *testing.T, cfg SimConfig) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

func TestNewSimulator_InitialState(t *testing.T) {
	// GIVEN the default configuration
	s := mustSimulator(t, newTestConfig(42, 100))

	// THEN k arms exist with random means in range and zeroed learning state
	assert.Equal(t, StateUninitialized, s.State())
	require.Len(t, s.Arms, DefaultNumArms)
	for i, a := range s.Arms {
		assert.Equal(t, i, a.ID)
		assert.GreaterOrEqual(t, a.TrueMean, DefaultInitialMeanMin)
		assert.Less(t, a.TrueMean, DefaultInitialMeanMax)
		assert.Equal(t, 0.0, a.EstimatedValue)
		assert.Equal(t, 0, a.SelectionCount)
	}
}

func TestNewSimulator_InvalidConfig_ReportedBeforeRun(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *SimConfig)
	}{
		{"zero arms", func(c *SimConfig) { c.Arms.NumArms = 0 }},
		{"zero temperature", func(c *SimConfig) { c.Policy.Temperature = 0 }},
		{"negative temperature", func(c *SimConfig) { c.Policy.Temperature = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(1, 10)
			tt.mutate(&cfg)
			s, err := NewSimulator(cfg)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSimulator_Run_CountConservation(t *testing.T) {
	for _, rounds := range []int{0, 1, 7, 1000, 10000} {
		// GIVEN a seeded simulator
		s := mustSimulator(t, newTestConfig(3, rounds))

		// WHEN run
		require.NoError(t, s.Run())
		m := s.Results()

		// THEN Σ selection_count == rounds
		assert.Equal(t, rounds, m.TotalSelections(), "rounds=%d", rounds)
		assert.Equal(t, rounds, m.Rounds)
		assert.Len(t, m.Latencies, rounds)
	}
}

func TestSimulator_Run_StateMachine(t *testing.T) {
	s := mustSimulator(t, newTestConfig(9, 10))
	assert.Equal(t, StateUninitialized, s.State())

	require.NoError(t, s.Run())
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 10, s.RoundsCompleted())

	// A completed simulation cannot be resumed.
	assert.ErrorIs(t, s.Run(), ErrAlreadyCompleted)
	assert.Equal(t, 10, s.RoundsCompleted())
}

func TestSimulator_Step_AfterCompletion_LeavesResultsUnchanged(t *testing.T) {
	// GIVEN a 10-round simulation that has run to completion
	s := mustSimulator(t, newTestConfig(9, 10))
	require.NoError(t, s.Run())
	before := s.Snapshot()

	// WHEN one more round is stepped
	_, err := s.Step()

	// THEN it is refused and nothing moves
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, 10, s.RoundsCompleted())
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 10, s.Results().TotalSelections())
}

func TestSimulator_Step_LastRoundCompletes(t *testing.T) {
	// GIVEN a simulation stepped by hand through every configured round
	s := mustSimulator(t, newTestConfig(4, 3))
	for i := 0; i < 3; i++ {
		_, err := s.Step()
		require.NoError(t, err)
	}

	// THEN it is completed and cannot be resumed
	assert.Equal(t, StateCompleted, s.State())
	_, err := s.Step()
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.ErrorIs(t, s.Run(), ErrAlreadyCompleted)
	assert.Equal(t, 3, s.Results().TotalSelections())
}

func TestSimulator_Step_ZeroRounds_Refused(t *testing.T) {
	s := mustSimulator(t, newTestConfig(4, 0))
	_, err := s.Step()
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, 0, s.Results().TotalSelections())
}

func TestSimulator_Step_PartialResults(t *testing.T) {
	// GIVEN a simulator advanced three rounds by hand
	s := mustSimulator(t, newTestConfig(9, 10))
	for i := 0; i < 3; i++ {
		o, err := s.Step()
		require.NoError(t, err)
		assert.Equal(t, i, o.Round)
	}

	// THEN results reflect exactly the completed rounds
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, 3, s.Results().Rounds)
	assert.Equal(t, 3, s.Results().TotalSelections())

	// WHEN Run is called it finishes the remaining rounds
	require.NoError(t, s.Run())
	assert.Equal(t, 10, s.Results().TotalSelections())
}

func TestSimulator_Determinism_SameSeedIdenticalResults(t *testing.T) {
	// GIVEN two simulators with the same seed and configuration
	s1 := mustSimulator(t, newTestConfig(42, 5000))
	s2 := mustSimulator(t, newTestConfig(42, 5000))

	// WHEN both run
	require.NoError(t, s1.Run())
	require.NoError(t, s2.Run())
	m1, m2 := s1.Results(), s2.Results()

	// THEN every aggregated result is bit-identical (elapsed time excepted)
	assert.Equal(t, m1.TotalLatency, m2.TotalLatency)
	assert.Equal(t, m1.TotalRegret, m2.TotalRegret)
	assert.Equal(t, m1.Latencies, m2.Latencies)
	assert.Equal(t, m1.Arms, m2.Arms)
	assert.Equal(t, math.Float64bits(m1.MeanLatency()), math.Float64bits(m2.MeanLatency()))
}

func TestSimulator_Determinism_DifferentSeedsDiffer(t *testing.T) {
	s1 := mustSimulator(t, newTestConfig(1, 200))
	s2 := mustSimulator(t, newTestConfig(2, 200))
	require.NoError(t, s1.Run())
	require.NoError(t, s2.Run())

	assert.NotEqual(t, s1.Results().Latencies, s2.Results().Latencies)
}

func TestSimulator_ThreeArmScenario_FirstRound(t *testing.T) {
	// GIVEN k=3 with true means [50, 70, 90], τ=0.5, α=0.1 and zero estimates
	cfg := newTestConfig(7, 1)
	cfg.Arms = ArmConfig{NumArms: 3, InitialMeans: []float64{50, 70, 90}}
	s := mustSimulator(t, cfg)

	// WHEN one round runs
	o, err := s.Step()
	require.NoError(t, err)

	// THEN the tied estimates produced exactly uniform probabilities
	require.Len(t, o.Decision.Probabilities, 3)
	for i, p := range o.Decision.Probabilities {
		assert.Equal(t, 1.0/3.0, p, "p[%d]", i)
	}

	// AND the chosen arm's estimate is α times the reward
	chosen := s.Arms[o.Decision.Arm]
	assert.Equal(t, 0.1*(-o.ObservedLatency), chosen.EstimatedValue)
	assert.Equal(t, 1, chosen.SelectionCount)
	assert.Equal(t, o.ObservedLatency, s.Results().TotalLatency)

	// AND the other arms were not updated
	for i, a := range s.Arms {
		if i != o.Decision.Arm {
			assert.Equal(t, 0.0, a.EstimatedValue, "arm %d", i)
			assert.Equal(t, 0, a.SelectionCount, "arm %d", i)
		}
	}
}

func TestSimulator_DrawOrder_MatchesReferenceSequence(t *testing.T) {
	// GIVEN explicit means so that only the round stream is consumed
	means := []float64{55, 60, 58, 75}
	cfg := newTestConfig(1234, 300)
	cfg.Arms = ArmConfig{NumArms: len(means), InitialMeans: means}
	s := mustSimulator(t, cfg)

	// AND a reference replaying the loop by hand from a raw stream with the master seed
	ref := NewRandomSource(newRandFromSeed(cfg.Seed))
	trueMeans := append([]float64(nil), means...)
	values := make([]float64, len(means))

	for round := 0; round < cfg.Rounds; round++ {
		// selection draw
		probs, err := SoftmaxProbabilities(values, cfg.Policy.Temperature)
		require.NoError(t, err)
		wantArm, _ := sampleIndex(probs, ref.Uniform())
		// observation draws
		wantLatency := math.Max(ref.Gaussian(trueMeans[wantArm], 5.0), 1.0)
		values[wantArm] = UpdateEstimate(values[wantArm], -wantLatency, cfg.Learning.Alpha)

		// WHEN the simulator steps
		o, err := s.Step()
		require.NoError(t, err)

		// THEN it made the same choice and saw the same latency
		require.Equal(t, wantArm, o.Decision.Arm, "round %d", round)
		require.Equal(t, wantLatency, o.ObservedLatency, "round %d", round)

		// k drift draws
		for i := range trueMeans {
			trueMeans[i] += ref.Gaussian(0, 0.5)
		}
	}

	for i, a := range s.Arms {
		assert.Equal(t, trueMeans[i], a.TrueMean, "arm %d true mean", i)
		assert.Equal(t, values[i], a.EstimatedValue, "arm %d estimate", i)
	}
}

func TestSimulator_LatencyFloor_HoldsForNegativeMeans(t *testing.T) {
	cfg := newTestConfig(5, 500)
	cfg.Arms = ArmConfig{NumArms: 2, InitialMeans: []float64{-100, -50}}
	s := mustSimulator(t, cfg)
	require.NoError(t, s.Run())

	for i, l := range s.Results().Latencies {
		require.GreaterOrEqual(t, l, 1.0, "round %d", i)
	}
}

func TestSimulator_Softmax_PrefersFasterServer(t *testing.T) {
	// GIVEN a stationary two-server environment, one clearly faster
	cfg := newTestConfig(11, 2000)
	cfg.Arms = ArmConfig{NumArms: 2, InitialMeans: []float64{50, 90}}
	cfg.Environment.DriftStdDev = 0
	s := mustSimulator(t, cfg)

	// WHEN run
	require.NoError(t, s.Run())
	arms := s.Results().Arms

	// THEN the faster server gets most of the traffic and its estimate tracks its latency
	assert.Greater(t, arms[0].SelectionCount, arms[1].SelectionCount)
	assert.InDelta(t, -50, arms[0].EstimatedValue, 5)
	assert.Equal(t, 50.0, arms[0].TrueMean)
}

func TestSimulator_Observers_NotifiedEveryRound(t *testing.T) {
	// GIVEN an observer collecting outcomes
	s := mustSimulator(t, newTestConfig(8, 250))
	var outcomes []RoundOutcome
	s.AddObserver(RoundObserverFunc(func(o RoundOutcome) { outcomes = append(outcomes, o) }))

	// WHEN run
	require.NoError(t, s.Run())

	// THEN every round was reported in order with non-negative regret
	require.Len(t, outcomes, 250)
	total := 0.0
	for i, o := range outcomes {
		assert.Equal(t, i, o.Round)
		assert.GreaterOrEqual(t, o.Regret(), 0.0)
		assert.Equal(t, -o.ObservedLatency, o.Reward)
		assert.Equal(t, UpdateEstimate(o.EstimateBefore, o.Reward, 0.1), o.EstimateAfter)
		total += o.ObservedLatency
	}
	assert.Equal(t, s.Results().TotalLatency, total)
}

func TestSimulator_TraceRecorder_MatchesSelectionCounts(t *testing.T) {
	// GIVEN a decision trace attached to the simulator
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions, KeepProbabilities: true})
	s := mustSimulator(t, newTestConfig(21, 400))
	s.AddObserver(NewTraceRecorder(st))

	// WHEN run
	require.NoError(t, s.Run())

	// THEN the trace's arm distribution equals the arms' counts
	summary := trace.Summarize(st)
	assert.Equal(t, 400, summary.TotalRounds)
	for _, a := range s.Results().Arms {
		assert.Equal(t, a.SelectionCount, summary.ArmDistribution[a.ID], "arm %d", a.ID)
	}
	assert.InDelta(t, s.Results().TotalRegret/400, summary.MeanRegret, 1e-9)
	assert.Len(t, st.Rounds[0].Probabilities, DefaultNumArms)
}

func TestSimulator_RoundRobinPolicy_SpreadsEvenly(t *testing.T) {
	cfg := newTestConfig(3, 100)
	cfg.Policy.Name = PolicyRoundRobin
	s := mustSimulator(t, cfg)
	require.NoError(t, s.Run())

	for _, a := range s.Results().Arms {
		assert.Equal(t, 20, a.SelectionCount, "arm %d", a.ID)
	}
}

func TestSimulationState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
}
