package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SimulationState is the lifecycle of a Simulator: Uninitialized → Running → Completed.
type SimulationState int

const (
	StateUninitialized SimulationState = iota
	StateRunning
	StateCompleted
)

func (s SimulationState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("SimulationState(%d)", int(s))
	}
}

// ErrAlreadyCompleted is returned by Run on a simulator that has finished.
var ErrAlreadyCompleted = errors.New("simulation already completed")

// Simulator runs the sequential bandit routing loop. It exclusively owns the
// arms for its lifetime.
//
// Each round: select (policy) → observe (environment) → accumulate latency →
// count selection → EMA update → notify observers → drift all arms.
// Every per-round random draw comes from the SubsystemRounds stream in that order.
//
// Thread-safety: NOT thread-safe.
type Simulator struct {
	Config  SimConfig
	Arms    []Arm
	Metrics *Metrics

	state     SimulationState
	round     int
	rng       *PartitionedRNG
	rs        *RandomSource
	policy    SelectionPolicy
	env       *Environment
	observers []RoundObserver
	values    []float64
}

// NewSimulator validates cfg and creates the arms. Invalid configuration is
// reported here, before any round runs.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	means, err := InitialMeans(cfg.Arms, rng.Source(SubsystemArms))
	if err != nil {
		return nil, fmt.Errorf("creating arms: %w", err)
	}
	rs := rng.Source(SubsystemRounds)
	policy, err := NewSelectionPolicy(cfg.Policy, rs)
	if err != nil {
		return nil, fmt.Errorf("creating policy: %w", err)
	}
	return &Simulator{
		Config:  cfg,
		Arms:    NewArms(means),
		Metrics: NewMetrics(cfg.Rounds),
		state:   StateUninitialized,
		rng:     rng,
		rs:      rs,
		policy:  policy,
		env:     NewEnvironment(cfg.Environment, rs),
		values:  make([]float64, 0, cfg.Arms.NumArms),
	}, nil
}

// AddObserver registers o to be notified after every round.
func (sim *Simulator) AddObserver(o RoundObserver) {
	sim.observers = append(sim.observers, o)
}

// State returns the current lifecycle state.
func (sim *Simulator) State() SimulationState {
	return sim.state
}

// RoundsCompleted returns the number of rounds run so far.
func (sim *Simulator) RoundsCompleted() int {
	return sim.round
}

// Run executes the remaining configured rounds and marks the simulation completed.
func (sim *Simulator) Run() error {
	if sim.state == StateCompleted {
		return ErrAlreadyCompleted
	}
	sim.state = StateRunning
	logrus.Infof("Starting simulation: arms=%d rounds=%d policy=%s tau=%v alpha=%v seed=%d",
		len(sim.Arms), sim.Config.Rounds, sim.Config.Policy.Name, sim.Config.Policy.Temperature,
		sim.Config.Learning.Alpha, sim.Config.Seed)

	start := time.Now()
	for sim.round < sim.Config.Rounds {
		if _, err := sim.Step(); err != nil {
			return err
		}
	}
	sim.Metrics.ElapsedTime += time.Since(start)

	sim.state = StateCompleted
	logrus.Infof("[round %07d] Simulation ended", sim.round)
	return nil
}

// Step runs a single round and returns its outcome. Finishing the last
// configured round completes the simulation; stepping past it returns
// ErrAlreadyCompleted and leaves the arms untouched.
func (sim *Simulator) Step() (RoundOutcome, error) {
	if sim.state == StateCompleted || sim.round >= sim.Config.Rounds {
		return RoundOutcome{}, ErrAlreadyCompleted
	}
	if sim.state == StateUninitialized {
		sim.state = StateRunning
	}

	sim.values = estimates(sim.Arms, sim.values)
	decision := sim.policy.Select(sim.values)
	arm := &sim.Arms[decision.Arm]

	latency := sim.env.Observe(arm.TrueMean)
	arm.SelectionCount++

	before := arm.EstimatedValue
	reward := Learn(arm, latency, sim.Config.Learning.Alpha)

	outcome := RoundOutcome{
		Round:           sim.round,
		Decision:        decision,
		ObservedLatency: latency,
		Reward:          reward,
		EstimateBefore:  before,
		EstimateAfter:   arm.EstimatedValue,
		ChosenTrueMean:  arm.TrueMean,
		BestTrueMean:    bestTrueMean(sim.Arms),
	}
	sim.Metrics.RecordRound(latency, outcome.Regret())
	logrus.Debugf("[round %07d] arm=%d latency=%.3f estimate=%.3f (%s)",
		sim.round, decision.Arm, latency, arm.EstimatedValue, decision.Reason)

	for _, o := range sim.observers {
		o.ObserveRound(outcome)
	}

	sim.env.Drift(sim.Arms)
	sim.round++
	if sim.round == sim.Config.Rounds {
		sim.state = StateCompleted
	}
	return outcome, nil
}

// Snapshot returns a copy of every arm's current state, in ID order.
func (sim *Simulator) Snapshot() []ArmSnapshot {
	snaps := make([]ArmSnapshot, len(sim.Arms))
	for i := range sim.Arms {
		snaps[i] = sim.Arms[i].Snapshot()
	}
	return snaps
}

// Results returns the aggregated metrics with the arms as of the last completed round.
func (sim *Simulator) Results() *Metrics {
	sim.Metrics.Arms = sim.Snapshot()
	sim.Metrics.Policy = sim.Config.Policy.Name
	sim.Metrics.Seed = sim.Config.Seed
	return sim.Metrics
}

func bestTrueMean(arms []Arm) float64 {
	best := arms[0].TrueMean
	for i := 1; i < len(arms); i++ {
		if arms[i].TrueMean < best {
			best = arms[i].TrueMean
		}
	}
	return best
}
