// Package sim provides the core simulation engine for latency-aware request
// routing framed as a non-stationary multi-armed bandit.
//
// # Reading Guide
//
// Start with these files to understand the simulation loop:
//   - simulator.go: lifecycle (uninitialized → running → completed) and the per-round step
//   - policy.go: softmax selection plus round-robin and greedy baselines
//   - environment.go: noisy latency observation and random-walk drift of true means
//   - learning.go: constant-step exponential moving average of rewards
//
// # Randomness
//
// All draws come from a PartitionedRNG keyed by the run's seed (rng.go).
// Arm initialization uses its own subsystem stream; every per-round draw
// comes from the rounds stream in a fixed order: one selection draw, two
// observation draws, then two drift draws per arm. A fixed seed therefore
// reproduces a run exactly.
//
// # Observers
//
// RoundObserver implementations receive every RoundOutcome after learning
// and before drift:
//   - TraceRecorder (trace_observer.go) fills a sim/trace.SimulationTrace
//   - sim/promstats.Collector exports Prometheus metrics
//
// Aggregated results (metrics.go) are printed as text or saved as JSON.
package sim
