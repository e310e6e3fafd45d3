package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run. The same key and configuration
// yield bit-identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams used by the simulator.
const (
	// SubsystemRounds feeds every per-round draw: one selection draw, two
	// observation draws, then two drift draws per arm. Seeded with the bare
	// key so a run can be replayed from a plain rand.Rand.
	SubsystemRounds = "rounds"

	// SubsystemArms feeds the initial true means.
	SubsystemArms = "arms"
)

// PartitionedRNG hands out one independent stream per named subsystem, so that
// consuming draws in one subsystem never shifts another's sequence.
//
// SubsystemRounds is seeded with the key itself; any other name is seeded with
// key XOR fnv1a64(name). Streams are created on first use and cached.
//
// Thread-safety: NOT thread-safe.
type PartitionedRNG struct {
	key     SimulationKey
	sources map[string]*RandomSource
}

// NewPartitionedRNG creates a PartitionedRNG for key. No stream exists until requested.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		sources: make(map[string]*RandomSource),
	}
}

// Source returns the cached RandomSource for the named subsystem.
func (p *PartitionedRNG) Source(name string) *RandomSource {
	if rs, ok := p.sources[name]; ok {
		return rs
	}
	rs := NewRandomSource(rand.New(rand.NewSource(p.seedFor(name))))
	p.sources[name] = rs
	return rs
}

// ForSubsystem returns the raw stream behind Source(name).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	return p.Source(name).rng
}

// Key returns the SimulationKey the streams derive from.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemRounds {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
