package sim

import (
	"math"
	"math/rand"
)

// minUniformForLog is the floor applied to the first Box–Muller draw so that
// log(u1) stays finite.
const minUniformForLog = 1e-7

// RandomSource produces the uniform and Gaussian deviates consumed by the
// policy and the environment. It owns no state beyond the wrapped stream.
//
// Thread-safety: NOT thread-safe.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource wraps rng. A nil rng panics on first use.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	return &RandomSource{rng: rng}
}

// Uniform returns a value in [0, 1).
func (rs *RandomSource) Uniform() float64 {
	return rs.rng.Float64()
}

// Gaussian returns a Normal(mean, stddev) sample using the Box–Muller transform.
// Exactly two Uniform draws are consumed, u1 first.
func (rs *RandomSource) Gaussian(mean, stddev float64) float64 {
	u1 := rs.Uniform()
	u2 := rs.Uniform()
	if u1 <= minUniformForLog {
		u1 = minUniformForLog
	}
	z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
	return z0*stddev + mean
}
