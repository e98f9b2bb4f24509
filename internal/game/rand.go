package game

import (
	"math/rand"
	"time"
)

// Rand is the random source consumed by combat resolution.
// *rand.Rand satisfies it; tests inject scripted sources.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source. A zero seed picks one from the wall clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Clock is the wall clock used by the tachiai sync window.
// Everything else in the engine runs on simulated time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// between draws uniformly from [lo, hi).
func between(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
