package randutil

import rand "math/rand/v2"

// New returns a *rand.Rand seeded deterministically from a single int64.
// Centralising how the two PCG seed words are derived keeps every seeded
// test reproducible across packages.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+0x9e3779b97f4a7c15)))
}

// splitmix64 finalizer; spreads low-entropy seeds across the state space.
func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
