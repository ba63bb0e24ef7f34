package sim

import "math"

// Salts keep the independent random quantities drawn from one race seed from
// correlating with each other.
const (
	saltBaseSpeed uint64 = 0x9e3779b97f4a7c15
	saltKick      uint64 = 0xbf58476d1ce4e5b9
	saltVariance  uint64 = 0x94d049bb133111eb
	saltInterval  uint64 = 0xd6e8feb86659fd93
)

// unit mixes the given words into a single value in [0,1). It is a pure
// function: the same words always produce the same value, on every platform.
// That property carries the whole replay contract, so the mixer is integer
// only: no transcendental hashing, no math/rand stream state.
func unit(words ...uint64) float64 {
	h := uint64(0x2545f4914f6cdd1d)
	for _, w := range words {
		h ^= w
		h *= 0xff51afd7ed558ccd
		h ^= h >> 33
	}
	h ^= h >> 29
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 32
	return float64(h>>11) / (1 << 53)
}

// unitInRange maps a unit draw onto [min, max).
func unitInRange(u, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + u*(max-min)
}

// progressWord folds a runner's current progress into the entropy input.
// The raw bit pattern is used so that distinct float values never collide.
func progressWord(progress float64) uint64 {
	return math.Float64bits(progress)
}
