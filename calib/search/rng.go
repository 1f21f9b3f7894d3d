package search

import (
	"hash/fnv"
	"math/rand"
)

// dimensionRNG returns a deterministically seeded RNG for one dimension.
//
// Derivation: masterSeed XOR fnv1a64(dimension name). Each dimension draws
// from its own stream, so adding, removing or reordering dimensions in a
// space file never changes the values drawn for the others.
func dimensionRNG(masterSeed int64, name string) *rand.Rand {
	return rand.New(rand.NewSource(masterSeed ^ fnv1a64(name)))
}

// fnv1a64 computes the FNV-1a 64-bit hash of a string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
