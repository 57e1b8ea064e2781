package peelhash

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// newTestRNG returns a PCG seeded from the test name, so every test sees its
// own fixed key stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:])))
}

// generateRandomKeys creates n distinct pseudo-random keys.
func generateRandomKeys(rng *rand.Rand, n int) []uint64 {
	seen := make(map[uint64]struct{}, n)
	keys := make([]uint64, 0, n)
	for len(keys) < n {
		k := rng.Uint64()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// sequentialKeys returns 0, 1, ..., n-1. Outcomes for these keys do not
// depend on any RNG, so tests can pin exact attempt counts.
func sequentialKeys(n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(i)
	}
	return keys
}

// mustConstruct builds a function or fails the test.
func mustConstruct(t testing.TB, keys []uint64, gamma float64, opts ...BuildOption) *Function {
	t.Helper()
	f, err := Construct(keys, gamma, opts...)
	if err != nil {
		t.Fatalf("Construct(%d keys, gamma %v): %v", len(keys), gamma, err)
	}
	return f
}

// verifyBijection checks that keys map onto [0, len(keys)) without
// collisions.
func verifyBijection(t *testing.T, f *Function, keys []uint64) {
	t.Helper()
	n := uint64(len(keys))
	seen := make([]bool, n)
	for i, k := range keys {
		r := f.Query(k)
		if r >= n {
			t.Fatalf("key %d (#%d): rank %d out of range [0, %d)", k, i, r, n)
		}
		if seen[r] {
			t.Fatalf("key %d (#%d): rank %d assigned twice", k, i, r)
		}
		seen[r] = true
	}
}

// recordTransitions returns an option capturing every state change and the
// slice it appends to.
func recordTransitions() (BuildOption, *[]BuildState) {
	states := []BuildState{StateUnbuilt}
	return func(c *buildConfig) {
		c.onTransition = func(_, to BuildState) {
			states = append(states, to)
		}
	}, &states
}
