// Package bits provides low-level hashing and bit manipulation primitives
// shared by construction and query.
//
// Every function here is part of the persisted format: changing any constant
// changes which slot a key lands in and invalidates existing index files.
package bits

import "math/bits"

const (
	// remixMul1 and remixMul2 are the MurmurHash3 fmix64 finalizer constants.
	remixMul1 = 0xff51afd7ed558ccd
	remixMul2 = 0xc4ceb9fe1a85ec53

	// Golden is 2^64 / phi, used to step between independent arm hashes.
	Golden = 0x9e3779b97f4a7c15
)

// Remix is a 64-bit avalanche finalizer (xor-shift/multiply chain).
// It is a bijection on uint64: both multipliers are odd and each xor-shift
// is invertible.
func Remix(h uint64) uint64 {
	h ^= h >> 33
	h *= remixMul1
	h ^= h >> 33
	h *= remixMul2
	h ^= h >> 33
	return h
}

// RemixSeeded mixes a key with a seed before finalizing. The seed is
// remixed first, so seeds that differ only in their low bits still give
// unrelated outputs for keys drawn from a small contiguous range.
func RemixSeeded(key, seed uint64) uint64 {
	return Remix(key ^ Remix(seed))
}

// FastRange64 maps a 64-bit word uniformly to [0, p), computing
// floor(word * p / 2^64) with a 128-bit product instead of a modulo.
func FastRange64(word, p uint64) uint64 {
	hi, _ := bits.Mul64(word, p)
	return hi
}
