package peelhash

import (
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/tamirms/peelhash/internal/hypergraph"
	"github.com/tamirms/peelhash/internal/succinct"
)

// Function is a built minimal perfect hash function.
//
// Thread Safety:
//   - Query and the other read methods are safe for concurrent use
//   - Close is NOT safe to call concurrently with queries
//   - After Close returns, no methods other than Close, Verify and
//     MarshalBinary may be called; those two return ErrIndexClosed
type Function struct {
	gamma   float64
	numKeys uint64
	hasher  hypergraph.Hasher
	rank    *succinct.Structure

	// Set when the function reads from serialized bytes.
	mmap mmap.MMap
	data []byte

	closed atomic.Bool
}

// Stats summarizes a function.
type Stats struct {
	NumKeys    uint64
	NumSlots   uint64
	Arity      int
	Gamma      float64
	Seed       uint64
	SizeBits   uint64
	BitsPerKey float64
}

// Query returns the rank of key in [0, NumKeys()).
//
// key must be a member of the set the function was built from. For any
// other key the result is an arbitrary value and no error is reported;
// callers that need membership checks must keep them outside the function.
func (f *Function) Query(key uint64) uint64 {
	if f.numKeys == 0 {
		return 0
	}
	var slots [hypergraph.MaxArity]uint64
	f.hasher.Slots(key, &slots)

	k := f.hasher.Arity
	var sum uint64
	for j := 0; j < k; j++ {
		sum += f.rank.Value(slots[j])
	}
	return f.rank.Rank(slots[sum%uint64(k)])
}

// SizeBits returns the memory footprint of the rank structure in bits.
func (f *Function) SizeBits() uint64 {
	return f.rank.SizeBits()
}

// NumKeys returns the number of keys the function was built from.
func (f *Function) NumKeys() uint64 {
	return f.numKeys
}

// NumSlots returns the number of candidate slots.
func (f *Function) NumSlots() uint64 {
	return f.hasher.NumSlots()
}

// Gamma returns the load factor the function was built with.
func (f *Function) Gamma() float64 {
	return f.gamma
}

// Arity returns the number of candidate slots per key.
func (f *Function) Arity() int {
	return f.hasher.Arity
}

// Seed returns the seed of the attempt that succeeded.
func (f *Function) Seed() uint64 {
	return f.hasher.Seed
}

// BitsPerKey returns SizeBits divided by NumKeys, or 0 for an empty function.
func (f *Function) BitsPerKey() float64 {
	if f.numKeys == 0 {
		return 0
	}
	return float64(f.SizeBits()) / float64(f.numKeys)
}

// Stats returns statistics for the function.
func (f *Function) Stats() *Stats {
	return &Stats{
		NumKeys:    f.numKeys,
		NumSlots:   f.NumSlots(),
		Arity:      f.Arity(),
		Gamma:      f.gamma,
		Seed:       f.Seed(),
		SizeBits:   f.SizeBits(),
		BitsPerKey: f.BitsPerKey(),
	}
}
