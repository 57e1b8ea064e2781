// Package hypergraph builds and peels the k-uniform hypergraph behind the
// perfect hash.
//
// Every key is an edge over k slots, one per arm. The slot space is split
// into k equal segments and arm j always lands in segment j, so the k slots
// of a key are distinct.
package hypergraph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	intbits "github.com/tamirms/peelhash/internal/bits"
)

const (
	// MaxArity is the largest supported number of arms per key.
	MaxArity = 4

	// contextCheckInterval is how often long loops poll for cancellation.
	contextCheckInterval = 1 << 16

	// minParallelKeys is the key count below which hashing stays on the
	// calling goroutine.
	minParallelKeys = 1 << 14
)

// Hasher maps keys to their arm slots. It is shared between construction
// and query, so both phases see identical slots.
type Hasher struct {
	Seed        uint64
	SegmentSize uint64
	Arity       int
}

// NumSlots returns the total slot count, Arity * SegmentSize.
func (h Hasher) NumSlots() uint64 {
	return uint64(h.Arity) * h.SegmentSize
}

// Slots writes the slot of each arm of key into dst[:h.Arity].
func (h Hasher) Slots(key uint64, dst *[MaxArity]uint64) {
	w := intbits.RemixSeeded(key, h.Seed)
	base := uint64(0)
	for j := 0; j < h.Arity; j++ {
		dst[j] = base + intbits.FastRange64(w, h.SegmentSize)
		base += h.SegmentSize
		w = intbits.Remix(w + intbits.Golden)
	}
}

// Graph is the result of bucket assignment: the slots of every key plus the
// reverse multi-map from slot to contending keys, stored in CSR form.
type Graph struct {
	hasher  Hasher
	numKeys int

	// edges[e*arity+j] is the slot of arm j of key e.
	edges []uint32

	// slotStart[v]..slotStart[v+1] indexes slotKeys for slot v.
	slotStart []uint32
	slotKeys  []uint32
}

// Assign hashes keys into slots. With workers > 1 and enough keys, hashing
// runs on that many goroutines; the per-slot contention lists are then
// merged sequentially, so the result does not depend on the worker count.
func Assign(ctx context.Context, keys []uint64, h Hasher, workers int) (*Graph, error) {
	n := len(keys)
	edges := make([]uint32, n*h.Arity)

	if workers <= 1 || n < minParallelKeys {
		if err := hashRange(ctx, keys, h, edges, 0, n); err != nil {
			return nil, err
		}
	} else {
		chunk := (n + workers - 1) / workers
		g, gctx := errgroup.WithContext(ctx)
		for start := 0; start < n; start += chunk {
			end := min(start+chunk, n)
			g.Go(func() error {
				return hashRange(gctx, keys, h, edges, start, end)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("hash keys: %w", err)
		}
	}

	return newGraph(h, n, edges), nil
}

// hashRange fills the edges of keys[start:end].
func hashRange(ctx context.Context, keys []uint64, h Hasher, edges []uint32, start, end int) error {
	var slots [MaxArity]uint64
	for i := start; i < end; i++ {
		if (i-start)%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		h.Slots(keys[i], &slots)
		row := edges[i*h.Arity : (i+1)*h.Arity]
		for j := range row {
			row[j] = uint32(slots[j])
		}
	}
	return nil
}

// newGraph builds the slot to key multi-map from edges with a counting sort.
func newGraph(h Hasher, numKeys int, edges []uint32) *Graph {
	numSlots := h.NumSlots()
	slotStart := make([]uint32, numSlots+1)
	for _, v := range edges {
		slotStart[uint64(v)+1]++
	}
	for v := uint64(1); v <= numSlots; v++ {
		slotStart[v] += slotStart[v-1]
	}

	slotKeys := make([]uint32, len(edges))
	fill := make([]uint32, numSlots)
	copy(fill, slotStart[:numSlots])
	for i, v := range edges {
		slotKeys[fill[v]] = uint32(i / h.Arity)
		fill[v]++
	}

	return &Graph{
		hasher:    h,
		numKeys:   numKeys,
		edges:     edges,
		slotStart: slotStart,
		slotKeys:  slotKeys,
	}
}

// Hasher returns the hasher the graph was built with.
func (g *Graph) Hasher() Hasher {
	return g.hasher
}

// NumKeys returns the number of edges.
func (g *Graph) NumKeys() int {
	return g.numKeys
}

// NumSlots returns the number of vertices.
func (g *Graph) NumSlots() uint64 {
	return g.hasher.NumSlots()
}

// Arity returns the number of slots per key.
func (g *Graph) Arity() int {
	return g.hasher.Arity
}

// Edge returns the slots of key e, indexed by arm.
func (g *Graph) Edge(e uint32) []uint32 {
	k := g.hasher.Arity
	return g.edges[int(e)*k : (int(e)+1)*k]
}

// Contenders returns the keys hashed to slot, in key order.
func (g *Graph) Contenders(slot uint64) []uint32 {
	return g.slotKeys[g.slotStart[slot]:g.slotStart[slot+1]]
}

// Degree returns the number of keys hashed to slot.
func (g *Graph) Degree(slot uint64) int {
	return int(g.slotStart[slot+1] - g.slotStart[slot])
}
