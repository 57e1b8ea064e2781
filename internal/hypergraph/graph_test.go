package hypergraph

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:])))
}

func randomKeys(rng *rand.Rand, n int) []uint64 {
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

func hasherFor(n int, gamma float64, arity int, seed uint64) Hasher {
	m := uint64(gamma*float64(n)) + 1
	return Hasher{Seed: seed, SegmentSize: (m + uint64(arity) - 1) / uint64(arity), Arity: arity}
}

func TestSlotsStayInSegments(t *testing.T) {
	rng := newTestRNG(t)
	for _, arity := range []int{2, 3, 4} {
		h := Hasher{Seed: rng.Uint64(), SegmentSize: 97, Arity: arity}
		var slots [MaxArity]uint64
		for i := 0; i < 2000; i++ {
			h.Slots(rng.Uint64(), &slots)
			for j := 0; j < arity; j++ {
				require.GreaterOrEqual(t, slots[j], uint64(j)*97)
				require.Less(t, slots[j], uint64(j+1)*97)
			}
		}
	}
}

func TestSlotsDependOnSeed(t *testing.T) {
	a := Hasher{Seed: 1, SegmentSize: 1 << 20, Arity: 3}
	b := Hasher{Seed: 2, SegmentSize: 1 << 20, Arity: 3}
	var sa, sb [MaxArity]uint64
	a.Slots(12345, &sa)
	b.Slots(12345, &sb)
	require.NotEqual(t, sa, sb)
}

func TestAssignMultiMapConsistency(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 3000)
	h := hasherFor(len(keys), 1.23, 3, 7)

	g, err := Assign(context.Background(), keys, h, 1)
	require.NoError(t, err)
	require.Equal(t, len(keys), g.NumKeys())

	total := 0
	for v := range g.NumSlots() {
		contenders := g.Contenders(v)
		require.Len(t, contenders, g.Degree(v))
		require.True(t, slices.IsSorted(contenders), "contenders of slot %d must be in key order", v)
		for _, e := range contenders {
			require.Contains(t, g.Edge(e), uint32(v))
		}
		total += len(contenders)
	}
	require.Equal(t, len(keys)*3, total)

	var slots [MaxArity]uint64
	for i, key := range keys {
		h.Slots(key, &slots)
		for j, s := range g.Edge(uint32(i)) {
			require.Equal(t, uint32(slots[j]), s)
		}
	}
}

func TestAssignParallelMatchesSequential(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 3*minParallelKeys+17)
	h := hasherFor(len(keys), 1.23, 3, 99)

	seq, err := Assign(context.Background(), keys, h, 1)
	require.NoError(t, err)
	par, err := Assign(context.Background(), keys, h, 4)
	require.NoError(t, err)

	require.Equal(t, seq.edges, par.edges)
	require.Equal(t, seq.slotStart, par.slotStart)
	require.Equal(t, seq.slotKeys, par.slotKeys)
}

func TestAssignCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	keys := make([]uint64, 2*minParallelKeys)
	for i := range keys {
		keys[i] = uint64(i)
	}
	_, err := Assign(ctx, keys, hasherFor(len(keys), 1.23, 3, 0), 1)
	require.ErrorIs(t, err, context.Canceled)
	_, err = Assign(ctx, keys, hasherFor(len(keys), 1.23, 3, 0), 4)
	require.ErrorIs(t, err, context.Canceled)
}

// checkOrder verifies that every key appears once in order and that, at the
// moment it was peeled, its recorded slot had no other live contender.
func checkOrder(t *testing.T, g *Graph, res Result) {
	t.Helper()
	peeledAt := make([]int, g.NumKeys())
	for i := range peeledAt {
		peeledAt[i] = -1
	}
	for i, st := range res.Order {
		require.Equal(t, -1, peeledAt[st.Key], "key %d peeled twice", st.Key)
		peeledAt[st.Key] = i
	}
	for i, st := range res.Order {
		slot := g.Edge(st.Key)[st.Arm]
		for _, other := range g.Contenders(uint64(slot)) {
			if other == st.Key {
				continue
			}
			require.GreaterOrEqual(t, peeledAt[other], 0)
			require.Less(t, peeledAt[other], i, "slot %d still contended when key %d was peeled", slot, st.Key)
		}
	}
}

func TestPeelRandomGraph(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 10000)
	g, err := Assign(context.Background(), keys, hasherFor(len(keys), 1.3, 3, 1), 1)
	require.NoError(t, err)

	res, err := Peel(context.Background(), g)
	require.NoError(t, err)
	require.True(t, res.Peeled(), "unpeeled %d", res.Unpeeled)
	require.Len(t, res.Order, len(keys))
	checkOrder(t, g, res)
}

func TestPeelHandBuiltGraphs(t *testing.T) {
	h := Hasher{SegmentSize: 3, Arity: 3}

	t.Run("Chain", func(t *testing.T) {
		// Key 0 shares slot 3 with key 1; both peel.
		g := newGraph(h, 2, []uint32{0, 3, 6, 1, 3, 7})
		res, err := Peel(context.Background(), g)
		require.NoError(t, err)
		require.True(t, res.Peeled())
		checkOrder(t, g, res)
	})

	t.Run("IdenticalEdges", func(t *testing.T) {
		// Two keys on the same three slots form a 2-core.
		g := newGraph(h, 2, []uint32{0, 3, 6, 0, 3, 6})
		res, err := Peel(context.Background(), g)
		require.NoError(t, err)
		require.False(t, res.Peeled())
		require.Equal(t, 2, res.Unpeeled)
	})

	t.Run("CoreWithTail", func(t *testing.T) {
		// Keys 0 and 1 are a core; key 2 hangs off slot 8 and still peels.
		g := newGraph(h, 3, []uint32{0, 3, 6, 0, 3, 6, 1, 4, 8})
		res, err := Peel(context.Background(), g)
		require.NoError(t, err)
		require.Equal(t, 2, res.Unpeeled)
		require.Equal(t, []Step{{Key: 2, Arm: 2}}, res.Order)
	})
}

func TestPeelDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 5000)
	h := hasherFor(len(keys), 1.25, 3, 5)

	g1, err := Assign(context.Background(), keys, h, 1)
	require.NoError(t, err)
	g2, err := Assign(context.Background(), keys, h, 1)
	require.NoError(t, err)

	r1, err := Peel(context.Background(), g1)
	require.NoError(t, err)
	r2, err := Peel(context.Background(), g2)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestPeelBelowThresholdLeavesCore(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 20000)
	g, err := Assign(context.Background(), keys, hasherFor(len(keys), 1.05, 3, 3), 1)
	require.NoError(t, err)

	res, err := Peel(context.Background(), g)
	require.NoError(t, err)
	require.False(t, res.Peeled())
	require.Greater(t, res.Unpeeled, len(keys)/2)
}

func TestPeelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := newGraph(Hasher{SegmentSize: 1, Arity: 2}, 1, []uint32{0, 1})
	_, err := Peel(ctx, g)
	require.ErrorIs(t, err, context.Canceled)
}
