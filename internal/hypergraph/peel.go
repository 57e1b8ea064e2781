package hypergraph

import "context"

// Step records one peeled key and the arm whose slot it was peeled from.
type Step struct {
	Key uint32
	Arm uint8
}

// Result is the outcome of peeling. Order lists keys in peel order; the
// assignment pass consumes it in reverse. Unpeeled is the number of keys
// left in the residual core (zero on success).
type Result struct {
	Order    []Step
	Unpeeled int
}

// Peeled reports whether every key was peeled.
func (r Result) Peeled() bool {
	return r.Unpeeled == 0
}

// Peel repeatedly removes a key that is the only live contender of some
// slot. The worklist is a stack seeded with every degree-1 slot in
// ascending slot order, so the order is deterministic for a given graph.
//
// The returned error is non-nil only when ctx is cancelled.
func Peel(ctx context.Context, g *Graph) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	numSlots := g.NumSlots()
	n := g.numKeys
	k := g.hasher.Arity

	degree := make([]uint32, numSlots)
	stack := make([]uint32, 0, numSlots/4+1)
	for v := range numSlots {
		degree[v] = uint32(g.Degree(v))
		if degree[v] == 1 {
			stack = append(stack, uint32(v))
		}
	}

	removed := make([]uint64, (n+63)/64)
	order := make([]Step, 0, n)

	iterations := 0
	for len(stack) > 0 {
		iterations++
		if iterations%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if degree[v] != 1 {
			continue
		}

		e, ok := liveContender(g.Contenders(uint64(v)), removed)
		if !ok {
			continue
		}
		removed[e/64] |= 1 << (e % 64)

		edge := g.edges[int(e)*k : (int(e)+1)*k]
		arm := 0
		for j, u := range edge {
			if u == v {
				arm = j
			}
			degree[u]--
			if degree[u] == 1 {
				stack = append(stack, u)
			}
		}
		order = append(order, Step{Key: e, Arm: uint8(arm)})
	}

	return Result{Order: order, Unpeeled: n - len(order)}, nil
}

// liveContender returns the first contender not yet removed.
func liveContender(contenders []uint32, removed []uint64) (uint32, bool) {
	for _, e := range contenders {
		if removed[e/64]&(1<<(e%64)) == 0 {
			return e, true
		}
	}
	return 0, false
}
