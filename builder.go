package peelhash

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"

	peelerrors "github.com/tamirms/peelhash/errors"
	"github.com/tamirms/peelhash/internal/hypergraph"
	"github.com/tamirms/peelhash/internal/succinct"
)

// Construct builds a minimal perfect hash function over keys with gamma
// candidate slots per key. keys must be pairwise distinct; duplicates are
// reported as ErrDuplicateKey. The keys slice is not modified or retained.
func Construct(keys []uint64, gamma float64, opts ...BuildOption) (*Function, error) {
	return ConstructContext(context.Background(), keys, gamma, opts...)
}

// ConstructContext is Construct with cancellation. ctx is checked before
// every attempt and periodically while hashing and peeling.
func ConstructContext(ctx context.Context, keys []uint64, gamma float64, opts ...BuildOption) (*Function, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.maxRetries < 0 {
		cfg.maxRetries = 0
	}

	if math.IsNaN(gamma) || math.IsInf(gamma, 0) || gamma <= 1.0 {
		return nil, fmt.Errorf("%w: got %v", peelerrors.ErrInvalidGamma, gamma)
	}
	if cfg.arity < 2 || cfg.arity > hypergraph.MaxArity {
		return nil, fmt.Errorf("%w: %d (supported: 2-%d)", peelerrors.ErrInvalidArity, cfg.arity, hypergraph.MaxArity)
	}

	segmentSize, err := computeGeometry(uint64(len(keys)), gamma, cfg.arity)
	if err != nil {
		return nil, err
	}

	c := &construction{
		cfg:         cfg,
		keys:        keys,
		gamma:       gamma,
		segmentSize: segmentSize,
		state:       StateUnbuilt,
		log: cfg.logger.With().
			Int("keys", len(keys)).
			Float64("gamma", gamma).
			Int("arity", cfg.arity).
			Logger(),
	}
	return c.run(ctx)
}

// minSegmentSize applies to every set of two or more keys.
const minSegmentSize = 2

// computeGeometry returns the per-arm segment size for n keys. All limits
// are checked here so that nothing is allocated for an oversized build.
//
// Limits: n fits in a uint32 key id, n*arity fits in the uint32 offsets of
// the slot multi-map, and every slot id plus one fits a uint32.
func computeGeometry(n uint64, gamma float64, arity int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d keys (max %d)", peelerrors.ErrCapacityOverflow, n, uint64(math.MaxUint32))
	}
	if n*uint64(arity) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d keys with %d arms exceed %d slot references",
			peelerrors.ErrCapacityOverflow, n, arity, uint64(math.MaxUint32))
	}

	m := math.Ceil(gamma * float64(n))
	if m > float64(succinct.MaxSlots) {
		return 0, fmt.Errorf("%w: %.0f slots (max %d)", peelerrors.ErrCapacityOverflow, m, succinct.MaxSlots)
	}
	a := uint64(arity)
	segmentSize := (uint64(m) + a - 1) / a
	if n > 1 && segmentSize < minSegmentSize {
		// With one slot per arm every key shares the same edge.
		segmentSize = minSegmentSize
	}
	if segmentSize*a > succinct.MaxSlots {
		return 0, fmt.Errorf("%w: %d slots (max %d)", peelerrors.ErrCapacityOverflow, segmentSize*a, succinct.MaxSlots)
	}
	return segmentSize, nil
}

// construction holds the state of one Construct call across its attempts.
type construction struct {
	cfg         *buildConfig
	keys        []uint64
	gamma       float64
	segmentSize uint64

	state   BuildState
	attempt int
	log     zerolog.Logger
}

func (c *construction) fail(err error) (*Function, error) {
	c.transition(StateFailed)
	c.log.Debug().Err(err).Int("attempt", c.attempt).Msg("construction failed")
	return nil, err
}

func (c *construction) run(ctx context.Context) (*Function, error) {
	duplicatesChecked := false
	if c.cfg.checkDuplicates {
		duplicatesChecked = true
		if hasDuplicates(c.keys) {
			return c.fail(fmt.Errorf("%w: found by up-front scan", peelerrors.ErrDuplicateKey))
		}
	}

	unpeeled := 0
	for c.attempt = 0; c.attempt <= c.cfg.maxRetries; c.attempt++ {
		if err := ctx.Err(); err != nil {
			return c.fail(err)
		}

		h := hypergraph.Hasher{
			Seed:        c.cfg.seed + uint64(c.attempt),
			SegmentSize: c.segmentSize,
			Arity:       c.cfg.arity,
		}

		c.transition(StateAssigning)
		g, err := hypergraph.Assign(ctx, c.keys, h, c.cfg.workers)
		if err != nil {
			return c.fail(err)
		}

		c.transition(StatePeeling)
		res, err := hypergraph.Peel(ctx, g)
		if err != nil {
			return c.fail(fmt.Errorf("peel: %w", err))
		}

		if res.Peeled() {
			c.transition(StatePeeled)
			c.transition(StateFinalizing)
			fn, err := c.finalize(g, res)
			if err != nil {
				return c.fail(err)
			}
			c.transition(StateBuilt)
			c.log.Debug().
				Int("attempt", c.attempt).
				Uint64("seed", h.Seed).
				Uint64("size_bits", fn.SizeBits()).
				Msg("construction complete")
			return fn, nil
		}

		c.transition(StateResidual)
		unpeeled = res.Unpeeled
		c.log.Debug().
			Int("attempt", c.attempt).
			Uint64("seed", h.Seed).
			Int("unpeeled", unpeeled).
			Msg("residual core, retrying")

		// Duplicate keys share every slot and can never peel.
		if !duplicatesChecked {
			duplicatesChecked = true
			if hasDuplicates(c.keys) {
				return c.fail(fmt.Errorf("%w: found after attempt %d left %d keys unpeeled",
					peelerrors.ErrDuplicateKey, c.attempt, unpeeled))
			}
		}
	}

	return c.fail(&peelerrors.ResidualCoreError{
		Unpeeled: unpeeled,
		Attempts: c.cfg.maxRetries + 1,
		Gamma:    c.gamma,
	})
}

// finalize walks the peel order backwards. Every slot a key was peeled from
// is written exactly once, and all other slots of that key already hold
// their final values, so the stored value makes the arm sum select it.
func (c *construction) finalize(g *hypergraph.Graph, res hypergraph.Result) (*Function, error) {
	k := uint64(g.Arity())
	b := succinct.NewBuilder(g.Arity(), g.NumSlots())

	for i := len(res.Order) - 1; i >= 0; i-- {
		st := res.Order[i]
		edge := g.Edge(st.Key)
		var sum uint64
		for j, v := range edge {
			if j != int(st.Arm) {
				sum += b.Value(uint64(v))
			}
		}
		b.Set(uint64(edge[st.Arm]), (uint64(st.Arm)+k-sum%k)%k)
	}

	s, err := b.Finish()
	if err != nil {
		return nil, err
	}
	return &Function{
		gamma:   c.gamma,
		numKeys: uint64(len(c.keys)),
		hasher:  g.Hasher(),
		rank:    s,
	}, nil
}

// hasDuplicates sorts a copy of keys and scans for equal neighbours.
func hasDuplicates(keys []uint64) bool {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}
