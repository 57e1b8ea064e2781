package peelhash

import "github.com/rs/zerolog"

const (
	// DefaultArity is the number of hash arms per key. Three arms peel
	// reliably at gamma just above 1.22.
	DefaultArity = 3

	// DefaultGamma is a load factor that builds reliably with DefaultArity.
	DefaultGamma = 1.23

	// defaultMaxRetries bounds the number of reseeded attempts after the first.
	defaultMaxRetries = 100

	// defaultSeed is arbitrary; overridden via WithSeed.
	defaultSeed = 0x1234567890abcdef
)

// BuildOption is a functional option for configuring construction.
type BuildOption func(*buildConfig)

type buildConfig struct {
	arity           int
	seed            uint64
	maxRetries      int
	workers         int
	checkDuplicates bool
	logger          zerolog.Logger

	// onTransition observes state changes; only set by tests.
	onTransition func(from, to BuildState)
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		arity:      DefaultArity,
		seed:       defaultSeed,
		maxRetries: defaultMaxRetries,
		workers:    1,
		logger:     zerolog.Nop(),
	}
}

// GammaFor returns a load factor comfortably above the peeling threshold
// for k arms. Unsupported arities get DefaultGamma; Construct rejects them.
func GammaFor(k int) float64 {
	switch k {
	case 2:
		return 2.5
	case 4:
		return 1.35
	default:
		return DefaultGamma
	}
}

// WithArity sets the number of candidate slots per key (2, 3 or 4).
// Two arms need gamma above 2.0; three arms need gamma above about 1.22;
// four arms need gamma above about 1.30 but cost one more bit per slot.
func WithArity(k int) BuildOption {
	return func(c *buildConfig) {
		c.arity = k
	}
}

// WithSeed sets the seed of the first attempt. Attempt i uses seed+i.
func WithSeed(seed uint64) BuildOption {
	return func(c *buildConfig) {
		c.seed = seed
	}
}

// WithMaxRetries sets how many reseeded attempts may follow a failed first
// attempt. Zero means a single attempt.
func WithMaxRetries(n int) BuildOption {
	return func(c *buildConfig) {
		c.maxRetries = n
	}
}

// WithWorkers sets the number of goroutines used to hash keys into slots.
// Peeling itself is always sequential.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithDuplicateCheck enables an up-front O(n log n) duplicate scan.
// Without it, duplicates are still detected after the first failed attempt.
func WithDuplicateCheck(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.checkDuplicates = enabled
	}
}

// WithLogger sets the logger for construction progress. Events are emitted
// at debug level. The default logger discards everything.
func WithLogger(l zerolog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = l
	}
}
