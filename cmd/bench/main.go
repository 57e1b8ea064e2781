// Bench measures peelhash build time, lookup throughput, and bits per key.
//
// Usage:
//
//	go run ./cmd/bench -keys 33554432 -gamma 1.23
//
// Flags:
//
//	-keys      Number of keys (default: 2^25)
//	-gamma     Load factor (default: picked from -k)
//	-k         Hash arms per key, 2-4 (default: 3)
//	-workers   Goroutines for the hashing pre-pass (default: 1)
//	-seed      Construction seed (default: library default)
//	-hash      Key source: none (random uint64), xxh3 or murmur3 over "key-%d"
//	-out       Write the function to this path and query the mapped file
//	-compare   Also build boomphf and bbhash over the same keys
//	-debug     Log every construction attempt
//	-human     Console log output instead of JSON
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/dgryski/go-boomphf"
	"github.com/dustin/go-humanize"
	"github.com/relab/bbhash"
	"github.com/rs/zerolog"
	"github.com/spaolacci/murmur3"

	"github.com/tamirms/peelhash"
	"github.com/tamirms/peelhash/internal/logging"
)

// benchSeed seeds key generation and the lookup shuffle.
const benchSeed = 42

// sink keeps lookup results observable so the loop is not optimized away.
var sink uint64

// resolveGamma returns gamma, or the suggested load factor for arity when
// gamma is not set.
func resolveGamma(gamma float64, arity int) float64 {
	if gamma > 0 {
		return gamma
	}
	return peelhash.GammaFor(arity)
}

func main() {
	keysFlag := flag.Int("keys", 1<<25, "number of keys")
	gammaFlag := flag.Float64("gamma", 0, "load factor (slots per key); 0 picks one for -k")
	arityFlag := flag.Int("k", peelhash.DefaultArity, "hash arms per key (2-4)")
	workersFlag := flag.Int("workers", 1, "goroutines for the hashing pre-pass")
	seedFlag := flag.String("seed", "", "construction seed (decimal or 0x hex)")
	hashFlag := flag.String("hash", "none", "key source: none, xxh3 or murmur3")
	outFlag := flag.String("out", "", "write the function to this file and query the mapping")
	compareFlag := flag.Bool("compare", false, "also build boomphf and bbhash")
	debugFlag := flag.Bool("debug", false, "debug logging")
	humanFlag := flag.Bool("human", false, "human-friendly log output")
	flag.Parse()

	log := logging.New(os.Stderr, *debugFlag, *humanFlag)
	gamma := resolveGamma(*gammaFlag, *arityFlag)

	opts := []peelhash.BuildOption{
		peelhash.WithArity(*arityFlag),
		peelhash.WithWorkers(*workersFlag),
		peelhash.WithLogger(logging.WithPhase(log, "build")),
	}
	if *seedFlag != "" {
		seed, err := strconv.ParseUint(*seedFlag, 0, 64)
		if err != nil {
			log.Fatal().Err(err).Str("seed", *seedFlag).Msg("invalid seed")
		}
		opts = append(opts, peelhash.WithSeed(seed))
	}

	n := *keysFlag
	rng := rand.New(rand.NewPCG(benchSeed, benchSeed))
	keys, err := generateKeys(rng, n, *hashFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("generate keys")
	}
	fmt.Printf("Testing with %s keys...\n", humanize.Comma(int64(n)))

	buildStart := time.Now()
	f, err := peelhash.ConstructContext(context.Background(), keys, gamma, opts...)
	buildDuration := time.Since(buildStart)
	if err != nil {
		log.Fatal().Err(err).Msg("construct")
	}
	fmt.Printf("Build time:  %.3f s\n", buildDuration.Seconds())
	fmt.Printf("Build speed: %.2f million keys/s\n", float64(n)/buildDuration.Seconds()/1e6)

	if *outFlag != "" {
		f, err = reopen(f, *outFlag, log)
		if err != nil {
			log.Fatal().Err(err).Str("path", *outFlag).Msg("write and reopen")
		}
	}
	defer func() { _ = f.Close() }()

	// Shuffle so lookups do not walk the key array in build order.
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	lookupStart := time.Now()
	var sum uint64
	for _, k := range keys {
		sum += f.Query(k)
	}
	lookupDuration := time.Since(lookupStart)
	sink = sum

	fmt.Printf("Lookup time:  %.3f s\n", lookupDuration.Seconds())
	fmt.Printf("Lookup speed: %.2f million lookups/s\n", float64(n)/lookupDuration.Seconds()/1e6)
	fmt.Printf("Average latency: %.2f ns/key\n", float64(lookupDuration.Nanoseconds())/float64(n))
	fmt.Printf("Size: %.4f bits (%s)\n", f.BitsPerKey(), humanize.Bytes(f.SizeBits()/8))

	if *compareFlag {
		compare(keys, gamma, log)
	}
}

// generateKeys returns n keys. With source "none" the keys are random
// 64-bit values; otherwise they hash the strings "key-0", "key-1", ...
func generateKeys(rng *rand.Rand, n int, source string) ([]uint64, error) {
	keys := make([]uint64, n)
	switch source {
	case "none":
		for i := range keys {
			keys[i] = rng.Uint64()
		}
	case "xxh3":
		for i := range keys {
			keys[i] = peelhash.PreHash([]byte("key-" + strconv.Itoa(i)))
		}
	case "murmur3":
		for i := range keys {
			keys[i] = murmur3.Sum64([]byte("key-" + strconv.Itoa(i)))
		}
	default:
		return nil, fmt.Errorf("unknown key source %q (use none, xxh3 or murmur3)", source)
	}
	return keys, nil
}

// reopen writes f to path, closes it, and returns the memory-mapped copy.
func reopen(f *peelhash.Function, path string, log zerolog.Logger) (*peelhash.Function, error) {
	start := time.Now()
	if err := f.WriteFile(path); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	mapped, err := peelhash.Open(path)
	if err != nil {
		return nil, err
	}
	if err := mapped.Verify(); err != nil {
		return nil, fmt.Errorf("verify %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Dur("elapsed", time.Since(start)).
		Msg("function written and mapped")
	return mapped, nil
}

// compare builds the boomphf and bbhash baselines over the same keys.
// Both report 1-based indexes.
func compare(keys []uint64, gamma float64, log zerolog.Logger) {
	n := float64(len(keys))

	start := time.Now()
	boom := boomphf.New(gamma, keys)
	boomBuild := time.Since(start)
	start = time.Now()
	var sum uint64
	for _, k := range keys {
		sum += boom.Query(k) - 1
	}
	boomLookup := time.Since(start)
	sink += sum
	printBaseline("boomphf", boomBuild, boomLookup, n, float64(boom.Size()*8)/n)

	start = time.Now()
	bb, err := bbhash.New(keys, bbhash.Gamma(gamma))
	bbBuild := time.Since(start)
	if err != nil {
		log.Error().Err(err).Msg("bbhash build")
		return
	}
	start = time.Now()
	sum = 0
	for _, k := range keys {
		sum += bb.Find(k) - 1
	}
	bbLookup := time.Since(start)
	sink += sum

	data, err := bb.MarshalBinary()
	if err != nil {
		log.Error().Err(err).Msg("bbhash marshal")
		return
	}
	printBaseline("bbhash", bbBuild, bbLookup, n, float64(len(data)*8)/n)
}

func printBaseline(name string, build, lookup time.Duration, n, bitsPerKey float64) {
	fmt.Printf("%-8s build %.2f M keys/s, lookup %.2f ns/key, %.4f bits\n",
		name, n/build.Seconds()/1e6, float64(lookup.Nanoseconds())/n, bitsPerKey)
}
