// Package peelhash implements a minimal perfect hash function (MPHF) over
// 64-bit keys, built by peeling a random k-uniform hypergraph.
//
// Every key is hashed to k candidate slots, one in each of k segments of a
// table of about gamma*n slots. Peeling repeatedly removes a key that is
// alone in one of its slots; if every key can be removed, the slots are
// filled in reverse peel order so that the values stored in a key's k
// slots select the slot it was peeled from. A rank over the filled slots
// then maps that slot to a unique integer in [0, n). The stored values take
// 2 bits per slot for k = 2 or 3 and 3 bits for k = 4, plus an eighth of a
// bit per slot of rank samples.
//
// # Basic Usage
//
// Building a function:
//
//	f, err := peelhash.Construct(keys, peelhash.DefaultGamma)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rank := f.Query(keys[0]) // in [0, len(keys))
//
// Persisting and reopening it:
//
//	if err := f.WriteFile("keys.peel"); err != nil {
//	    log.Fatal(err)
//	}
//	g, err := peelhash.Open("keys.peel")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Close()
//
// Keys that are not 64-bit integers should be mapped with PreHash first.
// Querying a key that was not in the build set returns an arbitrary value.
//
// # Construction
//
// An attempt fails when peeling leaves a residual core. The build is then
// retried with the next seed, up to WithMaxRetries times, before returning a
// *errors.ResidualCoreError. With three arms (the default), construction
// succeeds with high probability for gamma above about 1.222; two arms need
// gamma above 2.
//
// # Package Structure
//
//   - Public API: builder.go (Construct), function.go (Query, SizeBits)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Construction phases: state.go (BuildState)
//   - Serialization: header.go, file.go (MarshalBinary, WriteFile, Open)
//   - Key hashing: prehash.go (PreHash)
//   - Hypergraph and peeling: internal/hypergraph
//   - Packed slot values and rank: internal/succinct, internal/bitpack
//   - Mixer and range mapping: internal/bits
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go
package peelhash
