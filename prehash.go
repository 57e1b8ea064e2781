package peelhash

import "github.com/zeebo/xxh3"

// PreHash applies 64-bit xxHash3 to a key.
//
// Use this function when keys are not already 64-bit integers (strings,
// URLs, file paths, serialized records). Construction only needs the keys
// to be distinct; the slot mixer takes care of distribution, so integer
// keys, sequential ones included, can be passed as they are.
//
// Querying: if you prehash keys during build, you must also prehash during
// query:
//
//	keys := make([]uint64, len(words))
//	for i, w := range words {
//	    keys[i] = peelhash.PreHash([]byte(w))
//	}
//	f, err := peelhash.Construct(keys, peelhash.DefaultGamma)
//	...
//	rank := f.Query(peelhash.PreHash([]byte("mykey")))
//
// Two distinct inputs collide with probability about n²/2⁶⁵; a collision
// surfaces as ErrDuplicateKey.
func PreHash(key []byte) uint64 {
	return xxh3.Hash(key)
}

// PreHashSeeded is PreHash with a caller-chosen seed. Rebuilding with a
// different seed resolves the rare 64-bit collision.
func PreHashSeeded(key []byte, seed uint64) uint64 {
	return xxh3.HashSeed(key, seed)
}
