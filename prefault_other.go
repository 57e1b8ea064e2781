//go:build !linux

package peelhash

// prefaultRegion is a no-op on non-Linux platforms.
func prefaultRegion(data []byte) {}
