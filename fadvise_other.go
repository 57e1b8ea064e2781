//go:build !linux

package peelhash

// fadviseRandom is a no-op on non-Linux platforms.
func fadviseRandom(fd int, offset, length int64) {}
