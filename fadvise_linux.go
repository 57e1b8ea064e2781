//go:build linux

package peelhash

import "golang.org/x/sys/unix"

// fadviseRandom hints to the kernel that the file will be read at random
// offsets. Applied before a function file is mapped for queries.
// Best-effort: errors are silently ignored.
func fadviseRandom(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_RANDOM)
}
