//go:build linux

package peelhash

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE was added in Linux 5.14.
const madvPopulateWrite = 23

// prefaultRegion populates the pages of a freshly mapped output file before
// it is written. On kernels older than 5.14 madvise returns EINVAL, which is
// ignored along with any other failure.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
