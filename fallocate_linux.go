//go:build linux

package peelhash

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for file so that writes through a
// shared mapping cannot hit SIGBUS on a full disk.
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	if err := unix.Fallocate(fd, 0, 0, size); err != nil {
		// NFS and some other filesystems do not support fallocate.
		return unix.Ftruncate(fd, size)
	}
	return unix.Ftruncate(fd, size)
}
