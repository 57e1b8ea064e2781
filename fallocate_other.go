//go:build !linux && !darwin

package peelhash

import "os"

// fallocateFile sizes the output file. Without a native fallocate this only
// sets the length; blocks may still be allocated lazily.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
