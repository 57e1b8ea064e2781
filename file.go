package peelhash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	peelerrors "github.com/tamirms/peelhash/errors"
	"github.com/tamirms/peelhash/internal/hypergraph"
	"github.com/tamirms/peelhash/internal/succinct"
)

// encodedSize returns the serialized size in bytes.
func (f *Function) encodedSize() int {
	return headerSize +
		lengthPrefixSize + len(f.rank.VectorBytes()) +
		lengthPrefixSize + len(f.rank.SampleBytes()) +
		footerSize
}

// encodeInto writes the full serialized form, footer included, to buf.
// buf must be exactly encodedSize bytes.
func (f *Function) encodeInto(buf []byte) {
	hdr := f.fileHeader()
	hdr.encodeTo(buf[:headerSize])

	off := headerSize
	for _, section := range [][]byte{f.rank.VectorBytes(), f.rank.SampleBytes()} {
		binary.LittleEndian.PutUint64(buf[off:], uint64(len(section)))
		off += lengthPrefixSize
		off += copy(buf[off:], section)
	}
	binary.LittleEndian.PutUint64(buf[off:], xxhash.Sum64(buf[:off]))
}

// MarshalBinary returns the serialized function.
func (f *Function) MarshalBinary() ([]byte, error) {
	if f.closed.Load() {
		return nil, peelerrors.ErrIndexClosed
	}
	buf := make([]byte, f.encodedSize())
	f.encodeInto(buf)
	return buf, nil
}

// WriteTo streams the serialized function to w.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	if f.closed.Load() {
		return 0, peelerrors.ErrIndexClosed
	}

	digest := xxhash.New()
	mw := io.MultiWriter(w, digest)
	var written int64
	write := func(p []byte) error {
		n, err := mw.Write(p)
		written += int64(n)
		return err
	}

	var buf [headerSize]byte
	hdr := f.fileHeader()
	hdr.encodeTo(buf[:])
	if err := write(buf[:]); err != nil {
		return written, fmt.Errorf("write header: %w", err)
	}

	var prefix [lengthPrefixSize]byte
	for _, section := range [][]byte{f.rank.VectorBytes(), f.rank.SampleBytes()} {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(section)))
		if err := write(prefix[:]); err != nil {
			return written, fmt.Errorf("write section length: %w", err)
		}
		if err := write(section); err != nil {
			return written, fmt.Errorf("write section: %w", err)
		}
	}

	var footer [footerSize]byte
	binary.LittleEndian.PutUint64(footer[:], digest.Sum64())
	n, err := w.Write(footer[:])
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("write footer: %w", err)
	}
	return written, nil
}

// WriteFile writes the serialized function to path through a read-write
// memory mapping. The file is pre-allocated first so that a full disk
// fails here instead of faulting on a mapped write.
func (f *Function) WriteFile(path string) error {
	if f.closed.Load() {
		return peelerrors.ErrIndexClosed
	}
	size := f.encodedSize()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create function file: %w", err)
	}

	if err := fallocateFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("allocate disk space: %w", err)
		return errors.Join(primaryErr, file.Close())
	}

	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap function file: %w", err)
		return errors.Join(primaryErr, file.Close())
	}
	prefaultRegion(mm)

	f.encodeInto(mm)

	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), file.Close())
	}
	if err := mm.Unmap(); err != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", err)
		return errors.Join(primaryErr, file.Close())
	}
	return file.Close()
}

// Open opens a function file for querying.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Function, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open function file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a function by memory-mapping the given file. Queries read
// the mapping directly. The caller is responsible for closing file; it may
// be closed as soon as OpenFile returns.
func OpenFile(file *os.File) (*Function, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat function file: %w", err)
	}
	if stat.Size() < minFileSize {
		return nil, peelerrors.ErrTruncatedFile
	}

	// Queries touch a few scattered words, so readahead is wasted.
	fadviseRandom(int(file.Fd()), 0, stat.Size())

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap function file: %w", err)
	}

	f, err := decode(mm)
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	f.mmap = mm
	return f, nil
}

// OpenBytes decodes a function from an in-memory buffer without copying.
// The caller must not modify data while the function is in use. Close is a
// no-op apart from marking the function closed.
func OpenBytes(data []byte) (*Function, error) {
	if len(data) < minFileSize {
		return nil, peelerrors.ErrTruncatedFile
	}
	return decode(data)
}

// decode parses the header and section lengths. The footer is only read by
// Verify; opening touches the header and the tail of the rank samples.
func decode(data []byte) (*Function, error) {
	hdr, err := decodeHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}

	end := uint64(len(data)) - footerSize
	off := uint64(headerSize)
	var sections [2][]byte
	for i := range sections {
		if off+lengthPrefixSize > end {
			return nil, peelerrors.ErrTruncatedFile
		}
		n := binary.LittleEndian.Uint64(data[off:])
		off += lengthPrefixSize
		if n > end-off {
			return nil, peelerrors.ErrTruncatedFile
		}
		sections[i] = data[off : off+n]
		off += n
	}
	if off != end {
		return nil, fmt.Errorf("%w: %d trailing bytes before footer", peelerrors.ErrCorruptedIndex, end-off)
	}

	rank, err := succinct.FromBytes(int(hdr.Arity), hdr.numSlots(), sections[0], sections[1])
	if err != nil {
		return nil, err
	}
	if rank.NumAssigned() != hdr.NumKeys {
		return nil, fmt.Errorf("%w: %d assigned slots for %d keys",
			peelerrors.ErrCorruptedIndex, rank.NumAssigned(), hdr.NumKeys)
	}

	return &Function{
		gamma:   hdr.Gamma,
		numKeys: hdr.NumKeys,
		hasher: hypergraph.Hasher{
			Seed:        hdr.Seed,
			SegmentSize: hdr.SegmentSize,
			Arity:       int(hdr.Arity),
		},
		rank: rank,
		data: data,
	}, nil
}

// Verify recomputes the footer checksum over the serialized bytes backing
// f. A function built in memory has no backing bytes and always verifies.
func (f *Function) Verify() error {
	if f.closed.Load() {
		return peelerrors.ErrIndexClosed
	}
	if f.data == nil {
		return nil
	}

	body := f.data[:len(f.data)-footerSize]
	want := binary.LittleEndian.Uint64(f.data[len(f.data)-footerSize:])
	if xxhash.Sum64(body) != want {
		return peelerrors.ErrChecksumFailed
	}
	return nil
}

// Close releases the memory mapping, if any. Close is idempotent.
func (f *Function) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.mmap != nil {
		return f.mmap.Unmap()
	}
	return nil
}

// GetStats returns statistics for a function file.
func GetStats(path string) (*Stats, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	return f.Stats(), f.Close()
}
