// Package bitpack provides a fixed-size bit array over a little-endian byte
// buffer, with reads and writes of arbitrary bit ranges up to 64 bits wide.
//
// The buffer is always a whole number of 64-bit words so that a Vector can
// be backed directly by a memory-mapped file without copying.
package bitpack

import "encoding/binary"

const (
	bitsPerWord  = 64
	bytesPerWord = 8
)

// Vector is a bit array. The zero value is an empty vector.
// A Vector is a view: copies share the underlying buffer.
type Vector struct {
	buf []byte
}

// New allocates a zeroed vector of numWords words.
func New(numWords uint64) Vector {
	return Vector{buf: make([]byte, numWords*bytesPerWord)}
}

// FromBytes wraps buf without copying. It reports false if len(buf) is not
// a multiple of the word size.
func FromBytes(buf []byte) (Vector, bool) {
	if len(buf)%bytesPerWord != 0 {
		return Vector{}, false
	}
	return Vector{buf: buf}, true
}

// Bytes returns the backing buffer.
func (v Vector) Bytes() []byte {
	return v.buf
}

// NumWords returns the vector length in 64-bit words.
func (v Vector) NumWords() uint64 {
	return uint64(len(v.buf) / bytesPerWord)
}

// Word returns the i-th 64-bit word.
func (v Vector) Word(i uint64) uint64 {
	return binary.LittleEndian.Uint64(v.buf[i*bytesPerWord:])
}

// SetWord overwrites the i-th 64-bit word.
func (v Vector) SetWord(i uint64, w uint64) {
	binary.LittleEndian.PutUint64(v.buf[i*bytesPerWord:], w)
}

func mask(width uint) uint64 {
	if width >= bitsPerWord {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Get reads width bits (1..64) starting at bit position pos. The range may
// straddle a word boundary.
func (v Vector) Get(pos uint64, width uint) uint64 {
	wordIdx := pos / bitsPerWord
	off := uint(pos % bitsPerWord)

	val := v.Word(wordIdx) >> off
	if off+width > bitsPerWord {
		val |= v.Word(wordIdx+1) << (bitsPerWord - off)
	}
	return val & mask(width)
}

// Set writes the low width bits (1..64) of val starting at bit position pos.
func (v Vector) Set(pos uint64, width uint, val uint64) {
	m := mask(width)
	val &= m

	wordIdx := pos / bitsPerWord
	off := uint(pos % bitsPerWord)

	w := v.Word(wordIdx)
	w = (w &^ (m << off)) | (val << off)
	v.SetWord(wordIdx, w)

	if off+width > bitsPerWord {
		spill := bitsPerWord - off
		next := v.Word(wordIdx + 1)
		next = (next &^ (m >> spill)) | (val >> spill)
		v.SetWord(wordIdx+1, next)
	}
}

// Fill sets every word to pattern.
func (v Vector) Fill(pattern uint64) {
	for i := range v.NumWords() {
		v.SetWord(i, pattern)
	}
}
