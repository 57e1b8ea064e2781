// Package succinct implements the rank structure that turns a peeled
// hypergraph into a minimal perfect hash.
//
// Each slot holds a small value: the index of the arm that owns the slot, or
// an all-ones marker for slots no key was peeled from. Values are packed
// into 64-bit words without straddling (64/width fields per word). A uint32
// sample every samplingWords words records how many assigned slots precede
// it, so the rank of any slot costs one sample read plus at most
// samplingWords popcounts.
package succinct

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	peelerrors "github.com/tamirms/peelhash/errors"
	"github.com/tamirms/peelhash/internal/bitpack"
)

const (
	// samplingWords is the number of packed words covered by one rank sample.
	samplingWords = 8

	// sampleSize is the size of one rank sample in bytes.
	sampleSize = 4

	// MaxSlots is the largest slot count for which every slot id and the
	// id one past it fit in a uint32.
	MaxSlots = uint64(1)<<32 - 1
)

// Layout is the packing geometry derived from the arity and slot count.
type Layout struct {
	Arity         int
	NumSlots      uint64
	Width         uint   // bits per slot
	FieldsPerWord uint64 // slots per 64-bit word
	Marker        uint64 // all-ones value of Width bits
	lowMask       uint64 // bit 0 of every field in a word
}

// NewLayout computes the geometry for arity arms over numSlots slots.
// arity must be at least 2.
func NewLayout(arity int, numSlots uint64) Layout {
	width := uint(bits.Len(uint(arity)))
	fpw := uint64(64 / width)
	var low uint64
	for i := range fpw {
		low |= 1 << (i * uint64(width))
	}
	return Layout{
		Arity:         arity,
		NumSlots:      numSlots,
		Width:         width,
		FieldsPerWord: fpw,
		Marker:        (uint64(1) << width) - 1,
		lowMask:       low,
	}
}

// NumWords returns the packed array length in words.
func (l Layout) NumWords() uint64 {
	return (l.NumSlots + l.FieldsPerWord - 1) / l.FieldsPerWord
}

// NumSamples returns the number of rank samples.
func (l Layout) NumSamples() uint64 {
	return (l.NumWords() + samplingWords - 1) / samplingWords
}

// VectorBytes returns the packed array size in bytes.
func (l Layout) VectorBytes() uint64 {
	return l.NumWords() * 8
}

// SampleBytes returns the rank sample array size in bytes.
func (l Layout) SampleBytes() uint64 {
	return l.NumSamples() * sampleSize
}

func (l Layout) bitPos(slot uint64) uint64 {
	return (slot/l.FieldsPerWord)*64 + (slot%l.FieldsPerWord)*uint64(l.Width)
}

// markers counts the fields of w that hold the marker, restricted to fields
// selected by low.
func (l Layout) markers(w, low uint64) uint64 {
	all := w
	for i := uint(1); i < l.Width; i++ {
		all &= w >> i
	}
	return uint64(bits.OnesCount64(all & low))
}

// Builder accumulates slot values. It is consumed by Finish.
type Builder struct {
	layout Layout
	vec    bitpack.Vector
	done   bool
}

// NewBuilder returns a builder with every slot unassigned.
func NewBuilder(arity int, numSlots uint64) *Builder {
	l := NewLayout(arity, numSlots)
	vec := bitpack.New(l.NumWords())
	vec.Fill(l.lowMask * l.Marker)
	return &Builder{layout: l, vec: vec}
}

// Set assigns value (0..arity-1) to slot. Panics after Finish.
func (b *Builder) Set(slot, value uint64) {
	if b.done {
		panic("succinct: Set called on a finished builder")
	}
	b.vec.Set(b.layout.bitPos(slot), b.layout.Width, value)
}

// Value returns the value at slot, reading unassigned slots as zero.
func (b *Builder) Value(slot uint64) uint64 {
	v := b.vec.Get(b.layout.bitPos(slot), b.layout.Width)
	if v == b.layout.Marker {
		return 0
	}
	return v
}

// Finish computes the rank samples and hands the packed array to an
// immutable Structure. The builder cannot be used afterwards.
func (b *Builder) Finish() (*Structure, error) {
	if b.done {
		return nil, peelerrors.ErrBuilderFinished
	}
	b.done = true

	l := b.layout
	samples := make([]byte, l.SampleBytes())
	var count uint64
	for w := range l.NumWords() {
		if w%samplingWords == 0 {
			binary.LittleEndian.PutUint32(samples[(w/samplingWords)*sampleSize:], uint32(count))
		}
		count += l.FieldsPerWord - l.markers(b.vec.Word(w), l.lowMask)
	}

	s := &Structure{layout: l, vec: b.vec, samples: samples}
	b.vec = bitpack.Vector{}
	return s, nil
}

// Structure is the immutable, queryable rank structure. It is safe for
// concurrent use.
type Structure struct {
	layout  Layout
	vec     bitpack.Vector
	samples []byte
}

// FromBytes wraps serialized arrays without copying. The sizes must match
// the layout for arity and numSlots exactly.
func FromBytes(arity int, numSlots uint64, vector, samples []byte) (*Structure, error) {
	l := NewLayout(arity, numSlots)
	if uint64(len(vector)) != l.VectorBytes() {
		return nil, fmt.Errorf("%w: packed array is %d bytes, want %d",
			peelerrors.ErrCorruptedIndex, len(vector), l.VectorBytes())
	}
	if uint64(len(samples)) != l.SampleBytes() {
		return nil, fmt.Errorf("%w: rank samples are %d bytes, want %d",
			peelerrors.ErrCorruptedIndex, len(samples), l.SampleBytes())
	}
	vec, ok := bitpack.FromBytes(vector)
	if !ok {
		return nil, fmt.Errorf("%w: packed array is not word aligned", peelerrors.ErrCorruptedIndex)
	}
	return &Structure{layout: l, vec: vec, samples: samples}, nil
}

// Value returns the arm selector stored at slot; unassigned slots read as zero.
func (s *Structure) Value(slot uint64) uint64 {
	v := s.vec.Get(s.layout.bitPos(slot), s.layout.Width)
	if v == s.layout.Marker {
		return 0
	}
	return v
}

// Assigned reports whether a key was peeled from slot.
func (s *Structure) Assigned(slot uint64) bool {
	return s.vec.Get(s.layout.bitPos(slot), s.layout.Width) != s.layout.Marker
}

// Rank returns the number of assigned slots strictly before slot.
func (s *Structure) Rank(slot uint64) uint64 {
	l := s.layout
	wordIdx := slot / l.FieldsPerWord
	field := slot % l.FieldsPerWord
	sampleIdx := wordIdx / samplingWords

	r := uint64(binary.LittleEndian.Uint32(s.samples[sampleIdx*sampleSize:]))
	for w := sampleIdx * samplingWords; w < wordIdx; w++ {
		r += l.FieldsPerWord - l.markers(s.vec.Word(w), l.lowMask)
	}
	if field > 0 {
		partial := l.lowMask & ((uint64(1) << (field * uint64(l.Width))) - 1)
		r += field - l.markers(s.vec.Word(wordIdx), partial)
	}
	return r
}

// NumAssigned returns the total number of assigned slots.
func (s *Structure) NumAssigned() uint64 {
	if s.layout.NumSlots == 0 {
		return 0
	}
	return s.Rank(s.layout.NumSlots-1) + boolToUint(s.Assigned(s.layout.NumSlots-1))
}

// SizeBits returns the footprint of the packed array and rank samples.
func (s *Structure) SizeBits() uint64 {
	return uint64(len(s.vec.Bytes())+len(s.samples)) * 8
}

// VectorBytes returns the packed array as stored.
func (s *Structure) VectorBytes() []byte {
	return s.vec.Bytes()
}

// SampleBytes returns the rank samples as stored.
func (s *Structure) SampleBytes() []byte {
	return s.samples
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
