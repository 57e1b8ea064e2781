package peelhash

import (
	"encoding/binary"
	"math"

	peelerrors "github.com/tamirms/peelhash/errors"
	"github.com/tamirms/peelhash/internal/hypergraph"
	"github.com/tamirms/peelhash/internal/succinct"
)

const (
	// magic number for peelhash files, "PEEL" in little-endian
	magic = uint32(0x4C454550)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (40 bytes)
	headerSize = 40

	// lengthPrefixSize is the size of each section length prefix
	lengthPrefixSize = 8

	// footerSize is the size of the xxHash64 footer
	footerSize = 8

	// minFileSize is a file with two empty sections.
	minFileSize = headerSize + 2*lengthPrefixSize + footerSize
)

// header is the 40-byte file header.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       4     Magic        0x4C454550 ("PEEL")
//	4       2     Version      0x0001
//	6       8     Gamma        float64 bits, le
//	14      2     Arity        uint16_le
//	16      8     Seed         uint64_le (seed of the successful attempt)
//	24      8     NumKeys      uint64_le
//	32      8     SegmentSize  uint64_le (slots per arm)
//
// The header is followed by [L uint64][packed array][R uint64][rank samples]
// and the footer, an xxHash64 of every preceding byte.
type header struct {
	Magic       uint32
	Version     uint16
	Gamma       float64
	Arity       uint16
	Seed        uint64
	NumKeys     uint64
	SegmentSize uint64
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint64(buf[6:14], math.Float64bits(h.Gamma))
	binary.LittleEndian.PutUint16(buf[14:16], h.Arity)
	binary.LittleEndian.PutUint64(buf[16:24], h.Seed)
	binary.LittleEndian.PutUint64(buf[24:32], h.NumKeys)
	binary.LittleEndian.PutUint64(buf[32:40], h.SegmentSize)
}

// decodeHeader parses a 40-byte header and checks it describes a geometry
// this version can build.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, peelerrors.ErrTruncatedFile
	}

	h := &header{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		Gamma:       math.Float64frombits(binary.LittleEndian.Uint64(buf[6:14])),
		Arity:       binary.LittleEndian.Uint16(buf[14:16]),
		Seed:        binary.LittleEndian.Uint64(buf[16:24]),
		NumKeys:     binary.LittleEndian.Uint64(buf[24:32]),
		SegmentSize: binary.LittleEndian.Uint64(buf[32:40]),
	}

	if h.Magic != magic {
		return nil, peelerrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, peelerrors.ErrInvalidVersion
	}
	if h.Arity < 2 || h.Arity > hypergraph.MaxArity {
		return nil, peelerrors.ErrCorruptedIndex
	}
	if math.IsNaN(h.Gamma) || math.IsInf(h.Gamma, 0) || h.Gamma <= 1.0 {
		return nil, peelerrors.ErrCorruptedIndex
	}
	if h.SegmentSize > succinct.MaxSlots/uint64(h.Arity) {
		return nil, peelerrors.ErrCorruptedIndex
	}
	if h.NumKeys > h.numSlots() || (h.NumKeys > 0) != (h.SegmentSize > 0) {
		return nil, peelerrors.ErrCorruptedIndex
	}

	return h, nil
}

func (h *header) numSlots() uint64 {
	return uint64(h.Arity) * h.SegmentSize
}

func (f *Function) fileHeader() header {
	return header{
		Magic:       magic,
		Version:     version,
		Gamma:       f.gamma,
		Arity:       uint16(f.hasher.Arity),
		Seed:        f.hasher.Seed,
		NumKeys:     f.numKeys,
		SegmentSize: f.hasher.SegmentSize,
	}
}
