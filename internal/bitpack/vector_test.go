package bitpack

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:])))
}

func TestFromBytes(t *testing.T) {
	_, ok := FromBytes(make([]byte, 7))
	require.False(t, ok)

	buf := make([]byte, 16)
	v, ok := FromBytes(buf)
	require.True(t, ok)
	require.Equal(t, uint64(2), v.NumWords())

	v.SetWord(1, 0xAABB)
	require.Equal(t, uint64(0xAABB), binary.LittleEndian.Uint64(buf[8:]), "FromBytes must not copy")
}

func TestGetSetStraddle(t *testing.T) {
	v := New(2)
	v.Set(60, 8, 0xFF)
	require.Equal(t, uint64(0xF)<<60, v.Word(0))
	require.Equal(t, uint64(0xF), v.Word(1))
	require.Equal(t, uint64(0xFF), v.Get(60, 8))

	v.Set(60, 8, 0x5A)
	require.Equal(t, uint64(0x5A), v.Get(60, 8))
	require.Equal(t, uint64(0), v.Get(0, 60), "low bits must be untouched")
	require.Equal(t, uint64(0), v.Get(68, 60), "high bits must be untouched")
}

func TestGetSetFullWidth(t *testing.T) {
	v := New(3)
	v.Set(0, 64, ^uint64(0))
	require.Equal(t, ^uint64(0), v.Get(0, 64))

	v.Set(64+13, 64, 0x0123456789ABCDEF)
	require.Equal(t, uint64(0x0123456789ABCDEF), v.Get(64+13, 64))
	require.Equal(t, ^uint64(0), v.Word(0))
}

func TestSetMasksValue(t *testing.T) {
	v := New(1)
	v.Set(4, 3, 0xFF)
	require.Equal(t, uint64(7), v.Get(4, 3))
	require.Equal(t, uint64(7)<<4, v.Word(0))
}

// TestRandomAgainstReference writes random fields of random widths into a
// vector and into a plain bool slice, then compares every bit.
func TestRandomAgainstReference(t *testing.T) {
	rng := newTestRNG(t)
	const numWords = 16
	v := New(numWords)
	ref := make([]bool, numWords*64)

	for i := 0; i < 5000; i++ {
		width := uint(rng.IntN(64) + 1)
		pos := rng.Uint64N(uint64(len(ref)) - uint64(width) + 1)
		val := rng.Uint64()

		v.Set(pos, width, val)
		for b := uint(0); b < width; b++ {
			ref[pos+uint64(b)] = (val>>b)&1 == 1
		}

		got := v.Get(pos, width)
		require.Equal(t, val&mask(width), got, "iter %d pos %d width %d", i, pos, width)
	}

	for i, want := range ref {
		require.Equal(t, want, v.Get(uint64(i), 1) == 1, "bit %d", i)
	}
}

func TestFill(t *testing.T) {
	v := New(4)
	v.Fill(0x5555555555555555)
	for i := range v.NumWords() {
		require.Equal(t, uint64(0x5555555555555555), v.Word(i))
	}
}
