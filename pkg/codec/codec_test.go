package codec

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack(t *testing.T) {
	tests := []struct {
		name string
		vals [GroupSamples]uint16
		want Group
	}{
		{
			name: "all zero",
			vals: [GroupSamples]uint16{0, 0, 0, 0},
			want: Group{0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "all ones",
			vals: [GroupSamples]uint16{1023, 1023, 1023, 1023},
			want: Group{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name: "alternating",
			vals: [GroupSamples]uint16{1023, 0, 1023, 0},
			want: Group{0xFF, 0xC0, 0x0F, 0xFC, 0x00},
		},
		{
			name: "small values",
			vals: [GroupSamples]uint16{1, 2, 3, 4},
			want: Group{0x00, 0x40, 0x20, 0x0C, 0x04},
		},
		{
			name: "values are masked to 10 bits",
			vals: [GroupSamples]uint16{0xFC01, 2, 3, 4},
			want: Group{0x00, 0x40, 0x20, 0x0C, 0x04},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pack(tt.vals)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroup_Unpack(t *testing.T) {
	g := Group{0x00, 0x40, 0x20, 0x0C, 0x04}
	assert.Equal(t, [GroupSamples]uint16{1, 2, 3, 4}, g.Unpack())

	vals := [GroupSamples]uint16{512, 1023, 7, 300}
	assert.Equal(t, vals, Pack(vals).Unpack())
}

func TestGroup_IsErased(t *testing.T) {
	assert.True(t, Group{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}.IsErased())
	assert.False(t, Group{0xFF, 0xFF, 0xFF, 0xFF, 0xFE}.IsErased())
	assert.False(t, Group{}.IsErased())
}

func TestEncoder_EmitsEveryFourth(t *testing.T) {
	var e Encoder

	for i := range 3 {
		_, ok := e.Encode(uint16(i + 1))
		assert.False(t, ok)
		assert.Equal(t, i+1, e.Pending())
	}

	g, ok := e.Encode(4)
	require.True(t, ok)
	assert.Equal(t, Group{0x00, 0x40, 0x20, 0x0C, 0x04}, g)
	assert.Equal(t, 0, e.Pending())

	// Accumulator restarts cleanly after emitting.
	for _, v := range []uint16{1, 2, 3} {
		_, ok := e.Encode(v)
		assert.False(t, ok)
	}
	g, ok = e.Encode(4)
	require.True(t, ok)
	assert.Equal(t, Group{0x00, 0x40, 0x20, 0x0C, 0x04}, g)
}

func TestEncoder_Reset(t *testing.T) {
	var e Encoder
	e.Encode(1023)
	e.Encode(1023)
	e.Reset()
	assert.Equal(t, 0, e.Pending())

	for _, v := range []uint16{1, 2, 3} {
		e.Encode(v)
	}
	g, ok := e.Encode(4)
	require.True(t, ok)
	assert.Equal(t, [GroupSamples]uint16{1, 2, 3, 4}, g.Unpack())
}

// encodeAll runs vals through an Encoder and pads the stream with one erased group.
func encodeAll(vals []uint16) []byte {
	var e Encoder
	var buf bytes.Buffer
	for _, v := range vals {
		if g, ok := e.Encode(v); ok {
			buf.Write(g[:])
		}
	}
	buf.Write(bytes.Repeat([]byte{ErasedByte}, GroupSize))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, n := range []int{0, 1, 3, 4, 5, 8, 13, 100, 1001} {
		vals := make([]uint16, n)
		for i := range vals {
			// Stay below 1023 so no reading collides with the erased pattern.
			vals[i] = uint16(rng.IntN(SampleMask))
		}

		data := encodeAll(vals)
		d := NewDecoder(bytes.NewReader(data), int64(len(data)))
		got := slices.Collect(d.Values())
		require.NoError(t, d.Err())

		full := GroupSamples * (n / GroupSamples)
		if full == 0 {
			assert.Empty(t, got, "n=%d", n)
			continue
		}
		assert.Equal(t, vals[:full], got, "n=%d", n)
	}
}

func TestDecoder_StopsAtErasedGroup(t *testing.T) {
	g1 := Pack([GroupSamples]uint16{1, 2, 3, 4})
	g2 := Pack([GroupSamples]uint16{5, 6, 7, 8})
	var data []byte
	data = append(data, g1[:]...)
	data = append(data, bytes.Repeat([]byte{ErasedByte}, GroupSize)...)
	data = append(data, g2[:]...)

	d := NewDecoder(bytes.NewReader(data), int64(len(data)))
	assert.Equal(t, []uint16{1, 2, 3, 4}, slices.Collect(d.Values()))
}

func TestDecoder_StopsAtRegionEnd(t *testing.T) {
	g1 := Pack([GroupSamples]uint16{1, 2, 3, 4})
	// Region size is not a multiple of the group size; the tail is ignored.
	data := append(g1[:], 0x00, 0x00)

	d := NewDecoder(bytes.NewReader(data), int64(len(data)))
	assert.Equal(t, []uint16{1, 2, 3, 4}, slices.Collect(d.Values()))
	assert.NoError(t, d.Err())
}

func TestDecoder_Sentinel(t *testing.T) {
	tests := []struct {
		name   string
		groups [][GroupSamples]uint16
		want   []uint16
	}{
		{
			name:   "single full-scale reading is data",
			groups: [][GroupSamples]uint16{{1, 1023, 2, 3}},
			want:   []uint16{1, 1023, 2, 3},
		},
		{
			name:   "two consecutive full-scale readings end the log",
			groups: [][GroupSamples]uint16{{1, 1023, 1023, 3}, {4, 5, 6, 7}},
			want:   []uint16{1},
		},
		{
			name:   "sentinel spanning two groups",
			groups: [][GroupSamples]uint16{{1, 2, 3, 1023}, {1023, 5, 6, 7}},
			want:   []uint16{1, 2, 3},
		},
		{
			name:   "held reading flushed at region end",
			groups: [][GroupSamples]uint16{{1, 2, 3, 1023}},
			want:   []uint16{1, 2, 3, 1023},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data []byte
			for _, vals := range tt.groups {
				g := Pack(vals)
				data = append(data, g[:]...)
			}

			d := NewDecoder(bytes.NewReader(data), int64(len(data)), WithSentinel())
			assert.Equal(t, tt.want, slices.Collect(d.Values()))

			// Without the sentinel every reading comes back.
			plain := NewDecoder(bytes.NewReader(data), int64(len(data)))
			assert.Len(t, slices.Collect(plain.Values()), GroupSamples*len(tt.groups))
		})
	}
}

func TestDecoder_At(t *testing.T) {
	data := encodeAll([]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	d := NewDecoder(bytes.NewReader(data), int64(len(data)))

	from, err := d.At(GroupSize)
	require.NoError(t, err)
	assert.Equal(t, []uint16{5, 6, 7, 8, 9, 10, 11, 12}, slices.Collect(from.Values()))

	// Restartable: iterating again yields the same values.
	assert.Equal(t, []uint16{5, 6, 7, 8, 9, 10, 11, 12}, slices.Collect(from.Values()))

	_, err = d.At(3)
	assert.ErrorIs(t, err, ErrUnaligned)

	_, err = d.At(int64(len(data)) + GroupSize)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecoder_Records(t *testing.T) {
	data := encodeAll([]uint16{1, 2, 3, 4, 5, 6, 7, 8})
	d := NewDecoder(bytes.NewReader(data), int64(len(data)))

	got := slices.Collect(d.Records(3))
	assert.Equal(t, [][]uint16{{1, 2, 3}, {4, 5, 6}, {7, 8}}, got)

	got = slices.Collect(d.Records(2))
	assert.Equal(t, [][]uint16{{1, 2}, {3, 4}, {5, 6}, {7, 8}}, got)
}

type failingReader struct{}

func (failingReader) ReadAt([]byte, int64) (int, error) {
	return 0, assert.AnError
}

func TestDecoder_ReadError(t *testing.T) {
	d := NewDecoder(failingReader{}, 100)
	assert.Empty(t, slices.Collect(d.Values()))
	assert.ErrorIs(t, d.Err(), assert.AnError)
}
