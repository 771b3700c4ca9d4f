// Package codec packs 10-bit analog readings into a dense byte stream and back.
//
// Four readings form one Group: 40 bits, most significant reading first, no padding.
// The encoder does not know about records; it packs a flat stream of readings, so a
// Group may hold readings of two different records when fewer than four channels are
// logged.
package codec

const (
	// SampleBits is the width of one reading.
	SampleBits = 10
	// SampleMask keeps the low SampleBits of a value.
	SampleMask = 1<<SampleBits - 1
	// GroupSamples is the number of readings in one Group.
	GroupSamples = 4
	// GroupSize is the number of bytes one Group occupies in storage.
	GroupSize = GroupSamples * SampleBits / 8

	// Erased is the value a reading field decodes to when read from erased storage.
	Erased uint16 = SampleMask
	// ErasedByte is the value of an erased storage byte.
	ErasedByte byte = 0xFF
)

// Group is the on-storage encoding of four readings.
type Group [GroupSize]byte

// Pack packs four readings into a Group. Values are masked to SampleBits.
func Pack(vals [GroupSamples]uint16) Group {
	var acc uint64
	for _, v := range vals {
		acc = acc<<SampleBits | uint64(v&SampleMask)
	}
	return groupFromBits(acc)
}

// Unpack returns the four readings held by the Group in the order they were packed.
func (g Group) Unpack() [GroupSamples]uint16 {
	var acc uint64
	for _, b := range g {
		acc = acc<<8 | uint64(b)
	}

	var vals [GroupSamples]uint16
	for i := GroupSamples - 1; i >= 0; i-- {
		vals[i] = uint16(acc & SampleMask)
		acc >>= SampleBits
	}
	return vals
}

// IsErased reports whether every bit of the Group is set, i.e. it was never programmed.
func (g Group) IsErased() bool {
	for _, b := range g {
		if b != ErasedByte {
			return false
		}
	}
	return true
}

func groupFromBits(acc uint64) Group {
	var g Group
	for i := GroupSize - 1; i >= 0; i-- {
		g[i] = byte(acc)
		acc >>= 8
	}
	return g
}

// Encoder accumulates readings until a full Group is available.
// The zero value is ready to use.
type Encoder struct {
	acc uint64
	n   int
}

// Encode adds one reading. Every fourth call returns a complete Group and true;
// the other calls return false. Readings still buffered when the device stops are lost.
func (e *Encoder) Encode(v uint16) (Group, bool) {
	e.acc = e.acc<<SampleBits | uint64(v&SampleMask)
	e.n++
	if e.n < GroupSamples {
		return Group{}, false
	}

	g := groupFromBits(e.acc)
	e.Reset()
	return g, true
}

// Pending returns the number of buffered readings (0-3).
func (e *Encoder) Pending() int {
	return e.n
}

// Reset drops any buffered readings.
func (e *Encoder) Reset() {
	e.acc = 0
	e.n = 0
}
