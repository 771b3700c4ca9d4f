package codec

import "errors"

var (
	// ErrUnaligned is returned when decoding is asked to start inside a packed group.
	ErrUnaligned = errors.New("offset is not aligned to a packed group")
	// ErrOutOfRange is returned when decoding is asked to start past the end of the region.
	ErrOutOfRange = errors.New("offset is outside of the region")
)
