package flash

import "errors"

var (
	// ErrCapacityExhausted is returned once the log reached the boot boundary.
	// It is terminal: only an erase of the whole region recovers from it.
	ErrCapacityExhausted = errors.New("log region exhausted")
	// ErrNotErased is returned by a device asked to program a byte that was not erased.
	ErrNotErased = errors.New("byte is not erased")
	// ErrOutOfRange is returned for addresses at or past the boot boundary.
	ErrOutOfRange = errors.New("address outside of log region")
	// ErrLocked is returned when a flash image is already opened by another process.
	ErrLocked = errors.New("flash image is in use")
)
