package flash

import "io"

// Device exposes the raw program-storage primitives of the log region.
// All addresses are byte addresses in [0, Boundary()).
type Device interface {
	io.ReaderAt

	// PageSize is the erase granularity in bytes.
	PageSize() uint32
	// Boundary is the first address that belongs to the bootloader.
	Boundary() uint32
	// ErasePage sets every bit of the page starting at addr.
	ErasePage(addr uint32) error
	// ProgramByte programs one byte of an erased page.
	ProgramByte(addr uint32, v byte) error
	// FinalizeProgram completes programming of the page starting at addr and
	// re-enables normal reads.
	FinalizeProgram(addr uint32) error
}
