//go:build tinygo

package main

import (
	"github.com/itohio/flashlog/pkg/eeprom"
	"github.com/itohio/flashlog/pkg/flash"
)

// blockDevice is the part of machine.Flash the logger uses.
type blockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// splitFlash divides the data area into the log region and a configuration area
// made of the last reserved blocks.
func splitFlash(dev blockDevice, reserved int64) (*pageFlash, *flashArea) {
	bs := dev.EraseBlockSize()
	boundary := dev.Size() - reserved*bs

	return &pageFlash{
			dev:      dev,
			boundary: uint32(boundary),
			buf:      make([]byte, bs),
			open:     -1,
		}, &flashArea{
			dev:    dev,
			offset: boundary,
			size:   int(reserved * bs),
		}
}

// pageFlash fills a page buffer byte by byte and writes it out when finalized.
// Reads see the open page buffer.
type pageFlash struct {
	dev      blockDevice
	boundary uint32
	buf      []byte
	open     int64 // address of the buffered page, -1 when none
}

var _ flash.Device = (*pageFlash)(nil)

func (f *pageFlash) PageSize() uint32 { return uint32(len(f.buf)) }
func (f *pageFlash) Boundary() uint32 { return f.boundary }

func (f *pageFlash) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.dev.ReadAt(p, off)
	if f.open < 0 {
		return n, err
	}

	end := f.open + int64(len(f.buf))
	for i := range p[:n] {
		if a := off + int64(i); a >= f.open && a < end {
			p[i] = f.buf[a-f.open]
		}
	}
	return n, err
}

func (f *pageFlash) ErasePage(addr uint32) error {
	for i := range f.buf {
		f.buf[i] = 0xFF
	}
	f.open = int64(addr)
	return f.dev.EraseBlocks(int64(addr)/int64(len(f.buf)), 1)
}

func (f *pageFlash) ProgramByte(addr uint32, v byte) error {
	f.buf[addr%uint32(len(f.buf))] = v
	return nil
}

func (f *pageFlash) FinalizeProgram(addr uint32) error {
	page := addr - addr%uint32(len(f.buf))
	_, err := f.dev.WriteAt(f.buf, int64(page))
	f.open = -1
	return err
}

// flashArea keeps the option record in reserved flash blocks.
type flashArea struct {
	dev    blockDevice
	offset int64
	size   int
}

var _ eeprom.Block = (*flashArea)(nil)

func (a *flashArea) Size() int { return a.size }

func (a *flashArea) ReadBlock(offset int, p []byte) error {
	if offset < 0 || offset+len(p) > a.size {
		return eeprom.ErrOutOfRange
	}
	_, err := a.dev.ReadAt(p, a.offset+int64(offset))
	return err
}

func (a *flashArea) WriteBlock(offset int, p []byte) error {
	if offset < 0 || offset+len(p) > a.size {
		return eeprom.ErrOutOfRange
	}

	area := make([]byte, a.size)
	if _, err := a.dev.ReadAt(area, a.offset); err != nil {
		return err
	}
	copy(area[offset:], p)

	bs := a.dev.EraseBlockSize()
	if err := a.dev.EraseBlocks(a.offset/bs, int64(a.size)/bs); err != nil {
		return err
	}
	_, err := a.dev.WriteAt(area, a.offset)
	return err
}
