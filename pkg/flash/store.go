// Package flash turns a stream of bytes into erase-before-write page operations
// against the log region of program storage.
package flash

import (
	"fmt"
	"io"
	"sync"

	"github.com/itohio/flashlog/pkg/codec"
)

// Store is a sequential, append-only writer and random-access reader of the log region.
// Writes are single-writer; the Store is not safe for concurrent Append calls.
type Store struct {
	dev  Device
	mask sync.Locker

	pageSize uint32
	limit    uint32 // boundary rounded down to a whole page

	enc codec.Encoder

	// write cursor
	page      uint32
	offset    uint32
	erased    bool
	exhausted bool

	onFlush func(page uint32)
}

// New creates a Store writing from address 0. Program and erase operations run
// with mask held; pass nil when nothing can interrupt them.
func New(dev Device, mask sync.Locker) *Store {
	if mask == nil {
		mask = noMask{}
	}

	pageSize := dev.PageSize()
	limit := dev.Boundary() - dev.Boundary()%pageSize

	return &Store{
		dev:       dev,
		mask:      mask,
		pageSize:  pageSize,
		limit:     limit,
		exhausted: limit == 0,
	}
}

// OnFlush registers fn to be called after each completed page with the page address.
func (s *Store) OnFlush(fn func(page uint32)) {
	s.onFlush = fn
}

// Write implements io.Writer on top of Append.
func (s *Store) Write(p []byte) (int, error) {
	return s.Append(p)
}

// Append programs p at the write cursor. It returns the number of bytes programmed;
// once the region is exhausted it returns ErrCapacityExhausted and programs nothing more.
func (s *Store) Append(p []byte) (int, error) {
	for i, b := range p {
		flushed, err := s.appendByte(b)
		if err != nil {
			return i, err
		}
		if flushed && s.onFlush != nil {
			s.onFlush(s.page - s.pageSize)
		}
	}
	return len(p), nil
}

// WriteSample feeds one reading through the group encoder and appends the
// packed group when it is complete.
func (s *Store) WriteSample(v uint16) error {
	g, ok := s.enc.Encode(v)
	if !ok {
		return nil
	}
	_, err := s.Append(g[:])
	return err
}

func (s *Store) appendByte(b byte) (bool, error) {
	if s.exhausted {
		return false, ErrCapacityExhausted
	}

	s.mask.Lock()
	defer s.mask.Unlock()

	if s.offset == 0 && !s.erased {
		if err := s.dev.ErasePage(s.page); err != nil {
			return false, fmt.Errorf("erase page %#x: %w", s.page, err)
		}
		s.erased = true
	}

	if err := s.dev.ProgramByte(s.page+s.offset, b); err != nil {
		return false, fmt.Errorf("program %#x: %w", s.page+s.offset, err)
	}

	s.offset++
	if s.offset < s.pageSize {
		return false, nil
	}

	if err := s.dev.FinalizeProgram(s.page); err != nil {
		return false, fmt.Errorf("finalize page %#x: %w", s.page, err)
	}
	s.page += s.pageSize
	s.offset = 0
	s.erased = false
	if s.page >= s.limit {
		s.exhausted = true
	}
	return true, nil
}

// HasData reports whether the first storage word was programmed. It is an occupancy
// check only; it does not bound the log.
func (s *Store) HasData() (bool, error) {
	if s.limit < 2 {
		return false, nil
	}

	var word [2]byte
	if _, err := s.dev.ReadAt(word[:], 0); err != nil {
		return false, fmt.Errorf("read first word: %w", err)
	}
	return word[0] != codec.ErasedByte || word[1] != codec.ErasedByte, nil
}

// EraseAll erases every page of the region and rewinds the write cursor.
// Buffered readings not yet packed are dropped.
func (s *Store) EraseAll() error {
	for addr := uint32(0); addr < s.limit; addr += s.pageSize {
		s.mask.Lock()
		err := s.dev.ErasePage(addr)
		s.mask.Unlock()
		if err != nil {
			return fmt.Errorf("erase page %#x: %w", addr, err)
		}
	}

	s.page = 0
	s.offset = 0
	s.erased = false
	s.exhausted = s.limit == 0
	s.enc.Reset()
	return nil
}

// Exhausted reports whether the next write would cross the boot boundary.
func (s *Store) Exhausted() bool {
	return s.exhausted
}

// Cursor returns the address of the page being written and the offset within it.
func (s *Store) Cursor() (page, offset uint32) {
	return s.page, s.offset
}

// PageSize returns the erase granularity of the underlying device.
func (s *Store) PageSize() uint32 {
	return s.pageSize
}

// Size returns the usable size of the log region in bytes.
func (s *Store) Size() int64 {
	return int64(s.limit)
}

// ReadAt implements io.ReaderAt over the log region.
func (s *Store) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(s.limit) {
		return 0, fmt.Errorf("read at %d: %w", off, ErrOutOfRange)
	}
	if rest := int64(s.limit) - off; int64(len(p)) > rest {
		n, err := s.dev.ReadAt(p[:rest], off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return s.dev.ReadAt(p, off)
}

// Capacity returns how many complete records of the given channel count fit
// into an empty region.
func (s *Store) Capacity(channels int) int {
	if channels < 1 {
		return 0
	}
	groups := int(s.limit) / codec.GroupSize
	return groups * codec.GroupSamples / channels
}

type noMask struct{}

func (noMask) Lock()   {}
func (noMask) Unlock() {}
