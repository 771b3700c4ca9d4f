// Package eeprom provides the persisted-configuration area: a small fixed-size
// block store that lives outside the log region.
package eeprom

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange is returned for accesses past the end of the area.
var ErrOutOfRange = errors.New("access outside of configuration area")

// Block reads and writes byte ranges of the configuration area. A WriteBlock call
// is applied as a whole: a concurrent reader sees either the old or the new bytes.
type Block interface {
	ReadBlock(offset int, p []byte) error
	WriteBlock(offset int, p []byte) error
	Size() int
}

// Memory is an in-memory configuration area that starts erased (all 0xFF).
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

var _ Block = (*Memory)(nil)

// NewMemory creates an erased area of size bytes.
func NewMemory(size int) *Memory {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &Memory{data: data}
}

// Size returns the area size in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// ReadBlock copies len(p) bytes starting at offset into p.
func (m *Memory) ReadBlock(offset int, p []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := checkRange(offset, len(p), len(m.data)); err != nil {
		return err
	}
	copy(p, m.data[offset:])
	return nil
}

// WriteBlock stores p at offset.
func (m *Memory) WriteBlock(offset int, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRange(offset, len(p), len(m.data)); err != nil {
		return err
	}
	copy(m.data[offset:], p)
	return nil
}

func checkRange(offset, n, size int) error {
	if offset < 0 || n < 0 || offset+n > size {
		return fmt.Errorf("offset %d length %d: %w", offset, n, ErrOutOfRange)
	}
	return nil
}
