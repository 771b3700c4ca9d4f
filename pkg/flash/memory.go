package flash

import (
	"fmt"
	"io"
	"sync"
)

// OpKind identifies a primitive recorded by Memory.
type OpKind int

const (
	OpErase OpKind = iota
	OpProgram
	OpFinalize
)

func (k OpKind) String() string {
	switch k {
	case OpErase:
		return "erase"
	case OpProgram:
		return "program"
	case OpFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one primitive issued against a Memory device.
type Op struct {
	Kind OpKind
	Addr uint32
}

// Memory is a RAM model of program storage. It starts fully erased, refuses to
// program bytes that are not erased and keeps a trace of every primitive.
type Memory struct {
	mu       sync.RWMutex
	data     []byte
	pageSize uint32
	trace    []Op
}

var _ Device = (*Memory)(nil)

// NewMemory creates an erased region of boundary bytes with the given page size.
func NewMemory(pageSize, boundary uint32) *Memory {
	data := make([]byte, boundary)
	for i := range data {
		data[i] = 0xFF
	}
	return &Memory{
		data:     data,
		pageSize: pageSize,
	}
}

// PageSize returns the erase granularity.
func (m *Memory) PageSize() uint32 { return m.pageSize }

// Boundary returns the region size.
func (m *Memory) Boundary() uint32 { return uint32(len(m.data)) }

// ErasePage sets every byte of the page at addr to 0xFF.
func (m *Memory) ErasePage(addr uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr%m.pageSize != 0 || addr+m.pageSize > uint32(len(m.data)) {
		return fmt.Errorf("erase %#x: %w", addr, ErrOutOfRange)
	}
	for i := addr; i < addr+m.pageSize; i++ {
		m.data[i] = 0xFF
	}
	m.trace = append(m.trace, Op{Kind: OpErase, Addr: addr})
	return nil
}

// ProgramByte writes v at addr, which must be erased.
func (m *Memory) ProgramByte(addr uint32, v byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr >= uint32(len(m.data)) {
		return fmt.Errorf("program %#x: %w", addr, ErrOutOfRange)
	}
	if m.data[addr] != 0xFF {
		return fmt.Errorf("program %#x: %w", addr, ErrNotErased)
	}
	m.data[addr] = v
	m.trace = append(m.trace, Op{Kind: OpProgram, Addr: addr})
	return nil
}

// FinalizeProgram records the completion of a page.
func (m *Memory) FinalizeProgram(addr uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr >= uint32(len(m.data)) {
		return fmt.Errorf("finalize %#x: %w", addr, ErrOutOfRange)
	}
	m.trace = append(m.trace, Op{Kind: OpFinalize, Addr: addr})
	return nil
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Trace returns a copy of the primitives issued so far.
func (m *Memory) Trace() []Op {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Op(nil), m.trace...)
}

// ResetTrace forgets the recorded primitives.
func (m *Memory) ResetTrace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = nil
}

// Bytes returns a copy of the region contents.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}
