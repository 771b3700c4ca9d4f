package link

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/console"
	"github.com/itohio/flashlog/pkg/eeprom"
	"github.com/itohio/flashlog/pkg/flash"
	"github.com/itohio/flashlog/pkg/options"
	"github.com/itohio/flashlog/pkg/sim"
)

// DefaultMockOptions is the option line the mock logger is configured with.
const DefaultMockOptions = "vV60#mock"

// Mock simulates a logger that already holds a log. The log is produced by the
// real page store and served through the real console, so downloads exercise the
// full encode, store, decode and print path.
type Mock struct {
	cfg     *config.Config
	opts    options.Config
	records int

	mu        sync.Mutex
	connected bool
	store     *flash.Store
	optStore  *options.Store
}

// NewMock creates a mock logger holding the given number of records logged with
// the option line. A nil cfg uses defaults.
func NewMock(cfg *config.Config, line string, records int) (*Mock, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if line == "" {
		line = DefaultMockOptions
	}

	opts, err := options.Parse(line)
	if err != nil {
		return nil, err
	}

	return &Mock{
		cfg:     cfg,
		opts:    opts,
		records: records,
	}, nil
}

// Connect fills the simulated logger with records.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.store = flash.New(flash.NewMemory(m.cfg.Flash.PageSize, m.cfg.Flash.Boundary), nil)
	m.optStore = options.NewStore(eeprom.NewMemory(m.cfg.EEPROM.Size))
	if err := m.optStore.Save(m.opts); err != nil {
		return err
	}

	for i := range m.records {
		at := time.Duration(i*m.opts.Interval) * time.Second
		for ch := range m.opts.Channels {
			v := sim.Quantize(m.signal(ch, at), m.cfg.Voltage(m.opts.Refs[ch] == options.Internal))
			if err := m.store.WriteSample(v); err != nil {
				return fmt.Errorf("failed to fill mock log: %w", err)
			}
		}
	}

	m.connected = true
	return nil
}

// signal returns the noiseless configured waveform of ch at time at.
func (m *Mock) signal(ch int, at time.Duration) float32 {
	if ch >= len(m.cfg.Sim.Signals) {
		return 0
	}
	sig := m.cfg.Sim.Signals[ch]
	if sig.Period <= 0 {
		return sig.Offset
	}
	phase := float32(at.Seconds() / sig.Period.Seconds())
	return sig.Offset + sig.Amplitude*math32.Sin(2*math32.Pi*phase)
}

// Close disconnects the mock.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// IsConnected returns whether the mock is connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Download renders the console download and parses it.
func (m *Mock) Download(ctx context.Context) (*Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	con := console.New(&bufferPort{w: &out}, m.store, m.optStore)
	con.SetSentinel(m.cfg.Download.Sentinel)
	if err := con.Download(); err != nil {
		return nil, err
	}
	return ParseLog(&out)
}

// Erase erases the simulated log region.
func (m *Mock) Erase(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.store.EraseAll()
}

// bufferPort is an output-only console port.
type bufferPort struct {
	w *bytes.Buffer
}

func (p *bufferPort) ReadByte() (byte, error) { return 0, io.EOF }
func (p *bufferPort) UnreadByte() error      { return io.EOF }
func (p *bufferPort) WriteByte(b byte) error { return p.w.WriteByte(b) }
func (p *bufferPort) Buffered() int          { return 0 }
