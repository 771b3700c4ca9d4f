// Package sim models the device peripherals on a host: the serial port, the 1 Hz
// timer and the ADC.
package sim

import (
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultRxBuffer is the number of received bytes the port holds before the
// reader goroutine blocks.
const DefaultRxBuffer = 256

// ErrNoByteToUnread is returned by UnreadByte without a preceding ReadByte.
var ErrNoByteToUnread = errors.New("no byte to unread")

// Port adapts a byte stream (stdio, a pipe or a serial port) to the console port:
// blocking byte reads and writes plus a count of buffered bytes.
type Port struct {
	w  io.Writer
	rx chan byte

	mu       sync.Mutex
	last     int // last byte read, -1 when none
	pushback bool
	err      error
}

// NewPort starts pumping r into the receive buffer. Writes go straight to w.
func NewPort(r io.Reader, w io.Writer) *Port {
	p := &Port{
		w:    w,
		rx:   make(chan byte, DefaultRxBuffer),
		last: -1,
	}
	go p.pump(r)
	return p
}

func (p *Port) pump(r io.Reader) {
	defer close(p.rx)

	var buf [64]byte
	for {
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			p.rx <- b
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logrus.WithError(err).Warn("serial read failed")
			}
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}
	}
}

// ReadByte blocks until a byte is received. It returns io.EOF once the stream ended.
func (p *Port) ReadByte() (byte, error) {
	p.mu.Lock()
	if p.pushback {
		p.pushback = false
		b := byte(p.last)
		p.mu.Unlock()
		return b, nil
	}
	p.mu.Unlock()

	b, ok := <-p.rx
	if !ok {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.last = -1
		if p.err != nil && !errors.Is(p.err, io.EOF) {
			return 0, p.err
		}
		return 0, io.EOF
	}

	p.mu.Lock()
	p.last = int(b)
	p.mu.Unlock()
	return b, nil
}

// UnreadByte makes the last byte read available again.
func (p *Port) UnreadByte() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last < 0 || p.pushback {
		return ErrNoByteToUnread
	}
	p.pushback = true
	return nil
}

// WriteByte writes one byte.
func (p *Port) WriteByte(b byte) error {
	_, err := p.w.Write([]byte{b})
	return err
}

// Buffered returns the number of bytes that can be read without blocking.
func (p *Port) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.rx)
	if p.pushback {
		n++
	}
	return n
}
