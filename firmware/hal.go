//go:build tinygo

package main

import (
	"machine"
	"runtime/interrupt"
	"time"

	"github.com/itohio/flashlog/pkg/options"
	"github.com/itohio/flashlog/pkg/scheduler"
)

// interruptMask holds off interrupts while locked.
type interruptMask struct {
	state interrupt.State
}

func (m *interruptMask) Lock()   { m.state = interrupt.Disable() }
func (m *interruptMask) Unlock() { interrupt.Restore(m.state) }

// secondTimer calls tick once per second.
type secondTimer struct {
	stop chan struct{}
}

func (t *secondTimer) Start(tick func()) error {
	if t.stop != nil {
		return scheduler.ErrBusy
	}
	t.stop = make(chan struct{})

	ticker := time.NewTicker(time.Second)
	go func(stop chan struct{}) {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tick()
			case <-stop:
				return
			}
		}
	}(t.stop)
	return nil
}

func (t *secondTimer) Stop() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// adcBank reads the channel pins against either reference.
type adcBank struct {
	adcs []machine.ADC
}

func newADC(pins []machine.Pin) *adcBank {
	b := &adcBank{adcs: make([]machine.ADC, len(pins))}
	for i, pin := range pins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		b.adcs[i] = machine.ADC{Pin: pin}
	}
	return b
}

func (b *adcBank) ReadChannel(ch int, ref options.Reference) (uint16, error) {
	mv := uint32(ADC_SUPPLY_MV)
	if ref == options.Internal {
		mv = ADC_INTERNAL_MV
	}

	adc := b.adcs[ch]
	adc.Configure(machine.ADCConfig{
		Reference:  mv,
		Resolution: ADC_RESOLUTION,
	})
	// The first conversion after a reference change settles the input.
	adc.Get()
	return adc.Get() >> (16 - ADC_RESOLUTION), nil
}

// uartPort is a blocking console port on a UART.
type uartPort struct {
	uart   *machine.UART
	unread bool
	last   byte
}

func (p *uartPort) ReadByte() (byte, error) {
	if p.unread {
		p.unread = false
		return p.last, nil
	}
	for p.uart.Buffered() == 0 {
		time.Sleep(POLL_INTERVAL_MS * time.Millisecond)
	}
	b, err := p.uart.ReadByte()
	if err != nil {
		return 0, err
	}
	p.last = b
	return b, nil
}

func (p *uartPort) UnreadByte() error {
	p.unread = true
	return nil
}

func (p *uartPort) WriteByte(b byte) error {
	return p.uart.WriteByte(b)
}

func (p *uartPort) Buffered() int {
	n := p.uart.Buffered()
	if p.unread {
		n++
	}
	return n
}
