package sim

import (
	"bytes"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort_ReadWrite(t *testing.T) {
	var out bytes.Buffer
	p := NewPort(strings.NewReader("ab"), &out)

	require.Eventually(t, func() bool { return p.Buffered() == 2 }, time.Second, time.Millisecond)

	b, err := p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)
	assert.Equal(t, 1, p.Buffered())

	require.NoError(t, p.UnreadByte())
	assert.Equal(t, 2, p.Buffered())
	assert.ErrorIs(t, p.UnreadByte(), ErrNoByteToUnread)

	b, err = p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)
	b, err = p.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), b)

	_, err = p.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, p.WriteByte('z'))
	assert.Equal(t, "z", out.String())
}

func TestPort_BlocksUntilData(t *testing.T) {
	r, w := io.Pipe()
	p := NewPort(r, io.Discard)

	got := make(chan byte, 1)
	go func() {
		b, err := p.ReadByte()
		if err == nil {
			got <- b
		}
	}()

	select {
	case <-got:
		t.Fatal("ReadByte returned without data")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := w.Write([]byte{'x'})
	require.NoError(t, err)
	select {
	case b := <-got:
		assert.Equal(t, byte('x'), b)
	case <-time.After(time.Second):
		t.Fatal("ReadByte did not return")
	}
	w.Close()
}

func TestTimer(t *testing.T) {
	tm := NewTimer(5 * time.Millisecond)

	var ticks atomic.Int32
	require.NoError(t, tm.Start(func() { ticks.Add(1) }))
	assert.ErrorIs(t, tm.Start(func() {}), ErrRunning)

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	tm.Stop()

	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Stop")

	// Restartable.
	require.NoError(t, tm.Start(func() { ticks.Add(1) }))
	tm.Stop()
	tm.Stop()
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		v    float32
		vref float32
		want uint16
	}{
		{name: "zero", v: 0, vref: 5, want: 0},
		{name: "negative clamps", v: -1, vref: 5, want: 0},
		{name: "half scale", v: 2.5, vref: 5, want: 512},
		{name: "internal reference", v: 0.55, vref: 1.1, want: 512},
		{name: "full scale clamps", v: 5, vref: 5, want: 1023},
		{name: "over range clamps", v: 3.3, vref: 1.1, want: 1023},
		{name: "no reference", v: 1, vref: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, float64(tt.want), float64(Quantize(tt.v, tt.vref)), 1)
		})
	}
}

func TestADC_ReadChannel(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.NoiseLevel = 0
	cfg.Sim.Signals = []config.SignalConfig{
		{Offset: 0.55},
		{Offset: 2.5, Amplitude: 1, Period: 4 * time.Second},
	}

	a := NewADC(cfg)
	now := a.start
	a.now = func() time.Time { return now }

	v, err := a.ReadChannel(0, options.Internal)
	require.NoError(t, err)
	assert.InDelta(t, 512, int(v), 1)

	v, err = a.ReadChannel(0, options.Supply)
	require.NoError(t, err)
	assert.InDelta(t, 112, int(v), 1)

	// A quarter period later the sine peaks: 3.5 V of 5 V.
	now = a.start.Add(time.Second)
	v, err = a.ReadChannel(1, options.Supply)
	require.NoError(t, err)
	assert.InDelta(t, 716, int(v), 1)

	// Unconfigured channels read zero volts.
	v, err = a.ReadChannel(3, options.Supply)
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = a.ReadChannel(4, options.Supply)
	assert.Error(t, err)
}
