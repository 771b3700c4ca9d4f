package sim

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/options"
)

// ADCMax is the largest 10-bit conversion result.
const ADCMax = 1023

// ADC converts synthetic per-channel voltages into 10-bit readings.
type ADC struct {
	cfg *config.Config
	now func() time.Time

	mu    sync.Mutex
	start time.Time
	rng   *rand.Rand
}

// NewADC creates an ADC whose signals start at the current time. Simulated time
// advances TickPeriod per second so waveforms keep their shape when sped up.
func NewADC(cfg *config.Config) *ADC {
	return &ADC{
		cfg:   cfg,
		now:   time.Now,
		start: time.Now(),
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// ReadChannel returns the reading of channel ch against ref.
func (a *ADC) ReadChannel(ch int, ref options.Reference) (uint16, error) {
	if ch < 0 || ch >= options.MaxChannels {
		return 0, fmt.Errorf("no such channel %d", ch)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	vref := a.cfg.Voltage(ref == options.Internal)
	return Quantize(a.voltage(ch), vref), nil
}

// voltage returns the signal on ch at the current simulated time.
func (a *ADC) voltage(ch int) float32 {
	if ch >= len(a.cfg.Sim.Signals) {
		return 0
	}
	sig := a.cfg.Sim.Signals[ch]

	// seconds of simulated time since start
	elapsed := float32(a.now().Sub(a.start)) / float32(a.cfg.Sim.TickPeriod)

	v := sig.Offset
	if sig.Period > 0 {
		period := float32(sig.Period.Seconds())
		v += sig.Amplitude * math32.Sin(2*math32.Pi*elapsed/period)
	}
	v += a.cfg.Sim.NoiseLevel * (2*a.rng.Float32() - 1)
	return v
}

// Quantize converts v to a 10-bit reading against vref, clamping to the ADC range.
func Quantize(v, vref float32) uint16 {
	if vref <= 0 || v <= 0 {
		return 0
	}
	code := math32.Floor(v / vref * (ADCMax + 1))
	if code > ADCMax {
		return ADCMax
	}
	return uint16(code)
}
