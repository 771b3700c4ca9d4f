// Package scheduler drives periodic sampling from a 1 Hz timer interrupt.
//
// The timer handler (Tick) only increments an elapsed-seconds counter and posts a
// single-slot notification. The main loop sleeps on that notification, then reads
// and resets the counter with the interrupt mask held.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/itohio/flashlog/pkg/flash"
	"github.com/itohio/flashlog/pkg/options"
)

// GraceSeconds is how long an armed scheduler waits for a keypress before sampling.
const GraceSeconds = 4

var (
	// ErrArmAborted is returned by Arm when input arrived during the grace period.
	ErrArmAborted = errors.New("arming aborted by input")
	// ErrNotArmed is returned by Run before a successful Arm.
	ErrNotArmed = errors.New("scheduler is not armed")
	// ErrBusy is returned by Arm while sampling or halted.
	ErrBusy = errors.New("scheduler is already running")
)

// State is the scheduler lifecycle state.
type State int32

const (
	Idle State = iota
	Armed
	Sampling
	OutOfMemory
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Sampling:
		return "sampling"
	case OutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ADC performs one blocking conversion of a channel against a reference.
type ADC interface {
	ReadChannel(ch int, ref options.Reference) (uint16, error)
}

// Timer calls tick once per second between Start and Stop.
type Timer interface {
	Start(tick func()) error
	Stop()
}

// Input reports how many received bytes are waiting to be read.
type Input interface {
	Buffered() int
}

// Sink receives readings; flash.Store implements it.
type Sink interface {
	WriteSample(v uint16) error
	Exhausted() bool
}

var _ Sink = (*flash.Store)(nil)

// Scheduler samples the configured channels every Interval seconds.
type Scheduler struct {
	adc   ADC
	sink  Sink
	timer Timer
	mask  sync.Locker
	out   io.Writer

	notify  chan struct{}
	elapsed uint8 // written by Tick, read and reset under mask

	cfg   options.Config
	state atomic.Int32
}

// New creates an idle scheduler. Operator messages are written to out.
func New(adc ADC, sink Sink, timer Timer, mask sync.Locker, out io.Writer) *Scheduler {
	if mask == nil {
		mask = &sync.Mutex{}
	}
	if out == nil {
		out = io.Discard
	}

	return &Scheduler{
		adc:    adc,
		sink:   sink,
		timer:  timer,
		mask:   mask,
		out:    out,
		notify: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Config returns the working copy validated by Arm.
func (s *Scheduler) Config() options.Config {
	return s.cfg
}

// Tick is the timer interrupt handler.
func (s *Scheduler) Tick() {
	s.mask.Lock()
	s.elapsed++
	s.mask.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Arm validates cfg, starts the timer and waits GraceSeconds. Any byte arriving on
// in during that time stops the timer and returns ErrArmAborted; the byte is left
// for the caller. On success the scheduler is Sampling and Run may be called.
func (s *Scheduler) Arm(ctx context.Context, cfg options.Config, in Input) error {
	if st := s.State(); st != Idle {
		return fmt.Errorf("arm in state %v: %w", st, ErrBusy)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg

	s.resetElapsed()
	select {
	case <-s.notify:
	default:
	}

	if err := s.timer.Start(s.Tick); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}
	s.state.Store(int32(Armed))

	for {
		if in != nil && in.Buffered() > 0 {
			s.disarm()
			return ErrArmAborted
		}
		if s.peekElapsed() >= GraceSeconds {
			break
		}

		select {
		case <-ctx.Done():
			s.disarm()
			return ctx.Err()
		case <-s.notify:
		}
	}

	s.resetElapsed()
	s.state.Store(int32(Sampling))
	fmt.Fprint(s.out, "Logging start.\r\n")
	return nil
}

// Run sleeps between ticks and performs a sampling pass every Interval seconds.
// Once the log region is exhausted the scheduler halts in OutOfMemory, repeating
// the condition on every wake, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() != Sampling {
		return ErrNotArmed
	}
	defer s.timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notify:
		}

		if err := s.wake(); err != nil {
			return err
		}
	}
}

// wake handles one timer notification.
func (s *Scheduler) wake() error {
	if s.State() == OutOfMemory {
		fmt.Fprint(s.out, "Out of memory\r\n")
		return nil
	}
	if !s.due() {
		return nil
	}

	err := s.samplePass()
	if errors.Is(err, flash.ErrCapacityExhausted) || s.sink.Exhausted() {
		s.halt()
		return nil
	}
	return err
}

// samplePass reads every configured channel in order and feeds the readings to the sink.
func (s *Scheduler) samplePass() error {
	for ch := range s.cfg.Channels {
		v, err := s.adc.ReadChannel(ch, s.cfg.Refs[ch])
		if err != nil {
			return fmt.Errorf("read channel %d: %w", ch, err)
		}
		if err := s.sink.WriteSample(v); err != nil {
			return fmt.Errorf("store channel %d: %w", ch, err)
		}
	}
	return nil
}

func (s *Scheduler) halt() {
	s.state.Store(int32(OutOfMemory))
	fmt.Fprint(s.out, "Out of memory\r\n")
}

func (s *Scheduler) disarm() {
	s.timer.Stop()
	s.state.Store(int32(Idle))
}

// due reports whether Interval seconds elapsed and, if so, restarts the count.
func (s *Scheduler) due() bool {
	s.mask.Lock()
	defer s.mask.Unlock()

	if int(s.elapsed) < s.cfg.Interval {
		return false
	}
	s.elapsed = 0
	return true
}

func (s *Scheduler) peekElapsed() int {
	s.mask.Lock()
	defer s.mask.Unlock()
	return int(s.elapsed)
}

func (s *Scheduler) resetElapsed() {
	s.mask.Lock()
	s.elapsed = 0
	s.mask.Unlock()
}
