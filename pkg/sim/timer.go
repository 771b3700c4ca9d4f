package sim

import (
	"errors"
	"sync"
	"time"
)

// ErrRunning is returned by Start on a running timer.
var ErrRunning = errors.New("timer already running")

// Timer calls its tick function once per period from its own goroutine, the way a
// timer interrupt preempts the main program. A period shorter than a second runs
// simulated time faster than real time.
type Timer struct {
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTimer creates a stopped timer.
func NewTimer(period time.Duration) *Timer {
	if period <= 0 {
		period = time.Second
	}
	return &Timer{period: period}
}

// Start begins calling tick every period.
func (t *Timer) Start(tick func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		return ErrRunning
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)

		ticker := time.NewTicker(t.period)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}(t.stop, t.done)

	return nil
}

// Stop stops the timer and waits until no tick is in progress.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
	t.done = nil
}
