// Package datalogger wires the console, option store, page store and scheduler
// into the boot sequence of the logger.
package datalogger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/flashlog/pkg/console"
	"github.com/itohio/flashlog/pkg/eeprom"
	"github.com/itohio/flashlog/pkg/flash"
	"github.com/itohio/flashlog/pkg/options"
	"github.com/itohio/flashlog/pkg/scheduler"
)

// Hardware holds the peripherals the logger runs on.
type Hardware struct {
	Port   console.Port
	Flash  flash.Device
	EEPROM eeprom.Block
	ADC    scheduler.ADC
	Timer  scheduler.Timer
	// Mask suppresses the timer interrupt while held.
	Mask sync.Locker
}

// The console hides the LF of a CRLF line ending from the grace period check.
var _ scheduler.Input = (*console.Console)(nil)

// Logger is one device lifetime from boot to halt.
type Logger struct {
	store   *flash.Store
	opts    *options.Store
	console *console.Console
	sched   *scheduler.Scheduler
}

// New builds a logger on hw.
func New(hw Hardware) *Logger {
	if hw.Mask == nil {
		hw.Mask = &sync.Mutex{}
	}

	store := flash.New(hw.Flash, hw.Mask)
	opts := options.NewStore(hw.EEPROM)
	con := console.New(hw.Port, store, opts)
	store.OnFlush(func(uint32) {
		con.Print("Flushed\r\n")
	})

	return &Logger{
		store:   store,
		opts:    opts,
		console: con,
		sched:   scheduler.New(hw.ADC, store, hw.Timer, hw.Mask, con),
	}
}

// Console returns the operator console.
func (l *Logger) Console() *console.Console {
	return l.console
}

// Store returns the page store.
func (l *Logger) Store() *flash.Store {
	return l.store
}

// Scheduler returns the sampling scheduler.
func (l *Logger) Scheduler() *scheduler.Scheduler {
	return l.sched
}

// Run offers download and erase while the log holds data, makes sure valid options
// are stored, arms the scheduler and samples until ctx is done. Running out of log
// space does not end Run; the logger halts and keeps reporting it.
func (l *Logger) Run(ctx context.Context) error {
	if err := l.console.Print("Starting\r\n"); err != nil {
		return err
	}
	if err := l.console.Menu(); err != nil {
		return fmt.Errorf("menu: %w", err)
	}
	if err := l.arm(ctx); err != nil {
		return err
	}
	return l.sched.Run(ctx)
}

// arm loads the stored options and arms the scheduler, falling back to the
// configuration prompt when the options are invalid or the operator interrupts.
func (l *Logger) arm(ctx context.Context) error {
	for {
		cfg, err := l.opts.Load()
		if err != nil {
			if !errors.Is(err, options.ErrInvalidFormat) {
				return err
			}
			if err := l.console.Print("Invalid options string.\r\n"); err != nil {
				return err
			}
			if _, err := l.console.Configure(); err != nil {
				return fmt.Errorf("configure: %w", err)
			}
			continue
		}

		if err := l.console.ReportCapacity(cfg); err != nil {
			return err
		}
		msg := fmt.Sprintf("Logging %s in %d seconds, press any key to change options\r\n", cfg, scheduler.GraceSeconds)
		if err := l.console.Print(msg); err != nil {
			return err
		}

		err = l.sched.Arm(ctx, cfg, l.console)
		if err == nil {
			return nil
		}
		if !errors.Is(err, scheduler.ErrArmAborted) {
			return err
		}

		if err := l.console.Drain(); err != nil {
			return err
		}
		if _, err := l.console.Configure(); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}
}
