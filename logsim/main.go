package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/datalogger"
	"github.com/itohio/flashlog/pkg/eeprom"
	"github.com/itohio/flashlog/pkg/flash"
	"github.com/itohio/flashlog/pkg/sim"
)

func main() {
	opts := readCommandLineOptions()
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if opts.Image != "" {
		cfg.Flash.Image = opts.Image
	}
	if opts.EEPROM != "" {
		cfg.EEPROM.Path = opts.EEPROM
	}
	if opts.Speed > 0 {
		cfg.Sim.TickPeriod = time.Duration(float64(cfg.Sim.TickPeriod) / opts.Speed)
	}
	if opts.Sentinel {
		cfg.Download.Sentinel = true
	}

	img, err := flash.OpenFile(cfg.Flash.Image, cfg.Flash.PageSize, cfg.Flash.Boundary)
	if err != nil {
		log.WithError(err).WithField("image", cfg.Flash.Image).Fatal("failed to open flash image")
	}
	defer img.Close()

	area, err := eeprom.OpenBolt(cfg.EEPROM.Path, cfg.EEPROM.Size)
	if err != nil {
		log.WithError(err).WithField("path", cfg.EEPROM.Path).Fatal("failed to open configuration area")
	}
	defer area.Close()

	var rw io.ReadWriter = stdio{}
	if opts.Port != "" {
		conn, err := serial.Open(opts.Port, &serial.Mode{BaudRate: cfg.Serial.BaudRate})
		if err != nil {
			log.WithError(err).WithField("port", opts.Port).Fatal("failed to open serial port")
		}
		defer conn.Close()
		rw = conn
	}

	logger := datalogger.New(datalogger.Hardware{
		Port:   sim.NewPort(rw, rw),
		Flash:  img,
		EEPROM: area,
		ADC:    sim.NewADC(cfg),
		Timer:  sim.NewTimer(cfg.Sim.TickPeriod),
	})
	logger.Console().SetSentinel(cfg.Download.Sentinel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"image":       cfg.Flash.Image,
		"page_size":   cfg.Flash.PageSize,
		"boundary":    cfg.Flash.Boundary,
		"tick_period": cfg.Sim.TickPeriod,
	}).Info("logger simulator started")

	// The console blocks on reads, so an interrupt must not wait for Run.
	done := make(chan error, 1)
	go func() { done <- logger.Run(ctx) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	switch {
	case errors.Is(err, context.Canceled):
		log.Info("interrupted")
	case errors.Is(err, io.EOF):
		log.Info("console closed")
	case err != nil:
		log.WithError(err).Error("logger stopped")
	}

	page, offset := logger.Store().Cursor()
	log.WithFields(log.Fields{
		"state":  logger.Scheduler().State(),
		"page":   page,
		"offset": offset,
	}).Info("logger simulator stopped")
}

// stdio serves the console on the terminal.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
