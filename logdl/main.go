package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/link"
	"github.com/itohio/flashlog/pkg/sample"
)

func main() {
	opts := readCommandLineOptions()

	if opts.List {
		ports, err := link.Ports()
		if err != nil {
			log.WithError(err).Fatal("failed to list serial ports")
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if opts.Port != "" {
		cfg.Serial.Port = opts.Port
	}
	if opts.Average >= 0 {
		cfg.Download.AverageSamples = opts.Average
	}
	if opts.MaxPoints >= 0 {
		cfg.Download.MaxPoints = opts.MaxPoints
	}

	var device link.Device
	if opts.Mock {
		device, err = link.NewMock(cfg, "", opts.MockRecords)
		if err != nil {
			log.WithError(err).Fatal("failed to create mocked logger")
		}
	} else {
		device = link.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Download.Timeout)
	}

	if err := device.Connect(); err != nil {
		log.WithError(err).WithField("port", cfg.Serial.Port).Fatal("failed to connect")
	}
	defer device.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dl, err := device.Download(ctx)
	if err != nil {
		log.WithError(err).Fatal("download failed")
	}
	log.WithFields(log.Fields{
		"options":  dl.Header,
		"valid":    dl.Valid,
		"records":  len(dl.Records),
		"channels": dl.Channels(),
	}).Info("log downloaded")
	if !dl.Valid {
		log.Warn("stored options are invalid, readings are treated as one supply referenced channel")
	}

	out := io.Writer(os.Stdout)
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			log.WithError(err).Fatal("failed to create output file")
		}
		defer f.Close()
		out = f
	}

	if opts.Raw {
		err = writeRaw(out, dl)
	} else {
		stream := sample.NewConverter(ctx, dl, cfg.Reference, 0)(sample.Records(ctx, dl))
		if cfg.Download.AverageSamples > 1 {
			stream = sample.NewAveragingConverter(ctx, cfg.Download.AverageSamples, 0)(stream)
		}

		samples := make([]sample.Sample, 0, len(dl.Records))
		for s := range stream {
			samples = append(samples, s)
		}
		if err := ctx.Err(); err != nil {
			log.WithError(err).Fatal("conversion interrupted")
		}
		samples = sample.DownsampleSamples(nil, samples, cfg.Download.MaxPoints)
		for ch, r := range sample.Stats(samples) {
			log.WithFields(log.Fields{
				"channel": ch,
				"min":     r.Min,
				"max":     r.Max,
				"mean":    r.Mean,
			}).Info("channel range")
		}
		err = writeVolts(out, dl.Channels(), samples)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to write output")
	}

	if opts.Erase {
		if err := device.Erase(ctx); err != nil {
			log.WithError(err).Fatal("erase failed")
		}
		log.Info("log erased")
	}
}
