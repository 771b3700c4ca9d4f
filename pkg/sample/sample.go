// Package sample turns downloaded readings into voltages and reduces long logs
// for export.
package sample

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itohio/flashlog/pkg/codec"
	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/link"
	"github.com/itohio/flashlog/pkg/options"
)

// Sample represents one record converted to physical values.
type Sample struct {
	Index   int           // Position in the log
	Elapsed time.Duration // Time since logging started
	Volts   []float32     // One voltage per channel
}

// Converter is a function type that converts a RawRecord channel to a Sample channel.
type Converter func(in <-chan link.RawRecord) <-chan Sample

// NewConverter creates a converter for records of a log with the given header.
// An invalid header yields readings against the supply reference and no elapsed time.
// The converter stops and closes its output when ctx is done.
func NewConverter(ctx context.Context, log *link.Log, ref config.ReferenceConfig, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan link.RawRecord) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				if len(raw.Values) > log.Channels() {
					logrus.WithField("index", raw.Index).Warn("dropping record with too many readings")
					continue
				}
				select {
				case out <- Convert(raw, log, ref):
				case <-ctx.Done():
					return
				}
			}
		}()

		return out
	}
}

// Convert converts a single record of log.
func Convert(raw link.RawRecord, log *link.Log, ref config.ReferenceConfig) Sample {
	s := Sample{
		Index: raw.Index,
		Volts: make([]float32, len(raw.Values)),
	}

	if log.Valid {
		s.Elapsed = time.Duration(raw.Index*log.Options.Interval) * time.Second
	}

	for ch, v := range raw.Values {
		vref := ref.Supply
		if log.Valid && log.Options.Refs[ch] == options.Internal {
			vref = ref.Internal
		}
		s.Volts[ch] = adcToVoltage(v, vref)
	}

	return s
}

// Records streams the records of log until ctx is done.
func Records(ctx context.Context, log *link.Log) <-chan link.RawRecord {
	out := make(chan link.RawRecord)

	go func() {
		defer close(out)

		for _, raw := range log.Records {
			select {
			case out <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// adcToVoltage converts a 10-bit ADC reading to voltage.
func adcToVoltage(adc uint16, vref float32) float32 {
	return float32(adc) / float32(codec.SampleMask+1) * vref
}
