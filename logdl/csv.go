package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/itohio/flashlog/pkg/link"
	"github.com/itohio/flashlog/pkg/sample"
)

func header(channels int, unit string) []string {
	row := []string{"index", "elapsed_s"}
	for ch := range channels {
		row = append(row, fmt.Sprintf("ch%d_%s", ch, unit))
	}
	return row
}

// writeVolts writes one row per sample. Missing readings of a partial record are left empty.
func writeVolts(w io.Writer, channels int, samples []sample.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(channels, "V")); err != nil {
		return err
	}

	row := make([]string, channels+2)
	for _, s := range samples {
		clear(row)
		row[0] = strconv.Itoa(s.Index)
		row[1] = strconv.FormatFloat(s.Elapsed.Seconds(), 'f', -1, 64)
		for ch, v := range s.Volts {
			row[ch+2] = strconv.FormatFloat(float64(v), 'f', 4, 32)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeRaw writes the downloaded readings unconverted.
func writeRaw(w io.Writer, dl *link.Log) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(dl.Channels(), "adc")); err != nil {
		return err
	}

	row := make([]string, dl.Channels()+2)
	for _, rec := range dl.Records {
		clear(row)
		row[0] = strconv.Itoa(rec.Index)
		if dl.Valid {
			row[1] = strconv.Itoa(rec.Index * dl.Options.Interval)
		}
		for ch, v := range rec.Values {
			row[ch+2] = strconv.Itoa(int(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
