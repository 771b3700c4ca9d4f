// Package link talks to the logger console from a host: it triggers downloads and
// erases and parses the downloaded log.
package link

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/itohio/flashlog/pkg/codec"
	"github.com/itohio/flashlog/pkg/console"
	"github.com/itohio/flashlog/pkg/options"
)

var (
	// ErrNotConnected is returned by operations on a closed link.
	ErrNotConnected = errors.New("not connected")
	// ErrTruncated is returned when a download ends before the end-of-file marker.
	ErrTruncated = errors.New("download ended before " + console.EOFMarker)
	// ErrTimeout is returned when the logger stops sending in the middle of an exchange.
	ErrTimeout = errors.New("logger did not respond")
)

// RawRecord is one downloaded record: a reading per configured channel.
type RawRecord struct {
	Index  int      // Position in the log, starting at 0
	Values []uint16 // 10-bit readings in channel order
}

// Log is a parsed download.
type Log struct {
	Header  string         // Option line as stored on the logger, "?" when invalid
	Options options.Config // Parsed header, zero when Valid is false
	Valid   bool
	Records []RawRecord
}

// Channels returns the channel count of the log, 1 when the options were invalid.
func (l *Log) Channels() int {
	if !l.Valid {
		return 1
	}
	return l.Options.Channels
}

// ParseLog reads a download: prompt remnants and blank lines, the option line,
// one record per line and the end-of-file marker.
func ParseLog(r io.Reader) (*Log, error) {
	scanner := bufio.NewScanner(r)

	var log *Log
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if log == nil {
			if strings.HasPrefix(line, strings.TrimSpace(console.Prompt)) {
				continue
			}
			log = parseHeader(line)
			continue
		}

		if line == console.EOFMarker {
			return log, nil
		}

		rec, err := parseRecord(line, log.Channels())
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(log.Records), err)
		}
		rec.Index = len(log.Records)
		log.Records = append(log.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrTruncated
}

func parseHeader(line string) *Log {
	cfg, err := options.Parse(line)
	if err != nil {
		return &Log{Header: line}
	}
	return &Log{
		Header:  line,
		Options: cfg,
		Valid:   true,
	}
}

// parseRecord parses a line of space separated readings.
// Format: dddd[ dddd]{0,3}
// Example: 0512 1023 0007
func parseRecord(line string, channels int) (RawRecord, error) {
	fields := strings.Fields(line)
	if len(fields) > channels {
		return RawRecord{}, fmt.Errorf("invalid record: expected at most %d values, got %d", channels, len(fields))
	}

	values := make([]uint16, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return RawRecord{}, fmt.Errorf("invalid reading: %w", err)
		}
		if v > codec.SampleMask {
			return RawRecord{}, fmt.Errorf("reading out of range: %d (max %d)", v, codec.SampleMask)
		}
		values[i] = uint16(v)
	}

	return RawRecord{Values: values}, nil
}
