// Package options parses, validates and persists the logging parameters entered
// on the console as a single option line:
//
//	{v|V}{1,4} interval '#' label
//
// 'v' selects the internal bandgap reference for a channel, 'V' the supply voltage.
// The number of reference characters is the channel count.
package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrInvalidFormat is returned for option lines and persisted records that do not
// follow the grammar or are out of bounds.
var ErrInvalidFormat = errors.New("invalid options string")

const (
	// MaxChannels is the number of analog channels that can be logged.
	MaxChannels = 4
	// MaxInterval is the longest sampling interval in seconds.
	MaxInterval = 255
	// LabelCapacity is the number of label bytes kept; longer labels are truncated.
	LabelCapacity = 64
)

// Reference selects the analog comparison voltage of a channel.
type Reference uint8

const (
	// Internal is the internal bandgap reference.
	Internal Reference = iota + 1
	// Supply is the supply voltage reference.
	Supply
)

// Char returns the option-line character of the reference.
func (r Reference) Char() byte {
	switch r {
	case Internal:
		return 'v'
	case Supply:
		return 'V'
	default:
		return '?'
	}
}

func (r Reference) String() string {
	switch r {
	case Internal:
		return "internal"
	case Supply:
		return "supply"
	default:
		return fmt.Sprintf("Reference(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the recognized references.
func (r Reference) Valid() bool {
	return r == Internal || r == Supply
}

func referenceOf(c byte) (Reference, bool) {
	switch c {
	case 'v':
		return Internal, true
	case 'V':
		return Supply, true
	default:
		return 0, false
	}
}

// Config holds the logging parameters.
type Config struct {
	Refs     [MaxChannels]Reference // reference per channel, unused entries zero
	Channels int                    // 1..MaxChannels
	Interval int                    // seconds, 1..MaxInterval
	Label    string
}

// Parse parses an option line. Any deviation from the grammar yields ErrInvalidFormat.
func Parse(line string) (Config, error) {
	var cfg Config

	i := 0
	for i < len(line) {
		ref, ok := referenceOf(line[i])
		if !ok {
			break
		}
		if cfg.Channels == MaxChannels {
			return Config{}, fmt.Errorf("more than %d channels: %w", MaxChannels, ErrInvalidFormat)
		}
		cfg.Refs[cfg.Channels] = ref
		cfg.Channels++
		i++
	}
	if cfg.Channels == 0 {
		return Config{}, fmt.Errorf("no channel references: %w", ErrInvalidFormat)
	}

	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return Config{}, fmt.Errorf("missing interval: %w", ErrInvalidFormat)
	}
	interval, err := strconv.Atoi(line[start:i])
	if err != nil || interval < 1 || interval > MaxInterval {
		return Config{}, fmt.Errorf("interval %q out of range 1-%d: %w", line[start:i], MaxInterval, ErrInvalidFormat)
	}
	cfg.Interval = interval

	if i == len(line) || line[i] != '#' {
		return Config{}, fmt.Errorf("missing '#' before label: %w", ErrInvalidFormat)
	}

	label := line[i+1:]
	if len(label) > LabelCapacity {
		n := LabelCapacity
		for n > 0 && !utf8.RuneStart(label[n]) {
			n--
		}
		label = label[:n]
	}
	cfg.Label = label

	return cfg, nil
}

// Validate checks the bounds of a Config that did not come from Parse.
func (c Config) Validate() error {
	if c.Channels < 1 || c.Channels > MaxChannels {
		return fmt.Errorf("channel count %d: %w", c.Channels, ErrInvalidFormat)
	}
	for i := range c.Channels {
		if !c.Refs[i].Valid() {
			return fmt.Errorf("channel %d reference %v: %w", i, c.Refs[i], ErrInvalidFormat)
		}
	}
	if c.Interval < 1 || c.Interval > MaxInterval {
		return fmt.Errorf("interval %d: %w", c.Interval, ErrInvalidFormat)
	}
	if len(c.Label) > LabelCapacity {
		return fmt.Errorf("label longer than %d bytes: %w", LabelCapacity, ErrInvalidFormat)
	}
	return nil
}

// String returns the canonical option line. Parse(c.String()) == c for valid configs.
func (c Config) String() string {
	var sb strings.Builder
	for i := range c.Channels {
		sb.WriteByte(c.Refs[i].Char())
	}
	sb.WriteString(strconv.Itoa(c.Interval))
	sb.WriteByte('#')
	sb.WriteString(c.Label)
	return sb.String()
}
