// Package console implements the operator menu served over the serial link:
// download and erase of the log, and entry of the option line.
package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itohio/flashlog/pkg/codec"
	"github.com/itohio/flashlog/pkg/flash"
	"github.com/itohio/flashlog/pkg/options"
)

const (
	// Prompt is shown while the log region holds data.
	Prompt = "[D]ownload/[e]rase? "
	// EOFMarker terminates a download.
	EOFMarker = "[EOF]"

	help = "Enter option string on one line: [vV]{1,4}[0-9]+#.*\r\n" +
		"  [vV]: one per channel, v = internal reference, V = supply voltage\r\n" +
		"  [0-9]+: sampling interval, seconds (1-255)\r\n" +
		"  #.*: free form log description\r\n"
)

// Port is the character link to the operator. Reads and writes block.
type Port interface {
	io.ByteScanner
	io.ByteWriter
	// Buffered returns the number of received bytes waiting to be read.
	Buffered() int
}

// Log is the part of the page store the console needs.
type Log interface {
	io.ReaderAt
	HasData() (bool, error)
	EraseAll() error
	Size() int64
	Capacity(channels int) int
}

// Options loads and saves the persisted option line.
type Options interface {
	Load() (options.Config, error)
	Save(cfg options.Config) error
}

var (
	_ Log     = (*flash.Store)(nil)
	_ Options = (*options.Store)(nil)
)

// Console serves one operator session.
type Console struct {
	port     Port
	log      Log
	opts     Options
	sentinel bool
	afterCR  bool // last line ended with CR; one LF following it is dropped
}

// New creates a console.
func New(port Port, log Log, opts Options) *Console {
	return &Console{
		port: port,
		log:  log,
		opts: opts,
	}
}

// SetSentinel makes downloads stop at two consecutive full-scale readings.
func (c *Console) SetSentinel(on bool) {
	c.sentinel = on
}

// Menu offers download and erase for as long as the log region holds data.
func (c *Console) Menu() error {
	for {
		has, err := c.log.HasData()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}

		if err := c.Print(Prompt); err != nil {
			return err
		}
		ch, err := c.readByte()
		if err != nil {
			return err
		}
		if err := c.Print("\r\n"); err != nil {
			return err
		}

		switch ch {
		case 'D':
			err = c.Download()
		case 'e':
			_, err = c.Erase()
		}
		if err != nil {
			return err
		}
	}
}

// Download prints the stored option line, then the log one record per line,
// followed by the end-of-file marker.
func (c *Console) Download() error {
	channels := 1
	header := "?"
	cfg, err := c.opts.Load()
	switch {
	case err == nil:
		channels = cfg.Channels
		header = cfg.String()
	case !errors.Is(err, options.ErrInvalidFormat):
		return err
	}

	if err := c.Print(header + "\r\n"); err != nil {
		return err
	}

	var opts []codec.Option
	if c.sentinel {
		opts = append(opts, codec.WithSentinel())
	}
	d := codec.NewDecoder(c.log, c.log.Size(), opts...)

	var (
		line     strings.Builder
		printErr error
	)
	for rec := range d.Records(channels) {
		line.Reset()
		for i, v := range rec {
			if i > 0 {
				line.WriteByte(' ')
			}
			fmt.Fprintf(&line, "%04d", v)
		}
		line.WriteString("\r\n")
		if printErr = c.Print(line.String()); printErr != nil {
			break
		}
	}
	if printErr != nil {
		return printErr
	}
	if err := d.Err(); err != nil {
		return err
	}

	return c.Print("\r\n" + EOFMarker + "\r\n")
}

// Erase asks for confirmation and erases the whole log region on 'y'.
// Any other key returns false without touching storage.
func (c *Console) Erase() (bool, error) {
	if err := c.Print("Really erase? "); err != nil {
		return false, err
	}
	ch, err := c.readByte()
	if err != nil {
		return false, err
	}
	if ch != 'y' {
		return false, c.Print("\r\n")
	}

	if err := c.log.EraseAll(); err != nil {
		return false, err
	}
	return true, c.Print("\r\nErased\r\n")
}

// Configure prompts for option lines until one parses, then saves and returns it.
func (c *Console) Configure() (options.Config, error) {
	for {
		if err := c.Print(help); err != nil {
			return options.Config{}, err
		}

		line, err := c.ReadLine(options.RecordSize - 1)
		if err != nil {
			return options.Config{}, err
		}

		cfg, err := options.Parse(line)
		if err != nil {
			if err := c.Print("Invalid options string.\r\n"); err != nil {
				return options.Config{}, err
			}
			continue
		}

		if err := c.opts.Save(cfg); err != nil {
			return options.Config{}, err
		}
		return cfg, nil
	}
}

// ReportCapacity prints how many records fit into the log region and how long
// logging with cfg can run.
func (c *Console) ReportCapacity(cfg options.Config) error {
	records := c.log.Capacity(cfg.Channels)
	d := time.Duration(records) * time.Duration(cfg.Interval) * time.Second
	return c.Print(fmt.Sprintf("Capacity %d records, %s\r\n", records, d))
}

// ReadLine reads one line terminated by CR or LF, echoing what is typed.
// Backspace removes the last character. Bytes beyond limit are dropped.
func (c *Console) ReadLine(limit int) (string, error) {
	buf := make([]byte, 0, limit)
	for {
		ch, err := c.readByte()
		if err != nil {
			return "", err
		}

		switch ch {
		case '\r', '\n':
			if ch == '\r' {
				c.afterCR = true
				if err := c.skipLF(); err != nil {
					return "", err
				}
			}
			return string(buf), c.Print("\r\n")
		case '\b', 0x7F:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				if err := c.Print("\b \b"); err != nil {
					return "", err
				}
			}
		default:
			if len(buf) >= limit {
				continue
			}
			buf = append(buf, ch)
			if err := c.port.WriteByte(ch); err != nil {
				return "", err
			}
		}
	}
}

// Drain discards every byte waiting on the port.
func (c *Console) Drain() error {
	c.afterCR = false
	for c.port.Buffered() > 0 {
		if _, err := c.port.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

// Buffered returns the number of received bytes waiting to be read, not counting
// the LF that completes a CRLF line ending.
func (c *Console) Buffered() int {
	if err := c.skipLF(); err != nil {
		return 0
	}
	return c.port.Buffered()
}

// readByte reads one byte, dropping the LF of a CRLF pair split across reads.
func (c *Console) readByte() (byte, error) {
	skip := c.afterCR
	c.afterCR = false

	ch, err := c.port.ReadByte()
	if err != nil || !skip || ch != '\n' {
		return ch, err
	}
	return c.port.ReadByte()
}

// skipLF drops the LF after a CR if it has already arrived.
func (c *Console) skipLF() error {
	if !c.afterCR || c.port.Buffered() == 0 {
		return nil
	}
	c.afterCR = false

	ch, err := c.port.ReadByte()
	if err != nil {
		return err
	}
	if ch != '\n' {
		return c.port.UnreadByte()
	}
	return nil
}

// Print writes s to the port.
func (c *Console) Print(s string) error {
	for i := 0; i < len(s); i++ {
		if err := c.port.WriteByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write implements io.Writer so other components can report through the console.
func (c *Console) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := c.port.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}
