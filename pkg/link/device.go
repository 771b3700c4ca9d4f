package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the console speed of the logger.
	DefaultBaudRate = 19200
	// DefaultTimeout is how long the link waits for the logger to send something.
	DefaultTimeout = 5 * time.Second
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the logger console.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration

	conn      serial.Port
	mu        sync.Mutex
	connected bool
}

// New creates a new Serial link with the specified port, baud rate and response timeout.
func New(port string, baudRate int, timeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  timeout,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	if err := port.SetReadTimeout(d.timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	return nil
}

// Close closes the connection.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	if err := d.conn.Close(); err != nil {
		logrus.WithError(err).WithField("port", d.port).Warn("error closing serial port")
	}
	d.conn = nil
	d.connected = false

	return nil
}

// IsConnected returns whether the link is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Download asks the logger for its log and parses the reply. The logger must be
// showing the download/erase menu.
func (d *Serial) Download(ctx context.Context) (*Log, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.command(ctx, "D"); err != nil {
		return nil, err
	}

	log, err := ParseLog(&timeoutReader{ctx: ctx, r: d.conn})
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"header":  log.Header,
		"records": len(log.Records),
	}).Debug("downloaded log")
	return log, nil
}

// Erase erases the log, confirming the logger's question.
func (d *Serial) Erase(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.command(ctx, "ey"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(&timeoutReader{ctx: ctx, r: d.conn})
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "Erased") {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to erase: %w", err)
	}
	return fmt.Errorf("failed to erase: %w", ErrTruncated)
}

// command drops stale input and sends cmd. Callers hold d.mu.
func (d *Serial) command(ctx context.Context, cmd string) error {
	if !d.connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.conn.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input: %w", err)
	}
	if _, err := d.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	return nil
}

// timeoutReader turns a read timeout of the serial port into ErrTimeout and
// stops once ctx is done.
type timeoutReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.r.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}
