package link

import "context"

// Device defines the interface for logger links (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Download(ctx context.Context) (*Log, error)
	Erase(ctx context.Context) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
