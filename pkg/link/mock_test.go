package link

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/flashlog/pkg/config"
	"github.com/itohio/flashlog/pkg/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMock(t *testing.T) {
	dev, err := NewMock(nil, "", 10)
	require.NoError(t, err)
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, 2, dev.opts.Channels)
	assert.False(t, dev.IsConnected())
}

func TestNewMock_InvalidOptions(t *testing.T) {
	_, err := NewMock(nil, "x1#bad", 10)
	assert.Error(t, err)
}

func TestMock_NotConnected(t *testing.T) {
	dev, err := NewMock(nil, "", 10)
	require.NoError(t, err)

	_, err = dev.Download(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, dev.Erase(context.Background()), ErrNotConnected)
}

func TestMock_Download(t *testing.T) {
	cfg := config.Default()
	dev, err := NewMock(cfg, "vV60#mock", 10)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	log, err := dev.Download(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "vV60#mock", log.Header)
	assert.True(t, log.Valid)
	require.Len(t, log.Records, 10)

	first := log.Records[0]
	assert.Equal(t, []uint16{
		sim.Quantize(cfg.Sim.Signals[0].Offset, cfg.Reference.Internal),
		sim.Quantize(cfg.Sim.Signals[1].Offset, cfg.Reference.Supply),
	}, first.Values)

	for i, rec := range log.Records {
		assert.Equal(t, i, rec.Index)
		assert.Len(t, rec.Values, 2)
	}
}

func TestMock_DownloadDropsIncompleteGroup(t *testing.T) {
	// Three records of three channels leave one reading short of a full group.
	dev, err := NewMock(nil, "vvv1#x", 3)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())

	log, err := dev.Download(context.Background())
	require.NoError(t, err)
	require.Len(t, log.Records, 3)
	assert.Len(t, log.Records[2].Values, 2)
}

func TestMock_Erase(t *testing.T) {
	dev, err := NewMock(nil, "", 10)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())

	require.NoError(t, dev.Erase(context.Background()))

	log, err := dev.Download(context.Background())
	require.NoError(t, err)
	assert.Empty(t, log.Records)
}

func TestMock_ConnectTwice(t *testing.T) {
	dev, err := NewMock(nil, "", 1)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())
	assert.Error(t, dev.Connect())
}

func TestMock_GracefulClose(t *testing.T) {
	dev, err := NewMock(nil, "", 100)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for dev.IsConnected() {
			_, _ = dev.Download(context.Background())
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, dev.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("download loop did not stop after Close")
	}
	assert.False(t, dev.IsConnected())
}

func TestMock_Cancelled(t *testing.T) {
	dev, err := NewMock(nil, "", 1)
	require.NoError(t, err)
	require.NoError(t, dev.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dev.Download(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
