package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
)

func startListener(t *testing.T, img *Image) (*Listener, <-chan error) {
	t.Helper()

	ln, err := Listen(context.Background(), "127.0.0.1:0", func() Target { return img.Clone() },
		WithLogger(logger.NewMockLogger().AllowAll()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ln.Serve(context.Background()) }()
	t.Cleanup(func() { _ = ln.Close() })

	return ln, done
}

func dial(t *testing.T, ln *Listener) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestListener_ServesConnections(t *testing.T) {
	img := testImage(t, 0b000_00_001)
	ln, _ := startListener(t, img)

	a := link.New(connTransport{dial(t, ln)}, logger.NewMockLogger().AllowAll())
	b := link.New(connTransport{dial(t, ln)}, logger.NewMockLogger().AllowAll())

	// Each connection has its own cursor.
	require.NoError(t, a.NextBlock())

	var blkA, blkB link.Block
	require.NoError(t, a.FetchBlock(&blkA))
	require.NoError(t, b.FetchBlock(&blkB))

	assert.Equal(t, img.Bytes()[256:512], blkA[:])
	assert.Equal(t, img.Bytes()[:256], blkB[:])

	assert.Eventually(t, func() bool { return ln.ConnCount() == 2 }, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, ln.Metrics().ConnCount.Load())
	assert.EqualValues(t, 2, ln.Metrics().FetchCount.Load())
}

func TestListener_CloseTearsDownConnections(t *testing.T) {
	img := testImage(t, 0b000_00_001)
	ln, done := startListener(t, img)

	conn := dial(t, ln)
	l := link.New(connTransport{conn}, logger.NewMockLogger().AllowAll())
	_, err := l.Descriptor()
	require.NoError(t, err)

	require.NoError(t, ln.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	assert.Zero(t, ln.ConnCount())

	_, err = l.Descriptor()
	require.Error(t, err)
}

func TestListener_ContextCancel(t *testing.T) {
	img := testImage(t, 1)
	ln, err := Listen(context.Background(), "127.0.0.1:0", func() Target { return img.Clone() },
		WithLogger(logger.NewMockLogger().AllowAll()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ln.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListen_Errors(t *testing.T) {
	_, err := Listen(context.Background(), "127.0.0.1:0", nil)
	require.Error(t, err)

	_, err = Listen(context.Background(), "256.0.0.1:bad", func() Target { return nil })
	require.Error(t, err)
}
