package bridge

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// connTransport adapts a net.Conn to link.ByteTransport, one byte per call.
type connTransport struct {
	conn net.Conn
}

func (c connTransport) ReadByte() (byte, error) {
	var b [1]byte
	if err := c.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(c.conn, b[:]); err != nil {
		return 0, err
	}

	return b[0], nil
}

func (c connTransport) WriteByte(b byte) error {
	_, err := c.conn.Write([]byte{b})
	return err
}

// testImage returns an image whose every byte encodes its device and block.
func testImage(t *testing.T, descriptor byte) *Image {
	t.Helper()

	img, err := NewImage(descriptor, 0x42, nil)
	require.NoError(t, err)

	g := img.Geometry()
	for dev := 0; dev < g.DeviceCount; dev++ {
		for b := 0; b < g.BlockCount; b++ {
			off := (dev*g.BlockCount + b) * link.BlockSize
			for i := 0; i < link.BlockSize; i++ {
				img.data[off+i] = byte(dev*31 + b + i)
			}
		}
	}

	return img
}

// startServer serves target on one end of a net.Pipe and returns a Link
// on the other end. The returned channel receives Serve's result.
func startServer(t *testing.T, target Target, opts ...Option) (*link.Link, net.Conn, <-chan error) {
	t.Helper()

	host, dev := net.Pipe()
	t.Cleanup(func() {
		_ = host.Close()
		_ = dev.Close()
	})

	opts = append([]Option{WithLogger(logger.NewMockLogger().AllowAll())}, opts...)
	srv, err := NewServer(target, opts...)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), dev) }()

	return link.New(connTransport{host}, logger.NewMockLogger().AllowAll()), host, done
}
