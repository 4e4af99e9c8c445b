package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// newTestConfig creates a Config with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithSettleDelay(0),
		WithDrainTimeout(30 * time.Millisecond),
		WithLogger(logger.NewMockLogger().AllowAll()),
	}

	cfg, err := NewConfig("pipe", append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestPort creates a Port backed by the local end of net.Pipe().
// Returns the port and the remote end standing in for the bridge.
func newTestPort(t *testing.T, cfg *Config) (*Port, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	p := NewPort(local, cfg)
	t.Cleanup(func() { _ = p.Close() })

	return p, remote
}

// mustWrite writes data to w, failing the test on error.
func mustWrite(t *testing.T, w io.Writer, data []byte) {
	t.Helper()

	if _, err := w.Write(data); err != nil {
		t.Errorf("mustWrite: %v", err)
	}
}

// readOneByte reads exactly 1 byte from r, failing the test on error.
func readOneByte(t *testing.T, r io.Reader) byte {
	t.Helper()

	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Errorf("readOneByte: %v", err)
	}

	return buf[0]
}
