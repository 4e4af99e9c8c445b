package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// pollConn bounds every read with a deadline so the pump can notice Close.
type pollConn struct {
	net.Conn
}

func (c pollConn) Read(b []byte) (int, error) {
	if err := c.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return 0, err
	}

	return c.Conn.Read(b)
}

func dialTCP(cfg *Config) (io.ReadWriteCloser, idleFunc, error) {
	addr := strings.TrimPrefix(cfg.Address(), TCPScheme)

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout())
	if err != nil {
		return nil, nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	return pollConn{conn}, isNetTimeout, nil
}

func isNetTimeout(err error) bool {
	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}
