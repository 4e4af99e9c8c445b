// Package transport opens the byte link between the host and the bridge.
//
// Three drivers sit behind one Port type, selected when the port is opened:
// two local serial implementations and a TCP dialer for serial-over-network
// bridges. Whatever the driver, a Port reads from the device in a pump
// goroutine so that a per-byte read deadline and a drain of stale bytes
// behave the same everywhere.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/internal/pool"
	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// pollInterval bounds how long a driver read blocks before the pump checks
// for Close. Serial drivers only support multiples of 100ms.
const pollInterval = 100 * time.Millisecond

const chunkSize = 512

var (
	// ErrUnknownDriver is returned for a Driver with no implementation.
	ErrUnknownDriver = errors.New("transport: unknown driver")
	// ErrReadTimeout is returned when no byte arrives within the read timeout.
	ErrReadTimeout = errors.New("transport: read timeout")
	// ErrClosed is returned by operations on a closed Port.
	ErrClosed = errors.New("transport: port closed")
)

// idleFunc reports whether a driver read error is only an expired poll.
type idleFunc func(err error) bool

type chunk struct {
	data []byte
	err  error
}

// Port is an open byte link to the bridge. It implements io.ByteReader
// and io.ByteWriter.
//
// ReadByte, WriteByte and Drain must be called from one goroutine at a
// time; Close may be called from any goroutine.
type Port struct {
	rwc    io.ReadWriteCloser
	name   string
	idle   idleFunc
	cfg    *Config
	logger logger.Logger

	chunks  chan chunk
	done    chan struct{}
	pending []byte
	err     error

	closeOnce sync.Once
	closeErr  error
}

// NewPort wraps an already open stream. Reads on rwc are expected to block
// until data arrives or rwc is closed.
func NewPort(rwc io.ReadWriteCloser, cfg *Config) *Port {
	return newPort(rwc, cfg, nil)
}

func newPort(rwc io.ReadWriteCloser, cfg *Config, idle idleFunc) *Port {
	p := &Port{
		rwc:    rwc,
		name:   cfg.Address(),
		idle:   idle,
		cfg:    cfg,
		logger: cfg.GetLogger().With("port", cfg.Address()),
		chunks: make(chan chunk, 16),
		done:   make(chan struct{}),
	}
	go p.pump()

	return p
}

// Name returns the address the port was opened with.
func (p *Port) Name() string {
	return p.name
}

func (p *Port) pump() {
	defer close(p.chunks)

	for {
		buf := make([]byte, chunkSize)
		n, err := p.rwc.Read(buf)

		if n > 0 {
			select {
			case p.chunks <- chunk{data: buf[:n]}:
			case <-p.done:
				return
			}
		}

		if err != nil {
			if p.idle != nil && p.idle(err) {
				select {
				case <-p.done:
					return
				default:
					continue
				}
			}

			select {
			case p.chunks <- chunk{err: err}:
			case <-p.done:
			}

			return
		}
	}
}

// fill waits up to timeout for the next chunk. A non-positive timeout
// waits forever.
func (p *Port) fill(timeout time.Duration) error {
	if p.err != nil {
		return p.err
	}

	expired, release := pool.Deadline(timeout)
	defer release()

	select {
	case c, ok := <-p.chunks:
		switch {
		case !ok:
			p.err = ErrClosed
		case c.err != nil:
			p.err = fmt.Errorf("transport: read %s: %w", p.name, c.err)
		default:
			p.pending = c.data
			return nil
		}

		return p.err

	case <-p.done:
		return ErrClosed

	case <-expired:
		return ErrReadTimeout
	}
}

// ReadByte reads one byte, waiting at most the configured read timeout.
func (p *Port) ReadByte() (byte, error) {
	if len(p.pending) == 0 {
		if err := p.fill(p.cfg.ReadTimeout()); err != nil {
			return 0, err
		}
	}

	b := p.pending[0]
	p.pending = p.pending[1:]

	return b, nil
}

// WriteByte writes one byte.
func (p *Port) WriteByte(b byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	n, err := p.rwc.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("transport: write %s: %w", p.name, err)
	}
	if n != 1 {
		return io.ErrShortWrite
	}

	return nil
}

// Drain discards bytes until the line has been silent for the configured
// drain timeout, and returns how many were discarded.
func (p *Port) Drain() (int, error) {
	discarded := len(p.pending)
	p.pending = nil

	for {
		err := p.fill(p.cfg.DrainTimeout())
		if errors.Is(err, ErrReadTimeout) {
			break
		}
		if err != nil {
			return discarded, err
		}
		discarded += len(p.pending)
		p.pending = nil
	}

	if discarded > 0 {
		p.logger.Debug("transport: drained stale bytes", "count", discarded)
	}

	return discarded, nil
}

// Close closes the underlying stream and stops the pump.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.closeErr = p.rwc.Close()
	})

	return p.closeErr
}

// Open opens the port described by cfg with its driver.
func Open(cfg *Config) (*Port, error) {
	open, ok := drivers[cfg.Driver()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver())
	}

	rwc, idle, err := open(cfg)
	if err != nil {
		return nil, err
	}
	cfg.GetLogger().Debug("transport: opened", "address", cfg.Address(), "driver", cfg.Driver(), "baud", cfg.BaudRate())

	return newPort(rwc, cfg, idle), nil
}

type openFunc func(cfg *Config) (io.ReadWriteCloser, idleFunc, error)

var drivers = map[Driver]openFunc{
	DriverJacobsa:  openJacobsa,
	DriverGoburrow: openGoburrow,
	DriverTCP:      dialTCP,
}
