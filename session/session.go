// Package session brings up a bridge connection and runs dumps over it.
//
// Bring-up follows the bridge's expectations: open the port, wait for the
// microcontroller to settle after its auto-reset, discard whatever it
// printed while booting, select the controller mode, then read the
// descriptor and controller id.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/dump"
	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/ssd"
	"github.com/rwarrender/sibo-ssd-dump/transport"
)

// ErrOpen is returned when the transport cannot be opened.
var ErrOpen = errors.New("session: open failed")

// Port is the transport a session owns. *transport.Port implements it.
type Port interface {
	link.ByteTransport
	Drain() (int, error)
	Close() error
}

var _ Port = (*transport.Port)(nil)

// Info is what the bridge reported during bring-up.
type Info struct {
	Address      string
	Mode         link.Mode
	Descriptor   byte
	ControllerID byte
	Geometry     ssd.Geometry
}

// Session is an open bridge connection. It is NOT goroutine-safe.
type Session struct {
	port   Port
	link   *link.Link
	info   Info
	logger logger.Logger
}

// Open opens the transport described by cfg and brings the bridge up.
// The settle delay comes from cfg unless opts override it.
func Open(ctx context.Context, cfg *transport.Config, opts ...Option) (*Session, error) {
	port, err := transport.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	opts = append([]Option{WithSettleDelay(cfg.SettleDelay()), WithAddress(cfg.Address())}, opts...)

	return New(ctx, port, opts...)
}

// New brings the bridge up over an already open port. The session owns
// port from here on and closes it if bring-up fails.
func New(ctx context.Context, port Port, opts ...Option) (*Session, error) {
	if port == nil {
		return nil, errors.New("session: port is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			_ = port.Close()
			return nil, err
		}
	}

	s := &Session{
		port:   port,
		link:   link.New(port, cfg.logger),
		logger: cfg.logger,
		info:   Info{Address: cfg.address, Mode: cfg.mode},
	}

	if err := s.bringUp(ctx, cfg.settleDelay); err != nil {
		_ = port.Close()
		return nil, err
	}

	return s, nil
}

func (s *Session) bringUp(ctx context.Context, settle time.Duration) error {
	if settle > 0 {
		s.logger.Debug("session: waiting for bridge to settle", "delay", settle)

		timer := time.NewTimer(settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if n, err := s.port.Drain(); err != nil {
		return fmt.Errorf("session: flush: %w", err)
	} else if n > 0 {
		s.logger.Debug("session: flushed boot output", "bytes", n)
	}

	if err := s.link.SelectMode(s.info.Mode); err != nil {
		return fmt.Errorf("session: select mode: %w", err)
	}

	desc, err := s.link.Descriptor()
	if err != nil {
		return fmt.Errorf("session: descriptor: %w", err)
	}

	id, err := s.link.ControllerID()
	if err != nil {
		return fmt.Errorf("session: controller id: %w", err)
	}

	s.info.Descriptor = desc
	s.info.ControllerID = id
	s.info.Geometry = ssd.Decode(desc)

	s.logger.Info("session: bridge ready",
		"mode", s.info.Mode.String(),
		"controllerID", id,
		"descriptor", desc,
		"geometry", s.info.Geometry.String(),
	)

	return nil
}

// Info returns what the bridge reported during bring-up.
func (s *Session) Info() Info {
	return s.info
}

// Link returns the command link for direct use.
func (s *Session) Link() *link.Link {
	return s.link
}

// Dump runs a dump of the session's SSD into sink. The port is drained
// before each retry; opts are applied after the session's defaults.
func (s *Session) Dump(ctx context.Context, sink io.Writer, opts ...dump.Option) (*dump.Result, error) {
	opts = append([]dump.Option{dump.WithLogger(s.logger), dump.WithDrainer(s.port)}, opts...)

	engine, err := dump.New(s.link, opts...)
	if err != nil {
		return nil, err
	}

	return engine.Run(ctx, s.info.Geometry, sink)
}

// Close closes the port.
func (s *Session) Close() error {
	return s.port.Close()
}
