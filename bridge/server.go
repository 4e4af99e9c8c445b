package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/ssd"
)

type config struct {
	logger      logger.Logger
	metrics     *Metrics
	shortFetch  map[int]struct{}
	shortLength int
}

func defaultConfig() config {
	return config{
		logger:      logger.GetLogger(),
		shortLength: link.BlockSize / 2,
	}
}

// Option is a functional option for configuring a Server.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("bridge: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithMetrics makes the server count into m instead of its own Metrics.
func WithMetrics(m *Metrics) Option {
	return optFunc(func(cfg *config) error {
		if m == nil {
			return errors.New("bridge: metrics must not be nil")
		}
		cfg.metrics = m

		return nil
	})
}

// WithShortFetch truncates the answer to the given fetch-block commands,
// counted from 1 per connection, to emulate a lossy link.
func WithShortFetch(fetches ...int) Option {
	return optFunc(func(cfg *config) error {
		if cfg.shortFetch == nil {
			cfg.shortFetch = make(map[int]struct{}, len(fetches))
		}
		for _, n := range fetches {
			if n < 1 {
				return fmt.Errorf("bridge: fetch number %d must be at least 1", n)
			}
			cfg.shortFetch[n] = struct{}{}
		}

		return nil
	})
}

// Server answers host commands from a Target. It handles one host at a
// time and is NOT goroutine-safe.
type Server struct {
	target  Target
	cfg     config
	logger  logger.Logger
	metrics *Metrics
	fetches int
}

// NewServer creates a Server for target.
func NewServer(target Target, opts ...Option) (*Server, error) {
	if target == nil {
		return nil, errors.New("bridge: target is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	metrics := cfg.metrics
	if metrics == nil {
		metrics = &Metrics{}
	}

	return &Server{
		target:  target,
		cfg:     cfg,
		logger:  cfg.logger,
		metrics: metrics,
	}, nil
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Serve reads commands from rw until the host hangs up, ctx is done or rw
// fails. A hang up returns nil.
//
// ctx is checked between commands; cancel a blocked read by closing rw.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	w := bufio.NewWriterSize(rw, link.BlockSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("bridge: read command: %w", err)
		}

		s.handle(link.Command(b), w)

		if err := w.Flush(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("bridge: write response: %w", err)
		}
	}
}

func (s *Server) handle(cmd link.Command, w *bufio.Writer) {
	s.metrics.incCommandCount()
	s.logger.Debug("bridge: command", "cmd", cmd.String())

	switch cmd {
	case link.CmdReset:
		s.target.Reset()

	case link.CmdModeASIC4, link.CmdModeASIC5:
		s.target.SetMode(link.Mode(cmd))

	case link.CmdGetDescriptor:
		_ = w.WriteByte(s.target.Descriptor())

	case link.CmdGetControllerID:
		_ = w.WriteByte(s.target.ControllerID())

	case link.CmdFetchBlock:
		s.fetch(w)

	case link.CmdNextBlock:
		s.target.NextBlock()

	case link.CmdNextDevice:
		s.target.NextDevice()

	case link.CmdDumpAll:
		s.dumpAll(w)

	default:
		s.metrics.incUnknownCount()
		s.logger.Warn("bridge: unknown command ignored", "byte", byte(cmd))
	}
}

func (s *Server) fetch(w *bufio.Writer) {
	var blk link.Block
	s.target.ReadBlock(&blk)
	s.fetches++
	s.metrics.incFetchCount()

	resp := blk[:]
	if _, short := s.cfg.shortFetch[s.fetches]; short {
		resp = resp[:s.cfg.shortLength]
		s.logger.Debug("bridge: truncating fetch", "fetch", s.fetches, "bytes", len(resp))
	}

	_, _ = w.Write(resp)
}

// dumpAll streams every block of every device from the start of the SSD.
// The cursor is left reset.
func (s *Server) dumpAll(w *bufio.Writer) {
	var (
		blk  link.Block
		g    = ssd.Decode(s.target.Descriptor())
		sent int
	)

	s.target.Reset()
	for dev := 0; dev < g.DeviceCount; dev++ {
		for b := 0; b < g.BlockCount; b++ {
			s.target.ReadBlock(&blk)
			s.metrics.incFetchCount()
			if _, err := w.Write(blk[:]); err != nil {
				return
			}
			sent++
			s.target.NextBlock()
		}
		s.target.NextDevice()
	}
	s.target.Reset()

	s.logger.Debug("bridge: streamed image", "blocks", sent)
}
