package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// TargetFunc returns the Target for a new connection.
type TargetFunc func() Target

// Listener serves the emulator over TCP, one Server per accepted
// connection.
type Listener struct {
	ln        net.Listener
	newTarget TargetFunc
	opts      []Option
	logger    logger.Logger
	metrics   *Metrics

	conns  *xsync.MapOf[uint64, net.Conn]
	nextID atomic.Uint64
	wg     sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Listen opens a TCP listener on address. Connections are not accepted
// until Serve is called. opts apply to every Server; WithLogger also sets
// the listener's logger.
func Listen(ctx context.Context, address string, newTarget TargetFunc, opts ...Option) (*Listener, error) {
	if newTarget == nil {
		return nil, errors.New("bridge: target func is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen %s: %w", address, err)
	}

	metrics := cfg.metrics
	if metrics == nil {
		metrics = &Metrics{}
	}

	l := &Listener{
		ln:        ln,
		newTarget: newTarget,
		logger:    cfg.logger.With("listener", ln.Addr().String()),
		metrics:   metrics,
		conns:     xsync.NewMapOf[uint64, net.Conn](),
	}
	l.opts = append(append([]Option{}, opts...), WithMetrics(metrics))
	l.logger.Info("bridge: listening")

	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Metrics returns the counters shared by every connection.
func (l *Listener) Metrics() *Metrics {
	return l.metrics
}

// ConnCount returns the number of live connections.
func (l *Listener) ConnCount() int {
	return l.conns.Size()
}

// Serve accepts connections until Close is called or ctx is done, then
// waits for every connection to finish. It returns nil after Close.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	defer l.wg.Wait()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("bridge: accept: %w", err)
		}

		id := l.nextID.Add(1)
		l.conns.Store(id, conn)
		if l.closed.Load() {
			_ = conn.Close()
		}
		l.wg.Add(1)

		go l.serveConn(ctx, id, conn)
	}
}

func (l *Listener) serveConn(ctx context.Context, id uint64, conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.conns.Delete(id)
		_ = conn.Close()
		l.metrics.decConnCount()
	}()
	l.metrics.incConnCount()

	log := l.logger.With("conn", id, "remote", conn.RemoteAddr().String())
	log.Info("bridge: host connected")

	opts := make([]Option, 0, len(l.opts)+1)
	opts = append(opts, l.opts...)
	opts = append(opts, WithLogger(log))

	srv, err := NewServer(l.newTarget(), opts...)
	if err != nil {
		log.Error("bridge: create server", "error", err)
		return
	}

	if err := srv.Serve(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("bridge: connection ended with error", "error", err)
		return
	}
	log.Info("bridge: host disconnected")
}

// Close stops accepting and closes every live connection.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.closeErr = l.ln.Close()
		l.conns.Range(func(_ uint64, conn net.Conn) bool {
			_ = conn.Close()
			return true
		})
		l.logger.Info("bridge: listener closed")
	})

	return l.closeErr
}
