package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/ssd"
)

var (
	// ErrNoDevice is returned when there is nothing to dump: the descriptor
	// reports no SSD. No command is sent.
	ErrNoDevice = errors.New("dump: no device")
	// ErrSink wraps failures to append to the output.
	ErrSink = errors.New("dump: sink write failed")
	// ErrStreamFirstBlock is returned by New when stream mode and
	// first-block-only are both enabled.
	ErrStreamFirstBlock = errors.New("dump: stream and first-block-only are exclusive")
)

// Bridge is the part of the link command set a dump uses. *link.Link
// implements it.
type Bridge interface {
	Reset() error
	FetchBlock(blk *link.Block) error
	NextBlock() error
	NextDevice() error
	StreamAll(w io.Writer, n int64) (int64, error)
}

var _ Bridge = (*link.Link)(nil)

// Result summarises a dump.
type Result struct {
	Plan         Plan
	BytesWritten int64
	Elapsed      time.Duration
	// Throughput is in KB/s, computed over one device's worth of blocks.
	Throughput float64
}

// Engine runs dumps over a Bridge. It is not goroutine-safe; it owns the
// bridge and the sink for the duration of Run.
type Engine struct {
	bridge  Bridge
	cfg     config
	logger  logger.Logger
	metrics Metrics
}

// New creates an Engine.
func New(bridge Bridge, opts ...Option) (*Engine, error) {
	if bridge == nil {
		return nil, errors.New("dump: bridge is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	// the bridge streams the whole SSD and cannot stop after one block
	if cfg.stream && cfg.firstBlockOnly {
		return nil, ErrStreamFirstBlock
	}

	return &Engine{bridge: bridge, cfg: cfg, logger: cfg.logger}, nil
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *Metrics {
	return &e.metrics
}

// Run dumps every block described by g to sink.
//
// The returned Result is never nil; on error it accounts for what was
// written before the failure. ctx is checked between blocks only.
func (e *Engine) Run(ctx context.Context, g ssd.Geometry, sink io.Writer) (*Result, error) {
	plan := PlanFor(g, e.cfg.firstBlockOnly)
	res := &Result{Plan: plan}

	if plan.Empty() {
		e.logger.Warn("dump: no device, nothing to dump", "descriptor", g.Descriptor)
		return res, ErrNoDevice
	}

	e.logger.Info("dump: starting", "devices", plan.Devices, "blocks", plan.Blocks, "bytes", plan.Bytes(), "stream", e.cfg.stream)

	if err := e.bridge.Reset(); err != nil {
		return res, err
	}

	start := e.cfg.clock()

	var err error
	if e.cfg.stream {
		err = e.stream(plan, sink, res)
	} else {
		err = e.blocks(ctx, plan, sink, res, start)
	}

	res.Elapsed = e.cfg.clock().Sub(start)
	if err != nil {
		return res, err
	}
	res.Throughput = Throughput(plan.Blocks, res.Elapsed)

	e.logger.Info("dump: complete",
		"bytes", res.BytesWritten,
		"elapsed", res.Elapsed,
		"kbps", res.Throughput,
	)

	return res, nil
}

func (e *Engine) blocks(ctx context.Context, plan Plan, sink io.Writer, res *Result, start time.Time) error {
	var blk link.Block

	for dev := 0; dev < plan.Devices; dev++ {
		for b := 0; b < plan.Blocks; b++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := e.fetch(&blk, dev, b); err != nil {
				return err
			}

			n, err := sink.Write(blk[:])
			res.BytesWritten += int64(n)
			e.metrics.addBytesWritten(n)
			if err != nil {
				return fmt.Errorf("%w: device %d block %d: %w", ErrSink, dev, b, err)
			}

			if err := e.bridge.NextBlock(); err != nil {
				return err
			}
			e.metrics.incBlockAdvanceCount()

			if e.cfg.progress != nil {
				e.cfg.progress(Progress{
					Device:       dev,
					Block:        b,
					Devices:      plan.Devices,
					Blocks:       plan.Blocks,
					BytesWritten: res.BytesWritten,
					TotalBytes:   plan.Bytes(),
					Elapsed:      e.cfg.clock().Sub(start),
				})
			}
		}

		if err := e.bridge.NextDevice(); err != nil {
			return err
		}
		e.metrics.incDeviceAdvanceCount()
	}

	return nil
}

// fetch reads one block, retrying short reads up to the retry limit.
func (e *Engine) fetch(blk *link.Block, dev, b int) error {
	for attempt := 0; ; attempt++ {
		e.metrics.incFetchCount()

		err := e.bridge.FetchBlock(blk)
		if err == nil {
			return nil
		}
		if !errors.Is(err, link.ErrShortRead) || attempt >= e.cfg.retryLimit {
			return fmt.Errorf("dump: device %d block %d: %w", dev, b, err)
		}

		e.metrics.incRetryCount()
		e.logger.Warn("dump: short block, fetching again",
			"device", dev,
			"block", b,
			"retry", attempt+1,
			"maxRetry", e.cfg.retryLimit,
			"error", err,
		)

		if e.cfg.drainer != nil {
			if _, derr := e.cfg.drainer.Drain(); derr != nil {
				return fmt.Errorf("dump: device %d block %d: %w (drain: %w)", dev, b, err, derr)
			}
		}
	}
}

func (e *Engine) stream(plan Plan, sink io.Writer, res *Result) error {
	n, err := e.bridge.StreamAll(sink, plan.Bytes())
	res.BytesWritten = n
	e.metrics.addBytesWritten(int(n))

	return err
}
