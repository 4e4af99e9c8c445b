package dump

import (
	"errors"
	"fmt"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// MaxRetryLimit caps WithRetryLimit.
const MaxRetryLimit = 8

// Drainer discards stale bytes from the transport before a retry.
type Drainer interface {
	Drain() (int, error)
}

type config struct {
	progress       ProgressFunc
	firstBlockOnly bool
	stream         bool
	retryLimit     int
	drainer        Drainer
	clock          func() time.Time
	logger         logger.Logger
}

func defaultConfig() config {
	return config{
		clock:  time.Now,
		logger: logger.GetLogger(),
	}
}

// Option is a functional option for configuring an Engine.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithProgress sets a callback run after every block.
func WithProgress(fn ProgressFunc) Option {
	return optFunc(func(cfg *config) error {
		cfg.progress = fn
		return nil
	})
}

// WithFirstBlockOnly limits the dump to the first block of the first
// device, whatever the geometry says.
func WithFirstBlockOnly(enabled bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.firstBlockOnly = enabled
		return nil
	})
}

// WithStream uses the bridge's dump-all command instead of per-block
// fetches. There are no per-block progress reports in this mode.
func WithStream(enabled bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.stream = enabled
		return nil
	})
}

// WithRetryLimit sets how many times a short block is fetched again before
// the dump fails. Zero, the default, fails on the first short block.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *config) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("dump: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithDrainer sets the transport drained before each retry.
func WithDrainer(d Drainer) Option {
	return optFunc(func(cfg *config) error {
		cfg.drainer = d
		return nil
	})
}

// WithClock replaces time.Now for elapsed time accounting.
func WithClock(now func() time.Time) Option {
	return optFunc(func(cfg *config) error {
		if now == nil {
			return errors.New("dump: clock must not be nil")
		}
		cfg.clock = now

		return nil
	})
}

// WithLogger sets the logger for the engine.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("dump: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
