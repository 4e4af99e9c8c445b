package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/transport"
)

type config struct {
	mode        link.Mode
	settleDelay time.Duration
	address     string
	logger      logger.Logger
}

func defaultConfig() config {
	return config{
		mode:   link.ModeASIC5,
		logger: logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Session.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithMode selects the controller mode sent at bring-up. The default
// forces ASIC5.
func WithMode(m link.Mode) Option {
	return optFunc(func(cfg *config) error {
		if m != link.ModeASIC4 && m != link.ModeASIC5 {
			return fmt.Errorf("session: invalid mode %q", byte(m))
		}
		cfg.mode = m

		return nil
	})
}

// WithSettleDelay sets the wait between opening the port and the first
// command.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < 0 || d > transport.MaxSettleDelay {
			return fmt.Errorf("session: settle delay %v out of range [0, %v]", d, transport.MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithAddress records the port address reported by Info.
func WithAddress(address string) Option {
	return optFunc(func(cfg *config) error {
		cfg.address = address
		return nil
	})
}

// WithLogger sets the logger for the session and the dumps it runs.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("session: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
