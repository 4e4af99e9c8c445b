package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// Driver selects the transport implementation at construction time.
type Driver string

const (
	// DriverJacobsa opens a local serial device with github.com/jacobsa/go-serial.
	DriverJacobsa Driver = "jacobsa"
	// DriverGoburrow opens a local serial device with github.com/goburrow/serial.
	DriverGoburrow Driver = "goburrow"
	// DriverTCP dials a serial-over-TCP bridge, e.g. ser2net or the emulator.
	DriverTCP Driver = "tcp"
)

// TCPScheme prefixes addresses that select DriverTCP by default.
const TCPScheme = "tcp://"

// Defaults match the bridge sketch: 115200 8N1, and a 2s wait after open
// for the microcontroller's auto-reset.
const (
	DefaultBaudRate     = 115200
	DefaultSettleDelay  = 2 * time.Second
	DefaultDrainTimeout = 100 * time.Millisecond
	DefaultDialTimeout  = 3 * time.Second

	// DefaultReadTimeout of zero blocks forever, as the bridge protocol
	// itself has no timeout.
	DefaultReadTimeout time.Duration = 0
)

// Limits for option validation.
const (
	MaxBaudRate     = 4_000_000
	MaxReadTimeout  = 2 * time.Minute
	MaxSettleDelay  = 30 * time.Second
	MaxDrainTimeout = 10 * time.Second
)

// Config holds the transport configuration.
type Config struct {
	address string
	driver  Driver

	baudRate     int
	readTimeout  time.Duration
	settleDelay  time.Duration
	drainTimeout time.Duration
	dialTimeout  time.Duration

	logger logger.Logger
}

// NewConfig creates a transport configuration for address: a serial device
// path, or "tcp://host:port" which selects DriverTCP unless WithDriver
// says otherwise.
func NewConfig(address string, opts ...Option) (*Config, error) {
	if address == "" {
		return nil, errors.New("transport: address is required")
	}

	cfg := &Config{
		address:      address,
		driver:       DriverJacobsa,
		baudRate:     DefaultBaudRate,
		readTimeout:  DefaultReadTimeout,
		settleDelay:  DefaultSettleDelay,
		drainTimeout: DefaultDrainTimeout,
		dialTimeout:  DefaultDialTimeout,
		logger:       logger.GetLogger(),
	}
	if strings.HasPrefix(address, TCPScheme) {
		cfg.driver = DriverTCP
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Address returns the configured address as given.
func (cfg *Config) Address() string { return cfg.address }

// Driver returns the selected driver.
func (cfg *Config) Driver() Driver { return cfg.driver }

// BaudRate returns the serial line rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// ReadTimeout returns the per-byte read deadline; zero blocks forever.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// SettleDelay returns the wait between opening the port and first use.
func (cfg *Config) SettleDelay() time.Duration { return cfg.settleDelay }

// DrainTimeout returns the silence that ends a drain of stale bytes.
func (cfg *Config) DrainTimeout() time.Duration { return cfg.drainTimeout }

// DialTimeout returns the TCP dial timeout.
func (cfg *Config) DialTimeout() time.Duration { return cfg.dialTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithDriver selects the transport implementation.
func WithDriver(d Driver) Option {
	return optFunc(func(cfg *Config) error {
		switch d {
		case DriverJacobsa, DriverGoburrow, DriverTCP:
			cfg.driver = d
			return nil
		}

		return fmt.Errorf("%w: %q", ErrUnknownDriver, d)
	})
}

// WithBaudRate sets the serial line rate. Ignored by DriverTCP.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 || baud > MaxBaudRate {
			return fmt.Errorf("transport: baud rate %d out of range [1, %d]", baud, MaxBaudRate)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithReadTimeout sets the per-byte read deadline. Zero blocks forever.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxReadTimeout {
			return fmt.Errorf("transport: read timeout %v out of range [0, %v]", d, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithSettleDelay sets the wait between opening the port and first use.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("transport: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithDrainTimeout sets how long the line must stay silent to end a drain.
func WithDrainTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 || d > MaxDrainTimeout {
			return fmt.Errorf("transport: drain timeout %v out of range (0, %v]", d, MaxDrainTimeout)
		}
		cfg.drainTimeout = d

		return nil
	})
}

// WithDialTimeout sets the TCP dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: dial timeout must be positive")
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
