package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rwarrender/sibo-ssd-dump/dump"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/transport"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	s := cfg.Serial

	if s.Address == "" {
		return fmt.Errorf("serial.address is required")
	}

	switch transport.Driver(strings.ToLower(s.Driver)) {
	case "", transport.DriverJacobsa, transport.DriverGoburrow, transport.DriverTCP:
	default:
		return fmt.Errorf("serial.driver %q: must be one of jacobsa, goburrow, tcp", s.Driver)
	}

	if s.BaudRate <= 0 || s.BaudRate > transport.MaxBaudRate {
		return fmt.Errorf("serial.baud_rate %d out of range [1, %d]", s.BaudRate, transport.MaxBaudRate)
	}

	if maxMs := int(transport.MaxReadTimeout / time.Millisecond); s.ReadTimeoutMs < 0 || s.ReadTimeoutMs > maxMs {
		return fmt.Errorf("serial.read_timeout_ms %d out of range [0, %d]", s.ReadTimeoutMs, maxMs)
	}

	if maxMs := int(transport.MaxSettleDelay / time.Millisecond); s.SettleMs < 0 || s.SettleMs > maxMs {
		return fmt.Errorf("serial.settle_ms %d out of range [0, %d]", s.SettleMs, maxMs)
	}

	d := cfg.Dump

	if d.Retries < 0 || d.Retries > dump.MaxRetryLimit {
		return fmt.Errorf("dump.retries %d out of range [0, %d]", d.Retries, dump.MaxRetryLimit)
	}

	// the bridge streams the whole SSD; it cannot stop after one block
	if d.Stream && d.FirstBlockOnly {
		return fmt.Errorf("dump.stream and dump.first_block_only are mutually exclusive")
	}

	return ValidateLog(cfg.Log)
}

// ValidateLog checks the log section on its own, for commands that use
// nothing else.
func ValidateLog(l LogConfig) error {
	if _, ok := logger.ParseLevel(strings.ToLower(l.Level)); !ok {
		return fmt.Errorf("log.level %q: must be one of debug, info, warn, error, fatal", l.Level)
	}

	return nil
}
