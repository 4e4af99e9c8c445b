// Package config is the YAML configuration file of the sibodump CLI.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rwarrender/sibo-ssd-dump/transport"
)

type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Dump   DumpConfig   `yaml:"dump"`
	Log    LogConfig    `yaml:"log"`
}

// ---- SERIAL ----

type SerialConfig struct {
	// Address is a serial device path or tcp://host:port.
	Address string `yaml:"address"`
	// Driver is jacobsa, goburrow or tcp. Empty picks from Address.
	Driver        string `yaml:"driver"`
	BaudRate      int    `yaml:"baud_rate"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	SettleMs      int    `yaml:"settle_ms"`
}

// ---- DUMP ----

type DumpConfig struct {
	ASIC4          bool `yaml:"asic4"`
	FirstBlockOnly bool `yaml:"first_block_only"`
	Retries        int  `yaml:"retries"`
	Stream         bool `yaml:"stream"`
}

// ---- LOG ----

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate: transport.DefaultBaudRate,
			SettleMs: int(transport.DefaultSettleDelay / time.Millisecond),
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	return cfg, nil
}

// TransportOptions converts the serial section to transport options.
// It MUST be called only after Validate() and Normalize().
func (c *Config) TransportOptions() []transport.Option {
	s := c.Serial

	return []transport.Option{
		transport.WithDriver(transport.Driver(s.Driver)),
		transport.WithBaudRate(s.BaudRate),
		transport.WithReadTimeout(time.Duration(s.ReadTimeoutMs) * time.Millisecond),
		transport.WithSettleDelay(time.Duration(s.SettleMs) * time.Millisecond),
	}
}
