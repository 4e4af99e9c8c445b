package config

import (
	"strings"

	"github.com/rwarrender/sibo-ssd-dump/transport"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Address = strings.TrimSpace(cfg.Serial.Address)
	cfg.Serial.Driver = strings.ToLower(cfg.Serial.Driver)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	// An empty driver follows the address.
	if cfg.Serial.Driver == "" {
		if strings.HasPrefix(cfg.Serial.Address, transport.TCPScheme) {
			cfg.Serial.Driver = string(transport.DriverTCP)
		} else {
			cfg.Serial.Driver = string(transport.DriverJacobsa)
		}
	}
}
