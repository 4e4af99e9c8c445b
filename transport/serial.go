package transport

import (
	"errors"
	"fmt"
	"io"

	goburrow "github.com/goburrow/serial"
	jacobsa "github.com/jacobsa/go-serial/serial"
)

// openJacobsa opens an 8N1 port without flow control. MinimumReadSize 0
// makes a read return io.EOF after one InterCharacterTimeout of silence,
// which the pump treats as an expired poll.
func openJacobsa(cfg *Config) (io.ReadWriteCloser, idleFunc, error) {
	opts := jacobsa.OpenOptions{
		PortName:              cfg.Address(),
		BaudRate:              uint(cfg.BaudRate()),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            jacobsa.PARITY_NONE,
		RTSCTSFlowControl:     false,
		InterCharacterTimeout: uint(pollInterval.Milliseconds()),
		MinimumReadSize:       0,
	}

	rwc, err := jacobsa.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: open %s: %w", cfg.Address(), err)
	}

	return rwc, func(err error) bool { return errors.Is(err, io.EOF) }, nil
}

func openGoburrow(cfg *Config) (io.ReadWriteCloser, idleFunc, error) {
	port, err := goburrow.Open(&goburrow.Config{
		Address:  cfg.Address(),
		BaudRate: cfg.BaudRate(),
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  pollInterval,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("transport: open %s: %w", cfg.Address(), err)
	}

	return port, func(err error) bool { return errors.Is(err, goburrow.ErrTimeout) }, nil
}
