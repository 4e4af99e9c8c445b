// Package gpioline drives the SIBO clock and data lines from GPIO pins
// through periph.io, for bridges built on a single board computer rather
// than a microcontroller.
package gpioline

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/rwarrender/sibo-ssd-dump/frame"
)

// ErrPinNotFound is returned by Open when a pin name is not registered.
var ErrPinNotFound = errors.New("gpioline: pin not found")

// Line is a frame.PhysicalLine over a clock output pin and a bidirectional
// data pin.
type Line struct {
	clock gpio.PinOut
	data  gpio.PinIO
	pull  gpio.Pull

	dir   frame.Direction
	latch gpio.Level
}

var _ frame.PhysicalLine = (*Line)(nil)

// Option configures a Line.
type Option func(*Line)

// WithPull sets the pull applied to the data pin while it is released.
// The default leaves the pin's pull untouched.
func WithPull(p gpio.Pull) Option {
	return func(l *Line) {
		l.pull = p
	}
}

// New creates a Line, drives the clock low and releases the data pin.
func New(clock gpio.PinOut, data gpio.PinIO, opts ...Option) (*Line, error) {
	if clock == nil || data == nil {
		return nil, errors.New("gpioline: clock and data pins are required")
	}

	l := &Line{clock: clock, data: data, pull: gpio.PullNoChange, latch: gpio.Low}
	for _, opt := range opts {
		opt(l)
	}

	if err := clock.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpioline: clock %s: %w", clock, err)
	}
	if err := l.release(); err != nil {
		return nil, err
	}

	return l, nil
}

// Open looks the pins up by name in the periph.io registry. The host
// drivers must already be initialised.
func Open(clockName, dataName string, opts ...Option) (*Line, error) {
	clock := gpioreg.ByName(clockName)
	if clock == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, clockName)
	}
	data := gpioreg.ByName(dataName)
	if data == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, dataName)
	}

	return New(clock, data, opts...)
}

func (l *Line) SetHigh() error {
	return l.set(gpio.High)
}

func (l *Line) SetLow() error {
	return l.set(gpio.Low)
}

// set latches level and drives it only while the line is an output;
// periph.io switches a pin to output on Out.
func (l *Line) set(level gpio.Level) error {
	l.latch = level
	if l.dir == frame.Input {
		return nil
	}

	return l.data.Out(level)
}

func (l *Line) SetDirection(dir frame.Direction) error {
	l.dir = dir
	if dir == frame.Input {
		return l.release()
	}

	return l.data.Out(l.latch)
}

func (l *Line) release() error {
	l.dir = frame.Input
	if err := l.data.In(l.pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("gpioline: data %s: %w", l.data, err)
	}

	return nil
}

func (l *Line) PulseClock() error {
	if err := l.clock.Out(gpio.High); err != nil {
		return err
	}

	return l.clock.Out(gpio.Low)
}

func (l *Line) ClockIn() (bool, error) {
	if err := l.clock.Out(gpio.High); err != nil {
		return false, err
	}
	level := l.data.Read()

	return level == gpio.High, l.clock.Out(gpio.Low)
}
