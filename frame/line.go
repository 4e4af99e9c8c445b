package frame

// Direction is the drive direction of the data line as seen by the bridge.
type Direction uint8

const (
	// Output means the bridge drives the data line.
	Output Direction = iota
	// Input means the bridge has released the data line to the slave.
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}

	return "output"
}

// PhysicalLine is the clock and data line pair the codec toggles.
//
// SetHigh and SetLow only latch the output level while the line is in
// Input direction; they must not start driving the line. The latched level
// takes effect on the next switch to Output.
type PhysicalLine interface {
	// SetHigh sets the data line level high.
	SetHigh() error
	// SetLow sets the data line level low.
	SetLow() error
	// SetDirection switches the data line between Output and Input.
	SetDirection(dir Direction) error
	// PulseClock raises and lowers the clock line once: one bit-time.
	PulseClock() error
	// ClockIn raises the clock line, samples the data line while the clock
	// is high, then lowers the clock. It reports whether the data line was
	// high.
	ClockIn() (bool, error)
}
