package frame

// Frame timing constants.
const (
	// Cycles is the number of bit-times in every frame.
	Cycles = 12
	// DataBits is the number of data bits carried by a frame.
	DataBits = 8
)

// Codec encodes and decodes one byte at a time on a PhysicalLine.
//
// A Codec is not goroutine-safe; the bridge runs one frame at a time.
type Codec struct {
	line PhysicalLine
}

// NewCodec creates a Codec driving line.
func NewCodec(line PhysicalLine) *Codec {
	return &Codec{line: line}
}

// Null releases the data line and clocks 12 cycles so every slave's bit
// counter realigns. No data is exchanged.
func (c *Codec) Null() error {
	s := c.seq()
	s.direction(Input)
	s.cycle(Cycles)

	return s.err
}

// Control sends b as a control frame.
func (c *Codec) Control(b byte) error {
	s := c.seq()

	// ST high, CTL low, then I1.
	s.direction(Output)
	s.write(true)
	s.cycle(1)
	s.write(false)
	s.cycle(1)
	s.idle()

	s.writeByte(b)
	s.idle()

	return s.err
}

// DataOut sends b as a data frame driven by the bridge.
func (c *Codec) DataOut(b byte) error {
	s := c.seq()
	s.dataHeader(false)
	s.writeByte(b)
	s.idle()

	return s.err
}

// DataIn receives one byte as a data frame driven by the slave.
//
// The data line is released exactly at the end of the second header cycle,
// which is where the slave takes the line over.
func (c *Codec) DataIn() (byte, error) {
	s := c.seq()
	s.dataHeader(true)

	var b byte
	for i := 0; i < DataBits; i++ {
		if s.clockIn() {
			b |= 1 << i
		}
	}
	s.idle()

	if s.err != nil {
		return 0, s.err
	}

	return b, nil
}

func (c *Codec) seq() *sequence {
	return &sequence{line: c.line}
}

// sequence issues line operations until the first error, which it keeps.
type sequence struct {
	line PhysicalLine
	err  error
}

func (s *sequence) direction(d Direction) {
	if s.err == nil {
		s.err = s.line.SetDirection(d)
	}
}

func (s *sequence) write(high bool) {
	if s.err != nil {
		return
	}
	if high {
		s.err = s.line.SetHigh()
	} else {
		s.err = s.line.SetLow()
	}
}

func (s *sequence) cycle(n int) {
	for i := 0; i < n && s.err == nil; i++ {
		s.err = s.line.PulseClock()
	}
}

func (s *sequence) clockIn() bool {
	if s.err != nil {
		return false
	}
	high, err := s.line.ClockIn()
	s.err = err

	return high
}

// idle latches the line low for one cycle. In Input direction this only
// clears the output latch.
func (s *sequence) idle() {
	s.write(false)
	s.cycle(1)
}

// dataHeader sends ST and CTL high, switches to Input after CTL when
// input is set, then sends I1.
func (s *sequence) dataHeader(input bool) {
	s.direction(Output)
	s.write(true)
	s.cycle(2)
	if input {
		s.direction(Input)
	}
	s.idle()
}

func (s *sequence) writeByte(b byte) {
	for i := 0; i < DataBits; i++ {
		s.write(b&(1<<i) != 0)
		s.cycle(1)
	}
}
