package frame

import (
	"errors"
	"fmt"
)

// Decode errors.
var (
	ErrFrameLength = errors.New("frame: trace is not 12 cycles long")
	ErrBadStartBit = errors.New("frame: start bit not driven high")
	ErrBadIdleBit  = errors.New("frame: idle bit not low")
)

// Kind classifies a frame.
type Kind uint8

const (
	KindNull Kind = iota
	KindControl
	KindDataOut
	KindDataIn
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindControl:
		return "control"
	case KindDataOut:
		return "data-out"
	case KindDataIn:
		return "data-in"
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Frame is one decoded frame.
type Frame struct {
	Kind Kind
	Data byte
}

// Cycle is the state of the data line during one clock pulse.
type Cycle struct {
	// High is the data line level: the bridge's latch in Output
	// direction, the slave's level for sampled Input cycles.
	High bool
	// Dir is the data line direction during the pulse.
	Dir Direction
}

// EventKind is a line operation captured by Recorder.
type EventKind uint8

const (
	EventWrite EventKind = iota
	EventDirection
	EventClock
)

// Event is one line operation, in call order.
type Event struct {
	Kind EventKind
	High bool      // EventWrite
	Dir  Direction // EventDirection
}

// Recorder is a simulated PhysicalLine. It records every operation and the
// per-cycle line state, and plays the slave for data-in frames: each
// ClockIn in Input direction shifts out the next bit of the byte given to
// Respond, least significant bit first.
type Recorder struct {
	Cycles []Cycle
	Events []Event

	dir      Direction
	latch    bool
	response byte
	shifted  int
}

var _ PhysicalLine = (*Recorder)(nil)

// NewRecorder creates a Recorder in Input direction, as the pins come up
// after reset.
func NewRecorder() *Recorder {
	return &Recorder{dir: Input}
}

// Respond queues b as the byte the slave drives on the next data-in frame.
func (r *Recorder) Respond(b byte) {
	r.response = b
	r.shifted = 0
}

// Direction returns the current data line direction.
func (r *Recorder) Direction() Direction {
	return r.dir
}

// Reset drops the recorded trace and events, keeping the line state.
func (r *Recorder) Reset() {
	r.Cycles = r.Cycles[:0]
	r.Events = r.Events[:0]
}

func (r *Recorder) SetHigh() error {
	r.latch = true
	r.Events = append(r.Events, Event{Kind: EventWrite, High: true})

	return nil
}

func (r *Recorder) SetLow() error {
	r.latch = false
	r.Events = append(r.Events, Event{Kind: EventWrite, High: false})

	return nil
}

func (r *Recorder) SetDirection(dir Direction) error {
	r.dir = dir
	r.Events = append(r.Events, Event{Kind: EventDirection, Dir: dir})

	return nil
}

func (r *Recorder) PulseClock() error {
	high := r.latch
	if r.dir == Input {
		// released line, no slave bit sampled
		high = false
	}
	r.clock(high)

	return nil
}

func (r *Recorder) ClockIn() (bool, error) {
	high := r.latch
	if r.dir == Input {
		high = r.response&(1<<(r.shifted%DataBits)) != 0
		r.shifted++
	}
	r.clock(high)

	return high, nil
}

func (r *Recorder) clock(high bool) {
	r.Cycles = append(r.Cycles, Cycle{High: high, Dir: r.dir})
	r.Events = append(r.Events, Event{Kind: EventClock})
}

// Decode classifies a 12-cycle trace and recovers its data byte.
func Decode(trace []Cycle) (Frame, error) {
	if len(trace) != Cycles {
		return Frame{}, fmt.Errorf("%w: got %d", ErrFrameLength, len(trace))
	}

	released := true
	for _, c := range trace {
		if c.Dir != Input {
			released = false
			break
		}
	}
	if released {
		return Frame{Kind: KindNull}, nil
	}

	if st := trace[0]; st.Dir != Output || !st.High {
		return Frame{}, ErrBadStartBit
	}

	var f Frame
	switch ctl, i1 := trace[1], trace[2]; {
	case !ctl.High:
		f.Kind = KindControl
	case i1.Dir == Input:
		f.Kind = KindDataIn
	default:
		f.Kind = KindDataOut
	}

	if trace[2].High {
		return Frame{}, fmt.Errorf("%w: I1", ErrBadIdleBit)
	}
	if trace[Cycles-1].High {
		return Frame{}, fmt.Errorf("%w: I2", ErrBadIdleBit)
	}

	for i := 0; i < DataBits; i++ {
		if trace[3+i].High {
			f.Data |= 1 << i
		}
	}

	return f, nil
}
