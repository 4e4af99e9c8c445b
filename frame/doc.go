// Package frame implements the bridge side of the SIBO synchronous serial
// link: the codec that turns one byte into one 12 bit-time frame on a
// clock and data line pair, and back.
//
// # Frame Layout
//
//	Bit  0   1   2   3   4   5   6   7   8   9   10  11
//	     ST  CTL I1  D0  D1  D2  D3  D4  D5  D6  D7  I2
//
//   - ST: start bit, always driven high by the controller.
//   - CTL: low for a control frame, high for a data frame.
//   - I1, I2: idle bits, low.
//   - D0-D7: data bits, least significant bit first.
//
// Four frame shapes exist:
//
//   - Null: data line released for 12 cycles, resynchronising every slave's
//     bit counter.
//   - Control: a command byte sent to the slaves.
//   - Data out: a data byte sent by the controller.
//   - Data in: a data byte sent by the selected slave. The controller
//     releases the data line at the end of the CTL cycle; the slave starts
//     driving it on the same cycle count, so this switch point is what keeps
//     both ends' bit sampling aligned.
//
// # Hardware Abstraction
//
// The codec only talks to a PhysicalLine. The gpioline sub-package drives
// real pins through periph.io; Recorder is a simulated line that captures a
// per-cycle trace, which Decode turns back into a Frame.
package frame
