// Package bridge emulates the microcontroller that sits between the host
// and the SSD.
//
// A Server reads host command bytes and answers them from a Target.
// Targets work at byte level, above the bus frames: they answer with
// descriptor and data bytes and never drive frame.Codec. Image is an
// in-memory Target loaded from a raw dump, so the host tools can be
// exercised without hardware.
// Listener serves the emulator over TCP, one Server per connection, for use
// with transport.DriverTCP.
package bridge
