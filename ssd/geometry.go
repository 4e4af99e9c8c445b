// Package ssd decodes the SIBO SSD descriptor byte into device geometry.
//
// The descriptor packs three fields:
//
//	bit  7 6 5   4 3    2 1 0
//	     type    devs   size
//
// devs is the number of devices on the SSD minus one, size is the capacity
// class of each device. Every device on one SSD has the same size.
package ssd

import "fmt"

// BlockSize is the number of bytes in one transfer block.
const BlockSize = 256

// MediaType classifies the SSD media, from the descriptor's top three bits.
type MediaType uint8

const (
	MediaRAM MediaType = iota
	MediaFlashType1
	MediaFlashType2
	MediaReserved3
	MediaReserved4
	MediaUnknown
	MediaROM
	MediaWriteProtected
)

func (t MediaType) String() string {
	switch t {
	case MediaRAM:
		return "RAM"
	case MediaFlashType1:
		return "Type 1 Flash"
	case MediaFlashType2:
		return "Type 2 Flash"
	case MediaReserved3, MediaReserved4:
		return "TBS"
	case MediaUnknown:
		return "???"
	case MediaROM:
		return "ROM"
	case MediaWriteProtected:
		return "Hardware write-protected SSD"
	}

	return fmt.Sprintf("MediaType(%d)", uint8(t))
}

// SizeClass is the per-device capacity class; 0 means no SSD is present.
type SizeClass uint8

// Bytes returns the capacity of one device, 0 for class 0.
func (s SizeClass) Bytes() int {
	return s.Blocks() * BlockSize
}

// Blocks returns the number of blocks in one device, 0 for class 0.
func (s SizeClass) Blocks() int {
	if s == 0 {
		return 0
	}

	return (16 << s) * 4
}

func (s SizeClass) String() string {
	switch {
	case s == 0:
		return "No SSD Detected"
	case s > 7:
		return fmt.Sprintf("SizeClass(%d)", uint8(s))
	case s.Bytes() >= 1<<20:
		return fmt.Sprintf("%dMB", s.Bytes()>>20)
	default:
		return fmt.Sprintf("%dKB", s.Bytes()>>10)
	}
}

// Geometry is the layout decoded from one descriptor byte. It is a value;
// nothing in it changes for the life of a session.
type Geometry struct {
	Descriptor  byte
	Type        MediaType
	DeviceCount int
	Size        SizeClass
	BlockCount  int
}

// Decode unpacks a descriptor byte.
func Decode(infobyte byte) Geometry {
	size := SizeClass(infobyte & 0b111)

	return Geometry{
		Descriptor:  infobyte,
		Type:        MediaType(infobyte >> 5),
		DeviceCount: int((infobyte>>3)&0b11) + 1,
		Size:        size,
		BlockCount:  size.Blocks(),
	}
}

// Present reports whether there is anything to dump.
func (g Geometry) Present() bool {
	return g.BlockCount > 0
}

// Bytes returns the size of a full dump: every block of every device.
func (g Geometry) Bytes() int64 {
	return int64(g.DeviceCount) * int64(g.BlockCount) * BlockSize
}

func (g Geometry) String() string {
	if !g.Present() {
		return "no SSD"
	}

	return fmt.Sprintf("%s, %d x %s (%d blocks)", g.Type, g.DeviceCount, g.Size, g.BlockCount)
}
