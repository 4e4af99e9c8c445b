package link

import "fmt"

// Command is a single byte sent from the host to the bridge.
type Command byte

// Bridge command vocabulary.
const (
	// CmdReset resets the SSD and moves the bridge cursor to device 0, block 0.
	CmdReset Command = 'R'
	// CmdFetchBlock reads the current block; the bridge answers 256 bytes.
	CmdFetchBlock Command = 'f'
	// CmdNextDevice moves the cursor to block 0 of the next device.
	CmdNextDevice Command = 'N'
	// CmdNextBlock moves the cursor to the next block of the current device.
	CmdNextBlock Command = 'n'
	// CmdGetDescriptor asks for the SSD descriptor byte.
	CmdGetDescriptor Command = 'b'
	// CmdGetControllerID asks for the ASIC identity byte.
	CmdGetControllerID Command = 'a'
	// CmdDumpAll makes the bridge stream every block of every device
	// without per-block handshakes.
	CmdDumpAll Command = 'd'
	// CmdModeASIC4 allows native ASIC4 mode for compatible SSDs (experimental).
	CmdModeASIC4 Command = '4'
	// CmdModeASIC5 forces ASIC5 compatibility mode.
	CmdModeASIC5 Command = '5'
)

func (c Command) String() string {
	switch c {
	case CmdReset:
		return "reset"
	case CmdFetchBlock:
		return "fetch-block"
	case CmdNextDevice:
		return "next-device"
	case CmdNextBlock:
		return "next-block"
	case CmdGetDescriptor:
		return "get-descriptor"
	case CmdGetControllerID:
		return "get-controller-id"
	case CmdDumpAll:
		return "dump-all"
	case CmdModeASIC4:
		return "mode-asic4"
	case CmdModeASIC5:
		return "mode-asic5"
	}

	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// Mode is the controller compatibility mode selected once at session start.
type Mode Command

const (
	ModeASIC5 = Mode(CmdModeASIC5)
	ModeASIC4 = Mode(CmdModeASIC4)
)

func (m Mode) String() string {
	if m == ModeASIC4 {
		return "ASIC4"
	}

	return "ASIC5"
}
