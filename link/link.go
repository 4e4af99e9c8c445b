// Package link is the host side of the bridge command protocol: one
// command byte out, a fixed-shape response back.
//
// Every call blocks until the transport delivers the expected bytes or
// reports an error. There is no retransmission in the protocol, so a short
// response is surfaced to the caller as a *ShortReadError and never retried
// here.
package link

import (
	"fmt"
	"io"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// BlockSize is the size of one fetched block.
const BlockSize = 256

// Block is one 256 byte transfer unit. Its content is opaque.
type Block [BlockSize]byte

// ByteTransport is the byte-at-a-time link to the bridge.
type ByteTransport interface {
	io.ByteReader
	io.ByteWriter
}

// Link issues bridge commands over a ByteTransport.
//
// This type is NOT goroutine-safe; one command is outstanding at a time.
type Link struct {
	tr     ByteTransport
	logger logger.Logger
}

// New creates a Link. A nil l uses the package default logger.
func New(tr ByteTransport, l logger.Logger) *Link {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Link{tr: tr, logger: l}
}

// Transport returns the underlying transport.
func (l *Link) Transport() ByteTransport {
	return l.tr
}

// Send writes one command byte.
func (l *Link) Send(cmd Command) error {
	if err := l.tr.WriteByte(byte(cmd)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, cmd, err)
	}
	l.logger.Debug("link: sent command", "cmd", cmd.String())

	return nil
}

// Query sends cmd and reads its one byte answer.
func (l *Link) Query(cmd Command) (byte, error) {
	if err := l.Send(cmd); err != nil {
		return 0, err
	}

	b, err := l.tr.ReadByte()
	if err != nil {
		return 0, &ShortReadError{Cmd: cmd, Want: 1, Got: 0, Err: err}
	}

	return b, nil
}

// SelectMode sends the controller compatibility mode byte.
func (l *Link) SelectMode(m Mode) error {
	return l.Send(Command(m))
}

// Reset resets the SSD and rewinds the bridge cursor.
func (l *Link) Reset() error {
	return l.Send(CmdReset)
}

// NextBlock advances the bridge cursor by one block.
func (l *Link) NextBlock() error {
	return l.Send(CmdNextBlock)
}

// NextDevice advances the bridge cursor to the next device.
func (l *Link) NextDevice() error {
	return l.Send(CmdNextDevice)
}

// Descriptor reads the SSD descriptor byte.
func (l *Link) Descriptor() (byte, error) {
	return l.Query(CmdGetDescriptor)
}

// ControllerID reads the ASIC identity byte.
func (l *Link) ControllerID() (byte, error) {
	return l.Query(CmdGetControllerID)
}

// FetchBlock reads the block under the bridge cursor into blk. On a short
// read blk holds the bytes that did arrive.
func (l *Link) FetchBlock(blk *Block) error {
	if err := l.Send(CmdFetchBlock); err != nil {
		return err
	}

	n, err := l.readFull(blk[:])
	if err != nil {
		return &ShortReadError{Cmd: CmdFetchBlock, Want: BlockSize, Got: n, Err: err}
	}

	return nil
}

// StreamAll asks the bridge to stream the whole SSD and copies n bytes of
// it to w. It returns the number of bytes written to w.
func (l *Link) StreamAll(w io.Writer, n int64) (int64, error) {
	if err := l.Send(CmdDumpAll); err != nil {
		return 0, err
	}

	var (
		buf     Block
		written int64
	)
	for written < n {
		chunk := buf[:min(int64(len(buf)), n-written)]

		got, err := l.readFull(chunk)
		if got > 0 {
			wn, werr := w.Write(chunk[:got])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err != nil {
			return written, &ShortReadError{Cmd: CmdDumpAll, Want: int(n), Got: int(written), Err: err}
		}
	}

	return written, nil
}

func (l *Link) readFull(buf []byte) (int, error) {
	for i := range buf {
		b, err := l.tr.ReadByte()
		if err != nil {
			return i, err
		}
		buf[i] = b
	}

	return len(buf), nil
}
