package link

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwarrender/sibo-ssd-dump/logger"
)

// scriptedTransport answers reads from a fixed byte script and records
// every command written.
type scriptedTransport struct {
	replies  *bytes.Buffer
	sent     []byte
	writeErr error
}

func newScripted(replies ...byte) *scriptedTransport {
	return &scriptedTransport{replies: bytes.NewBuffer(replies)}
}

func (s *scriptedTransport) ReadByte() (byte, error) {
	return s.replies.ReadByte()
}

func (s *scriptedTransport) WriteByte(b byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.sent = append(s.sent, b)

	return nil
}

func newTestLink(t *testing.T, tr ByteTransport) *Link {
	t.Helper()

	return New(tr, logger.NewMockLogger().AllowAll())
}

func TestSendCommands(t *testing.T) {
	tr := newScripted()
	l := newTestLink(t, tr)

	require.NoError(t, l.SelectMode(ModeASIC5))
	require.NoError(t, l.Reset())
	require.NoError(t, l.NextBlock())
	require.NoError(t, l.NextDevice())
	require.NoError(t, l.SelectMode(ModeASIC4))

	assert.Equal(t, []byte("5RnN4"), tr.sent)
}

func TestDescriptorAndControllerID(t *testing.T) {
	tr := newScripted(0x1B, 0x05)
	l := newTestLink(t, tr)

	desc, err := l.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, byte(0x1B), desc)

	id, err := l.ControllerID()
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), id)

	assert.Equal(t, []byte("ba"), tr.sent)
}

func TestQuery_ShortRead(t *testing.T) {
	l := newTestLink(t, newScripted())

	_, err := l.Descriptor()
	require.ErrorIs(t, err, ErrShortRead)
	require.ErrorIs(t, err, io.EOF)

	var sre *ShortReadError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, CmdGetDescriptor, sre.Cmd)
	assert.Equal(t, 1, sre.Want)
	assert.Equal(t, 0, sre.Got)
}

func TestFetchBlock(t *testing.T) {
	data := make([]byte, BlockSize)
	for i := range data {
		data[i] = byte(i)
	}
	tr := newScripted(data...)
	l := newTestLink(t, tr)

	var blk Block
	require.NoError(t, l.FetchBlock(&blk))
	assert.Equal(t, data, blk[:])
	assert.Equal(t, []byte("f"), tr.sent)
}

func TestFetchBlock_ShortRead(t *testing.T) {
	tr := newScripted(make([]byte, 100)...)
	l := newTestLink(t, tr)

	var blk Block
	err := l.FetchBlock(&blk)
	require.ErrorIs(t, err, ErrShortRead)

	var sre *ShortReadError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, CmdFetchBlock, sre.Cmd)
	assert.Equal(t, BlockSize, sre.Want)
	assert.Equal(t, 100, sre.Got)
	assert.Contains(t, sre.Error(), "got 100 of 256 bytes")
}

func TestSend_TransportError(t *testing.T) {
	tr := newScripted()
	tr.writeErr = errors.New("port gone")
	l := newTestLink(t, tr)

	err := l.Reset()
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, tr.writeErr)

	_, err = l.ControllerID()
	require.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrShortRead)
}

func TestStreamAll(t *testing.T) {
	image := bytes.Repeat([]byte{0xE5}, 3*BlockSize+10)
	tr := newScripted(image...)
	l := newTestLink(t, tr)

	var out bytes.Buffer
	n, err := l.StreamAll(&out, int64(3*BlockSize))
	require.NoError(t, err)
	assert.EqualValues(t, 3*BlockSize, n)
	assert.Equal(t, image[:3*BlockSize], out.Bytes())
	assert.Equal(t, []byte("d"), tr.sent)
}

func TestStreamAll_ShortRead(t *testing.T) {
	tr := newScripted(make([]byte, BlockSize+7)...)
	l := newTestLink(t, tr)

	var out bytes.Buffer
	n, err := l.StreamAll(&out, int64(2*BlockSize))
	require.ErrorIs(t, err, ErrShortRead)
	assert.EqualValues(t, BlockSize+7, n)
	assert.Equal(t, BlockSize+7, out.Len())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "fetch-block", CmdFetchBlock.String())
	assert.Equal(t, "get-controller-id", CmdGetControllerID.String())
	assert.Equal(t, "Command(0x7A)", Command('z').String())
	assert.Equal(t, "ASIC4", ModeASIC4.String())
	assert.Equal(t, "ASIC5", ModeASIC5.String())
}
