package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwarrender/sibo-ssd-dump/link"
)

func TestNewImage_PadsWithErased(t *testing.T) {
	img, err := NewImage(0b000_00_001, 7, []byte{1, 2, 3})
	require.NoError(t, err)

	data := img.Bytes()
	require.Len(t, data, 128*256)
	assert.Equal(t, []byte{1, 2, 3, 0xFF}, data[:4])
	assert.Equal(t, byte(0xFF), data[len(data)-1])
	assert.Equal(t, byte(0b000_00_001), img.Descriptor())
	assert.Equal(t, byte(7), img.ControllerID())
}

func TestNewImage_TooLarge(t *testing.T) {
	_, err := NewImage(0b000_00_001, 0, make([]byte, 128*256+1))
	require.ErrorIs(t, err, ErrImageSize)

	_, err = NewImage(0, 0, []byte{0})
	require.ErrorIs(t, err, ErrImageSize)
}

func TestImage_Cursor(t *testing.T) {
	img := testImage(t, 0b000_01_001) // 2 devices x 128 blocks
	var blk link.Block

	img.ReadBlock(&blk)
	assert.Equal(t, img.Bytes()[:256], blk[:])

	img.NextBlock()
	img.NextBlock()
	img.ReadBlock(&blk)
	assert.Equal(t, img.Bytes()[2*256:3*256], blk[:])

	img.NextDevice()
	dev, b := img.Cursor()
	assert.Equal(t, 1, dev)
	assert.Equal(t, 0, b)
	img.ReadBlock(&blk)
	assert.Equal(t, img.Bytes()[128*256:129*256], blk[:])

	img.Reset()
	dev, b = img.Cursor()
	assert.Zero(t, dev)
	assert.Zero(t, b)
}

func TestImage_ReadPastEnd(t *testing.T) {
	img := testImage(t, 0b000_00_001)
	var blk link.Block

	img.NextDevice()
	img.ReadBlock(&blk)
	for _, v := range blk {
		require.Equal(t, byte(0xFF), v)
	}
}

func TestImage_Clone(t *testing.T) {
	img := testImage(t, 0b000_00_001)
	img.NextBlock()
	img.SetMode(link.ModeASIC4)

	c := img.Clone()
	dev, b := c.Cursor()
	assert.Zero(t, dev)
	assert.Zero(t, b)
	assert.Equal(t, link.ModeASIC5, c.Mode())
	assert.Equal(t, link.ModeASIC4, img.Mode())
	assert.Equal(t, img.Bytes(), c.Bytes())
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssd.bin")
	require.NoError(t, os.WriteFile(path, []byte{9, 8, 7}, 0o600))

	img, err := LoadImage(path, 0b000_00_001, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, img.Bytes()[:3])

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.bin"), 1, 0)
	require.Error(t, err)
}
