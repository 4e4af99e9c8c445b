package bridge

import (
	"errors"
	"fmt"
	"os"

	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/ssd"
)

// ErrImageSize is returned when image data exceeds the descriptor's capacity.
var ErrImageSize = errors.New("bridge: image larger than descriptor capacity")

// erased is the content of unwritten or out of range flash.
const erased = 0xFF

// Target is the SSD behind the bridge.
type Target interface {
	// Reset resets the SSD and moves the cursor to device 0, block 0.
	Reset()
	// SetMode selects the controller compatibility mode.
	SetMode(m link.Mode)
	// Descriptor returns the SSD descriptor byte.
	Descriptor() byte
	// ControllerID returns the ASIC identity byte.
	ControllerID() byte
	// ReadBlock copies the block under the cursor into blk.
	ReadBlock(blk *link.Block)
	// NextBlock moves the cursor to the next block of the current device.
	NextBlock()
	// NextDevice moves the cursor to block 0 of the next device.
	NextDevice()
}

// Image is an in-memory SSD. Its data is laid out as a raw dump: device
// major, block minor, 256 bytes per block.
//
// An Image is NOT goroutine-safe. Use Clone to give each connection its
// own cursor over the same data.
type Image struct {
	geometry     ssd.Geometry
	controllerID byte
	data         []byte

	mode   link.Mode
	device int
	block  int
}

var _ Target = (*Image)(nil)

// NewImage creates an image for descriptor from data. Data shorter than the
// descriptor's capacity is padded with erased bytes.
func NewImage(descriptor, controllerID byte, data []byte) (*Image, error) {
	g := ssd.Decode(descriptor)
	if int64(len(data)) > g.Bytes() {
		return nil, fmt.Errorf("%w: %d bytes, %s holds %d", ErrImageSize, len(data), g, g.Bytes())
	}

	buf := make([]byte, g.Bytes())
	n := copy(buf, data)
	for i := n; i < len(buf); i++ {
		buf[i] = erased
	}

	return &Image{
		geometry:     g,
		controllerID: controllerID,
		data:         buf,
		mode:         link.ModeASIC5,
	}, nil
}

// LoadImage reads a raw dump file into an image for descriptor.
func LoadImage(path string, descriptor, controllerID byte) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bridge: load image: %w", err)
	}

	return NewImage(descriptor, controllerID, data)
}

// Clone returns an image sharing the data with a fresh cursor.
func (img *Image) Clone() *Image {
	return &Image{
		geometry:     img.geometry,
		controllerID: img.controllerID,
		data:         img.data,
		mode:         link.ModeASIC5,
	}
}

// Geometry returns the decoded descriptor.
func (img *Image) Geometry() ssd.Geometry {
	return img.geometry
}

// Bytes returns the image content. The slice must not be modified.
func (img *Image) Bytes() []byte {
	return img.data
}

// Mode returns the last selected controller mode.
func (img *Image) Mode() link.Mode {
	return img.mode
}

// Cursor returns the current device and block.
func (img *Image) Cursor() (device, block int) {
	return img.device, img.block
}

func (img *Image) Reset() {
	img.device, img.block = 0, 0
}

func (img *Image) SetMode(m link.Mode) {
	img.mode = m
}

func (img *Image) Descriptor() byte {
	return img.geometry.Descriptor
}

func (img *Image) ControllerID() byte {
	return img.controllerID
}

// ReadBlock fills blk with erased bytes when the cursor is past the last
// block or device.
func (img *Image) ReadBlock(blk *link.Block) {
	g := img.geometry
	if img.device >= g.DeviceCount || img.block >= g.BlockCount {
		for i := range blk {
			blk[i] = erased
		}
		return
	}

	off := (img.device*g.BlockCount + img.block) * link.BlockSize
	copy(blk[:], img.data[off:off+link.BlockSize])
}

func (img *Image) NextBlock() {
	img.block++
}

func (img *Image) NextDevice() {
	img.device++
	img.block = 0
}
