package dump

import (
	"time"

	"github.com/rwarrender/sibo-ssd-dump/ssd"
)

// Plan is the iteration space of one dump.
type Plan struct {
	Devices int
	Blocks  int
}

// PlanFor derives the plan from geometry. firstBlockOnly overrides any
// geometry to one block of one device.
func PlanFor(g ssd.Geometry, firstBlockOnly bool) Plan {
	if firstBlockOnly {
		return Plan{Devices: 1, Blocks: 1}
	}

	return Plan{Devices: g.DeviceCount, Blocks: g.BlockCount}
}

// BlockSize returns the size of one block.
func (p Plan) BlockSize() int {
	return ssd.BlockSize
}

// Bytes returns the total size of the dump.
func (p Plan) Bytes() int64 {
	return int64(p.Devices) * int64(p.Blocks) * ssd.BlockSize
}

// Empty reports whether the plan has nothing to fetch.
func (p Plan) Empty() bool {
	return p.Devices <= 0 || p.Blocks <= 0
}

// Throughput returns the transfer rate in kilobytes (1000 bytes) per second
// for blocks blocks moved in elapsed. It is 0 when elapsed is not positive.
func Throughput(blocks int, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}

	return float64(blocks) * ssd.BlockSize / secs / 1000
}
