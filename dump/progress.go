package dump

import "time"

// Progress is reported after every block written to the sink.
type Progress struct {
	// Device is the current device index (0-based).
	Device int
	// Block is the block index within the device (0-based).
	Block int

	// Devices and Blocks are the plan totals.
	Devices int
	Blocks  int

	// BytesWritten is the number of bytes appended to the sink so far.
	BytesWritten int64
	// TotalBytes is the size of the full dump.
	TotalBytes int64

	// Elapsed is the time since the dump started.
	Elapsed time.Duration
}

// Percentage returns the completion percentage (0.0 to 100.0).
func (p Progress) Percentage() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}

	return float64(p.BytesWritten) * 100 / float64(p.TotalBytes)
}

// ProgressFunc observes the dump. It runs synchronously between blocks,
// so it should return quickly; it cannot change the dump's course.
type ProgressFunc func(Progress)
