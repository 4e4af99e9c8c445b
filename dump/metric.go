package dump

import "sync/atomic"

// Metrics contains atomic counters for a dump engine. They may be read
// from another goroutine while a dump runs, e.g. by a status display.
type Metrics struct {
	// FetchCount is the number of fetch-block commands issued, retries included.
	FetchCount atomic.Uint64
	// BlockAdvanceCount is the number of next-block commands issued.
	BlockAdvanceCount atomic.Uint64
	// DeviceAdvanceCount is the number of next-device commands issued.
	DeviceAdvanceCount atomic.Uint64
	// RetryCount is the number of short fetches that were retried.
	RetryCount atomic.Uint64
	// BytesWritten is the number of bytes appended to the sink.
	BytesWritten atomic.Uint64
}

func (m *Metrics) incFetchCount() {
	m.FetchCount.Add(1)
}

func (m *Metrics) incBlockAdvanceCount() {
	m.BlockAdvanceCount.Add(1)
}

func (m *Metrics) incDeviceAdvanceCount() {
	m.DeviceAdvanceCount.Add(1)
}

func (m *Metrics) incRetryCount() {
	m.RetryCount.Add(1)
}

func (m *Metrics) addBytesWritten(n int) {
	m.BytesWritten.Add(uint64(n)) //nolint:gosec // n is a block or stream length
}
