package bridge

import "sync/atomic"

// Metrics contains atomic counters for the emulator. One Metrics may be
// shared by every Server of a Listener.
type Metrics struct {
	// CommandCount is the number of command bytes received.
	CommandCount atomic.Uint64
	// FetchCount is the number of blocks sent, stream mode included.
	FetchCount atomic.Uint64
	// UnknownCount is the number of unrecognised command bytes.
	UnknownCount atomic.Uint64
	// ConnCount is the number of connections being served.
	ConnCount atomic.Int64
}

func (m *Metrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *Metrics) incFetchCount() {
	m.FetchCount.Add(1)
}

func (m *Metrics) incUnknownCount() {
	m.UnknownCount.Add(1)
}

func (m *Metrics) incConnCount() {
	m.ConnCount.Add(1)
}

func (m *Metrics) decConnCount() {
	m.ConnCount.Add(-1)
}
