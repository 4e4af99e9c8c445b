package dumpintegration

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rwarrender/sibo-ssd-dump/bridge"
	"github.com/rwarrender/sibo-ssd-dump/dump"
	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/session"
	"github.com/rwarrender/sibo-ssd-dump/ssd"
	"github.com/rwarrender/sibo-ssd-dump/transport"
)

type emulator struct {
	img     *bridge.Image
	ln      *bridge.Listener
	address string
}

func newEmulator(t *testing.T, descriptor byte, opts ...bridge.Option) *emulator {
	t.Helper()

	g := ssd.Decode(descriptor)
	data := make([]byte, g.Bytes())
	rnd := rand.New(rand.NewSource(int64(descriptor)))
	_, _ = rnd.Read(data)

	img, err := bridge.NewImage(descriptor, 0x05, data)
	require.NoError(t, err)

	opts = append([]bridge.Option{bridge.WithLogger(logger.NewMockLogger().AllowAll())}, opts...)
	ln, err := bridge.Listen(context.Background(), "127.0.0.1:0", func() bridge.Target { return img.Clone() }, opts...)
	require.NoError(t, err)

	go func() { _ = ln.Serve(context.Background()) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &emulator{img: img, ln: ln, address: transport.TCPScheme + ln.Addr().String()}
}

func (e *emulator) open(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()

	cfg, err := transport.NewConfig(e.address,
		transport.WithSettleDelay(0),
		transport.WithReadTimeout(500*time.Millisecond),
		transport.WithDrainTimeout(50*time.Millisecond),
		transport.WithLogger(logger.NewMockLogger().AllowAll()),
	)
	require.NoError(t, err)

	opts = append([]session.Option{session.WithLogger(logger.NewMockLogger().AllowAll())}, opts...)
	s, err := session.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDump_Geometries(t *testing.T) {
	descriptors := []byte{
		0b000_00_001, // RAM, 1 x 32KB
		0b001_01_010, // Type 1 Flash, 2 x 64KB
		0b010_11_001, // Type 2 Flash, 4 x 32KB
		0b110_00_100, // ROM, 1 x 256KB
	}

	for _, desc := range descriptors {
		t.Run(ssd.Decode(desc).String(), func(t *testing.T) {
			emu := newEmulator(t, desc)
			s := emu.open(t)

			info := s.Info()
			require.Equal(t, desc, info.Descriptor)
			require.Equal(t, byte(0x05), info.ControllerID)

			var out bytes.Buffer
			res, err := s.Dump(context.Background(), &out)
			require.NoError(t, err)

			require.Equal(t, emu.img.Bytes(), out.Bytes())
			require.Equal(t, info.Geometry.Bytes(), res.BytesWritten)
			require.Positive(t, res.Throughput)
		})
	}
}

func TestDump_StreamMatchesBlockDump(t *testing.T) {
	emu := newEmulator(t, 0b000_01_010)

	var blocks, stream bytes.Buffer

	_, err := emu.open(t).Dump(context.Background(), &blocks)
	require.NoError(t, err)

	_, err = emu.open(t).Dump(context.Background(), &stream, dump.WithStream(true))
	require.NoError(t, err)

	require.Equal(t, blocks.Bytes(), stream.Bytes())
	require.Equal(t, emu.img.Bytes(), stream.Bytes())
}

func TestDump_FirstBlockOnly(t *testing.T) {
	emu := newEmulator(t, 0b000_11_011)
	s := emu.open(t)

	var out bytes.Buffer
	res, err := s.Dump(context.Background(), &out, dump.WithFirstBlockOnly(true))
	require.NoError(t, err)

	require.Equal(t, dump.Plan{Devices: 1, Blocks: 1}, res.Plan)
	require.Equal(t, emu.img.Bytes()[:link.BlockSize], out.Bytes())
}

func TestDump_ASIC4Mode(t *testing.T) {
	emu := newEmulator(t, 0b000_00_001)
	s := emu.open(t, session.WithMode(link.ModeASIC4))

	require.Equal(t, link.ModeASIC4, s.Info().Mode)

	var out bytes.Buffer
	_, err := s.Dump(context.Background(), &out)
	require.NoError(t, err)
	require.Equal(t, emu.img.Bytes(), out.Bytes())
}

func TestDump_NoSSD(t *testing.T) {
	emu := newEmulator(t, 0)
	s := emu.open(t)

	require.False(t, s.Info().Geometry.Present())

	var out bytes.Buffer
	_, err := s.Dump(context.Background(), &out)
	require.ErrorIs(t, err, dump.ErrNoDevice)
	require.Zero(t, out.Len())
	require.Zero(t, emu.ln.Metrics().FetchCount.Load())
}

func TestDump_LossyLinkWithRetry(t *testing.T) {
	emu := newEmulator(t, 0b000_01_001, bridge.WithShortFetch(1, 50, 200))
	s := emu.open(t)

	var out bytes.Buffer
	_, err := s.Dump(context.Background(), &out, dump.WithRetryLimit(2))
	require.NoError(t, err)
	require.Equal(t, emu.img.Bytes(), out.Bytes())
}

func TestDump_LossyLinkFailsFast(t *testing.T) {
	emu := newEmulator(t, 0b000_01_001, bridge.WithShortFetch(10))
	s := emu.open(t)

	var out bytes.Buffer
	res, err := s.Dump(context.Background(), &out)
	require.ErrorIs(t, err, link.ErrShortRead)
	require.ErrorIs(t, err, transport.ErrReadTimeout)

	// Everything before the short block was written, nothing after.
	require.EqualValues(t, 9*link.BlockSize, res.BytesWritten)
	require.Equal(t, emu.img.Bytes()[:9*link.BlockSize], out.Bytes())
}

func TestDump_ConcurrentHosts(t *testing.T) {
	emu := newEmulator(t, 0b000_01_010)

	const hosts = 4
	outs := make([]bytes.Buffer, hosts)
	sessions := make([]*session.Session, hosts)
	for i := range sessions {
		sessions[i] = emu.open(t)
	}

	var wg sync.WaitGroup
	errs := make(chan error, hosts)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := sessions[i].Dump(context.Background(), &outs[i])
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for i := range outs {
		require.Equal(t, emu.img.Bytes(), outs[i].Bytes())
	}
}

func TestDump_CancelBetweenBlocks(t *testing.T) {
	emu := newEmulator(t, 0b000_00_011)
	s := emu.open(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	_, err := s.Dump(ctx, &out, dump.WithProgress(func(p dump.Progress) {
		if p.Block == 9 {
			cancel()
		}
	}))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, emu.img.Bytes()[:10*link.BlockSize], out.Bytes())
}
