package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rwarrender/sibo-ssd-dump/dump"
	"github.com/rwarrender/sibo-ssd-dump/internal/config"
	"github.com/rwarrender/sibo-ssd-dump/link"
	"github.com/rwarrender/sibo-ssd-dump/logger"
	"github.com/rwarrender/sibo-ssd-dump/session"
	"github.com/rwarrender/sibo-ssd-dump/transport"
)

func runDump(ctx context.Context, out io.Writer, cfg *config.Config, path string) error {
	log := logger.GetLogger()

	tc, err := transport.NewConfig(cfg.Serial.Address, append(cfg.TransportOptions(), transport.WithLogger(log))...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "DEVICE: %s\n", tc.Address())

	mode := link.ModeASIC5
	if cfg.Dump.ASIC4 {
		mode = link.ModeASIC4
		fmt.Fprintln(out, "ALLOWING ASIC4!")
	} else {
		fmt.Fprintln(out, "FORCING ASIC5!")
	}

	s, err := session.Open(ctx, tc, session.WithMode(mode), session.WithLogger(log))
	if err != nil {
		return err
	}
	defer s.Close()

	printInfo(out, s.Info())

	if path == "" {
		return nil
	}

	return dumpToFile(ctx, out, s, cfg.Dump, path)
}

func printInfo(out io.Writer, info session.Info) {
	fmt.Fprintf(out, "ASIC: %d\n", info.ControllerID)
	if info.Descriptor == 0 {
		fmt.Fprintln(out, "No SSD detected.")
		return
	}

	g := info.Geometry
	fmt.Fprintf(out, "TYPE: %s\n", g.Type)
	fmt.Fprintf(out, "DEVICES: %d\n", g.DeviceCount)
	fmt.Fprintf(out, "SIZE: %s\n", g.Size)
	fmt.Fprintf(out, "BLOCKS: %d\n", g.BlockCount)
}

func dumpToFile(ctx context.Context, out io.Writer, s *session.Session, dc config.DumpConfig, path string) (err error) {
	fmt.Fprintf(out, "\nDumping to %s\n", path)

	plan := dump.PlanFor(s.Info().Geometry, dc.FirstBlockOnly)
	fmt.Fprintf(out, "SSDINFO DEVS/BLOCKS = %d/%d\n", plan.Devices, plan.Blocks)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if errors.Is(err, dump.ErrNoDevice) {
			_ = os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	opts := []dump.Option{
		dump.WithFirstBlockOnly(dc.FirstBlockOnly),
		dump.WithRetryLimit(dc.Retries),
		dump.WithStream(dc.Stream),
		dump.WithProgress(func(p dump.Progress) {
			fmt.Fprintf(out, "Fetch block %d (0 to %d, total %d) on device %d\r", p.Block, p.Blocks-1, p.Blocks, p.Device)
		}),
	}

	res, err := s.Dump(ctx, w, opts...)
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("write %s: %w", path, ferr)
	}
	if err != nil {
		if errors.Is(err, dump.ErrNoDevice) {
			fmt.Fprintln(out, "No SSD detected, nothing to dump.")
		}
		return err
	}

	fmt.Fprintf(out, "\n\nDump Duration: %f seconds\n", res.Elapsed.Seconds())
	fmt.Fprintf(out, "Transfer Speed: %f KBps\n", res.Throughput)
	fmt.Fprintf(out, "Wrote %d bytes\n\n", res.BytesWritten)

	return nil
}
