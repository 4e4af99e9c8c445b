package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/rwarrender/sibo-ssd-dump/bridge"
	"github.com/rwarrender/sibo-ssd-dump/logger"
)

type emulateFlags struct {
	image        string
	descriptor   uint8
	controllerID uint8
	listen       string
	shortFetch   []int
}

func newEmulateCmd(stderr io.Writer, root *rootFlags) *cobra.Command {
	var f emulateFlags

	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve an SSD image over TCP as a bridge would",
		Long: "Answers the bridge command set from a raw image file so sibodump can be\n" +
			"pointed at tcp://<listen> without hardware.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.resolveLog(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg, stderr)

			return runEmulate(cmd.Context(), logger.GetLogger(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.image, "image", "", "raw SSD image; missing bytes read as 0xFF")
	fl.Uint8Var(&f.descriptor, "descriptor", 0b000_00_001, "SSD descriptor byte, e.g. 0x0a")
	fl.Uint8Var(&f.controllerID, "controller-id", 5, "ASIC identity byte")
	fl.StringVar(&f.listen, "listen", "127.0.0.1:7000", "TCP listen address")
	fl.IntSliceVar(&f.shortFetch, "short-fetch", nil, "truncate these fetches (1-based, per connection)")

	return cmd
}

func runEmulate(ctx context.Context, log logger.Logger, f emulateFlags) error {
	var (
		img *bridge.Image
		err error
	)
	if f.image != "" {
		img, err = bridge.LoadImage(f.image, f.descriptor, f.controllerID)
	} else {
		img, err = bridge.NewImage(f.descriptor, f.controllerID, nil)
	}
	if err != nil {
		return err
	}

	opts := []bridge.Option{bridge.WithLogger(log)}
	if len(f.shortFetch) > 0 {
		opts = append(opts, bridge.WithShortFetch(f.shortFetch...))
	}

	ln, err := bridge.Listen(ctx, f.listen, func() bridge.Target { return img.Clone() }, opts...)
	if err != nil {
		return err
	}
	log.Info("emulating SSD", "address", ln.Addr().String(), "geometry", img.Geometry().String())

	if err := ln.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
