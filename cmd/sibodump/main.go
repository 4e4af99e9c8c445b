// Command sibodump reads Psion SIBO SSD images through a serial bridge.
//
// Usage:
//
//	sibodump -s /dev/ttyUSB0                 print the SSD info block
//	sibodump -s /dev/ttyUSB0 -d ssd.bin      dump every device to ssd.bin
//	sibodump -s tcp://127.0.0.1:7000 -d x    dump through a TCP bridge
//	sibodump emulate --image ssd.bin --descriptor 0x0a --listen :7000
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
