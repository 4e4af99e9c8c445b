// Package dump drives a whole-SSD dump over the bridge link.
//
// A dump is strictly sequential: reset, then for every device every block
// is fetched, written to the sink and stepped past, and after the last
// block of a device the bridge is moved to the next device. The output is
// the raw concatenation of blocks, device-major then block-minor, with no
// header, padding or checksum.
//
// # Short reads
//
// The bridge protocol cannot ask for a retransmission. By default a short
// block aborts the dump (fail fast). WithRetryLimit enables a bounded retry:
// the transport is drained of any late bytes and the same block is fetched
// again; bytes from a failed attempt never reach the sink.
package dump
