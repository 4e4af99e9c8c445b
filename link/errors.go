package link

import (
	"errors"
	"fmt"
)

var (
	// ErrShortRead reports that the bridge answered fewer bytes than the
	// command defines. The link never retries on its own.
	ErrShortRead = errors.New("link: short read")
	// ErrTransport reports that a command byte could not be sent.
	ErrTransport = errors.New("link: transport write failed")
)

// ShortReadError carries the details of a short response.
// It matches ErrShortRead with errors.Is.
type ShortReadError struct {
	Cmd  Command
	Want int
	Got  int
	Err  error
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("link: short read after %s: got %d of %d bytes: %v", e.Cmd, e.Got, e.Want, e.Err)
}

func (e *ShortReadError) Is(target error) bool {
	return target == ErrShortRead
}

func (e *ShortReadError) Unwrap() error {
	return e.Err
}
