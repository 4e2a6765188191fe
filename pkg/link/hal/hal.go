// Package hal abstracts the bus and signal lines used by the link.
package hal

import (
	"io"
	"time"
)

// Bus is a full-duplex bus handle. Transfers clock len(tx) bytes out
// while capturing the same number of bytes into rx.
type Bus interface {
	io.Closer

	// Xfer performs one transfer. tx and rx must have equal length.
	Xfer(tx, rx []byte) error
}

// Line is an asserted-low input signal line. Implementations fold the
// polarity in: Asserted reports true when the electrical level is low.
type Line interface {
	io.Closer

	// Asserted samples the line.
	Asserted() (bool, error)

	// WaitAssert blocks until the line asserts or the timeout elapses.
	// A line that is already asserted returns immediately.
	WaitAssert(timeout time.Duration) (bool, error)
}
