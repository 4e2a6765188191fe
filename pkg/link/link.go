package link

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/frame"
	"github.com/robotalks/picobridge/pkg/framework"
	"github.com/robotalks/picobridge/pkg/link/hal"
)

// Wire constants shared with the peer firmware.
const (
	opSend    byte = 0x01
	opRequest byte = 0x02
	opFetch   byte = 0x03

	// MaxPayload is the largest payload in one transaction.
	MaxPayload = 1500
	// CreditUnit is the granule of peer buffer space.
	CreditUnit = 64

	sendHeaderSize = 3
	// fetch clocks a fixed length: both sides must agree on the
	// transfer size before it starts, so the response is padded to
	// opcode + length(2) + credit(1) + MaxPayload.
	fetchSize = 1 + 2 + 1 + MaxPayload

	pollInterval = 100 * time.Microsecond
)

// Link owns the bus handle and the two signal lines and serializes all
// transactions issued against them.
type Link struct {
	// Clock supplies deadlines for the ready-line busy polls.
	// Replace before first use only.
	Clock Clock
	// ReadyClearTimeout bounds the wait for response-ready to deassert
	// after a fetch. Expiry is logged and ignored: the peer state
	// self-corrects on the next cycle.
	ReadyClearTimeout time.Duration

	bus     hal.Bus
	pending hal.Line
	ready   hal.Line

	mu     sync.Mutex
	credit Credit

	closeOnce sync.Once
	closeErr  error
}

// Open creates a Link over an opened bus and the data-pending and
// response-ready lines. The Link takes ownership and releases all three
// in Close.
func Open(bus hal.Bus, pending, ready hal.Line) *Link {
	return &Link{
		Clock:             systemClock{},
		ReadyClearTimeout: 100 * time.Millisecond,
		bus:               bus,
		pending:           pending,
		ready:             ready,
	}
}

// Close releases the bus and both lines. It is safe to call multiple
// times and from any exit path; the resources are released exactly once.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		var errs framework.AggregatedError
		errs.Add(l.pending.Close(), l.ready.Close(), l.bus.Close())
		l.closeErr = errs.Aggregate()
	})
	return l.closeErr
}

// Credit returns the current credit estimate in units.
func (l *Link) Credit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit.Units()
}

// WaitPending waits for the peer to signal queued inbound data.
// It returns immediately if the line is already asserted.
func (l *Link) WaitPending(timeout time.Duration) (bool, error) {
	return l.pending.WaitAssert(timeout)
}

// Send pushes one payload to the peer as a single transaction.
// The payload must fit the peer's buffer: ErrNoCredit reports a
// flow-control rejection with the estimate unchanged.
func (l *Link) Send(payload []byte) error {
	if len(payload) > MaxPayload {
		return &SizeError{Size: len(payload)}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.credit.Consume(len(payload)) {
		return ErrNoCredit
	}
	tx := make([]byte, sendHeaderSize+len(payload))
	tx[0] = opSend
	binary.BigEndian.PutUint16(tx[1:], uint16(len(payload)))
	copy(tx[sendHeaderSize:], payload)
	return l.xfer(tx)
}

// SendMessage encodes and sends one channel message with the bounded
// flow-control retry: on a credit rejection it runs exactly one
// handshake cycle (bounded by timeout) and retries the send once.
func (l *Link) SendMessage(msg frame.Message, timeout time.Duration) error {
	b, err := frame.Encode(msg)
	if err != nil {
		return err
	}
	if err = l.Send(b); err != ErrNoCredit {
		return err
	}
	_, ok, err := l.Cycle(timeout)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoResponse
	}
	return l.Send(b)
}

// Cycle runs one handshake cycle: REQUEST, wait for response-ready,
// FETCH, wait for response-ready to clear. The request+fetch pair is
// atomic with respect to concurrent sends.
//
// It returns (payload, true, nil) on success with the credit estimate
// refreshed from the response, (nil, false, nil) when the peer did not
// assert response-ready within timeout, and a non-nil error only on a
// bus fault.
func (l *Link) Cycle(timeout time.Duration) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.xfer([]byte{opRequest}); err != nil {
		return nil, false, err
	}
	asserted, err := l.waitReady(true, timeout)
	if err != nil {
		return nil, false, err
	}
	if !asserted {
		return nil, false, nil
	}

	tx := make([]byte, fetchSize)
	tx[0] = opFetch
	rx := make([]byte, fetchSize)
	if err = l.bus.Xfer(tx, rx); err != nil {
		return nil, false, err
	}

	cleared, err := l.waitReady(false, l.ReadyClearTimeout)
	if err != nil {
		return nil, false, err
	}
	if !cleared {
		glog.Warning("response-ready still asserted after fetch")
	}

	// response: [lenHi][lenLo][credit][payload...], after the opcode slot
	length := int(binary.BigEndian.Uint16(rx[1:]))
	if length > MaxPayload {
		length = MaxPayload
	}
	l.credit.Refresh(int(rx[3]))
	payload := make([]byte, length)
	copy(payload, rx[4:4+length])
	return payload, true, nil
}

// xfer clocks tx out, discarding the bytes received. Callers hold l.mu.
func (l *Link) xfer(tx []byte) error {
	return l.bus.Xfer(tx, make([]byte, len(tx)))
}

// waitReady busy-polls the response-ready line until it reaches the
// wanted state or the deadline passes. Callers hold l.mu.
func (l *Link) waitReady(want bool, timeout time.Duration) (bool, error) {
	deadline := l.Clock.Now().Add(timeout)
	for {
		asserted, err := l.ready.Asserted()
		if err != nil {
			return false, err
		}
		if asserted == want {
			return true, nil
		}
		if !l.Clock.Now().Before(deadline) {
			return false, nil
		}
		l.Clock.Sleep(pollInterval)
	}
}
