package link

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock advances virtual time on every Sleep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeLine is a scripted signal line.
type fakeLine struct {
	mu       sync.Mutex
	asserted bool
	err      error
	closes   int
}

func (l *fakeLine) set(asserted bool) {
	l.mu.Lock()
	l.asserted = asserted
	l.mu.Unlock()
}

func (l *fakeLine) Asserted() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.asserted, l.err
}

func (l *fakeLine) WaitAssert(timeout time.Duration) (bool, error) {
	if asserted, err := l.Asserted(); asserted || err != nil {
		return asserted, err
	}
	time.Sleep(timeout)
	return l.Asserted()
}

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

// fetchEntry is one staged peer response.
type fetchEntry struct {
	payload []byte
	declare int // declared length override, -1 for len(payload)
	credit  byte
}

// fakePeer emulates the MCU side of the protocol: it is the bus and
// drives both signal lines the way the firmware does.
type fakePeer struct {
	t       *testing.T
	pending fakeLine
	ready   fakeLine

	mu       sync.Mutex
	entries  []fetchEntry
	defaults fetchEntry // served when entries run out
	sent     [][]byte
	requests int
	fetches  int

	failXfer   error
	noReady    bool // never assert response-ready after a request
	readyStuck bool // keep response-ready asserted after a fetch

	busCloses int
	inXfer    bool
}

func newFakePeer(t *testing.T) *fakePeer {
	return &fakePeer{t: t, defaults: fetchEntry{declare: -1}}
}

func (p *fakePeer) stage(credit byte, payload []byte) {
	p.mu.Lock()
	p.entries = append(p.entries, fetchEntry{payload: payload, declare: -1, credit: credit})
	p.pending.set(true)
	p.mu.Unlock()
}

func (p *fakePeer) stageDeclared(credit byte, payload []byte, declare int) {
	p.mu.Lock()
	p.entries = append(p.entries, fetchEntry{payload: payload, declare: declare, credit: credit})
	p.pending.set(true)
	p.mu.Unlock()
}

func (p *fakePeer) sentPayloads() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.sent...)
}

func (p *fakePeer) cycleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *fakePeer) Xfer(tx, rx []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Equal(p.t, len(tx), len(rx), "tx/rx length mismatch")
	require.False(p.t, p.inXfer, "overlapping transfers")
	p.inXfer = true
	defer func() { p.inXfer = false }()

	if p.failXfer != nil {
		return p.failXfer
	}
	require.NotEmpty(p.t, tx)
	switch tx[0] {
	case opSend:
		require.GreaterOrEqual(p.t, len(tx), sendHeaderSize)
		declared := int(binary.BigEndian.Uint16(tx[1:]))
		require.Equal(p.t, len(tx)-sendHeaderSize, declared, "SEND length field")
		p.sent = append(p.sent, append([]byte(nil), tx[sendHeaderSize:]...))
	case opRequest:
		require.Len(p.t, tx, 1)
		rdy, _ := p.ready.Asserted()
		require.False(p.t, rdy, "REQUEST while response-ready asserted")
		p.requests++
		if !p.noReady {
			p.ready.set(true)
		}
	case opFetch:
		require.Len(p.t, tx, fetchSize)
		rdy, _ := p.ready.Asserted()
		require.True(p.t, rdy, "FETCH before response-ready")
		p.fetches++
		entry := p.defaults
		if len(p.entries) > 0 {
			entry = p.entries[0]
			p.entries = p.entries[1:]
		}
		declare := entry.declare
		if declare < 0 {
			declare = len(entry.payload)
		}
		binary.BigEndian.PutUint16(rx[1:], uint16(declare))
		rx[3] = entry.credit
		copy(rx[4:], entry.payload)
		if len(p.entries) == 0 {
			p.pending.set(false)
		}
		if !p.readyStuck {
			p.ready.set(false)
		}
	default:
		p.t.Errorf("unknown opcode 0x%02x", tx[0])
	}
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busCloses++
	return nil
}

// openTestLink wires a Link to the fake peer with a virtual clock.
func openTestLink(p *fakePeer) *Link {
	l := Open(p, &p.pending, &p.ready)
	l.Clock = &fakeClock{now: time.Unix(0, 0)}
	return l
}
