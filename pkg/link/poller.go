package link

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/frame"
)

// MessageHandler is called for each inbound channel message.
type MessageHandler interface {
	HandleMessage(context.Context, frame.Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(context.Context, frame.Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg frame.Message) {
	f(ctx, msg)
}

// Poller drains inbound data in the background. It waits on the
// data-pending line, then runs handshake cycles until the peer's queue
// looks empty, delivering decoded messages to Handler in arrival order.
//
// The bus lock is released between cycles, so foreground sends may
// interleave between them but never inside one.
type Poller struct {
	Link    *Link
	Handler MessageHandler

	// WaitTimeout bounds each wait on the data-pending line. It only
	// paces how often the context is re-checked, not the protocol.
	WaitTimeout time.Duration
	// CycleTimeout bounds each handshake cycle.
	CycleTimeout time.Duration
}

// NewPoller creates a Poller with default timeouts.
func NewPoller(l *Link, handler MessageHandler) *Poller {
	return &Poller{
		Link:         l,
		Handler:      handler,
		WaitTimeout:  500 * time.Millisecond,
		CycleTimeout: 500 * time.Millisecond,
	}
}

// Name implements framework.Named.
func (p *Poller) Name() string {
	return "poller"
}

// Run implements framework.Runnable. It returns when the context is
// canceled, on a bus fault, or with ErrNoResponse when a cycle times
// out: both faults are fatal here and propagate to the owning runner.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		asserted, err := p.Link.WaitPending(p.WaitTimeout)
		if err != nil {
			return err
		}
		if !asserted {
			continue
		}
		if err := p.drain(ctx); err != nil {
			return err
		}
	}
}

// drain runs handshake cycles while a full payload suggests more data
// is still queued. The heuristic is best-effort: data arriving exactly
// as the pending line deasserts is picked up on the next wait at the
// latest.
func (p *Poller) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, ok, err := p.Link.Cycle(p.CycleTimeout)
		if err != nil {
			return err
		}
		if !ok {
			glog.Errorf("drain: %v", ErrNoResponse)
			return ErrNoResponse
		}
		if len(payload) > 0 {
			for _, msg := range frame.Decode(payload) {
				p.Handler.HandleMessage(ctx, msg)
			}
		}
		if len(payload) < MaxPayload {
			return nil
		}
	}
}
