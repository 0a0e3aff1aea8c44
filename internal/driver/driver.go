package driver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/scheduler"
)

// Messenger is the transport seam spec.md's Non-goals explicitly exclude
// from this engine's scope: point-to-point delivery of one opaque,
// already-framed message to a named peer, and receipt of the next
// message addressed to this peer from any sender. Concrete transports
// (TCP, the in-memory simulation network, anything else) live outside
// this package and are supplied by the caller.
type Messenger interface {
	Send(ctx context.Context, to party.ID, raw []byte) error
	Recv(ctx context.Context) (from party.ID, raw []byte, err error)
}

// Driver runs the round-synchronous send/receive/step loop spec.md §5
// describes on behalf of one peer: every round, it sends this peer's
// outbound share vector to every other peer concurrently (no send order
// between peers is imposed), waits for each other peer's message up to
// the round's context deadline, and then steps every tracked operation
// forward. No dummy message is fabricated for a peer that doesn't answer
// in time; its inbound entries are simply absent for that round and
// interpolation treats them as MISSING_SHARE.
type Driver struct {
	self      party.ID
	peers     party.IDSlice
	messenger Messenger
	sched     *scheduler.Scheduler
	opCtx     *operation.Context
	round     int
}

// New constructs a Driver for self, coordinating with peers over
// messenger, stepping operations tracked by sched using opCtx.
func New(self party.ID, peers party.IDSlice, messenger Messenger, sched *scheduler.Scheduler, opCtx *operation.Context) *Driver {
	return &Driver{self: self, peers: peers, messenger: messenger, sched: sched, opCtx: opCtx}
}

// RoundNumber returns the number of rounds run so far.
func (d *Driver) RoundNumber() int { return d.round }

// RunRound performs exactly one round: send, receive-with-deadline,
// deliver, and step. ctx's deadline (if any) bounds how long the driver
// waits for stragglers before treating them as crashed for this round.
func (d *Driver) RunRound(ctx context.Context) error {
	n := d.sched.TotalOutboundLen()
	others := d.peers.Without(d.self)

	// Each peer's outbound buffer and encode step is independent, so the
	// sends fan out concurrently and the first failure cancels the rest,
	// the same send-to-everyone-and-collect-first-error shape the
	// teacher hand-rolls with sync.WaitGroup in its reshare paths.
	g, gctx := errgroup.WithContext(ctx)
	for _, to := range others {
		to := to
		g.Go(func() error {
			buf := make([]field.Element, n)
			d.sched.CopyOutbound(to, buf)
			msg := &PrimitivesMessage{SenderID: d.self, SenderIndex: d.round, Data: buf}
			raw, err := Encode(msg)
			if err != nil {
				return fmt.Errorf("driver: round %d: %w", d.round, err)
			}
			if err := d.messenger.Send(gctx, to, raw); err != nil {
				return fmt.Errorf("driver: round %d: sending to %s: %w", d.round, to, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	pending := make(map[party.ID]bool, len(others))
	for _, p := range others {
		pending[p] = true
	}
	for len(pending) > 0 {
		from, raw, err := d.messenger.Recv(ctx)
		if err != nil {
			// Context deadline or transport closure: every peer still
			// pending is treated as crashed for this round. Nothing is
			// fabricated for them -- each operation's inbound map simply
			// lacks these peers' entries and shamir.Reconstruct sees them
			// as MISSING_SHARE.
			break
		}
		msg, decErr := Decode(raw)
		if decErr != nil {
			return fmt.Errorf("driver: round %d: decoding message from %s: %w", d.round, from, decErr)
		}
		if msg.SenderID != from {
			return fmt.Errorf("driver: round %d: message claims sender %s but arrived from %s", d.round, msg.SenderID, from)
		}
		if !pending[from] {
			continue // duplicate or stray retransmission; drop
		}
		d.sched.CopyInbound(from, msg.Data)
		delete(pending, from)
	}

	if _, err := d.sched.StepAll(d.opCtx); err != nil {
		return fmt.Errorf("driver: round %d: %w", d.round, err)
	}
	d.round++
	return nil
}

// RunUntilDone repeatedly calls RunRound until the scheduler reports no
// active operations left, or ctx is done.
func (d *Driver) RunUntilDone(ctx context.Context) error {
	for d.sched.ParallelCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := d.RunRound(ctx); err != nil {
			return err
		}
	}
	return nil
}
