package driver

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/scheduler"
	"github.com/luxfi/primitives/internal/shamir"
)

// chanMessenger is an in-memory Messenger backed by per-recipient
// channels, just enough to exercise Driver's round loop in tests without
// pulling in the full simulation network from pkg/messenger.
type chanMessenger struct {
	self  party.ID
	inbox chan envelope
	out   map[party.ID]chan envelope
}

type envelope struct {
	from party.ID
	raw  []byte
}

func newChanMessengers(ids party.IDSlice) map[party.ID]*chanMessenger {
	inboxes := make(map[party.ID]chan envelope, len(ids))
	for _, id := range ids {
		inboxes[id] = make(chan envelope, 64)
	}
	out := make(map[party.ID]*chanMessenger, len(ids))
	for _, id := range ids {
		out[id] = &chanMessenger{self: id, inbox: inboxes[id], out: inboxes}
	}
	return out
}

func (c *chanMessenger) Send(ctx context.Context, to party.ID, raw []byte) error {
	select {
	case c.out[to] <- envelope{from: c.self, raw: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *chanMessenger) Recv(ctx context.Context) (party.ID, []byte, error) {
	select {
	case e := <-c.inbox:
		return e.from, e.raw, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func TestDriverRunsReconstructToCompletion(t *testing.T) {
	f, err := field.New(2147483647)
	require.NoError(t, err)
	ids := party.NewIDSlice(1, 2, 3, 4, 5)
	alphas := make(map[party.ID]field.Element, len(ids))
	for i, id := range ids {
		alphas[id] = field.Element(i + 2)
	}
	scheme, err := shamir.NewScheme(f, ids, alphas, 2)
	require.NoError(t, err)

	shares, err := scheme.Generate(field.Element(123), rand.Reader)
	require.NoError(t, err)

	messengers := newChanMessengers(ids)
	drivers := make(map[party.ID]*Driver, len(ids))
	scheds := make(map[party.ID]*scheduler.Scheduler, len(ids))
	for _, id := range ids {
		sched := scheduler.New(0)
		sched.Submit(operation.NewReconstruct(shares[id].Value, scheme.MinSharesFor(scheme.Degree())))
		scheds[id] = sched
		opCtx := &operation.Context{Scheme: scheme, Self: id, Rand: rand.Reader, Cache: operation.NewPredicateCache()}
		drivers[id] = New(id, ids, messengers[id], sched, opCtx)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs := make(chan error, len(ids))
	for _, id := range ids {
		go func(d *Driver) { errs <- d.RunUntilDone(ctx) }(drivers[id])
	}
	for range ids {
		require.NoError(t, <-errs)
	}

	for _, id := range ids {
		op, ok := scheds[id].Get(0)
		require.True(t, ok)
		require.True(t, op.IsComplete())
		require.Equal(t, field.Element(123), op.FinalResult()[0])
	}
}
