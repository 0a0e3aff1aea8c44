// Package messenger provides a transport for internal/driver.Driver.
// Network is an in-memory simulation of a fully connected peer mesh,
// grounded on the teacher's cmd/threshold-cli local-simulation mode
// (test.NewNetwork(partyIDs)): every peer gets its own inbox channel and
// Send delivers directly into the recipient's inbox with no real I/O.
// Production transports (gRPC, QUIC, whatever the embedding application
// chooses) are out of this engine's scope per spec.md's Non-goals and
// implement the same driver.Messenger interface from outside this
// package.
package messenger

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/primitives/internal/party"
)

type envelope struct {
	from party.ID
	raw  []byte
}

// Network is an in-memory simulation network connecting a fixed set of
// peers. Each peer's view of the network is obtained via For, which
// returns a driver.Messenger bound to that peer's identity.
type Network struct {
	mu      sync.RWMutex
	peers   party.IDSlice
	inboxes map[party.ID]chan envelope
	closed  bool
}

// NewNetwork constructs a simulation network for the given peer set,
// each with a buffered inbox of capacity bufSize per peer.
func NewNetwork(peers party.IDSlice, bufSize int) *Network {
	n := &Network{peers: peers, inboxes: make(map[party.ID]chan envelope, len(peers))}
	for _, id := range peers {
		n.inboxes[id] = make(chan envelope, bufSize)
	}
	return n
}

// For returns a Messenger bound to self's identity within this network.
func (n *Network) For(self party.ID) *PeerHandle {
	return &PeerHandle{net: n, self: self}
}

// Close shuts every inbox down; pending Sends and Recvs return an error.
func (n *Network) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, ch := range n.inboxes {
		close(ch)
	}
}

// DropPeer simulates a crash: further messages addressed to id are
// discarded rather than queued, so the peers still running observe id as
// unresponsive: the driver's Recv for that round runs into its deadline
// and id's entries stay absent (MISSING_SHARE), exercising spec.md's
// peer-crash handling.
func (n *Network) DropPeer(id party.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.inboxes, id)
}

// PeerHandle is a Network-backed driver.Messenger for one peer.
type PeerHandle struct {
	net  *Network
	self party.ID
}

// Send implements driver.Messenger.
func (h *PeerHandle) Send(ctx context.Context, to party.ID, raw []byte) error {
	h.net.mu.RLock()
	ch, ok := h.net.inboxes[to]
	closed := h.net.closed
	h.net.mu.RUnlock()
	if closed {
		return fmt.Errorf("messenger: network is closed")
	}
	if !ok {
		// Recipient was dropped (crashed): silently discard, matching a
		// real transport's behaviour of a send into the void.
		return nil
	}
	select {
	case ch <- envelope{from: h.self, raw: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv implements driver.Messenger.
func (h *PeerHandle) Recv(ctx context.Context) (party.ID, []byte, error) {
	h.net.mu.RLock()
	ch, ok := h.net.inboxes[h.self]
	h.net.mu.RUnlock()
	if !ok {
		return 0, nil, fmt.Errorf("messenger: peer %s has been dropped from the network", h.self)
	}
	select {
	case e, open := <-ch:
		if !open {
			return 0, nil, fmt.Errorf("messenger: network is closed")
		}
		return e.from, e.raw, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}
