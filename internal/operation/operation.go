// Package operation implements the catalogue of round-based state
// machines specified by spec.md §4.C: every sharable arithmetic
// primitive the engine can schedule, from Reconstruction up through the
// Bloom-filter combinators.
package operation

import (
	"fmt"
	"io"
	"sync"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/shamir"
)

// Failure is the primitive-failure sentinel result ([-1]) returned by
// randomised sub-protocols (GenerateRandomBit, GenerateBitwiseRandomNumber,
// LSB) that have an inherent, small failure probability. No caller raises
// an error for it: GenerateBitwiseRandomNumber redraws a failed bit,
// signBit redraws a failed LSB, BatchGenerateBitwiseRandomNumbers
// redraws failed numbers, and other callers pass it on unchanged.
var Failure = []field.Element{field.Element(^uint64(0))}

// IsFailure reports whether result is the failure sentinel.
func IsFailure(result []field.Element) bool {
	return len(result) == 1 && result[0] == Failure[0]
}

// Context carries everything an operation needs to take a step: the
// sharing scheme, this peer's identity, a source of randomness, the
// configured privacy-peer count/threshold, and the shared predicate
// cache. It is constructed once per engine and handed to every DoStep
// call; it holds no per-operation state.
type Context struct {
	Scheme        *shamir.Scheme
	Self          party.ID
	Rand          io.Reader
	Cache         *PredicateCache
	SynchronizeShares bool
}

// Operation is the shared contract every state machine in the catalogue
// implements, matching spec.md §4.C exactly.
type Operation interface {
	// CopyOutboundShares writes this operation's (not its children's)
	// outbound share vector for peer pp into buf at offset, returning the
	// new offset.
	CopyOutboundShares(pp party.ID, buf []field.Element, offset int) int
	// CopyInboundShares reads this operation's inbound share vector for
	// peer pp from buf at offset, returning the new offset.
	CopyInboundShares(pp party.ID, buf []field.Element, offset int) int
	// OutboundShareCount returns the length of this operation's own
	// outbound vector this round (not including children).
	OutboundShareCount() int
	// DoStep advances the operation by one round.
	DoStep(ctx *Context) error
	// IsComplete reports whether FinalResult is available.
	IsComplete() bool
	// FinalResult returns the operation's result; only meaningful once
	// IsComplete returns true.
	FinalResult() []field.Element
	// Children returns active and completed sub-operations, in the
	// order their shares follow this operation's own slice in the
	// pre-order share-copy traversal. A leaf operation returns nil.
	Children() []Operation
}

// TotalOutboundCount returns the combined outbound share count of op and
// every non-complete descendant, in pre-order.
func TotalOutboundCount(op Operation) int {
	if op.IsComplete() {
		return 0
	}
	n := op.OutboundShareCount()
	for _, c := range op.Children() {
		n += TotalOutboundCount(c)
	}
	return n
}

// CopyAllOutbound performs the pre-order share-copy traversal described by
// spec.md §6 for outbound shares.
func CopyAllOutbound(op Operation, pp party.ID, buf []field.Element, offset int) int {
	if op.IsComplete() {
		return offset
	}
	offset = op.CopyOutboundShares(pp, buf, offset)
	for _, c := range op.Children() {
		offset = CopyAllOutbound(c, pp, buf, offset)
	}
	return offset
}

// CopyAllInbound performs the pre-order share-copy traversal for inbound shares.
func CopyAllInbound(op Operation, pp party.ID, buf []field.Element, offset int) int {
	if op.IsComplete() {
		return offset
	}
	offset = op.CopyInboundShares(pp, buf, offset)
	for _, c := range op.Children() {
		offset = CopyAllInbound(c, pp, buf, offset)
	}
	return offset
}

// ProtocolError reports a malformed operation construction: wrong arity,
// out-of-range bounds, or similar. No constructor in this package returns
// it; the constructors do not validate their arguments.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %s", e.Op, e.Msg)
}

// Error reports interpolation/state faults surfaced during DoStep, such
// as insufficient shares.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("primitives error in %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// base implements the bookkeeping shared by every leaf operation: a
// step counter, per-peer outbound/inbound vectors for the current
// round, completion state, and the final result.
type base struct {
	step     int
	complete bool
	result   []field.Element
	shareLen int
	outbound map[party.ID][]field.Element
	inbound  map[party.ID][]field.Element
}

func (b *base) OutboundShareCount() int {
	if b.complete {
		return 0
	}
	return b.shareLen
}

func (b *base) CopyOutboundShares(pp party.ID, buf []field.Element, offset int) int {
	if b.complete || b.shareLen == 0 {
		return offset
	}
	vals, ok := b.outbound[pp]
	if !ok {
		// Nothing addressed to this peer this round (shouldn't happen for
		// well-formed operations, but degrade gracefully to zeros rather
		// than panic).
		vals = make([]field.Element, b.shareLen)
	}
	copy(buf[offset:offset+b.shareLen], vals)
	return offset + b.shareLen
}

func (b *base) CopyInboundShares(pp party.ID, buf []field.Element, offset int) int {
	if b.complete || b.shareLen == 0 {
		return offset
	}
	vals := make([]field.Element, b.shareLen)
	copy(vals, buf[offset:offset+b.shareLen])
	if b.inbound == nil {
		b.inbound = make(map[party.ID][]field.Element)
	}
	b.inbound[pp] = vals
	return offset + b.shareLen
}

func (b *base) IsComplete() bool             { return b.complete }
func (b *base) FinalResult() []field.Element { return b.result }
func (b *base) Children() []Operation        { return nil }

// finish marks the operation complete with the given single- or
// multi-element result.
func (b *base) finish(result []field.Element) {
	b.complete = true
	b.result = result
	b.shareLen = 0
}

// setOutbound arranges for value to be sent, unchanged, to every peer in
// peers this round.
func (b *base) setOutbound(peers party.IDSlice, value field.Element) {
	b.shareLen = 1
	b.outbound = make(map[party.ID][]field.Element, len(peers))
	for _, id := range peers {
		b.outbound[id] = []field.Element{value}
	}
}

// setOutboundPerPeer arranges for a distinct (per-recipient) outbound
// value to be sent this round, e.g. a freshly generated Shamir share.
func (b *base) setOutboundPerPeer(values map[party.ID]field.Element) {
	b.shareLen = 1
	b.outbound = make(map[party.ID][]field.Element, len(values))
	for id, v := range values {
		b.outbound[id] = []field.Element{v}
	}
}

// setOutboundVector arranges for the same public vector to be sent,
// unchanged, to every peer in peers this round (e.g. Synchronization's
// broadcast of a public {0,1} vector).
func (b *base) setOutboundVector(peers party.IDSlice, values []field.Element) {
	b.shareLen = len(values)
	b.outbound = make(map[party.ID][]field.Element, len(peers))
	for _, id := range peers {
		cp := make([]field.Element, len(values))
		copy(cp, values)
		b.outbound[id] = cp
	}
}

// snapshotInbound hands the current round's inbound map to the caller and
// clears b.inbound, so a subsequent round's CopyInboundShares calls
// allocate a fresh map instead of mutating data the caller must keep
// (needed by multi-round operations like Multiply's mask handshake, where
// round 2's inbound shares must survive round 3's CopyInboundShares calls).
func (b *base) snapshotInbound() map[party.ID][]field.Element {
	snap := b.inbound
	b.inbound = nil
	return snap
}

// gatherShares builds the length-m Shamir share vector for interpolation
// from this round's inbound map plus the caller's own (never-transmitted)
// value.
func (b *base) gatherShares(scheme *shamir.Scheme, self party.ID, ownValue field.Element) []shamir.Share {
	return gatherSharesFrom(scheme, self, ownValue, b.inbound)
}

// gatherSharesFrom is gatherShares but against an explicit inbound map,
// for operations (e.g. Multiply's share-synchronisation handshake) that
// must preserve one round's inbound data across a subsequent round whose
// own inbound copy would otherwise overwrite it.
func gatherSharesFrom(scheme *shamir.Scheme, self party.ID, ownValue field.Element, inbound map[party.ID][]field.Element) []shamir.Share {
	peers := scheme.Peers()
	out := make([]shamir.Share, 0, len(peers))
	for _, id := range peers {
		if id == self {
			out = append(out, shamir.NewShare(id, ownValue))
			continue
		}
		vals, ok := inbound[id]
		if !ok {
			out = append(out, shamir.Missing(id))
			continue
		}
		out = append(out, shamir.NewShare(id, vals[0]))
	}
	return out
}

// PredicateCache memoises `[secret < p/2]` shares across repeated
// LessThan/LSB calls keyed by caller-supplied opaque keys, guarded by a
// mutex since it is shared across every worker goroutine stepping the
// scheduler (spec.md §5).
type PredicateCache struct {
	mu sync.Mutex
	m  map[string]field.Element
}

// NewPredicateCache returns an empty cache.
func NewPredicateCache() *PredicateCache {
	return &PredicateCache{m: make(map[string]field.Element)}
}

// Get returns the cached share for key, if any.
func (c *PredicateCache) Get(key string) (field.Element, bool) {
	if c == nil || key == "" {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

// Set stores a share under key, overwriting any previous value.
func (c *PredicateCache) Set(key string, v field.Element) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
}

// Len returns the number of cached entries (used by tests).
func (c *PredicateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
