package operation

import (
	"math/bits"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// Multiply implements the Gennaro/Rabin/Rabin multiplication protocol
// (spec.md §4.C "Multiplication"): locally multiply the two input
// shares, freshly reshare the product at degree t, optionally run a
// share-synchronisation handshake, then interpolate using the degree-2t
// Lagrange weights to derive my own new share of the product (the
// operation never reveals the product itself).
type Multiply struct {
	base
	aShare, bShare field.Element
	product        field.Element
	ownFresh       field.Element
	freshInbound   map[party.ID][]field.Element
	maskMine       uint64
	synchronize    bool
}

// NewMultiply constructs a Multiplication of two shares I hold.
func NewMultiply(aShare, bShare field.Element, synchronizeShares bool) *Multiply {
	m := &Multiply{aShare: aShare, bShare: bShare, synchronize: synchronizeShares}
	m.step = 1
	return m
}

func (m *Multiply) DoStep(ctx *Context) error {
	if m.complete {
		return nil
	}
	switch m.step {
	case 1:
		m.product = ctx.Scheme.Field().Mul(m.aShare, m.bShare)
		fresh, err := ctx.Scheme.Generate(m.product, ctx.Rand)
		if err != nil {
			return &Error{Op: "Multiply", Err: err}
		}
		values := make(map[party.ID]field.Element, len(fresh))
		for id, sh := range fresh {
			values[id] = sh.Value
		}
		m.ownFresh = values[ctx.Self]
		m.setOutboundPerPeer(values)
		m.step = 2
	case 2:
		if !m.synchronize {
			m.freshInbound = m.snapshotInbound()
			m.step = 4
			return m.interpolate(ctx)
		}
		// Compute my availability mask over the just-received fresh
		// shares (bit i set iff I have peer i's share), and broadcast it
		// as its own message field -- spec.md's Open Questions flag the
		// original's trick of overloading the share slot for this as
		// fragile for large m/small p; we use a dedicated round instead.
		// The fresh shares themselves are snapshotted out of b.inbound
		// (clearing it) because the mask round's own CopyInboundShares
		// calls reuse the same map and would otherwise corrupt them.
		m.freshInbound = m.snapshotInbound()
		m.maskMine = m.computeMask(ctx)
		m.setOutbound(ctx.Scheme.Peers(), field.Element(m.maskMine))
		m.step = 3
	case 3:
		intersection := m.maskMine
		for _, vals := range m.inbound {
			intersection &= uint64(vals[0])
		}
		m.applyMaskIntersection(ctx, intersection)
		m.step = 4
		return m.interpolate(ctx)
	}
	return nil
}

// computeMask returns a bitmask (bit i = peer i in scheme.Peers() order)
// of which fresh product shares were received this round, including my
// own (always present).
func (m *Multiply) computeMask(ctx *Context) uint64 {
	var mask uint64
	for i, id := range ctx.Scheme.Peers() {
		if id == ctx.Self {
			mask |= 1 << uint(i)
			continue
		}
		if _, ok := m.freshInbound[id]; ok {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// applyMaskIntersection drops (marks missing) any received fresh share
// whose peer index is not set in the agreed intersection mask, so every
// surviving peer interpolates over the identical support set.
func (m *Multiply) applyMaskIntersection(ctx *Context, intersection uint64) {
	for i, id := range ctx.Scheme.Peers() {
		if id == ctx.Self {
			continue
		}
		if bits.OnesCount64(intersection&(1<<uint(i))) == 0 {
			delete(m.freshInbound, id)
		}
	}
}

func (m *Multiply) interpolate(ctx *Context) error {
	shares := gatherSharesFrom(ctx.Scheme, ctx.Self, m.ownFresh, m.freshInbound)
	minShares := ctx.Scheme.MinSharesFor(2 * ctx.Scheme.Degree())
	value, err := ctx.Scheme.Reconstruct(shares, minShares)
	if err != nil {
		return &Error{Op: "Multiply", Err: err}
	}
	m.finish([]field.Element{value})
	return nil
}
