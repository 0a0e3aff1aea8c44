package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// LinearPrefixOr implements spec.md §4.C "Linear prefix OR": given shares
// of n bits b_0..b_{n-1} (most-significant first), returns shares of
// or_i = OR(b_0, ..., b_i) for every i. Uses De Morgan's law (or_i = 1 -
// AND(1-b_0, ..., 1-b_i)) and folds the running AND sequentially one
// Multiply at a time -- O(n) rounds rather than the optimal O(log n),
// traded for simplicity since n is bounded by the field's bit length.
type LinearPrefixOr struct {
	z        []field.Element
	idx      int
	prefixZ  field.Element
	mulOp    *Multiply
	results  []field.Element
	complete bool
}

// NewLinearPrefixOr constructs a prefix-OR over the bit shares I hold,
// most-significant first.
func NewLinearPrefixOr(bitsMSBFirst []field.Element, f *field.Field) *LinearPrefixOr {
	z := make([]field.Element, len(bitsMSBFirst))
	for i, b := range bitsMSBFirst {
		z[i] = f.Sub(f.Elem(1), b)
	}
	return &LinearPrefixOr{z: z}
}

func (l *LinearPrefixOr) OutboundShareCount() int { return 0 }
func (l *LinearPrefixOr) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (l *LinearPrefixOr) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (l *LinearPrefixOr) IsComplete() bool              { return l.complete }
func (l *LinearPrefixOr) FinalResult() []field.Element { return l.results }

func (l *LinearPrefixOr) Children() []Operation {
	if l.mulOp != nil && !l.mulOp.IsComplete() {
		return []Operation{l.mulOp}
	}
	return nil
}

func (l *LinearPrefixOr) DoStep(ctx *Context) error {
	if l.complete {
		return nil
	}
	f := ctx.Scheme.Field()
	if len(l.z) == 0 {
		l.complete = true
		return nil
	}
	if l.idx == 0 {
		l.prefixZ = l.z[0]
		l.results = append(l.results, f.Sub(f.Elem(1), l.prefixZ))
		l.idx = 1
		if l.idx >= len(l.z) {
			l.complete = true
		}
		return nil
	}
	if l.mulOp == nil {
		l.mulOp = NewMultiply(l.prefixZ, l.z[l.idx], ctx.SynchronizeShares)
	}
	if err := l.mulOp.DoStep(ctx); err != nil {
		return err
	}
	if l.mulOp.IsComplete() {
		l.prefixZ = l.mulOp.FinalResult()[0]
		l.results = append(l.results, f.Sub(f.Elem(1), l.prefixZ))
		l.mulOp = nil
		l.idx++
		if l.idx >= len(l.z) {
			l.complete = true
		}
	}
	return nil
}
