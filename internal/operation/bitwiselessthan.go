package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// BitwiseLessThan implements spec.md §4.C "Bitwise less than": given
// equal-length, most-significant-first bit shares of two values a and b,
// returns a share of [a < b]. It XORs each bit pair, takes the prefix-OR
// of the XOR bits to locate the most significant differing position, and
// selects b's bit at that position -- the standard bitwise comparator
// from the Catrina/de Hoogh line of secure-comparison protocols.
type BitwiseLessThan struct {
	aBits, bBits []field.Element
	phase        int
	dMul         *parallelMul
	dVals        []field.Element
	preOr        *LinearPrefixOr
	preVals      []field.Element
	eMul         *parallelMul
	complete     bool
	result       []field.Element
}

// NewBitwiseLessThan constructs a bitwise comparison of two equal-length
// bit-share vectors, most-significant bit first.
func NewBitwiseLessThan(aBits, bBits []field.Element) *BitwiseLessThan {
	return &BitwiseLessThan{aBits: aBits, bBits: bBits, phase: 1}
}

func (bl *BitwiseLessThan) OutboundShareCount() int { return 0 }
func (bl *BitwiseLessThan) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (bl *BitwiseLessThan) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (bl *BitwiseLessThan) IsComplete() bool              { return bl.complete }
func (bl *BitwiseLessThan) FinalResult() []field.Element { return bl.result }

func (bl *BitwiseLessThan) Children() []Operation {
	switch bl.phase {
	case 1:
		if bl.dMul != nil {
			return bl.dMul.children()
		}
	case 2:
		if bl.preOr != nil && !bl.preOr.IsComplete() {
			return []Operation{bl.preOr}
		}
	case 3:
		if bl.eMul != nil {
			return bl.eMul.children()
		}
	}
	return nil
}

func (bl *BitwiseLessThan) DoStep(ctx *Context) error {
	if bl.complete {
		return nil
	}
	f := ctx.Scheme.Field()
	n := len(bl.aBits)
	if n == 0 {
		bl.complete = true
		bl.result = []field.Element{0}
		return nil
	}
	switch bl.phase {
	case 1:
		if bl.dMul == nil {
			pairs := make([][2]field.Element, n)
			for i := range pairs {
				pairs[i] = [2]field.Element{bl.aBits[i], bl.bBits[i]}
			}
			bl.dMul = newParallelMul(pairs, ctx.SynchronizeShares)
		}
		done, err := bl.dMul.step(ctx)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
		abProducts := bl.dMul.results()
		bl.dVals = make([]field.Element, n)
		for i := 0; i < n; i++ {
			sum := f.Add(bl.aBits[i], bl.bBits[i])
			twoAB := f.Mul(f.Elem(2), abProducts[i])
			bl.dVals[i] = f.Sub(sum, twoAB)
		}
		bl.preOr = NewLinearPrefixOr(bl.dVals, f)
		bl.phase = 2
	case 2:
		if err := bl.preOr.DoStep(ctx); err != nil {
			return err
		}
		if !bl.preOr.IsComplete() {
			return nil
		}
		bl.preVals = bl.preOr.FinalResult()
		pairs := make([][2]field.Element, n)
		var prev field.Element
		for i := 0; i < n; i++ {
			e := f.Sub(bl.preVals[i], prev)
			pairs[i] = [2]field.Element{e, bl.bBits[i]}
			prev = bl.preVals[i]
		}
		bl.eMul = newParallelMul(pairs, ctx.SynchronizeShares)
		bl.phase = 3
	case 3:
		done, err := bl.eMul.step(ctx)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
		var sum field.Element
		for _, v := range bl.eMul.results() {
			sum = f.Add(sum, v)
		}
		bl.complete = true
		bl.result = []field.Element{sum}
	}
	return nil
}
