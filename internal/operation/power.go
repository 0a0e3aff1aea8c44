package operation

import (
	"math/bits"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

type powerStep int

const (
	stepSquare powerStep = iota
	stepMulBase
)

// Power implements spec.md §4.C "Power": raises a shared value to a
// public, non-negative exponent via square-and-multiply, mirroring
// field.Field.Pow's algorithm but with each squaring/multiplication step
// realised as a secure Multiply sub-operation instead of local modular
// arithmetic. A public constant (the initial accumulator, 1) needs no
// protocol round: every peer's share of a publicly known value under a
// degree-t Shamir polynomial is simply that value itself, since the
// constant polynomial evaluates identically everywhere.
type Power struct {
	base     field.Element
	steps    []powerStep
	idx      int
	acc      field.Element
	mulOp    *Multiply
	complete bool
	result   []field.Element
}

// NewPower constructs a Power of base (my share of it) to the public
// exponent e.
func NewPower(base field.Element, e uint64) *Power {
	p := &Power{base: base, acc: field.Element(1)}
	nbits := bits.Len64(e)
	if nbits == 0 {
		nbits = 1
	}
	for i := nbits - 1; i >= 0; i-- {
		p.steps = append(p.steps, stepSquare)
		if e&(1<<uint(i)) != 0 {
			p.steps = append(p.steps, stepMulBase)
		}
	}
	return p
}

func (p *Power) OutboundShareCount() int { return 0 }
func (p *Power) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (p *Power) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (p *Power) IsComplete() bool              { return p.complete }
func (p *Power) FinalResult() []field.Element { return p.result }

func (p *Power) Children() []Operation {
	if p.mulOp != nil && !p.mulOp.IsComplete() {
		return []Operation{p.mulOp}
	}
	return nil
}

func (p *Power) DoStep(ctx *Context) error {
	if p.complete {
		return nil
	}
	if p.idx >= len(p.steps) {
		p.complete = true
		p.result = []field.Element{p.acc}
		return nil
	}
	if p.mulOp == nil {
		other := p.acc
		if p.steps[p.idx] == stepMulBase {
			other = p.base
		}
		p.mulOp = NewMultiply(p.acc, other, ctx.SynchronizeShares)
	}
	if err := p.mulOp.DoStep(ctx); err != nil {
		return err
	}
	if p.mulOp.IsComplete() {
		p.acc = p.mulOp.FinalResult()[0]
		p.mulOp = nil
		p.idx++
		if p.idx >= len(p.steps) {
			p.complete = true
			p.result = []field.Element{p.acc}
		}
	}
	return nil
}
