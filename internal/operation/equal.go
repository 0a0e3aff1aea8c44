package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// Equal implements spec.md §4.C "Equal": a share of 1 if the two input
// shares hold the same secret, 0 otherwise. Uses the Fermat zero-test
// (diff^(p-1) is 1 for any nonzero diff and 0 for diff==0) via a nested
// Power sub-operation, so equality testing costs one secure
// exponentiation rather than a bitwise comparison.
type Equal struct {
	diff     field.Element
	powOp    *Power
	complete bool
	result   []field.Element
}

// NewEqual constructs an Equal test between two shares I hold.
func NewEqual(aShare, bShare field.Element, f *field.Field) *Equal {
	diff := f.Sub(aShare, bShare)
	return &Equal{diff: diff}
}

func (e *Equal) OutboundShareCount() int { return 0 }
func (e *Equal) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (e *Equal) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (e *Equal) IsComplete() bool              { return e.complete }
func (e *Equal) FinalResult() []field.Element { return e.result }

func (e *Equal) Children() []Operation {
	if e.powOp != nil && !e.powOp.IsComplete() {
		return []Operation{e.powOp}
	}
	return nil
}

func (e *Equal) DoStep(ctx *Context) error {
	if e.complete {
		return nil
	}
	if e.powOp == nil {
		e.powOp = NewPower(e.diff, ctx.Scheme.Field().P()-1)
	}
	if err := e.powOp.DoStep(ctx); err != nil {
		return err
	}
	if e.powOp.IsComplete() {
		f := ctx.Scheme.Field()
		isNonZero := e.powOp.FinalResult()[0]
		e.complete = true
		e.result = []field.Element{f.Sub(f.Elem(1), isNonZero)}
	}
	return nil
}
