package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// GenerateRandomBit implements spec.md §4.C "Generate random bit": jointly
// sample a random field element r (via GenerateRandomNumber), square it
// via Multiplication, publicly reconstruct r^2, and derive a share of
// (r * s^-1 + 1) * 2^-1 where s is the canonical (smaller) square root of
// r^2 -- a value that is always 0 or 1 since r/s = +-1. If r^2 happens to
// be 0 (r was itself 0) the operation yields the Failure sentinel and the
// caller is expected to retry.
type GenerateRandomBit struct {
	phase    int
	randOp   *GenerateRandomNumber
	mulOp    *Multiply
	recOp    *Reconstruct
	rShare   field.Element
	complete bool
	result   []field.Element
}

// NewGenerateRandomBit constructs a fresh random-bit generation.
func NewGenerateRandomBit() *GenerateRandomBit {
	return &GenerateRandomBit{phase: 1, randOp: NewGenerateRandomNumber()}
}

func (g *GenerateRandomBit) OutboundShareCount() int { return 0 }
func (g *GenerateRandomBit) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (g *GenerateRandomBit) CopyInboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (g *GenerateRandomBit) IsComplete() bool              { return g.complete }
func (g *GenerateRandomBit) FinalResult() []field.Element { return g.result }

func (g *GenerateRandomBit) Children() []Operation {
	switch g.phase {
	case 1:
		return []Operation{g.randOp}
	case 2:
		return []Operation{g.mulOp}
	case 3:
		return []Operation{g.recOp}
	}
	return nil
}

func (g *GenerateRandomBit) DoStep(ctx *Context) error {
	if g.complete {
		return nil
	}
	switch g.phase {
	case 1:
		if err := g.randOp.DoStep(ctx); err != nil {
			return err
		}
		if g.randOp.IsComplete() {
			g.rShare = g.randOp.FinalResult()[0]
			g.mulOp = NewMultiply(g.rShare, g.rShare, ctx.SynchronizeShares)
			g.phase = 2
		}
	case 2:
		if err := g.mulOp.DoStep(ctx); err != nil {
			return err
		}
		if g.mulOp.IsComplete() {
			rsq := g.mulOp.FinalResult()[0]
			g.recOp = NewReconstruct(rsq, ctx.Scheme.MinSharesFor(2*ctx.Scheme.Degree()))
			g.phase = 3
		}
	case 3:
		if err := g.recOp.DoStep(ctx); err != nil {
			return err
		}
		if g.recOp.IsComplete() {
			rsqPublic := g.recOp.FinalResult()[0]
			f := ctx.Scheme.Field()
			if rsqPublic == 0 {
				g.complete = true
				g.result = Failure
				return nil
			}
			s, err := f.Sqrt(rsqPublic)
			if err != nil {
				g.complete = true
				g.result = Failure
				return nil
			}
			sInv, err := f.Inverse(s)
			if err != nil {
				return &Error{Op: "GenerateRandomBit", Err: err}
			}
			twoInv, err := f.Inverse(f.Elem(2))
			if err != nil {
				return &Error{Op: "GenerateRandomBit", Err: err}
			}
			bitShare := f.Mul(f.Add(f.Mul(g.rShare, sInv), f.Elem(1)), twoInv)
			g.complete = true
			g.result = []field.Element{bitShare}
		}
	}
	return nil
}
