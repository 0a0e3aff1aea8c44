package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// GenerateBitwiseRandomNumber implements spec.md §4.C "Generate bitwise
// random number": jointly sample BitLen() independent random bits (each
// via GenerateRandomBit), locally fold them, most-significant first, into
// a share of their weighted sum, then check the drawn value against p via
// BitwiseLessThan and publicly reconstruct that comparison. A bit draw
// that hits the GenerateRandomBit failure sentinel is retried in place
// with a fresh child rather than failing the whole draw, since each bit
// is independent; but a fully-drawn value that reconstructs as >= p lands
// outside the field's canonical range and the whole operation yields the
// Failure sentinel for the caller to retry (spec.md §8's uniformity
// invariant: folding out-of-range draws back in via modular reduction
// would bias the distribution).
type GenerateBitwiseRandomNumber struct {
	bitOps   []*GenerateRandomBit
	bitValue []field.Element
	finished []bool
	drawn    bool
	phase    int
	ltOp     *BitwiseLessThan
	recOp    *Reconstruct
	complete bool
	result   []field.Element
}

// NewGenerateBitwiseRandomNumber constructs a draw of n independent
// random bits (n is normally ctx.Scheme.Field().BitLen()).
func NewGenerateBitwiseRandomNumber(n int) *GenerateBitwiseRandomNumber {
	g := &GenerateBitwiseRandomNumber{
		bitOps:   make([]*GenerateRandomBit, n),
		bitValue: make([]field.Element, n),
		finished: make([]bool, n),
	}
	for i := range g.bitOps {
		g.bitOps[i] = NewGenerateRandomBit()
	}
	return g
}

func (g *GenerateBitwiseRandomNumber) OutboundShareCount() int { return 0 }
func (g *GenerateBitwiseRandomNumber) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (g *GenerateBitwiseRandomNumber) CopyInboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (g *GenerateBitwiseRandomNumber) IsComplete() bool              { return g.complete }
func (g *GenerateBitwiseRandomNumber) FinalResult() []field.Element { return g.result }

// Children returns every bit draw not yet finished, in ascending (i.e.
// most-significant-first) bit order, skipping already-finished bits per
// spec.md §6's pre-order-skip-completed-subs rule, until the draw moves
// on to its "< p" check.
func (g *GenerateBitwiseRandomNumber) Children() []Operation {
	if !g.drawn {
		out := make([]Operation, 0, len(g.bitOps))
		for i, done := range g.finished {
			if !done {
				out = append(out, g.bitOps[i])
			}
		}
		return out
	}
	switch g.phase {
	case 1:
		return []Operation{g.ltOp}
	case 2:
		return []Operation{g.recOp}
	}
	return nil
}

func (g *GenerateBitwiseRandomNumber) DoStep(ctx *Context) error {
	if g.complete {
		return nil
	}
	f := ctx.Scheme.Field()
	if !g.drawn {
		allDone := true
		for i, op := range g.bitOps {
			if g.finished[i] {
				continue
			}
			if err := op.DoStep(ctx); err != nil {
				return err
			}
			if !op.IsComplete() {
				allDone = false
				continue
			}
			res := op.FinalResult()
			if IsFailure(res) {
				// Independent retry: this bit alone is redrawn next round.
				g.bitOps[i] = NewGenerateRandomBit()
				allDone = false
				continue
			}
			g.bitValue[i] = res[0]
			g.finished[i] = true
		}
		if !allDone {
			return nil
		}
		g.drawn = true
		g.ltOp = NewBitwiseLessThan(g.bitValue, f.Bits(f.P()))
		g.phase = 1
		return nil
	}
	switch g.phase {
	case 1:
		if err := g.ltOp.DoStep(ctx); err != nil {
			return err
		}
		if !g.ltOp.IsComplete() {
			return nil
		}
		g.recOp = NewReconstruct(g.ltOp.FinalResult()[0], ctx.Scheme.MinSharesFor(2*ctx.Scheme.Degree()))
		g.phase = 2
	case 2:
		if err := g.recOp.DoStep(ctx); err != nil {
			return err
		}
		if !g.recOp.IsComplete() {
			return nil
		}
		if g.recOp.FinalResult()[0] == 0 {
			g.complete = true
			g.result = Failure
			return nil
		}
		var sum field.Element
		for _, bitShare := range g.bitValue {
			sum = f.Add(f.Mul(sum, f.Elem(2)), bitShare)
		}
		result := make([]field.Element, 0, len(g.bitValue)+1)
		result = append(result, sum)
		result = append(result, g.bitValue...)
		g.complete = true
		g.result = result
	}
	return nil
}
