package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// LSB implements spec.md §4.C "LSB": a share of the least-significant bit
// of a shared value, via the standard mask-and-reveal extraction
// (Catrina/de Hoogh line of secure-comparison protocols): mask the value
// with a jointly generated bitwise-random number, publicly reveal the
// sum, then correct for the possible modular wraparound using a
// BitwiseLessThan between the (now public, trivially "shared" as a
// degree-0 constant) revealed bits and the mask's own secret bit shares.
type LSB struct {
	aShare   field.Element
	phase    int
	randOp   *GenerateBitwiseRandomNumber
	rValue   field.Element
	rBits    []field.Element
	recOp    *Reconstruct
	cBits    []field.Element
	bltOp    *BitwiseLessThan
	xorLocal field.Element
	uShare   field.Element
	mulOp    *Multiply
	complete bool
	result   []field.Element
}

// NewLSB constructs an LSB extraction for a share I hold.
func NewLSB(aShare field.Element) *LSB {
	return &LSB{aShare: aShare, phase: 1}
}

func (l *LSB) OutboundShareCount() int { return 0 }
func (l *LSB) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (l *LSB) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (l *LSB) IsComplete() bool              { return l.complete }
func (l *LSB) FinalResult() []field.Element { return l.result }

func (l *LSB) Children() []Operation {
	switch l.phase {
	case 1:
		if l.randOp != nil && !l.randOp.IsComplete() {
			return []Operation{l.randOp}
		}
	case 2:
		if l.recOp != nil && !l.recOp.IsComplete() {
			return []Operation{l.recOp}
		}
	case 3:
		if l.bltOp != nil && !l.bltOp.IsComplete() {
			return []Operation{l.bltOp}
		}
	case 4:
		if l.mulOp != nil && !l.mulOp.IsComplete() {
			return []Operation{l.mulOp}
		}
	}
	return nil
}

func (l *LSB) DoStep(ctx *Context) error {
	if l.complete {
		return nil
	}
	f := ctx.Scheme.Field()
	switch l.phase {
	case 1:
		if l.randOp == nil {
			l.randOp = NewGenerateBitwiseRandomNumber(f.BitLen())
		}
		if err := l.randOp.DoStep(ctx); err != nil {
			return err
		}
		if !l.randOp.IsComplete() {
			return nil
		}
		res := l.randOp.FinalResult()
		if IsFailure(res) {
			l.complete = true
			l.result = Failure
			return nil
		}
		l.rValue = res[0]
		l.rBits = res[1:]
		masked := f.Add(l.aShare, l.rValue)
		l.recOp = NewReconstruct(masked, ctx.Scheme.MinSharesFor(ctx.Scheme.Degree()))
		l.phase = 2
	case 2:
		if err := l.recOp.DoStep(ctx); err != nil {
			return err
		}
		if !l.recOp.IsComplete() {
			return nil
		}
		cPublic := l.recOp.FinalResult()[0]
		l.cBits = f.Bits(uint64(cPublic))
		l.bltOp = NewBitwiseLessThan(l.cBits, l.rBits)
		l.phase = 3
	case 3:
		if err := l.bltOp.DoStep(ctx); err != nil {
			return err
		}
		if !l.bltOp.IsComplete() {
			return nil
		}
		n := len(l.rBits)
		cLSBPublic := l.cBits[n-1]
		rLSBShare := l.rBits[n-1]
		l.uShare = l.bltOp.FinalResult()[0]
		// XOR of a public bit with a secret share is local affine (no
		// protocol round needed): x+y-2xy with x a known constant.
		l.xorLocal = f.Sub(f.Add(cLSBPublic, rLSBShare), f.Mul(f.Elem(2), f.Mul(cLSBPublic, rLSBShare)))
		l.mulOp = NewMultiply(l.xorLocal, l.uShare, ctx.SynchronizeShares)
		l.phase = 4
	case 4:
		if err := l.mulOp.DoStep(ctx); err != nil {
			return err
		}
		if !l.mulOp.IsComplete() {
			return nil
		}
		xu := l.mulOp.FinalResult()[0]
		lsb := f.Sub(f.Add(l.xorLocal, l.uShare), f.Mul(f.Elem(2), xu))
		l.complete = true
		l.result = []field.Element{lsb}
	}
	return nil
}
