package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// Known predicate states for LessThan's knownAHalf/knownBHalf/knownDiffHalf
// parameters. A predicate whose half is already known to the caller (e.g.
// one operand is a public constant) skips its signBit sub-protocol and
// every multiplication it would otherwise participate in collapses to a
// local scalar operation.
const (
	// HalfUnknown means "compute this predicate via signBit".
	HalfUnknown = -1
	// HalfLarge means the operand is already known to be >= p/2.
	HalfLarge = 0
	// HalfSmall means the operand is already known to be < p/2.
	HalfSmall = 1
)

// LessThan implements spec.md §4.C "LessThan": a share of [a < b] for two
// field-element shares, combining the three sign predicates
//
//	w = [a < p/2], x = [b < p/2], y = [a-b < p/2]
//
// as w*(x+y-2*x*y) + 1 - x - y + x*y. Any predicate the caller already
// knows (knownAHalf/knownBHalf/knownDiffHalf, a public constant compared
// against p/2 in the clear is the common case) is supplied directly
// instead of computed, saving a whole signBit sub-protocol and collapsing
// every multiplication it appears in to a local scalar operation. The
// remaining unknown predicates are computed via signBit, optionally
// memoised under the caller-supplied per-predicate cache keys.
type LessThan struct {
	f *field.Field

	aShare, bShare, diffShare field.Element

	wKnown, xKnown, yKnown bool
	wConst, xConst, yConst field.Element

	wOp, xOp, yOp *signBit
	w, x, y       field.Element
	wReady, xReady, yReady bool

	phase int // 1: resolve w/x/y, 2: secure x*y, 3: combine (t=x+y-2xy, then w*t)

	xyMul *Multiply
	xy    field.Element

	wtMul *Multiply

	complete bool
	result   []field.Element
}

// NewLessThan constructs a LessThan(a, b) for shares I hold.
// knownAHalf/knownBHalf/knownDiffHalf select, per predicate, HalfUnknown
// (compute via signBit), or HalfSmall/HalfLarge when the caller already
// knows that half (e.g. b is a public constant). cacheKeyA/cacheKeyB/
// cacheKeyDiff key the predicate cache for whichever predicates are
// unknown; an empty key disables memoisation for that predicate.
func NewLessThan(aShare, bShare field.Element, f *field.Field, knownAHalf, knownBHalf, knownDiffHalf int, cacheKeyA, cacheKeyB, cacheKeyDiff string) *LessThan {
	diff := f.Sub(aShare, bShare)
	l := &LessThan{f: f, aShare: aShare, bShare: bShare, diffShare: diff, phase: 1}

	if knownAHalf != HalfUnknown {
		l.wKnown = true
		l.wConst = f.Elem(uint64(knownAHalf))
	} else {
		l.wOp = newSignBit(aShare, f, cacheKeyA)
	}
	if knownBHalf != HalfUnknown {
		l.xKnown = true
		l.xConst = f.Elem(uint64(knownBHalf))
	} else {
		l.xOp = newSignBit(bShare, f, cacheKeyB)
	}
	if knownDiffHalf != HalfUnknown {
		l.yKnown = true
		l.yConst = f.Elem(uint64(knownDiffHalf))
	} else {
		l.yOp = newSignBit(diff, f, cacheKeyDiff)
	}
	return l
}

func (l *LessThan) OutboundShareCount() int                                    { return 0 }
func (l *LessThan) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (l *LessThan) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (l *LessThan) IsComplete() bool                                           { return l.complete }
func (l *LessThan) FinalResult() []field.Element                               { return l.result }

func (l *LessThan) Children() []Operation {
	switch l.phase {
	case 1:
		var out []Operation
		if !l.wKnown && !l.wReady {
			out = append(out, l.wOp)
		}
		if !l.xKnown && !l.xReady {
			out = append(out, l.xOp)
		}
		if !l.yKnown && !l.yReady {
			out = append(out, l.yOp)
		}
		return out
	case 2:
		if l.xyMul != nil && !l.xyMul.IsComplete() {
			return []Operation{l.xyMul}
		}
	case 3:
		if l.wtMul != nil && !l.wtMul.IsComplete() {
			return []Operation{l.wtMul}
		}
	}
	return nil
}

func (l *LessThan) DoStep(ctx *Context) error {
	if l.complete {
		return nil
	}
	f := l.f
	switch l.phase {
	case 1:
		if l.wKnown {
			l.w, l.wReady = l.wConst, true
		} else if !l.wReady {
			if err := l.wOp.DoStep(ctx); err != nil {
				return err
			}
			if l.wOp.IsComplete() {
				l.w, l.wReady = l.wOp.FinalResult()[0], true
			}
		}
		if l.xKnown {
			l.x, l.xReady = l.xConst, true
		} else if !l.xReady {
			if err := l.xOp.DoStep(ctx); err != nil {
				return err
			}
			if l.xOp.IsComplete() {
				l.x, l.xReady = l.xOp.FinalResult()[0], true
			}
		}
		if l.yKnown {
			l.y, l.yReady = l.yConst, true
		} else if !l.yReady {
			if err := l.yOp.DoStep(ctx); err != nil {
				return err
			}
			if l.yOp.IsComplete() {
				l.y, l.yReady = l.yOp.FinalResult()[0], true
			}
		}
		if !(l.wReady && l.xReady && l.yReady) {
			return nil
		}
		// x*y is a local scalar operation whenever either factor is a
		// known public constant; only both-secret needs a secure Multiply.
		if l.xKnown || l.yKnown {
			l.xy = f.Mul(l.x, l.y)
			l.phase = 3
			return l.stepCombine(ctx)
		}
		l.xyMul = NewMultiply(l.x, l.y, ctx.SynchronizeShares)
		l.phase = 2
		return l.DoStep(ctx)
	case 2:
		if err := l.xyMul.DoStep(ctx); err != nil {
			return err
		}
		if !l.xyMul.IsComplete() {
			return nil
		}
		l.xy = l.xyMul.FinalResult()[0]
		l.phase = 3
		return l.stepCombine(ctx)
	case 3:
		return l.stepCombine(ctx)
	}
	return nil
}

// stepCombine computes t = x+y-2xy then w*t (local if w is a known public
// constant, otherwise one Multiply), and finishes with w*t + 1 - x - y + xy.
func (l *LessThan) stepCombine(ctx *Context) error {
	f := l.f
	t := f.Sub(f.Add(l.x, l.y), f.Mul(f.Elem(2), l.xy))
	if l.wKnown {
		l.finish(f.Mul(l.w, t))
		return nil
	}
	if l.wtMul == nil {
		l.wtMul = NewMultiply(l.w, t, ctx.SynchronizeShares)
	}
	if err := l.wtMul.DoStep(ctx); err != nil {
		return err
	}
	if !l.wtMul.IsComplete() {
		return nil
	}
	l.finish(l.wtMul.FinalResult()[0])
	return nil
}

func (l *LessThan) finish(wt field.Element) {
	f := l.f
	res := f.Add(wt, f.Elem(1))
	res = f.Sub(res, l.x)
	res = f.Sub(res, l.y)
	res = f.Add(res, l.xy)
	l.complete = true
	l.result = []field.Element{res}
}
