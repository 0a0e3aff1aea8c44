package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// signBit is the `[secret < p/2]` sign predicate the field's mod-p
// representation relies on (values in (p/2, p) represent negatives under
// the two's-complement-like convention other operations build on). Uses
// the identity that, for an odd prime p, 2x mod p is even exactly when
// x < p/2 and odd otherwise, so the test reduces to one LSB extraction
// on the locally doubled share. Results are memoised in the shared
// PredicateCache when a non-empty cache key is supplied, since LessThan
// and friends repeatedly re-test the same operand.
type signBit struct {
	doubled  field.Element
	cacheKey string
	lsbOp    *LSB
	complete bool
	result   []field.Element
}

// newSignBit constructs a [secret < p/2] test for a share I hold.
// cacheKey may be empty to disable memoisation.
func newSignBit(secretShare field.Element, f *field.Field, cacheKey string) *signBit {
	return &signBit{doubled: f.Mul(f.Elem(2), secretShare), cacheKey: cacheKey}
}

func (s *signBit) OutboundShareCount() int                                    { return 0 }
func (s *signBit) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (s *signBit) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (s *signBit) IsComplete() bool                                           { return s.complete }
func (s *signBit) FinalResult() []field.Element                               { return s.result }

func (s *signBit) Children() []Operation {
	if s.lsbOp != nil && !s.lsbOp.IsComplete() {
		return []Operation{s.lsbOp}
	}
	return nil
}

func (s *signBit) DoStep(ctx *Context) error {
	if s.complete {
		return nil
	}
	if cached, ok := ctx.Cache.Get(s.cacheKey); ok {
		s.complete = true
		s.result = []field.Element{cached}
		return nil
	}
	if s.lsbOp == nil {
		s.lsbOp = NewLSB(s.doubled)
	}
	if err := s.lsbOp.DoStep(ctx); err != nil {
		return err
	}
	if !s.lsbOp.IsComplete() {
		return nil
	}
	if IsFailure(s.lsbOp.FinalResult()) {
		// The LSB's mask draw landed outside [0, p): redraw with a fresh
		// LSB from the next round on.
		s.lsbOp = nil
		return nil
	}
	f := ctx.Scheme.Field()
	lsb := s.lsbOp.FinalResult()[0]
	isSmall := f.Sub(f.Elem(1), lsb)
	ctx.Cache.Set(s.cacheKey, isSmall)
	s.complete = true
	s.result = []field.Element{isSmall}
	return nil
}
