package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// SmallIntervalTest implements spec.md §4.C "Small interval test":
// membership of a shared value x in a small public interval [l, u]. The
// polynomial prod_{v=l..u}(x-v) vanishes exactly when x equals one of the
// interval's integer points, so the test is one Product over the
// (u-l+1) local differences followed by one Equal against the public
// constant 0.
type SmallIntervalTest struct {
	prodOp   *Product
	eqOp     *Equal
	phase    int
	complete bool
	result   []field.Element
}

// NewSmallIntervalTest constructs a membership test of x (my share) in
// the public integer interval [l, u] (inclusive). l must be <= u.
func NewSmallIntervalTest(xShare field.Element, l, u uint64, f *field.Field) *SmallIntervalTest {
	n := int(u-l) + 1
	factors := make([]field.Element, n)
	for i := 0; i < n; i++ {
		factors[i] = f.Sub(xShare, f.Elem(l+uint64(i)))
	}
	return &SmallIntervalTest{prodOp: NewProduct(factors), phase: 1}
}

func (s *SmallIntervalTest) OutboundShareCount() int                                    { return 0 }
func (s *SmallIntervalTest) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (s *SmallIntervalTest) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (s *SmallIntervalTest) IsComplete() bool                                           { return s.complete }
func (s *SmallIntervalTest) FinalResult() []field.Element                              { return s.result }

func (s *SmallIntervalTest) Children() []Operation {
	switch s.phase {
	case 1:
		if !s.prodOp.IsComplete() {
			return []Operation{s.prodOp}
		}
	case 2:
		if s.eqOp != nil && !s.eqOp.IsComplete() {
			return []Operation{s.eqOp}
		}
	}
	return nil
}

func (s *SmallIntervalTest) DoStep(ctx *Context) error {
	if s.complete {
		return nil
	}
	switch s.phase {
	case 1:
		if err := s.prodOp.DoStep(ctx); err != nil {
			return err
		}
		if !s.prodOp.IsComplete() {
			return nil
		}
		s.eqOp = NewEqual(s.prodOp.FinalResult()[0], field.Element(0), ctx.Scheme.Field())
		s.phase = 2
	case 2:
		if err := s.eqOp.DoStep(ctx); err != nil {
			return err
		}
		if !s.eqOp.IsComplete() {
			return nil
		}
		s.complete = true
		s.result = s.eqOp.FinalResult()
	}
	return nil
}
