package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// BloomUnion implements spec.md §4.C "Bloom filter union": the
// elementwise OR (a+b-ab) of two equal-length shared Bloom-filter bit
// arrays, built on one ArrayMultiplication for the AND term.
type BloomUnion struct {
	aArr, bArr []field.Element
	mul        *ArrayMultiplication
	complete   bool
	result     []field.Element
}

// NewBloomUnion constructs a union of two Bloom filters' bit shares.
func NewBloomUnion(aArr, bArr []field.Element, synchronize bool) *BloomUnion {
	return &BloomUnion{aArr: aArr, bArr: bArr, mul: NewArrayMultiplication(aArr, bArr, synchronize)}
}

func (u *BloomUnion) OutboundShareCount() int { return 0 }
func (u *BloomUnion) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (u *BloomUnion) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (u *BloomUnion) IsComplete() bool              { return u.complete }
func (u *BloomUnion) FinalResult() []field.Element { return u.result }
func (u *BloomUnion) Children() []Operation        { return u.mul.Children() }

func (u *BloomUnion) DoStep(ctx *Context) error {
	if u.complete {
		return nil
	}
	if err := u.mul.DoStep(ctx); err != nil {
		return err
	}
	if !u.mul.IsComplete() {
		return nil
	}
	f := ctx.Scheme.Field()
	ab := u.mul.FinalResult()
	out := make([]field.Element, len(u.aArr))
	for i := range u.aArr {
		out[i] = f.Sub(f.Add(u.aArr[i], u.bArr[i]), ab[i])
	}
	u.complete = true
	u.result = out
	return nil
}

// BloomIntersection implements spec.md §4.C "Bloom filter intersection":
// the elementwise minimum of two shared Bloom-filter counter arrays, the
// standard counting-filter intersection (for filters whose counters are
// already {0,1}, the minimum coincides with logical AND).
type BloomIntersection struct {
	*ArrayMin
}

// NewBloomIntersection constructs an intersection of two Bloom filters'
// counter shares.
func NewBloomIntersection(aArr, bArr []field.Element, f *field.Field, synchronize bool) *BloomIntersection {
	return &BloomIntersection{NewArrayMin(aArr, bArr, f, synchronize)}
}

// Cardinality implements spec.md §4.C "Cardinality": the number of set
// bits in a shared Bloom filter. Since Shamir sharing is linear, this is
// a purely local sum of the bit shares -- no protocol round is needed.
func Cardinality(bitShares []field.Element, f *field.Field) field.Element {
	var sum field.Element
	for _, b := range bitShares {
		sum = f.Add(sum, b)
	}
	return sum
}

// ThresholdUnion implements spec.md §4.C "Threshold union": per bit
// position, a share of 1 iff at least threshold of the input Bloom
// filters have that bit set. The per-position vote count is a local sum
// (linearity of Shamir sharing); only the count-vs-threshold comparison
// needs a protocol round, realised as one LessThan per bit position
// against the public constant threshold (itself a degree-0 share).
type ThresholdUnion struct {
	sums     []field.Element
	lts      []*LessThan
	complete bool
	result   []field.Element
}

// NewThresholdUnion constructs a threshold union over filters (each an
// equal-length bit-share array) requiring at least threshold votes.
func NewThresholdUnion(filters [][]field.Element, threshold uint64, f *field.Field) *ThresholdUnion {
	n := 0
	if len(filters) > 0 {
		n = len(filters[0])
	}
	sums := make([]field.Element, n)
	for _, filter := range filters {
		for i, b := range filter {
			sums[i] = f.Add(sums[i], b)
		}
	}
	thresholdConst := f.Elem(threshold)
	// threshold is a public constant, so its half is known without a
	// signBit round.
	knownHalf := HalfLarge
	if threshold < f.P()/2 {
		knownHalf = HalfSmall
	}
	lts := make([]*LessThan, n)
	for i, s := range sums {
		lts[i] = NewLessThan(s, thresholdConst, f, HalfUnknown, knownHalf, HalfUnknown, "", "", "")
	}
	return &ThresholdUnion{sums: sums, lts: lts}
}

func (t *ThresholdUnion) OutboundShareCount() int { return 0 }
func (t *ThresholdUnion) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (t *ThresholdUnion) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (t *ThresholdUnion) IsComplete() bool              { return t.complete }
func (t *ThresholdUnion) FinalResult() []field.Element { return t.result }

func (t *ThresholdUnion) Children() []Operation {
	out := make([]Operation, 0, len(t.lts))
	for _, op := range t.lts {
		if !op.IsComplete() {
			out = append(out, op)
		}
	}
	return out
}

func (t *ThresholdUnion) DoStep(ctx *Context) error {
	if t.complete {
		return nil
	}
	allDone := true
	for _, op := range t.lts {
		if op.IsComplete() {
			continue
		}
		if err := op.DoStep(ctx); err != nil {
			return err
		}
		if !op.IsComplete() {
			allDone = false
		}
	}
	if !allDone {
		return nil
	}
	f := ctx.Scheme.Field()
	out := make([]field.Element, len(t.lts))
	for i, op := range t.lts {
		// lts[i] holds [sum < threshold]; the union bit is its complement.
		out[i] = f.Sub(f.Elem(1), op.FinalResult()[0])
	}
	t.complete = true
	t.result = out
	return nil
}

// WeightedThresholdUnion implements spec.md §4.C "Weighted threshold
// union": as ThresholdUnion, but each filter's vote is scaled by a public
// per-filter weight before summing.
type WeightedThresholdUnion struct {
	*ThresholdUnion
}

// NewWeightedThresholdUnion constructs a weighted threshold union.
// weights must have the same length as filters.
func NewWeightedThresholdUnion(filters [][]field.Element, weights []uint64, threshold uint64, f *field.Field) *WeightedThresholdUnion {
	n := 0
	if len(filters) > 0 {
		n = len(filters[0])
	}
	sums := make([]field.Element, n)
	for fi, filter := range filters {
		w := f.Elem(weights[fi])
		for i, b := range filter {
			sums[i] = f.Add(sums[i], f.Mul(w, b))
		}
	}
	thresholdConst := f.Elem(threshold)
	knownHalf := HalfLarge
	if threshold < f.P()/2 {
		knownHalf = HalfSmall
	}
	lts := make([]*LessThan, n)
	for i, s := range sums {
		lts[i] = NewLessThan(s, thresholdConst, f, HalfUnknown, knownHalf, HalfUnknown, "", "", "")
	}
	return &WeightedThresholdUnion{&ThresholdUnion{sums: sums, lts: lts}}
}
