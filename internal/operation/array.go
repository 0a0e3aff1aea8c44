package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// ArrayMultiplication implements spec.md §4.C "Array multiplication": the
// elementwise product of two equal-length share arrays, computed as a
// batch of independent Multiply sub-operations rather than one at a
// time.
type ArrayMultiplication struct {
	mul      *parallelMul
	complete bool
	result   []field.Element
}

// NewArrayMultiplication constructs an elementwise product of aArr and
// bArr (equal length, pairwise).
func NewArrayMultiplication(aArr, bArr []field.Element, synchronize bool) *ArrayMultiplication {
	pairs := make([][2]field.Element, len(aArr))
	for i := range aArr {
		pairs[i] = [2]field.Element{aArr[i], bArr[i]}
	}
	return &ArrayMultiplication{mul: newParallelMul(pairs, synchronize)}
}

func (a *ArrayMultiplication) OutboundShareCount() int { return 0 }
func (a *ArrayMultiplication) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayMultiplication) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayMultiplication) IsComplete() bool              { return a.complete }
func (a *ArrayMultiplication) FinalResult() []field.Element { return a.result }
func (a *ArrayMultiplication) Children() []Operation        { return a.mul.children() }

func (a *ArrayMultiplication) DoStep(ctx *Context) error {
	if a.complete {
		return nil
	}
	done, err := a.mul.step(ctx)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}
	a.complete = true
	a.result = a.mul.results()
	return nil
}

// ArrayEqual implements spec.md §4.C "Array equal": the elementwise
// equality predicate over two equal-length share arrays.
type ArrayEqual struct {
	ops      []*Equal
	complete bool
	result   []field.Element
}

// NewArrayEqual constructs an elementwise Equal over aArr and bArr.
func NewArrayEqual(aArr, bArr []field.Element, f *field.Field) *ArrayEqual {
	ops := make([]*Equal, len(aArr))
	for i := range aArr {
		ops[i] = NewEqual(aArr[i], bArr[i], f)
	}
	return &ArrayEqual{ops: ops}
}

func (a *ArrayEqual) OutboundShareCount() int { return 0 }
func (a *ArrayEqual) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayEqual) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayEqual) IsComplete() bool              { return a.complete }
func (a *ArrayEqual) FinalResult() []field.Element { return a.result }

func (a *ArrayEqual) Children() []Operation {
	out := make([]Operation, 0, len(a.ops))
	for _, op := range a.ops {
		if !op.IsComplete() {
			out = append(out, op)
		}
	}
	return out
}

func (a *ArrayEqual) DoStep(ctx *Context) error {
	if a.complete {
		return nil
	}
	allDone := true
	for _, op := range a.ops {
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
	out := make([]field.Element, len(a.ops))
	for i, op := range a.ops {
		out[i] = op.FinalResult()[0]
	}
	a.complete = true
	a.result = out
	return nil
}

// ArrayPower implements spec.md §4.C "Array power": raises every element
// of a share array to the same public exponent.
type ArrayPower struct {
	ops      []*Power
	complete bool
	result   []field.Element
}

// NewArrayPower constructs an elementwise Power over baseArr.
func NewArrayPower(baseArr []field.Element, e uint64) *ArrayPower {
	ops := make([]*Power, len(baseArr))
	for i, b := range baseArr {
		ops[i] = NewPower(b, e)
	}
	return &ArrayPower{ops: ops}
}

func (a *ArrayPower) OutboundShareCount() int { return 0 }
func (a *ArrayPower) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayPower) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayPower) IsComplete() bool              { return a.complete }
func (a *ArrayPower) FinalResult() []field.Element { return a.result }

func (a *ArrayPower) Children() []Operation {
	out := make([]Operation, 0, len(a.ops))
	for _, op := range a.ops {
		if !op.IsComplete() {
			out = append(out, op)
		}
	}
	return out
}

func (a *ArrayPower) DoStep(ctx *Context) error {
	if a.complete {
		return nil
	}
	allDone := true
	for _, op := range a.ops {
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
	out := make([]field.Element, len(a.ops))
	for i, op := range a.ops {
		out[i] = op.FinalResult()[0]
	}
	a.complete = true
	a.result = out
	return nil
}

// ArrayMin implements spec.md §4.C "Min" applied elementwise: for each
// position, the minimum of two shared counters -- the primitive a
// counting Bloom-filter intersection needs (for {0,1} counters this
// coincides with logical AND, but multi-bit counters need the real
// minimum, not a product).
type ArrayMin struct {
	ops      []*Min
	complete bool
	result   []field.Element
}

// NewArrayMin constructs an elementwise Min over aArr and bArr (equal
// length, pairwise).
func NewArrayMin(aArr, bArr []field.Element, f *field.Field, synchronize bool) *ArrayMin {
	ops := make([]*Min, len(aArr))
	for i := range aArr {
		ops[i] = NewMin([]field.Element{aArr[i], bArr[i]}, f, synchronize, false)
	}
	return &ArrayMin{ops: ops}
}

func (a *ArrayMin) OutboundShareCount() int                                    { return 0 }
func (a *ArrayMin) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayMin) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (a *ArrayMin) IsComplete() bool                                           { return a.complete }
func (a *ArrayMin) FinalResult() []field.Element                              { return a.result }

func (a *ArrayMin) Children() []Operation {
	out := make([]Operation, 0, len(a.ops))
	for _, op := range a.ops {
		if !op.IsComplete() {
			out = append(out, op)
		}
	}
	return out
}

func (a *ArrayMin) DoStep(ctx *Context) error {
	if a.complete {
		return nil
	}
	allDone := true
	for _, op := range a.ops {
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
	out := make([]field.Element, len(a.ops))
	for i, op := range a.ops {
		out[i] = op.FinalResult()[0]
	}
	a.complete = true
	a.result = out
	return nil
}

// ArrayProduct implements spec.md §4.C "Array product": the row-wise
// secure product of a ragged list of share rows, e.g. reducing a batch
// of per-candidate factor lists down to one product share per candidate.
type ArrayProduct struct {
	ops      []*Product
	complete bool
	result   []field.Element
}

// NewArrayProduct constructs one Product per row of rows.
func NewArrayProduct(rows [][]field.Element) *ArrayProduct {
	ops := make([]*Product, len(rows))
	for i, row := range rows {
		ops[i] = NewProduct(row)
	}
	return &ArrayProduct{ops: ops}
}

func (a *ArrayProduct) OutboundShareCount() int { return 0 }
func (a *ArrayProduct) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayProduct) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (a *ArrayProduct) IsComplete() bool              { return a.complete }
func (a *ArrayProduct) FinalResult() []field.Element { return a.result }

func (a *ArrayProduct) Children() []Operation {
	out := make([]Operation, 0, len(a.ops))
	for _, op := range a.ops {
		if !op.IsComplete() {
			out = append(out, op)
		}
	}
	return out
}

func (a *ArrayProduct) DoStep(ctx *Context) error {
	if a.complete {
		return nil
	}
	allDone := true
	for _, op := range a.ops {
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
	out := make([]field.Element, len(a.ops))
	for i, op := range a.ops {
		out[i] = op.FinalResult()[0]
	}
	a.complete = true
	a.result = out
	return nil
}
