package operation

import "github.com/luxfi/primitives/internal/field"

// parallelMul drives an independent batch of Multiply sub-operations to
// completion together, used by the bitwise comparison family wherever a
// position-by-position product has no cross-position dependency and so
// can be pipelined in the same round rather than run one at a time.
type parallelMul struct {
	ops []*Multiply
}

func newParallelMul(pairs [][2]field.Element, synchronize bool) *parallelMul {
	ops := make([]*Multiply, len(pairs))
	for i, p := range pairs {
		ops[i] = NewMultiply(p[0], p[1], synchronize)
	}
	return &parallelMul{ops: ops}
}

func (p *parallelMul) children() []Operation {
	out := make([]Operation, 0, len(p.ops))
	for _, o := range p.ops {
		if !o.IsComplete() {
			out = append(out, o)
		}
	}
	return out
}

func (p *parallelMul) step(ctx *Context) (bool, error) {
	allDone := true
	for _, o := range p.ops {
		if o.IsComplete() {
			continue
		}
		if err := o.DoStep(ctx); err != nil {
			return false, err
		}
		if !o.IsComplete() {
			allDone = false
		}
	}
	return allDone, nil
}

func (p *parallelMul) results() []field.Element {
	out := make([]field.Element, len(p.ops))
	for i, o := range p.ops {
		out[i] = o.FinalResult()[0]
	}
	return out
}
