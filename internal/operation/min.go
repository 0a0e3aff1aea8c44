package operation

import (
	"fmt"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// RandomNumberBudget is implemented by operations whose protocol needs
// bitwise-shared random numbers (Min's internal LessThan calls, via
// signBit/LSB) and report how many. The driver does not read this budget
// and pre-generates nothing: each LSB draws its own number while it
// steps. A caller can pre-generate that many numbers itself with
// BatchGenerateBitwiseRandomNumbers.
type RandomNumberBudget interface {
	Operation
	// BitwiseRandomBudget reports how many bitwise-shared random numbers
	// this operation will consume if none of its predicates are known.
	BitwiseRandomBudget() int
}

// minMerge reduces two shares to a share of their minimum: lt = [a < b]
// via LessThan, then min = lt*a + (1-lt)*b via two Multiply sub-operations
// (the selection is itself secret, since lt is a share).
type minMerge struct {
	f           *field.Field
	a, b        field.Element
	synchronize bool
	lt          *LessThan
	aMul, bMul  *Multiply
	phase       int
	complete    bool
	result      field.Element
}

func newMinMerge(a, b field.Element, f *field.Field, synchronize bool) *minMerge {
	return &minMerge{
		f: f, a: a, b: b, synchronize: synchronize, phase: 1,
		lt: NewLessThan(a, b, f, HalfUnknown, HalfUnknown, HalfUnknown, "", "", ""),
	}
}

func (m *minMerge) OutboundShareCount() int                                    { return 0 }
func (m *minMerge) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (m *minMerge) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (m *minMerge) IsComplete() bool                                           { return m.complete }
func (m *minMerge) FinalResult() []field.Element                              { return []field.Element{m.result} }

func (m *minMerge) Children() []Operation {
	switch m.phase {
	case 1:
		if !m.lt.IsComplete() {
			return []Operation{m.lt}
		}
	case 2:
		var out []Operation
		if m.aMul != nil && !m.aMul.IsComplete() {
			out = append(out, m.aMul)
		}
		if m.bMul != nil && !m.bMul.IsComplete() {
			out = append(out, m.bMul)
		}
		return out
	}
	return nil
}

func (m *minMerge) DoStep(ctx *Context) error {
	if m.complete {
		return nil
	}
	f := m.f
	switch m.phase {
	case 1:
		if err := m.lt.DoStep(ctx); err != nil {
			return err
		}
		if !m.lt.IsComplete() {
			return nil
		}
		lt := m.lt.FinalResult()[0]
		notLt := f.Sub(f.Elem(1), lt)
		m.aMul = NewMultiply(lt, m.a, m.synchronize)
		m.bMul = NewMultiply(notLt, m.b, m.synchronize)
		m.phase = 2
		fallthrough
	case 2:
		if err := m.aMul.DoStep(ctx); err != nil {
			return err
		}
		if err := m.bMul.DoStep(ctx); err != nil {
			return err
		}
		if !m.aMul.IsComplete() || !m.bMul.IsComplete() {
			return nil
		}
		m.complete = true
		m.result = f.Add(m.aMul.FinalResult()[0], m.bMul.FinalResult()[0])
	}
	return nil
}

// Min implements spec.md §4.C "Min": the secure minimum of an arbitrary
// list of shares, reducing pairwise via minMerge. sequential selects the
// O(n) one-at-a-time reduction (spec.md's "sequential" mode); otherwise a
// binary-tree pair reduction runs in O(log n) rounds (the "round
// optimised" mode), the same tree shape Product uses.
type Min struct {
	level       []field.Element
	f           *field.Field
	synchronize bool
	sequential  bool
	merges      []*minMerge
	complete    bool
	result      []field.Element
}

// NewMin constructs a Min over values (my shares of each candidate).
func NewMin(values []field.Element, f *field.Field, synchronize, sequential bool) *Min {
	level := append([]field.Element(nil), values...)
	return &Min{level: level, f: f, synchronize: synchronize, sequential: sequential}
}

func (m *Min) OutboundShareCount() int                                    { return 0 }
func (m *Min) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (m *Min) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (m *Min) IsComplete() bool                                           { return m.complete }
func (m *Min) FinalResult() []field.Element                              { return m.result }

// BitwiseRandomBudget reports the number of bitwise-shared random numbers
// this Min will consume: one LessThan per merge, each needing at most 3
// (spec.md §4.C "Min"), across len(values)-1 total merges.
func (m *Min) BitwiseRandomBudget() int {
	if len(m.level) == 0 {
		return 0
	}
	return (len(m.level) - 1) * 3
}

func (m *Min) Children() []Operation {
	out := make([]Operation, 0, len(m.merges))
	for _, mg := range m.merges {
		if !mg.IsComplete() {
			out = append(out, mg)
		}
	}
	return out
}

func (m *Min) DoStep(ctx *Context) error {
	if m.complete {
		return nil
	}
	if len(m.level) == 0 {
		return &Error{Op: "Min", Err: fmt.Errorf("min requires at least one value")}
	}
	if len(m.level) == 1 {
		m.complete = true
		m.result = []field.Element{m.level[0]}
		return nil
	}
	if m.merges == nil {
		if m.sequential {
			m.merges = []*minMerge{newMinMerge(m.level[0], m.level[1], m.f, m.synchronize)}
		} else {
			pairs := len(m.level) / 2
			m.merges = make([]*minMerge, pairs)
			for i := 0; i < pairs; i++ {
				m.merges[i] = newMinMerge(m.level[2*i], m.level[2*i+1], m.f, m.synchronize)
			}
		}
	}
	allDone := true
	for _, mg := range m.merges {
		if mg.IsComplete() {
			continue
		}
		if err := mg.DoStep(ctx); err != nil {
			return err
		}
		if !mg.IsComplete() {
			allDone = false
		}
	}
	if !allDone {
		return nil
	}
	if m.sequential {
		next := append([]field.Element{m.merges[0].FinalResult()[0]}, m.level[2:]...)
		m.level = next
	} else {
		next := make([]field.Element, 0, len(m.merges)+1)
		for _, mg := range m.merges {
			next = append(next, mg.FinalResult()[0])
		}
		if len(m.level)%2 == 1 {
			next = append(next, m.level[len(m.level)-1])
		}
		m.level = next
	}
	m.merges = nil
	return nil
}
