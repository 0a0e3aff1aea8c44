package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// WaitAll is a fan-in combinator over a batch of independently
// constructed sub-operations, driving each forward every round and
// reporting complete only once every member has finished, with
// FinalResult the concatenation of each member's result in submission
// order. This is how a caller that kicked off several unrelated
// operations (e.g. a batch of GenerateBitwiseRandomNumber draws) waits
// on all of them as a single schedulable unit.
type WaitAll struct {
	members  []Operation
	complete bool
	result   []field.Element
}

// NewWaitAll constructs a fan-in over an already-constructed batch of
// sub-operations.
func NewWaitAll(members []Operation) *WaitAll {
	return &WaitAll{members: members}
}

func (w *WaitAll) OutboundShareCount() int                                    { return 0 }
func (w *WaitAll) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (w *WaitAll) CopyInboundShares(_ party.ID, _ []field.Element, o int) int  { return o }
func (w *WaitAll) IsComplete() bool                                           { return w.complete }
func (w *WaitAll) FinalResult() []field.Element                              { return w.result }

func (w *WaitAll) Children() []Operation {
	out := make([]Operation, 0, len(w.members))
	for _, m := range w.members {
		if !m.IsComplete() {
			out = append(out, m)
		}
	}
	return out
}

func (w *WaitAll) DoStep(ctx *Context) error {
	if w.complete {
		return nil
	}
	allDone := true
	for _, m := range w.members {
		if m.IsComplete() {
			continue
		}
		if err := m.DoStep(ctx); err != nil {
			return err
		}
		if !m.IsComplete() {
			allDone = false
		}
	}
	if !allDone {
		return nil
	}
	var out []field.Element
	for _, m := range w.members {
		out = append(out, m.FinalResult()...)
	}
	w.complete = true
	w.result = out
	return nil
}
