package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// Product implements spec.md §4.C "Product": the secure product of an
// arbitrary-length list of shares, computed via a binary-tree reduction
// of Multiply sub-operations so the round count is O(log n) rather than
// O(n). An odd element at a level carries forward unmultiplied to the
// next level.
type Product struct {
	level    []field.Element
	mulOps   []*Multiply
	complete bool
	result   []field.Element
}

// NewProduct constructs a Product over the shares I hold of each factor.
// An empty list yields the share of the empty product, 1.
func NewProduct(shares []field.Element) *Product {
	level := append([]field.Element(nil), shares...)
	return &Product{level: level}
}

func (p *Product) OutboundShareCount() int { return 0 }
func (p *Product) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (p *Product) CopyInboundShares(_ party.ID, _ []field.Element, o int) int { return o }
func (p *Product) IsComplete() bool              { return p.complete }
func (p *Product) FinalResult() []field.Element { return p.result }

func (p *Product) Children() []Operation {
	out := make([]Operation, 0, len(p.mulOps))
	for _, m := range p.mulOps {
		if !m.IsComplete() {
			out = append(out, m)
		}
	}
	return out
}

func (p *Product) DoStep(ctx *Context) error {
	if p.complete {
		return nil
	}
	if len(p.level) == 0 {
		p.complete = true
		p.result = []field.Element{field.Element(1)}
		return nil
	}
	if len(p.level) == 1 {
		p.complete = true
		p.result = []field.Element{p.level[0]}
		return nil
	}
	if p.mulOps == nil {
		pairs := len(p.level) / 2
		p.mulOps = make([]*Multiply, pairs)
		for i := 0; i < pairs; i++ {
			p.mulOps[i] = NewMultiply(p.level[2*i], p.level[2*i+1], ctx.SynchronizeShares)
		}
	}
	allDone := true
	for _, m := range p.mulOps {
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
	next := make([]field.Element, 0, len(p.mulOps)+1)
	for _, m := range p.mulOps {
		next = append(next, m.FinalResult()[0])
	}
	if len(p.level)%2 == 1 {
		next = append(next, p.level[len(p.level)-1])
	}
	p.level = next
	p.mulOps = nil
	return nil
}
