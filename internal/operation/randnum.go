package operation

import (
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// GenerateRandomNumber implements spec.md §4.C "Generate random number":
// every peer locally samples a uniform field element and shares it to
// all; each receiver sums the incoming shares, yielding a share of the
// sum of every peer's sampled value without revealing any of them.
type GenerateRandomNumber struct {
	base
	ownShare field.Element
}

// NewGenerateRandomNumber constructs a fresh random-number generation.
func NewGenerateRandomNumber() *GenerateRandomNumber {
	g := &GenerateRandomNumber{}
	g.step = 1
	return g
}

func (g *GenerateRandomNumber) DoStep(ctx *Context) error {
	if g.complete {
		return nil
	}
	switch g.step {
	case 1:
		r, err := field.Random(ctx.Scheme.Field(), ctx.Rand)
		if err != nil {
			return &Error{Op: "GenerateRandomNumber", Err: err}
		}
		fresh, err := ctx.Scheme.Generate(r, ctx.Rand)
		if err != nil {
			return &Error{Op: "GenerateRandomNumber", Err: err}
		}
		values := make(map[party.ID]field.Element, len(fresh))
		for id, sh := range fresh {
			values[id] = sh.Value
		}
		g.ownShare = values[ctx.Self]
		g.setOutboundPerPeer(values)
		g.step = 2
	case 2:
		sum := g.ownShare
		for _, vals := range g.inbound {
			sum = ctx.Scheme.Field().Add(sum, vals[0])
		}
		g.finish([]field.Element{sum})
	}
	return nil
}
