package operation

import "github.com/luxfi/primitives/internal/field"

// Reconstruct reveals the secret behind a share: copy my share to every
// peer once, then interpolate the received vector (spec.md §4.C
// "Reconstruction").
type Reconstruct struct {
	base
	myShare   field.Element
	minShares int
}

// NewReconstruct constructs a Reconstruct operation for a share I hold.
// minShares is the present-share threshold required to interpolate
// (t+1 for ordinary secrets, 2t+1 when reconstructing a multiplication
// result).
func NewReconstruct(myShare field.Element, minShares int) *Reconstruct {
	r := &Reconstruct{myShare: myShare, minShares: minShares}
	r.step = 1
	return r
}

func (r *Reconstruct) DoStep(ctx *Context) error {
	if r.complete {
		return nil
	}
	switch r.step {
	case 1:
		r.setOutbound(ctx.Scheme.Peers(), r.myShare)
		r.step = 2
	case 2:
		shares := r.gatherShares(ctx.Scheme, ctx.Self, r.myShare)
		value, err := ctx.Scheme.Reconstruct(shares, r.minShares)
		if err != nil {
			return &Error{Op: "Reconstruct", Err: err}
		}
		r.finish([]field.Element{value})
	}
	return nil
}
