package operation

import "github.com/luxfi/primitives/internal/field"

// Synchronization implements spec.md §4.C "Synchronization": broadcast a
// public {0,1} vector to every peer, receive one from each, and reduce
// them all (mine included) by elementwise logical AND. A peer missing by
// the time this operation completes (crashed, or simply slow) is treated
// as having sent an all-zero vector, per spec.md's "missing shares are
// treated as zero" -- so a single absent peer zeroes every position that
// peer didn't vote for.
type Synchronization struct {
	base
	mine []field.Element
}

// NewSynchronization constructs a broadcast-and-AND synchronization round
// over my public vote vector.
func NewSynchronization(mine []field.Element) *Synchronization {
	s := &Synchronization{mine: mine}
	s.step = 1
	return s
}

func (s *Synchronization) DoStep(ctx *Context) error {
	if s.complete {
		return nil
	}
	switch s.step {
	case 1:
		s.setOutboundVector(ctx.Scheme.Peers(), s.mine)
		s.step = 2
	case 2:
		out := make([]field.Element, len(s.mine))
		copy(out, s.mine)
		for _, id := range ctx.Scheme.Peers() {
			if id == ctx.Self {
				continue
			}
			vals, ok := s.inbound[id]
			if !ok {
				for i := range out {
					out[i] = 0
				}
				continue
			}
			for i := range out {
				if vals[i] == 0 {
					out[i] = 0
				}
			}
		}
		s.finish(out)
	}
	return nil
}
