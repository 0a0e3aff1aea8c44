// Package shamir implements (t, m)-Shamir secret sharing over a prime
// field, with a cached Vandermonde matrix for fast share generation and a
// cached Lagrange-weight table for interpolation, as specified by
// spec.md §4.B.
package shamir

import (
	"fmt"
	"io"
	"sync"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// MissingShare is the sentinel marking a share that was not delivered
// because its holder crashed. It is a distinguished flag on Share rather
// than an overloaded field value, so it can never be confused with a
// legitimate zero share.
var MissingShare = Share{missing: true}

// Share is a field element obtained by evaluating a secret-coefficient
// polynomial at a peer's fixed public alpha.
type Share struct {
	Holder  party.ID
	Value   field.Element
	missing bool
}

// IsMissing reports whether this is the MISSING_SHARE sentinel.
func (s Share) IsMissing() bool { return s.missing }

// NewShare constructs a present share for holder with the given value.
func NewShare(holder party.ID, value field.Element) Share {
	return Share{Holder: holder, Value: value}
}

// Missing returns the MISSING_SHARE sentinel for holder.
func Missing(holder party.ID) Share {
	return Share{Holder: holder, missing: true}
}

// MarshalBinary serialises a share as 4 bytes holder + 8 bytes value,
// grounded on the fixed-width big-endian layout used by
// other_examples' renproject-shamir Share.GetBytes.
func (s Share) MarshalBinary() ([]byte, error) {
	if s.missing {
		return nil, fmt.Errorf("shamir: cannot marshal a missing share")
	}
	out := make([]byte, 12)
	putUint32(out[0:4], uint32(s.Holder))
	putUint64(out[4:12], uint64(s.Value))
	return out, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (s *Share) UnmarshalBinary(data []byte) error {
	if len(data) != 12 {
		return fmt.Errorf("shamir: share must be 12 bytes, got %d", len(data))
	}
	s.Holder = party.ID(getUint32(data[0:4]))
	s.Value = field.Element(getUint64(data[4:12]))
	s.missing = false
	return nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * uint(i)))
	}
}
func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Scheme bundles a field, the ordered peer set, their fixed evaluation
// points (alphas), and the sharing degree t. A Scheme is shared by every
// operation in a given engine instance.
type Scheme struct {
	f       *field.Field
	peers   party.IDSlice
	alphas  map[party.ID]field.Element
	degree  int

	vmu        sync.Mutex
	vandermonde [][]field.Element // vandermonde[i][j] = alpha_i^j, i indexed like peers

	lmu     sync.Mutex
	lcache  map[uint64][]field.Element // keyed by availability bitmask over peers
}

// NewScheme constructs a sharing scheme. alphas must assign each peer a
// distinct, non-zero, non-one evaluation point identical on all peers.
// degree must satisfy 1 <= degree <= floor((m-1)/2).
func NewScheme(f *field.Field, peers party.IDSlice, alphas map[party.ID]field.Element, degree int) (*Scheme, error) {
	m := len(peers)
	if m == 0 {
		return nil, fmt.Errorf("shamir: no peers")
	}
	maxDegree := (m - 1) / 2
	if degree < 1 || degree > maxDegree {
		return nil, fmt.Errorf("shamir: degree %d out of range [1, %d] for %d peers", degree, maxDegree, m)
	}
	seen := make(map[field.Element]bool, m)
	for _, id := range peers {
		a, ok := alphas[id]
		if !ok {
			return nil, fmt.Errorf("shamir: missing alpha for peer %s", id)
		}
		if a == 0 || uint64(a) == 1 {
			return nil, fmt.Errorf("shamir: alpha for peer %s must be non-zero and non-one", id)
		}
		if seen[a] {
			return nil, fmt.Errorf("shamir: alphas must be distinct")
		}
		seen[a] = true
	}
	s := &Scheme{
		f:      f,
		peers:  peers,
		alphas: alphas,
		degree: degree,
		lcache: make(map[uint64][]field.Element),
	}
	s.buildVandermonde()
	return s, nil
}

// Degree returns the polynomial degree t.
func (s *Scheme) Degree() int { return s.degree }

// NumPeers returns m.
func (s *Scheme) NumPeers() int { return len(s.peers) }

// Peers returns the ordered peer list.
func (s *Scheme) Peers() party.IDSlice { return s.peers }

// Field returns the underlying field.
func (s *Scheme) Field() *field.Field { return s.f }

// Alpha returns the evaluation point assigned to id.
func (s *Scheme) Alpha(id party.ID) field.Element { return s.alphas[id] }

// buildVandermonde precomputes M[i][j] = alpha_i^j for j in [0, 2t], so
// that both degree-t and degree-2t (post-multiplication) products can be
// sampled directly, as required by spec.md §4.B.
func (s *Scheme) buildVandermonde() {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	maxPow := 2*s.degree + 1
	s.vandermonde = make([][]field.Element, len(s.peers))
	for i, id := range s.peers {
		row := make([]field.Element, maxPow)
		a := s.alphas[id]
		row[0] = s.f.Elem(1)
		for j := 1; j < maxPow; j++ {
			row[j] = s.f.Mul(row[j-1], a)
		}
		s.vandermonde[i] = row
	}
}

// alphaPow returns alpha_i^j using the cached Vandermonde matrix.
func (s *Scheme) alphaPow(i, j int) field.Element {
	if j < len(s.vandermonde[i]) {
		return s.vandermonde[i][j]
	}
	return s.f.Pow(s.alphas[s.peers[i]], uint64(j))
}

// Generate shares a secret at the configured degree t, emitting one share
// per peer. rng supplies the t uniform random coefficients a_1..a_t.
func (s *Scheme) Generate(secret field.Element, rng io.Reader) (map[party.ID]Share, error) {
	return s.generateAtDegree(secret, s.degree, rng)
}

// GenerateAtDegree shares a secret at an explicit degree instead of the
// configured t. Nothing in this module calls it; Multiply reshares its
// local product at degree t through Generate.
func (s *Scheme) GenerateAtDegree(secret field.Element, degree int, rng io.Reader) (map[party.ID]Share, error) {
	return s.generateAtDegree(secret, degree, rng)
}

func (s *Scheme) generateAtDegree(secret field.Element, degree int, rng io.Reader) (map[party.ID]Share, error) {
	coeffs := make([]field.Element, degree+1)
	coeffs[0] = secret
	for j := 1; j <= degree; j++ {
		v, err := field.Random(s.f, rng)
		if err != nil {
			return nil, fmt.Errorf("shamir: sampling coefficient: %w", err)
		}
		coeffs[j] = v
	}
	out := make(map[party.ID]Share, len(s.peers))
	for i, id := range s.peers {
		var acc field.Element
		for j := 0; j <= degree; j++ {
			acc = s.f.Add(acc, s.f.Mul(coeffs[j], s.alphaPow(i, j)))
		}
		out[id] = NewShare(id, acc)
	}
	return out, nil
}

// availabilityKey builds the bitmask cache key for a present/absent
// pattern over the scheme's peer list, used to key the Lagrange-weight
// cache. Requires m <= 64, true of every realistic deployment.
func (s *Scheme) availabilityKey(present map[party.ID]bool) uint64 {
	var key uint64
	for i, id := range s.peers {
		if present[id] {
			key |= 1 << uint(i)
		}
	}
	return key
}

// lagrangeWeights returns L_i for i in the present set S (Π_{j∈S,j≠i}
// alpha_j/(alpha_j - alpha_i)), keyed and cached by the availability
// bitmask.
func (s *Scheme) lagrangeWeights(present map[party.ID]bool) (map[party.ID]field.Element, error) {
	key := s.availabilityKey(present)
	s.lmu.Lock()
	if cached, ok := s.lcache[key]; ok {
		s.lmu.Unlock()
		weights := make(map[party.ID]field.Element, len(s.peers))
		idx := 0
		for _, id := range s.peers {
			if present[id] {
				weights[id] = cached[idx]
				idx++
			}
		}
		return weights, nil
	}
	s.lmu.Unlock()

	var set []party.ID
	for _, id := range s.peers {
		if present[id] {
			set = append(set, id)
		}
	}
	weights := make(map[party.ID]field.Element, len(set))
	for _, i := range set {
		num := s.f.Elem(1)
		den := s.f.Elem(1)
		ai := s.alphas[i]
		for _, j := range set {
			if j == i {
				continue
			}
			aj := s.alphas[j]
			num = s.f.Mul(num, aj)
			den = s.f.Mul(den, s.f.Sub(aj, ai))
		}
		denInv, err := s.f.Inverse(den)
		if err != nil {
			return nil, fmt.Errorf("shamir: degenerate alpha set: %w", err)
		}
		weights[i] = s.f.Mul(num, denInv)
	}

	cacheSlice := make([]field.Element, 0, len(set))
	for _, id := range set {
		cacheSlice = append(cacheSlice, weights[id])
	}
	s.lmu.Lock()
	s.lcache[key] = cacheSlice
	s.lmu.Unlock()

	return weights, nil
}

// Reconstruct interpolates a length-m share vector (MissingShare entries
// are ignored) at x=0, requiring at least minPresent present shares.
// Reconstruction never silently returns zero on failure: it always
// returns a non-nil error instead.
func (s *Scheme) Reconstruct(shares []Share, minPresent int) (field.Element, error) {
	present := make(map[party.ID]bool, len(shares))
	values := make(map[party.ID]field.Element, len(shares))
	count := 0
	for _, sh := range shares {
		if sh.IsMissing() {
			continue
		}
		present[sh.Holder] = true
		values[sh.Holder] = sh.Value
		count++
	}
	if count < minPresent {
		return 0, fmt.Errorf("shamir: primitives error: need >= %d shares to reconstruct, have %d", minPresent, count)
	}

	weights, err := s.lagrangeWeights(present)
	if err != nil {
		return 0, err
	}

	var result field.Element
	for id, w := range weights {
		result = s.f.Add(result, s.f.Mul(w, values[id]))
	}
	return result, nil
}

// MinSharesFor returns the present-share threshold required to
// reconstruct a value at the given effective polynomial degree:
// degree+1. Multiplication results live on a degree-2t polynomial, so
// callers pass 2*scheme.Degree() there.
func (s *Scheme) MinSharesFor(effectiveDegree int) int { return effectiveDegree + 1 }
