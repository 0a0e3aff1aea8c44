// Package party defines the identity of a privacy peer.
package party

import (
	"fmt"
	"sort"
)

// ID is the 1-based index of a privacy peer within the ordered peer list.
// It also doubles as the share holder index used when evaluating a
// sharing polynomial: a peer with ID i receives the share evaluated at
// alpha_i.
type ID uint32

// String implements fmt.Stringer.
func (id ID) String() string {
	return fmt.Sprintf("peer-%d", uint32(id))
}

// IDSlice is an ordered, deduplicated list of peer IDs. The ordering is
// used throughout the engine (each peer's bit position in shamir's
// availability masks and Multiply's share masks) so it must never be
// silently re-sorted after construction except by NewIDSlice itself.
type IDSlice []ID

// NewIDSlice returns ids sorted in ascending order with duplicates removed.
func NewIDSlice(ids ...ID) IDSlice {
	cp := make(IDSlice, len(ids))
	copy(cp, ids)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	var last ID
	haveLast := false
	for _, id := range cp {
		if haveLast && id == last {
			continue
		}
		out = append(out, id)
		last = id
		haveLast = true
	}
	return out
}

// Contains reports whether id is present in the slice.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Index returns the zero-based position of id within s, or -1 if absent.
func (s IDSlice) Index(id ID) int {
	for i, x := range s {
		if x == id {
			return i
		}
	}
	return -1
}

// Without returns a copy of s with self removed, preserving order. Used to
// build the "other peers" list a worker fans out to.
func (s IDSlice) Without(self ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, id := range s {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// Less reports whether a orders before b (the lesser ID first). The
// driver does not call it and imposes no send order: it sends to every
// other peer concurrently.
func Less(a, b ID) bool { return a < b }
