// Package barrier implements the round-synchronisation primitives
// spec.md §4.F describes: a cyclic barrier that releases every waiter
// once all parties have arrived for the current round, and a counting
// barrier that releases once a threshold of arrivals is reached while
// still accepting (and discarding) stragglers until explicitly closed.
//
// Grounded on sync.Cond: the scheduler's per-round worker rendezvous
// (internal/scheduler's StepAll, via Cyclic) is the only caller, and
// Counting has no caller outside its tests; the scheduler already
// serialises round transitions through a worker pool (spec.md §5's W workers),
// so a condition variable over a mutex -- not a third-party
// synchronisation library -- is the idiomatic fit, matching the
// stdlib-only sync.WaitGroup/sync.Mutex usage in the teacher's own
// cmd/threshold-cli simulation driver.
package barrier

import "sync"

// Cyclic is a reusable barrier for n parties: every call to Wait blocks
// until n calls have been made for the current generation, then all
// callers are released together and the barrier resets for the next
// round.
type Cyclic struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	count      int
	generation uint64
}

// NewCyclic constructs a barrier for n parties.
func NewCyclic(n int) *Cyclic {
	c := &Cyclic{n: n}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Wait blocks until n parties (including this caller) have arrived for
// the current round, then returns. It is safe to call from n goroutines
// repeatedly, once per round.
func (c *Cyclic) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generation
	c.count++
	if c.count == c.n {
		c.count = 0
		c.generation++
		c.cond.Broadcast()
		return
	}
	for gen == c.generation {
		c.cond.Wait()
	}
}

// N returns the configured party count.
func (c *Cyclic) N() int { return c.n }

// Counting is a barrier that opens once at least threshold arrivals have
// been recorded, and then stays open (further Arrive calls return
// immediately) until Reset is called for the next round. Unlike Cyclic,
// Counting never blocks a caller past the threshold: it is used where a
// round may proceed once "enough" (not all) peers have responded, e.g.
// tolerating up to m-threshold crashed peers per spec.md's peer-crash
// handling.
type Counting struct {
	mu        sync.Mutex
	cond      *sync.Cond
	threshold int
	count     int
	open      bool
}

// NewCounting constructs a counting barrier that opens at threshold
// arrivals.
func NewCounting(threshold int) *Counting {
	c := &Counting{threshold: threshold}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Arrive records one arrival and blocks until the barrier is open.
func (c *Counting) Arrive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.count >= c.threshold {
		c.open = true
	}
	if c.open {
		c.cond.Broadcast()
		return
	}
	for !c.open {
		c.cond.Wait()
	}
}

// Count returns the number of arrivals recorded so far this round.
func (c *Counting) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// IsOpen reports whether the threshold has been reached.
func (c *Counting) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reset closes the barrier and zeroes its arrival count for the next
// round.
func (c *Counting) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.open = false
}
