// Package scheduler implements the operation-set scheduler described by
// spec.md §4.D and §5: a running-slot/overflow-queue throttle bounding how
// many top-level operations advance concurrently, stepped each round by a
// fixed pool of physical worker goroutines, plus a snapshot push/pop stack
// so a nested batch (e.g. pre-generating a pool of bitwise-random numbers
// before a run of LessThan-family operations consumes them) can run in an
// isolated operation set and then be popped back into the parent's.
package scheduler

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/primitives/internal/barrier"
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
)

// OpID identifies an operation submitted to a Scheduler.
type OpID uint64

// Scheduler owns a set of in-flight top-level operations, advancing a
// throttled subset of them together each round and exposing the
// pre-order share-copy traversal (operation.CopyAllOutbound/CopyAllInbound)
// the driver needs to build and consume one PrimitivesMessage per peer
// pair.
//
// When parallelCount is positive, at most parallelCount operations run at
// once: each occupies a numbered slot, and a slot whose occupant
// completes immediately dequeues the next waiting operation into itself
// and steps it too, within the same round (spec.md §4.D). parallelCount
// == 0 selects "all in parallel": every tracked operation runs every
// round, throttled only by the physical worker pool.
type Scheduler struct {
	mu      sync.Mutex
	ops     map[OpID]operation.Operation
	queue   []OpID
	nextID  OpID
	stack   []snapshot
	workers int

	parallelCount int
	slots         []OpID
	slotFilled    []bool
	overflow      []OpID
}

type snapshot struct {
	ops        map[OpID]operation.Operation
	queue      []OpID
	slots      []OpID
	slotFilled []bool
	overflow   []OpID
}

// New constructs an empty scheduler throttled to parallelCount
// concurrently running top-level operations (0 selects "all in
// parallel", parallel_operations_count's documented sentinel). The
// physical worker count W defaults to runtime.GOMAXPROCS(0) (adjusted by
// automaxprocs in cmd/primitives-sim), clamped per round to the work
// actually available.
func New(parallelCount int) *Scheduler {
	s := &Scheduler{ops: make(map[OpID]operation.Operation), workers: runtime.GOMAXPROCS(0), parallelCount: parallelCount}
	if parallelCount > 0 {
		s.slots = make([]OpID, parallelCount)
		s.slotFilled = make([]bool, parallelCount)
	}
	return s
}

// Submit enqueues op as a new top-level operation and returns its id.
// Submission order is preserved in Queue, giving the deterministic
// traversal order CopyOutbound/CopyInbound rely on. When the scheduler is
// throttled, op either claims a free running slot immediately or joins
// the overflow queue to await one.
func (s *Scheduler) Submit(op operation.Operation) OpID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.ops[id] = op
	s.queue = append(s.queue, id)
	if s.parallelCount <= 0 {
		return id
	}
	for i, filled := range s.slotFilled {
		if !filled {
			s.slots[i] = id
			s.slotFilled[i] = true
			return id
		}
	}
	s.overflow = append(s.overflow, id)
	return id
}

// Get returns the operation for id, if still tracked (it remains tracked
// after completion until the caller removes it or a snapshot is popped
// over it).
func (s *Scheduler) Get(id OpID) (operation.Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	return op, ok
}

// Remove stops tracking id (e.g. once its result has been delivered).
func (s *Scheduler) Remove(id OpID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, id)
	for i, qid := range s.queue {
		if qid == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}

// Queue returns the current submission-ordered id list (completed and
// active).
func (s *Scheduler) Queue() []OpID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OpID, len(s.queue))
	copy(out, s.queue)
	return out
}

// ParallelCount returns the number of operations that are not yet
// complete.
func (s *Scheduler) ParallelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.queue {
		if !s.ops[id].IsComplete() {
			n++
		}
	}
	return n
}

// RunningCount returns how many operations are eligible to step this
// round: every incomplete tracked operation when unthrottled, or the
// number of currently occupied slots when throttled by parallelCount.
func (s *Scheduler) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parallelCount <= 0 {
		n := 0
		for _, id := range s.queue {
			if !s.ops[id].IsComplete() {
				n++
			}
		}
		return n
	}
	n := 0
	for _, filled := range s.slotFilled {
		if filled {
			n++
		}
	}
	return n
}

// TotalCount returns the total number of tracked operations, complete or not.
func (s *Scheduler) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// StepAll advances the currently runnable operations by one round,
// returning the ids that became complete this round. Unthrottled
// (parallelCount == 0), every pending operation in queue runs every
// round. Throttled, only the operations currently holding a slot run.
func (s *Scheduler) StepAll(ctx *operation.Context) ([]OpID, error) {
	if s.parallelCount <= 0 {
		return s.stepAllUnlimited(ctx)
	}
	return s.stepAllThrottled(ctx)
}

// stepAllUnlimited is spec.md §5's worker-thread model applied to the
// whole pending set: the queue is split into W static slices, each
// stepped by its own goroutine; every worker rendezvouses on a
// *barrier.Cyclic before touching any operation, and errgroup collects
// the first error once every slice finishes.
func (s *Scheduler) stepAllUnlimited(ctx *operation.Context) ([]OpID, error) {
	s.mu.Lock()
	queue := make([]OpID, len(s.queue))
	copy(queue, s.queue)
	s.mu.Unlock()

	var pending []OpID
	for _, id := range queue {
		s.mu.Lock()
		op, ok := s.ops[id]
		s.mu.Unlock()
		if ok && !op.IsComplete() {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	w := s.workers
	if w > len(pending) {
		w = len(pending)
	}
	if w < 1 {
		w = 1
	}
	slices := make([][]OpID, w)
	for i, id := range pending {
		slices[i%w] = append(slices[i%w], id)
	}

	bar := barrier.NewCyclic(w)
	var g errgroup.Group
	var cmu sync.Mutex
	var completed []OpID
	for _, slice := range slices {
		slice := slice
		g.Go(func() error {
			bar.Wait()
			for _, id := range slice {
				s.mu.Lock()
				op, ok := s.ops[id]
				s.mu.Unlock()
				if !ok || op.IsComplete() {
					continue
				}
				if err := op.DoStep(ctx); err != nil {
					return err
				}
				if op.IsComplete() {
					cmu.Lock()
					completed = append(completed, id)
					cmu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return completed, nil
}

// stepAllThrottled partitions the fixed slot set across W worker
// goroutines, steps each occupied slot once, and chains a slot straight
// into its replacement occupant (per spec.md §4.D) without waiting for
// the next round.
func (s *Scheduler) stepAllThrottled(ctx *operation.Context) ([]OpID, error) {
	s.mu.Lock()
	numSlots := len(s.slots)
	hasWork := false
	for _, filled := range s.slotFilled {
		if filled {
			hasWork = true
			break
		}
	}
	s.mu.Unlock()
	if numSlots == 0 || !hasWork {
		return nil, nil
	}

	w := s.workers
	if w > numSlots {
		w = numSlots
	}
	if w < 1 {
		w = 1
	}
	groups := make([][]int, w)
	for i := 0; i < numSlots; i++ {
		groups[i%w] = append(groups[i%w], i)
	}

	bar := barrier.NewCyclic(w)
	var g errgroup.Group
	var cmu sync.Mutex
	var completed []OpID
	for _, group := range groups {
		group := group
		g.Go(func() error {
			bar.Wait()
			for _, slotIdx := range group {
				if err := s.runSlot(ctx, slotIdx, &cmu, &completed); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return completed, nil
}

// runSlot steps slotIdx's current occupant. If it completes, the next
// overflow-queued operation immediately takes the slot and is stepped in
// turn, chaining within this same round until the slot empties or an
// occupant does not finish.
func (s *Scheduler) runSlot(ctx *operation.Context, slotIdx int, cmu *sync.Mutex, completed *[]OpID) error {
	for {
		s.mu.Lock()
		if !s.slotFilled[slotIdx] {
			s.mu.Unlock()
			return nil
		}
		id := s.slots[slotIdx]
		op, ok := s.ops[id]
		s.mu.Unlock()
		if !ok || op.IsComplete() {
			if !s.fillSlot(slotIdx) {
				return nil
			}
			continue
		}
		if err := op.DoStep(ctx); err != nil {
			return err
		}
		if !op.IsComplete() {
			return nil
		}
		cmu.Lock()
		*completed = append(*completed, id)
		cmu.Unlock()
		if !s.fillSlot(slotIdx) {
			return nil
		}
	}
}

// fillSlot dequeues the next overflow id into slotIdx, reporting whether
// a replacement was found.
func (s *Scheduler) fillSlot(slotIdx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overflow) == 0 {
		s.slotFilled[slotIdx] = false
		return false
	}
	next := s.overflow[0]
	s.overflow = s.overflow[1:]
	s.slots[slotIdx] = next
	s.slotFilled[slotIdx] = true
	return true
}

// TotalOutboundLen returns the combined outbound share count, across
// every active operation in queue order, for the current round.
func (s *Scheduler) TotalOutboundLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.queue {
		n += operation.TotalOutboundCount(s.ops[id])
	}
	return n
}

// CopyOutbound fills buf with every active operation's outbound shares
// for peer pp, in queue (submission) order, matching the layout
// CopyInbound expects on the receiving side.
func (s *Scheduler) CopyOutbound(pp party.ID, buf []field.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := 0
	for _, id := range s.queue {
		offset = operation.CopyAllOutbound(s.ops[id], pp, buf, offset)
	}
}

// CopyInbound distributes buf (received from peer pp) across every
// active operation's inbound share slice, in the same queue order
// CopyOutbound used to build it.
func (s *Scheduler) CopyInbound(pp party.ID, buf []field.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := 0
	for _, id := range s.queue {
		offset = operation.CopyAllInbound(s.ops[id], pp, buf, offset)
	}
}

// PushSnapshot saves the current operation set aside and starts a fresh,
// empty one (with its own, equally-sized slot/overflow state), so a
// nested batch of operations (e.g. bulk bitwise-random pre-generation
// ahead of a run of LessThan calls) can be driven to completion in
// isolation without its round-numbering or outbound layout interleaving
// with the parent batch's.
func (s *Scheduler) PushSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = append(s.stack, snapshot{ops: s.ops, queue: s.queue, slots: s.slots, slotFilled: s.slotFilled, overflow: s.overflow})
	s.ops = make(map[OpID]operation.Operation)
	s.queue = nil
	s.overflow = nil
	if s.parallelCount > 0 {
		s.slots = make([]OpID, s.parallelCount)
		s.slotFilled = make([]bool, s.parallelCount)
	}
}

// PopSnapshot restores the operation set saved by the most recent
// PushSnapshot, discarding whatever the nested batch left behind. It is
// a no-op if the stack is empty.
func (s *Scheduler) PopSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.ops = top.ops
	s.queue = top.queue
	s.slots = top.slots
	s.slotFilled = top.slotFilled
	s.overflow = top.overflow
}

// SnapshotDepth reports how many snapshots are currently pushed.
func (s *Scheduler) SnapshotDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}
