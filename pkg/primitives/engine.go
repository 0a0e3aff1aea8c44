// Package primitives is the public API of the Shamir-share MPC
// primitives engine: given a validated Config and a Messenger, it builds
// the field, the sharing scheme, and the round-synchronous driver, and
// lets a caller submit operations from internal/operation and collect
// their results once complete.
package primitives

import (
	"context"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/luxfi/primitives/internal/driver"
	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/scheduler"
	"github.com/luxfi/primitives/internal/shamir"
)

// RoundResult is a completed operation's outcome, keyed by the
// scheduler.OpID returned from Engine.Submit.
type RoundResult struct {
	ID     scheduler.OpID
	Result []field.Element
}

// Engine is one peer's view of a running primitives computation: a
// validated Config, the derived field and sharing scheme, the operation
// scheduler, and the round-synchronous driver wired to a caller-supplied
// Messenger.
type Engine struct {
	cfg    Config
	scheme *shamir.Scheme
	sched  *scheduler.Scheduler
	opCtx  *operation.Context
	drv    *driver.Driver
	ssid   [32]byte
}

// NewEngine validates cfg, builds the field and Shamir scheme it
// describes, and wires a scheduler and driver over messenger. Peer
// evaluation points (alphas) are derived deterministically as
// id+1, keeping every alpha in [2, m+1] -- always non-zero and non-one,
// as shamir.NewScheme requires.
func NewEngine(cfg Config, messenger driver.Messenger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := cfg.Field()
	if err != nil {
		return nil, &PrimitivesError{Op: "NewEngine", Err: err}
	}
	peers := cfg.Peers()
	alphas := make(map[party.ID]field.Element, len(peers))
	for _, id := range peers {
		alphas[id] = f.Elem(uint64(id) + 1)
	}
	scheme, err := shamir.NewScheme(f, peers, alphas, cfg.PolynomialDegreeT)
	if err != nil {
		return nil, &ProtocolError{Op: "NewEngine", Msg: err.Error()}
	}

	sched := scheduler.New(cfg.ParallelOperationsCount)
	opCtx := &operation.Context{
		Scheme:            scheme,
		Self:              cfg.Self(),
		Rand:              cfg.Rand(),
		Cache:             operation.NewPredicateCache(),
		SynchronizeShares: cfg.SynchronizeShares,
	}
	drv := driver.New(cfg.Self(), peers, messenger, sched, opCtx)

	return &Engine{
		cfg:    cfg,
		scheme: scheme,
		sched:  sched,
		opCtx:  opCtx,
		drv:    drv,
		ssid:   deriveSSID(cfg),
	}, nil
}

// deriveSSID computes a session id over the configuration's shape, the
// way the teacher's protocols derive a session id over their keygen
// config -- a deterministic fingerprint every peer can compute and
// compare without a round trip.
func deriveSSID(cfg Config) [32]byte {
	h := blake3.New()
	fmt.Fprintf(h, "primitives-ssid|p=%d|t=%d|m=%d", cfg.PrimeFieldSize, cfg.PolynomialDegreeT, cfg.NumPrivacyPeers)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SSID returns this engine's deterministic session id.
func (e *Engine) SSID() [32]byte { return e.ssid }

// Scheme returns the underlying Shamir sharing scheme.
func (e *Engine) Scheme() *shamir.Scheme { return e.scheme }

// Submit enqueues op as a new top-level operation and returns its id.
func (e *Engine) Submit(op operation.Operation) scheduler.OpID {
	return e.sched.Submit(op)
}

// Result returns the completed result for id. The second return value is
// false if id is unknown or the operation has not completed yet.
func (e *Engine) Result(id scheduler.OpID) (RoundResult, bool) {
	op, ok := e.sched.Get(id)
	if !ok || !op.IsComplete() {
		return RoundResult{}, false
	}
	return RoundResult{ID: id, Result: op.FinalResult()}, true
}

// Remove stops tracking id, e.g. once its result has been delivered to
// the caller.
func (e *Engine) Remove(id scheduler.OpID) { e.sched.Remove(id) }

// PushSnapshot isolates a fresh, empty operation set for a nested batch
// (e.g. bulk bitwise-random pre-generation), per spec.md §5.
func (e *Engine) PushSnapshot() { e.sched.PushSnapshot() }

// PopSnapshot restores the operation set saved by the matching
// PushSnapshot, discarding the nested batch.
func (e *Engine) PopSnapshot() { e.sched.PopSnapshot() }

// RunRound performs exactly one send/receive/step round across every
// tracked operation.
func (e *Engine) RunRound(ctx context.Context) error { return e.drv.RunRound(ctx) }

// RunUntilDone runs rounds until no operation remains active or ctx ends.
func (e *Engine) RunUntilDone(ctx context.Context) error { return e.drv.RunUntilDone(ctx) }

// ActiveCount returns the number of operations still in flight.
func (e *Engine) ActiveCount() int { return e.sched.ParallelCount() }

// PredicateCacheSize returns the number of distinct cache keys this
// engine's LessThan/LSB family of operations has memoised so far.
func (e *Engine) PredicateCacheSize() int { return e.opCtx.Cache.Len() }
