package operation

import (
	"math"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// BatchGenerateBitwiseRandomNumbers implements spec.md §4.C "Batch
// generate bitwise random numbers": launch enough independent
// GenerateBitwiseRandomNumber draws in parallel to satisfy a demand of n
// numbers after the expected share of failures, then recurse on whatever
// shortfall remains once the batch completes.
type BatchGenerateBitwiseRandomNumbers struct {
	n         int
	f         *field.Field
	bitLen    int
	draws     []*GenerateBitwiseRandomNumber
	wait      *WaitAll
	collected [][]field.Element
	next      *BatchGenerateBitwiseRandomNumbers
	complete  bool
	result    []field.Element
}

// NewBatchGenerateBitwiseRandomNumbers constructs a batch draw targeting
// n successful bitwise-random numbers over f.
func NewBatchGenerateBitwiseRandomNumbers(n int, f *field.Field) *BatchGenerateBitwiseRandomNumbers {
	bitLen := f.BitLen()
	attempts := estimateBitwiseRandomAttempts(n, f)
	draws := make([]*GenerateBitwiseRandomNumber, attempts)
	ops := make([]Operation, attempts)
	for i := range draws {
		draws[i] = NewGenerateBitwiseRandomNumber(bitLen)
		ops[i] = draws[i]
	}
	return &BatchGenerateBitwiseRandomNumbers{n: n, f: f, bitLen: bitLen, draws: draws, wait: NewWaitAll(ops)}
}

// estimateBitwiseRandomAttempts computes the number of draws to launch
// for n successes: a single draw succeeds (lands < p) with probability
// p/2^bitLen, and each of its bitLen constituent bits independently fails
// with probability roughly 1/(p-2) (spec.md §4.C). The count used is
// n*(2^bitLen/p)*bitLen*(p/(p-2)), the expected number of random-bit
// attempts, plus a 10% margin. Since GenerateBitwiseRandomNumber redraws
// failed bits itself, a draw fails only when it lands >= p, so this
// launches about bitLen times the n*(2^bitLen/p) draws expected to suffice.
func estimateBitwiseRandomAttempts(n int, f *field.Field) int {
	if n <= 0 {
		return 0
	}
	p := float64(f.P())
	bitLen := f.BitLen()
	rangeSize := float64(uint64(1) << uint(bitLen))
	perSuccess := (rangeSize / p) * float64(bitLen) * (p / (p - 2))
	estimate := math.Ceil(float64(n) * perSuccess)
	margin := math.Ceil(estimate * 0.1)
	return int(estimate + margin)
}

func (b *BatchGenerateBitwiseRandomNumbers) OutboundShareCount() int { return 0 }
func (b *BatchGenerateBitwiseRandomNumbers) CopyOutboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (b *BatchGenerateBitwiseRandomNumbers) CopyInboundShares(_ party.ID, _ []field.Element, o int) int {
	return o
}
func (b *BatchGenerateBitwiseRandomNumbers) IsComplete() bool              { return b.complete }
func (b *BatchGenerateBitwiseRandomNumbers) FinalResult() []field.Element { return b.result }

func (b *BatchGenerateBitwiseRandomNumbers) Children() []Operation {
	if b.wait != nil && !b.wait.IsComplete() {
		return []Operation{b.wait}
	}
	if b.next != nil && !b.next.IsComplete() {
		return []Operation{b.next}
	}
	return nil
}

func (b *BatchGenerateBitwiseRandomNumbers) DoStep(ctx *Context) error {
	if b.complete {
		return nil
	}
	if b.wait != nil {
		if err := b.wait.DoStep(ctx); err != nil {
			return err
		}
		if !b.wait.IsComplete() {
			return nil
		}
		for _, d := range b.draws {
			if res := d.FinalResult(); !IsFailure(res) {
				b.collected = append(b.collected, res)
			}
		}
		b.wait = nil
		b.draws = nil
		if shortfall := b.n - len(b.collected); shortfall > 0 {
			b.next = NewBatchGenerateBitwiseRandomNumbers(shortfall, b.f)
			return nil
		}
		b.finish()
		return nil
	}
	if b.next != nil {
		if err := b.next.DoStep(ctx); err != nil {
			return err
		}
		if !b.next.IsComplete() {
			return nil
		}
		chunk := b.bitLen + 1
		flat := b.next.FinalResult()
		for i := 0; i+chunk <= len(flat); i += chunk {
			b.collected = append(b.collected, flat[i:i+chunk])
		}
		b.next = nil
		b.finish()
	}
	return nil
}

// finish flattens the first n collected draws (dropping any surplus from
// the initial over-estimate) into the operation's result.
func (b *BatchGenerateBitwiseRandomNumbers) finish() {
	out := make([]field.Element, 0, b.n*(b.bitLen+1))
	for i := 0; i < b.n && i < len(b.collected); i++ {
		out = append(out, b.collected[i]...)
	}
	b.complete = true
	b.result = out
}
