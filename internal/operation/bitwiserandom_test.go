package operation

import (
	"testing"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/shamir"
	"github.com/stretchr/testify/require"
)

// TestGenerateBitwiseRandomNumberBitsAreConsistentWithSum draws a few
// bitwise-random numbers end to end and checks that every drawn bit
// reconstructs to 0 or 1 and that their weighted sum reconstructs to the
// same value as the number's own share, i.e. FinalResult()[0] really is
// Σ bit_i·2^(n-1-i) and not an unrelated value.
func TestGenerateBitwiseRandomNumberBitsAreConsistentWithSum(t *testing.T) {
	ctxs, scheme := newTestContexts(t, 5, 2)
	n := scheme.Field().BitLen()

	for trial := 0; trial < 3; trial++ {
		ops := make(map[party.ID]Operation, len(ctxs))
		for id := range ctxs {
			ops[id] = NewGenerateBitwiseRandomNumber(n)
		}

		driveToCompletion(t, ctxs, ops, 6*n+10)

		sumShares := make([]shamir.Share, 0, len(ops))
		bitShares := make([][]shamir.Share, n)
		for i := range bitShares {
			bitShares[i] = make([]shamir.Share, 0, len(ops))
		}
		for id, op := range ops {
			res := op.FinalResult()
			require.Len(t, res, n+1)
			sumShares = append(sumShares, shamir.NewShare(id, res[0]))
			for i := 0; i < n; i++ {
				bitShares[i] = append(bitShares[i], shamir.NewShare(id, res[i+1]))
			}
		}

		threshold := scheme.MinSharesFor(scheme.Degree())
		sum, err := scheme.Reconstruct(sumShares, threshold)
		require.NoError(t, err)

		f := scheme.Field()
		var recomputed field.Element
		for i := 0; i < n; i++ {
			bit, err := scheme.Reconstruct(bitShares[i], threshold)
			require.NoError(t, err)
			require.Truef(t, uint64(bit) == 0 || uint64(bit) == 1, "bit %d was %d", i, uint64(bit))
			recomputed = f.Add(f.Mul(recomputed, f.Elem(2)), bit)
		}
		require.Equal(t, sum, recomputed)
	}
}

// TestGenerateBitwiseRandomNumberBitsAreNotAllEqual is a coarse
// statistical smoke test, not a rigorous chi-squared fit: across enough
// independent low-order bit draws, a correct random bit generator should
// produce both 0 and 1, never collapse to a constant.
func TestGenerateBitwiseRandomNumberBitsAreNotAllEqual(t *testing.T) {
	ctxs, scheme := newTestContexts(t, 5, 2)
	n := scheme.Field().BitLen()
	threshold := scheme.MinSharesFor(scheme.Degree())

	seenZero, seenOne := false, false
	const trials = 12
	for trial := 0; trial < trials && !(seenZero && seenOne); trial++ {
		ops := make(map[party.ID]Operation, len(ctxs))
		for id := range ctxs {
			ops[id] = NewGenerateBitwiseRandomNumber(n)
		}
		driveToCompletion(t, ctxs, ops, 6*n+10)

		shares := make([]shamir.Share, 0, len(ops))
		for id, op := range ops {
			res := op.FinalResult()
			shares = append(shares, shamir.NewShare(id, res[n])) // least-significant bit
		}
		bit, err := scheme.Reconstruct(shares, threshold)
		require.NoError(t, err)
		if uint64(bit) == 0 {
			seenZero = true
		} else {
			seenOne = true
		}
	}

	require.Truef(t, seenZero && seenOne, "least-significant bit across %d trials never varied", trials)
}
