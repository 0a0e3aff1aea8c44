package operation

import (
	"testing"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/shamir"
	"github.com/stretchr/testify/require"
)

func shareSecret(t *testing.T, scheme *shamir.Scheme, secret field.Element) map[party.ID]field.Element {
	t.Helper()
	shares, err := scheme.Generate(secret, deterministicRand{})
	require.NoError(t, err)
	out := make(map[party.ID]field.Element, len(shares))
	for id, sh := range shares {
		out[id] = sh.Value
	}
	return out
}

// deterministicRand is a fixed byte stream so tests are reproducible
// without depending on crypto/rand's availability in the sandbox.
type deterministicRand struct{ n byte }

func (d deterministicRand) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte((i*7 + 13) % 251)
	}
	return len(p), nil
}

func TestEqualDetectsSameAndDifferentSecrets(t *testing.T) {
	ctxs, scheme := newTestContexts(t, 5, 2)
	f := scheme.Field()

	a := shareSecret(t, scheme, f.Elem(42))
	b := shareSecret(t, scheme, f.Elem(42))
	c := shareSecret(t, scheme, f.Elem(7))

	ops := make(map[party.ID]Operation, len(ctxs))
	for id := range ctxs {
		ops[id] = NewEqual(a[id], b[id], f)
	}
	driveToCompletion(t, ctxs, ops, 200)
	shares := make([]shamir.Share, 0, len(ops))
	for id, op := range ops {
		shares = append(shares, shamir.NewShare(id, op.FinalResult()[0]))
	}
	eq, err := scheme.Reconstruct(shares, scheme.MinSharesFor(scheme.Degree()))
	require.NoError(t, err)
	require.Equal(t, field.Element(1), eq)

	ops2 := make(map[party.ID]Operation, len(ctxs))
	for id := range ctxs {
		ops2[id] = NewEqual(a[id], c[id], f)
	}
	driveToCompletion(t, ctxs, ops2, 200)
	shares2 := make([]shamir.Share, 0, len(ops2))
	for id, op := range ops2 {
		shares2 = append(shares2, shamir.NewShare(id, op.FinalResult()[0]))
	}
	neq, err := scheme.Reconstruct(shares2, scheme.MinSharesFor(scheme.Degree()))
	require.NoError(t, err)
	require.Equal(t, field.Element(0), neq)
}

func TestPowerComputesExpectedValue(t *testing.T) {
	ctxs, scheme := newTestContexts(t, 5, 2)
	f := scheme.Field()

	a := shareSecret(t, scheme, f.Elem(3))

	ops := make(map[party.ID]Operation, len(ctxs))
	for id := range ctxs {
		ops[id] = NewPower(a[id], 5)
	}
	driveToCompletion(t, ctxs, ops, 200)
	shares := make([]shamir.Share, 0, len(ops))
	for id, op := range ops {
		shares = append(shares, shamir.NewShare(id, op.FinalResult()[0]))
	}
	got, err := scheme.Reconstruct(shares, scheme.MinSharesFor(scheme.Degree()))
	require.NoError(t, err)
	require.Equal(t, f.Pow(f.Elem(3), 5), got)
}

func TestProductOfFactors(t *testing.T) {
	ctxs, scheme := newTestContexts(t, 5, 2)
	f := scheme.Field()

	factors := []field.Element{2, 3, 5, 7}
	sharesByFactor := make([]map[party.ID]field.Element, len(factors))
	for i, v := range factors {
		sharesByFactor[i] = shareSecret(t, scheme, v)
	}

	ops := make(map[party.ID]Operation, len(ctxs))
	for id := range ctxs {
		row := make([]field.Element, len(factors))
		for i := range factors {
			row[i] = sharesByFactor[i][id]
		}
		ops[id] = NewProduct(row)
	}
	driveToCompletion(t, ctxs, ops, 200)
	shares := make([]shamir.Share, 0, len(ops))
	for id, op := range ops {
		shares = append(shares, shamir.NewShare(id, op.FinalResult()[0]))
	}
	got, err := scheme.Reconstruct(shares, scheme.MinSharesFor(scheme.Degree()))
	require.NoError(t, err)
	require.Equal(t, field.Element(2*3*5*7), got)
}
