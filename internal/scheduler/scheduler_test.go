package scheduler

import (
	"crypto/rand"
	"testing"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/shamir"
	"github.com/stretchr/testify/require"
)

func newScheme(t *testing.T, m, degree int) (*shamir.Scheme, map[party.ID]*operation.Context) {
	t.Helper()
	f, err := field.New(2147483647)
	require.NoError(t, err)
	ids := make(party.IDSlice, m)
	alphas := make(map[party.ID]field.Element, m)
	for i := 0; i < m; i++ {
		ids[i] = party.ID(i + 1)
		alphas[ids[i]] = field.Element(i + 2)
	}
	scheme, err := shamir.NewScheme(f, ids, alphas, degree)
	require.NoError(t, err)
	ctxs := make(map[party.ID]*operation.Context, m)
	for _, id := range ids {
		ctxs[id] = &operation.Context{Scheme: scheme, Self: id, Rand: rand.Reader, Cache: operation.NewPredicateCache()}
	}
	return scheme, ctxs
}

func TestSchedulerRunsMultipleReconstructionsToCompletion(t *testing.T) {
	scheme, ctxs := newScheme(t, 5, 2)

	secrets := []field.Element{11, 22, 33}
	sharesBySecret := make([]map[party.ID]shamir.Share, len(secrets))
	for i, v := range secrets {
		sh, err := scheme.Generate(v, rand.Reader)
		require.NoError(t, err)
		sharesBySecret[i] = sh
	}

	schedulers := make(map[party.ID]*Scheduler, len(ctxs))
	opIDs := make(map[party.ID][]OpID, len(ctxs))
	for id := range ctxs {
		s := New(0)
		schedulers[id] = s
		for i := range secrets {
			oid := s.Submit(operation.NewReconstruct(sharesBySecret[i][id].Value, scheme.MinSharesFor(scheme.Degree())))
			opIDs[id] = append(opIDs[id], oid)
		}
	}

	for round := 0; round < 10; round++ {
		allDone := true
		for id, s := range schedulers {
			if s.ParallelCount() > 0 {
				allDone = false
			}
			_, err := s.StepAll(ctxs[id])
			require.NoError(t, err)
		}
		if allDone {
			break
		}
		lengths := make(map[party.ID]int, len(schedulers))
		for id, s := range schedulers {
			lengths[id] = s.TotalOutboundLen()
		}
		for senderID, sender := range schedulers {
			n := lengths[senderID]
			if n == 0 {
				continue
			}
			for receiverID, receiver := range schedulers {
				if senderID == receiverID {
					continue
				}
				buf := make([]field.Element, n)
				sender.CopyOutbound(receiverID, buf)
				receiver.CopyInbound(senderID, buf)
			}
		}
	}

	for id, s := range schedulers {
		require.Zero(t, s.ParallelCount())
		for i, oid := range opIDs[id] {
			op, ok := s.Get(oid)
			require.True(t, ok)
			require.Equal(t, secrets[i], op.FinalResult()[0])
		}
	}
}
