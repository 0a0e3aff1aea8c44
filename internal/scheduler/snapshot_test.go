package scheduler

import (
	"crypto/rand"
	"testing"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/stretchr/testify/require"
)

// TestSnapshotPushPopIsolatesNestedBatch covers spec.md §5's snapshot
// stack: PushSnapshot must isolate a fresh, empty operation set for a
// nested batch (e.g. bulk pre-generation), and PopSnapshot must restore
// the outer set exactly, discarding whatever the nested batch submitted.
func TestSnapshotPushPopIsolatesNestedBatch(t *testing.T) {
	scheme, ctxs := newScheme(t, 3, 1)
	id := scheme.Peers()[0]
	s := New(0)

	sh, err := scheme.Generate(field.Element(5), rand.Reader)
	require.NoError(t, err)
	outerID := s.Submit(operation.NewReconstruct(sh[id].Value, scheme.MinSharesFor(scheme.Degree())))
	require.Equal(t, 1, s.TotalCount())

	s.PushSnapshot()
	require.Equal(t, 0, s.TotalCount())
	require.Equal(t, 1, s.SnapshotDepth())

	sh2, err := scheme.Generate(field.Element(9), rand.Reader)
	require.NoError(t, err)
	innerID := s.Submit(operation.NewReconstruct(sh2[id].Value, scheme.MinSharesFor(scheme.Degree())))
	_, err = s.StepAll(ctxs[id])
	require.NoError(t, err)
	_, ok := s.Get(innerID)
	require.True(t, ok)

	s.PopSnapshot()
	require.Equal(t, 0, s.SnapshotDepth())
	require.Equal(t, 1, s.TotalCount())
	_, ok = s.Get(outerID)
	require.True(t, ok)
	_, ok = s.Get(innerID)
	require.False(t, ok, "popping the snapshot should discard the nested batch")
}

// TestSnapshotStackNestsMultipleLevels covers deeper nesting than a
// single push/pop: three levels deep, each level's submissions must
// stay invisible to the levels above until popped back down to them.
func TestSnapshotStackNestsMultipleLevels(t *testing.T) {
	scheme, ctxs := newScheme(t, 3, 1)
	id := scheme.Peers()[0]
	s := New(0)

	submitOne := func(secret uint64) OpID {
		sh, err := scheme.Generate(field.Element(secret), rand.Reader)
		require.NoError(t, err)
		return s.Submit(operation.NewReconstruct(sh[id].Value, scheme.MinSharesFor(scheme.Degree())))
	}

	level0 := submitOne(1)
	s.PushSnapshot()
	level1 := submitOne(2)
	s.PushSnapshot()
	level2 := submitOne(3)

	require.Equal(t, 2, s.SnapshotDepth())
	require.Equal(t, 1, s.TotalCount())
	_, err := s.StepAll(ctxs[id])
	require.NoError(t, err)

	s.PopSnapshot()
	require.Equal(t, 1, s.SnapshotDepth())
	_, ok := s.Get(level1)
	require.True(t, ok)
	_, ok = s.Get(level2)
	require.False(t, ok)

	s.PopSnapshot()
	require.Equal(t, 0, s.SnapshotDepth())
	_, ok = s.Get(level0)
	require.True(t, ok)
	_, ok = s.Get(level1)
	require.False(t, ok)
}
