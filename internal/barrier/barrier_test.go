package barrier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCyclicReleasesAllOnceEveryoneArrives(t *testing.T) {
	const n = 4
	c := NewCyclic(n)
	var wg sync.WaitGroup
	released := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.Wait()
			released <- id
		}(i)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not release all waiters")
	}
	require.Len(t, released, n)
}

func TestCyclicResetsForNextRound(t *testing.T) {
	c := NewCyclic(2)
	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				c.Wait()
			}()
		}
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not cycle across rounds")
	}
}

func TestCountingOpensAtThresholdAndAdmitsStragglers(t *testing.T) {
	c := NewCounting(2)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			c.Arrive()
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("counting barrier never opened")
	}
	require.True(t, c.IsOpen())
	require.GreaterOrEqual(t, c.Count(), 2)
}

func TestCountingResetClosesForNextRound(t *testing.T) {
	c := NewCounting(2)
	c.Arrive()
	c.Arrive()
	require.True(t, c.IsOpen())
	c.Reset()
	require.False(t, c.IsOpen())
	require.Equal(t, 0, c.Count())
}
