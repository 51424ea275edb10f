package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockDestroy struct {
	x, y, z int32
	stage   int8
}

func TestPushAndDrainInOrderSingleProducer(t *testing.T) {
	q := NewQueue[int](8)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(i))
	}
	var got []int
	q.Drain(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPushReturnsErrorWhenFull(t *testing.T) {
	q := NewQueue[int](2)
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))
	assert.Error(t, q.Push(3))
}

func TestResetClearsForNextTick(t *testing.T) {
	q := NewQueue[blockDestroy](4)
	require.NoError(t, q.Push(blockDestroy{x: 1, y: 2, z: 3, stage: 5}))
	assert.Equal(t, 1, q.Len())

	q.Reset()
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Push(blockDestroy{x: 9}))
	var got []blockDestroy
	q.Drain(func(v blockDestroy) { got = append(got, v) })
	require.Len(t, got, 1)
	assert.Equal(t, int32(9), got[0].x)
}

func TestConcurrentPushersEachEventSurvivesDrain(t *testing.T) {
	const producers = 16
	const perProducer = 50
	q := NewQueue[int](producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				require.NoError(t, q.Push(base+i))
			}
		}(p * perProducer)
	}
	wg.Wait()

	seen := make(map[int]bool, producers*perProducer)
	q.Drain(func(v int) { seen[v] = true })
	assert.Len(t, seen, producers*perProducer)
}
