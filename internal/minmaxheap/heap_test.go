package minmaxheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func TestHeap_PushBelowCapacityNeverEvicts(t *testing.T) {
	h := New(4, intLess)

	_, ok := h.Push(3)
	require.False(t, ok)
	_, ok = h.Push(1)
	require.False(t, ok)
	_, ok = h.Push(2)
	require.False(t, ok)
}

func TestHeap_PushAtCapacityEvictsTheMinimum(t *testing.T) {
	h := New(4, intLess)
	h.Push(3)
	h.Push(1)
	h.Push(2)

	evicted, ok := h.Push(4)

	require.True(t, ok)
	require.Equal(t, 1, evicted)
	require.Equal(t, 3, h.Len())
}

func TestHeap_PopMaxYieldsDescendingOrder(t *testing.T) {
	h := New(4, intLess)
	h.Push(3)
	h.Push(1)
	h.Push(2)

	v, ok := h.PopMax()
	require.True(t, ok)
	require.Equal(t, 3, v)

	v, ok = h.PopMax()
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = h.PopMax()
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = h.PopMax()
	require.False(t, ok)
}

func TestHeap_PopMaxIsResumableAcrossCalls(t *testing.T) {
	h := New(4, intLess)
	h.Push(3)
	h.Push(1)
	h.Push(2)

	v, ok := h.PopMax()
	require.True(t, ok)
	require.Equal(t, 3, v)

	v, ok = h.PopMax()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

// fillToMinusOne pushes scores 0..16383 into a fresh capacity-16384
// heap. The first 16383 pushes fit under capacity; the 16384th brings
// the heap to exactly capacity and evicts the running minimum (0),
// leaving {1, ..., 16383} — 16383 elements.
func fillToMinusOne(t *testing.T) *Heap[int] {
	t.Helper()
	h := New(16384, intLess)
	for score := 0; score < 16383; score++ {
		_, ok := h.Push(score)
		require.False(t, ok)
	}
	evicted, ok := h.Push(16383)
	require.True(t, ok)
	require.Equal(t, 0, evicted)
	require.Equal(t, 16383, h.Len())
	return h
}

func TestHeap_LargeRunDrainsDescendingAfterInitialEviction(t *testing.T) {
	h := fillToMinusOne(t)

	for expect := 16383; expect >= 1; expect-- {
		v, ok := h.PopMax()
		require.True(t, ok)
		require.Equal(t, expect, v)
	}
	require.Equal(t, 0, h.Len())
	_, ok := h.PopMax()
	require.False(t, ok)
}

func TestHeap_LiteralEvictionScenarioFromCapacityMinusOne(t *testing.T) {
	h := fillToMinusOne(t)

	// Pushing 16384 brings the heap back to capacity, evicting the
	// new minimum (1); "accepts" just means the call always succeeds.
	evicted, ok := h.Push(16384)
	require.True(t, ok)
	require.Equal(t, 1, evicted)
	require.Equal(t, 16383, h.Len())

	// Pushing -1 brings it to capacity again; -1 is now the minimum.
	evicted, ok = h.Push(-1)
	require.True(t, ok)
	require.Equal(t, -1, evicted)
	require.Equal(t, 16383, h.Len())
}

func TestHeap_NeverExceedsCapacity(t *testing.T) {
	h := New(8, intLess)
	for i := 0; i < 1000; i++ {
		h.Push(i)
		require.LessOrEqual(t, h.Len(), h.Cap())
	}
}
