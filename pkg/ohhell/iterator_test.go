package ohhell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectCycle(it *CyclicIterator) []int {
	var out []int
	for {
		item, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

func TestCyclicIteratorBasicLap(t *testing.T) {
	it := NewCyclicIterator(3)

	require.Equal(t, []int{0, 1, 2}, collectCycle(it))

	// Exhausted until a shift.
	if _, ok := it.Peek(); ok {
		t.Error("expected Peek to report exhaustion")
	}
	if _, ok := it.Next(); ok {
		t.Error("expected Next to report exhaustion")
	}
	require.True(t, it.Exhausted())
}

func TestCyclicIteratorShiftRotates(t *testing.T) {
	it := NewCyclicIterator(3)
	collectCycle(it)

	it.Shift()
	require.Equal(t, []int{1, 2, 0}, collectCycle(it))

	it.Shift()
	require.Equal(t, []int{2, 0, 1}, collectCycle(it))
}

func TestCyclicIteratorShiftMidCycle(t *testing.T) {
	it := NewCyclicIterator(4)
	it.Next()
	it.Next()

	// Shift is relative to the cycle start, not the cursor.
	it.Shift()
	require.Equal(t, []int{1, 2, 3, 0}, collectCycle(it))
}

func TestCyclicIteratorPeek(t *testing.T) {
	it := NewCyclicIterator(2)

	item, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, 0, item)

	next, ok := it.PeekNext()
	require.True(t, ok)
	require.Equal(t, 1, next)

	it.Next()
	if _, ok := it.PeekNext(); ok {
		t.Error("last item should have no successor in this cycle")
	}

	// Peek must not advance.
	item, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, 1, item)
}

func TestCyclicIteratorShiftTo(t *testing.T) {
	it := NewCyclicIterator(4)
	collectCycle(it)

	require.True(t, it.ShiftTo(2))
	require.Equal(t, []int{2, 3, 0, 1}, collectCycle(it))

	require.False(t, it.ShiftTo(9))
}

func TestCyclicIteratorRemove(t *testing.T) {
	it := NewCyclicIterator(4)

	require.True(t, it.Remove(1))
	require.False(t, it.Remove(1))
	require.Equal(t, 3, it.Len())
	require.Equal(t, []int{0, 2, 3}, collectCycle(it))

	it.Shift()
	require.Equal(t, []int{2, 3, 0}, collectCycle(it))
}

func TestCyclicIteratorRemoveBeforeCursor(t *testing.T) {
	it := NewCyclicIterator(4)
	it.Next()
	it.Next()

	// Removing an already-yielded position keeps the cursor on the same
	// upcoming one.
	require.True(t, it.Remove(0))
	item, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, 2, item)
	require.Equal(t, []int{2, 3}, collectCycle(it))
}

func TestCyclicIteratorSingleItem(t *testing.T) {
	it := NewCyclicIterator(1)
	require.Equal(t, []int{0}, collectCycle(it))
	it.Shift()
	require.Equal(t, []int{0}, collectCycle(it))
}
