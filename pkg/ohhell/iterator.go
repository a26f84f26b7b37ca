package ohhell

// CyclicIterator is a cursor over an ordered set of seat positions. Each
// cycle yields every remaining position exactly once; after that Peek and
// Next report exhaustion until a Shift starts the next cycle. Shift rotates
// the cycle start left by one, ShiftTo starts the next cycle at a chosen
// position, and Remove drops an eliminated position from the order.
type CyclicIterator struct {
	// items holds the remaining positions; items[0] is the first position
	// of the current cycle.
	items []int
	// yielded counts Next calls since the last shift.
	yielded int
}

// NewCyclicIterator creates an iterator over positions [0..n).
func NewCyclicIterator(n int) *CyclicIterator {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return &CyclicIterator{items: items}
}

// Peek returns the current position, or false if the cycle is exhausted.
func (it *CyclicIterator) Peek() (int, bool) {
	if it.yielded >= len(it.items) {
		return 0, false
	}
	return it.items[it.yielded], true
}

// PeekNext returns the position after the current one without advancing, or
// false if the current position is the cycle's last.
func (it *CyclicIterator) PeekNext() (int, bool) {
	if it.yielded+1 >= len(it.items) {
		return 0, false
	}
	return it.items[it.yielded+1], true
}

// Next yields the current position and advances the cursor, or returns
// false if the cycle is exhausted.
func (it *CyclicIterator) Next() (int, bool) {
	if it.yielded >= len(it.items) {
		return 0, false
	}
	item := it.items[it.yielded]
	it.yielded++
	return item, true
}

// Exhausted reports whether the iterator has yielded every position since
// the last shift.
func (it *CyclicIterator) Exhausted() bool {
	return it.yielded >= len(it.items)
}

// Shift begins a new cycle whose first position is the one after the
// previous cycle's first.
func (it *CyclicIterator) Shift() {
	if len(it.items) > 1 {
		it.items = append(it.items[1:], it.items[0])
	}
	it.yielded = 0
}

// ShiftTo begins a new cycle starting at position idx. It reports false if
// idx is not part of the order.
func (it *CyclicIterator) ShiftTo(idx int) bool {
	at := -1
	for i, item := range it.items {
		if item == idx {
			at = i
			break
		}
	}
	if at < 0 {
		return false
	}
	it.items = append(it.items[at:], it.items[:at]...)
	it.yielded = 0
	return true
}

// Remove drops position idx from the underlying order. A removal before the
// cursor keeps the cursor on the same upcoming position. It reports false
// if idx is not part of the order.
func (it *CyclicIterator) Remove(idx int) bool {
	for i, item := range it.items {
		if item == idx {
			it.items = append(it.items[:i], it.items[i+1:]...)
			if i < it.yielded {
				it.yielded--
			}
			return true
		}
	}
	return false
}

// Len returns the number of positions remaining in the order.
func (it *CyclicIterator) Len() int {
	return len(it.items)
}
