package ohhell

import "container/heap"

// ratedTurn pairs a played turn with its effective value for the current
// set. The value is unique per card, so ties are impossible.
type ratedTurn struct {
	value int
	turn  Turn
}

// turnPile is a max-heap of rated turns; a single Pop yields the trick
// winner.
type turnPile []ratedTurn

func (p turnPile) Len() int           { return len(p) }
func (p turnPile) Less(i, j int) bool { return p[i].value > p[j].value }
func (p turnPile) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *turnPile) Push(x any) {
	*p = append(*p, x.(ratedTurn))
}

func (p *turnPile) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// push adds a turn with its rating.
func (p *turnPile) push(value int, turn Turn) {
	heap.Push(p, ratedTurn{value: value, turn: turn})
}

// pop removes and returns the highest rated turn.
func (p *turnPile) pop() ratedTurn {
	return heap.Pop(p).(ratedTurn)
}
