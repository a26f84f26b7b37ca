package ohhell

import "math/rand"

// Deck represents a shuffled deck of cards.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full deck shuffled with the given random number
// generator.
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: FullDeck(),
		rng:   rng,
	}
	deck.Shuffle()
	return deck
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top n cards.
func (d *Deck) Deal(n int) []Card {
	hand := make([]Card, n)
	copy(hand, d.cards[:n])
	d.cards = d.cards[n:]
	return hand
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}
