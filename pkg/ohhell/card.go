package ohhell

import (
	"encoding/json"
	"fmt"
)

// Rank represents a card rank in the 40-card Italian deck. The zero value is
// not a valid rank.
type Rank string

// Ranks in ascending strength. Four is the weakest rank, Three the strongest.
const (
	Four   Rank = "Four"
	Five   Rank = "Five"
	Six    Rank = "Six"
	Seven  Rank = "Seven"
	Ten    Rank = "Ten"
	Eleven Rank = "Eleven"
	Twelve Rank = "Twelve"
	One    Rank = "One"
	Two    Rank = "Two"
	Three  Rank = "Three"
)

// Suit represents a card suit.
type Suit string

// Suits in ascending tie-break order.
const (
	Golds  Suit = "Golds"
	Swords Suit = "Swords"
	Cups   Suit = "Cups"
	Clubs  Suit = "Clubs"
)

var ranks = [...]Rank{Four, Five, Six, Seven, Ten, Eleven, Twelve, One, Two, Three}
var suits = [...]Suit{Golds, Swords, Cups, Clubs}

// DeckSize is the number of cards in a full deck.
const DeckSize = len(ranks) * len(suits)

func rankIndex(r Rank) int {
	for i, rank := range ranks {
		if rank == r {
			return i
		}
	}
	return -1
}

func suitIndex(s Suit) int {
	for i, suit := range suits {
		if suit == s {
			return i
		}
	}
	return -1
}

// NextRank returns the rank after r in ascending order, wrapping Three back
// to Four. When a set's upcard is turned, NextRank of its rank is the trump
// rank for that set.
func NextRank(r Rank) Rank {
	return ranks[(rankIndex(r)+1)%len(ranks)]
}

// Card is a playing card value object.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard creates a card with the given rank and suit.
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// BaseValue returns the card's trump-independent strength. Higher wins. The
// value is unique per card: rank dominates, suit breaks ties.
func (c Card) BaseValue() int {
	return rankIndex(c.Rank)*10 + suitIndex(c.Suit)
}

// EffectiveValue returns the card's strength for the current set. A card of
// the trump rank outranks every non-trump regardless of suit; trumps
// tie-break among themselves by suit.
func (c Card) EffectiveValue(trump Rank) int {
	value := c.BaseValue()
	if c.Rank == trump {
		value += 100
	}
	return value
}

// Valid reports whether rank and suit name real cards.
func (c Card) Valid() bool {
	return rankIndex(c.Rank) >= 0 && suitIndex(c.Suit) >= 0
}

// String returns a human readable representation of the card.
func (c Card) String() string {
	return string(c.Rank) + " of " + string(c.Suit)
}

// cardJSON mirrors Card for serialization with validation.
type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// UnmarshalJSON implements json.Unmarshaler, rejecting unknown ranks and
// suits so malformed client frames never reach the engine.
func (c *Card) UnmarshalJSON(data []byte) error {
	var card cardJSON
	if err := json.Unmarshal(data, &card); err != nil {
		return err
	}

	if rankIndex(Rank(card.Rank)) < 0 {
		return fmt.Errorf("invalid rank: %q", card.Rank)
	}
	if suitIndex(Suit(card.Suit)) < 0 {
		return fmt.Errorf("invalid suit: %q", card.Suit)
	}

	c.Rank = Rank(card.Rank)
	c.Suit = Suit(card.Suit)
	return nil
}

// FullDeck returns the 40 cards of the canonical deck in ascending base
// value order.
func FullDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, rank := range ranks {
		for _, suit := range suits {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

// Turn is one card played by one player.
type Turn struct {
	PlayerID string `json:"player_id"`
	Card     Card   `json:"card"`
}
