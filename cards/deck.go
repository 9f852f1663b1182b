package cards

import (
	"math/rand"
	"time"
)

// NewDeck52 creates a standard deck of 52 cards with canonical IDs
func NewDeck52() []Card {
	var deck []Card
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks := []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, New(suit, rank))
		}
	}

	return deck
}

// NewEuchreDeck creates the 24-card Euchre deck (nine through ace)
func NewEuchreDeck() []Card {
	var deck []Card
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks := []Rank{Nine, Ten, Jack, Queen, King, Ace}

	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, New(suit, rank))
		}
	}

	return deck
}

// ShuffleCards returns a shuffled copy of the deck. A nil source falls back
// to a time-seeded one; pass a fixed seed for a reproducible order.
func ShuffleCards(deck []Card, r *rand.Rand) []Card {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := make([]Card, len(deck))
	copy(shuffled, deck)

	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}
