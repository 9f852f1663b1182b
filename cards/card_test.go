package cards

import (
	"math/rand"
	"testing"
)

func TestNewDeck52(t *testing.T) {
	deck := NewDeck52()

	if len(deck) != 52 {
		t.Errorf("Expected deck to have 52 cards, got %d", len(deck))
	}

	seen := make(map[string]bool)
	for _, c := range deck {
		if seen[c.ID] {
			t.Errorf("Duplicate card ID in deck: %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestNewEuchreDeck(t *testing.T) {
	deck := NewEuchreDeck()

	if len(deck) != 24 {
		t.Errorf("Expected Euchre deck to have 24 cards, got %d", len(deck))
	}

	for _, c := range deck {
		switch c.Rank {
		case Nine, Ten, Jack, Queen, King, Ace:
		default:
			t.Errorf("Unexpected rank %s in Euchre deck", c.Rank)
		}
	}
}

func TestShuffleCards(t *testing.T) {
	originalDeck := NewDeck52()
	shuffledDeck := ShuffleCards(originalDeck, nil)

	if len(shuffledDeck) != len(originalDeck) {
		t.Errorf("Shuffled deck length %d does not match original deck length %d",
			len(shuffledDeck), len(originalDeck))
	}

	// Check that cards are shuffled (this is probabilistic but very likely)
	differences := 0
	for i := 0; i < len(originalDeck); i++ {
		if shuffledDeck[i] != originalDeck[i] {
			differences++
		}
	}

	if differences == 0 {
		t.Error("Shuffled deck is identical to original deck")
	}
}

func TestShuffleCardsDeterministicWithSeed(t *testing.T) {
	deck := NewDeck52()
	a := ShuffleCards(deck, rand.New(rand.NewSource(7)))
	b := ShuffleCards(deck, rand.New(rand.NewSource(7)))

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Same seed produced different orders at index %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Card
		isError  bool
	}{
		{"10♠", New(Spades, Ten), false},
		{"10s", New(Spades, Ten), false},
		{"AS", New(Spades, Ace), false},
		{"Kh", New(Hearts, King), false},
		{"Qd", New(Diamonds, Queen), false},
		{"Jc", New(Clubs, Jack), false},
		{"9♥", New(Hearts, Nine), false},
		{"", Card{}, true},
		{"X♠", Card{}, true},
		{"10x", Card{}, true},
	}

	for _, test := range tests {
		card, err := FromString(test.input)
		if test.isError {
			if err == nil {
				t.Errorf("Expected error for input %q, got card %v", test.input, card)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for input %q: %v", test.input, err)
			continue
		}
		if !card.Equals(test.expected) {
			t.Errorf("For input %q expected %v, got %v", test.input, test.expected, card)
		}
		if card.ID != test.expected.ID {
			t.Errorf("For input %q expected ID %q, got %q", test.input, test.expected.ID, card.ID)
		}
	}
}

func TestPlaceholderReveal(t *testing.T) {
	card := NewPlaceholder("player-2", 3)

	if card.ID != "placeholder-player-2-3" {
		t.Errorf("Unexpected placeholder ID: %s", card.ID)
	}
	if !IsPlaceholder(card.ID) {
		t.Error("IsPlaceholder should be true for a placeholder card")
	}
	if IsPlaceholder("10♠") {
		t.Error("IsPlaceholder should be false for a real card ID")
	}

	card.Reveal(Hearts, Queen)

	if card.ID != "placeholder-player-2-3" {
		t.Error("Reveal must preserve the card ID")
	}
	if card.Suit != Hearts || card.Rank != Queen {
		t.Errorf("Reveal did not rewrite the payload: %v", card)
	}
}
