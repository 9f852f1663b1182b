package cards

import "fmt"

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank represents a card rank
type Rank string

const (
	Ace   Rank = "A"
	King  Rank = "K"
	Queen Rank = "Q"
	Jack  Rank = "J"
	Ten   Rank = "10"
	Nine  Rank = "9"
	Eight Rank = "8"
	Seven Rank = "7"
	Six   Rank = "6"
	Five  Rank = "5"
	Four  Rank = "4"
	Three Rank = "3"
	Two   Rank = "2"
)

var rankValues = map[Rank]int{
	Ace: 14, King: 13, Queen: 12, Jack: 11, Ten: 10, Nine: 9,
	Eight: 8, Seven: 7, Six: 6, Five: 5, Four: 4, Three: 3, Two: 2,
}

// Value returns the rank's numeric value, ace high. Unknown ranks are 0.
func (r Rank) Value() int {
	return rankValues[r]
}

// Card represents a playing card. The ID is stable for the whole session and
// is the identity used across the network boundary; suit and rank may be
// rewritten in place when a placeholder is revealed.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
}

// New creates a card with the canonical ID for its suit and rank (e.g. "10♠").
func New(suit Suit, rank Rank) Card {
	return Card{ID: string(rank) + string(suit), Suit: suit, Rank: rank}
}

// String returns the string representation of a card
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Equals checks if two cards carry the same suit and rank
func (c Card) Equals(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

// FromString creates a card from a string representation
// e.g., "10♠" or "10s" or "10S" -> Card{Suit: Spades, Rank: Ten}
func FromString(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card shorthand: %s", s)
	}

	var suit Suit
	switch s[len(s)-1:] {
	case "♠", "s", "S":
		suit = Spades
	case "♥", "h", "H":
		suit = Hearts
	case "♦", "d", "D":
		suit = Diamonds
	case "♣", "c", "C":
		suit = Clubs
	default:
		// Multi-byte glyphs end on their final byte, so retry on the
		// last rune when the single-byte match fails.
		return fromRunes(s)
	}

	rank, err := rankFromString(s[:len(s)-1])
	if err != nil {
		return Card{}, err
	}

	return New(suit, rank), nil
}

func fromRunes(s string) (Card, error) {
	runes := []rune(s)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("invalid card shorthand: %s", s)
	}

	var suit Suit
	switch string(runes[len(runes)-1]) {
	case "♠":
		suit = Spades
	case "♥":
		suit = Hearts
	case "♦":
		suit = Diamonds
	case "♣":
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid card suit: %s", string(runes[len(runes)-1]))
	}

	rank, err := rankFromString(string(runes[:len(runes)-1]))
	if err != nil {
		return Card{}, err
	}

	return New(suit, rank), nil
}

func rankFromString(s string) (Rank, error) {
	switch s {
	case "A":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "10", "T":
		return Ten, nil
	case "9":
		return Nine, nil
	case "8":
		return Eight, nil
	case "7":
		return Seven, nil
	case "6":
		return Six, nil
	case "5":
		return Five, nil
	case "4":
		return Four, nil
	case "3":
		return Three, nil
	case "2":
		return Two, nil
	default:
		return "", fmt.Errorf("invalid card rank: %s", s)
	}
}
