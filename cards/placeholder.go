package cards

import (
	"fmt"
	"strings"
)

// Opponents' unknown cards are represented by placeholder cards with a stable,
// deterministically generated ID and a dummy suit/rank. When the server
// reveals the real card, the payload is rewritten in place so the identity
// (and any visual element bound to it) survives the reveal.

const placeholderPrefix = "placeholder-"

// PlaceholderID builds the deterministic ID for a player's n-th unknown card.
func PlaceholderID(playerID string, index int) string {
	return fmt.Sprintf("%s%s-%d", placeholderPrefix, playerID, index)
}

// NewPlaceholder creates an unknown card for the given player slot.
func NewPlaceholder(playerID string, index int) Card {
	return Card{ID: PlaceholderID(playerID, index), Suit: Spades, Rank: Two}
}

// IsPlaceholder reports whether the card ID denotes an unrevealed card.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// Reveal rewrites a card's suit and rank in place, preserving its ID.
func (c *Card) Reveal(suit Suit, rank Rank) {
	c.Suit = suit
	c.Rank = rank
}
