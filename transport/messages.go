package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sclarke500/cardtable/cards"
)

// Message is the wire envelope exchanged with the game server. Payload is
// decoded lazily once the name is known.
type Message struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Wire message names.
const (
	MsgGameState      = "game_state"
	MsgCardPlayed     = "card_played"
	MsgTrickComplete  = "trick_complete"
	MsgBidMade        = "bid_made"
	MsgHandSync       = "hand_sync"
	MsgHandRevealed   = "hand_revealed"
	MsgYourTurn       = "your_turn"
	MsgPlayerTimedOut = "player_timed_out"
	MsgRoundComplete  = "round_complete"
	MsgGameOver       = "game_over"
	MsgError          = "error"
)

// NewMessage wraps a payload in the wire envelope.
func NewMessage(name string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Message{Name: name, Payload: data}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Name, err)
	}
	return nil
}

// PlayerState describes one seat in a full game-state push. Cards is empty
// for opponents; only HandSize is disclosed for them.
type PlayerState struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	IsHuman  bool         `json:"isHuman"`
	Cards    []cards.Card `json:"cards,omitempty"`
	HandSize int          `json:"handSize"`
	Tricks   int          `json:"tricks"`
	Score    int          `json:"score"`
}

// PlayedCard is one card already sitting in the play area when a state push
// arrives mid-trick.
type PlayedCard struct {
	PlayerID string     `json:"playerId"`
	Card     cards.Card `json:"card"`
}

// GameState is the authoritative snapshot the server pushes on join and on
// resync.
type GameState struct {
	GameType     string        `json:"gameType"`
	Phase        string        `json:"phase"`
	Players      []PlayerState `json:"players"`
	DealerSeat   int           `json:"dealerSeat"`
	TurnPlayerID string        `json:"turnPlayerId"`
	PlayedCards  []PlayedCard  `json:"playedCards,omitempty"`
	TrumpSuit    string        `json:"trumpSuit,omitempty"`
	TurnUpCard   *cards.Card   `json:"turnUpCard,omitempty"`
}

// CardPlayed announces one card leaving a player's hand for the play area.
type CardPlayed struct {
	PlayerID  string     `json:"playerId"`
	Card      cards.Card `json:"card"`
	CardIndex int        `json:"cardIndex"`
}

// TrickComplete announces the trick winner once all seats have played.
type TrickComplete struct {
	WinnerID string `json:"winnerId"`
}

// BidMade carries a bidding action (euchre order-up, spades bid).
type BidMade struct {
	PlayerID string `json:"playerId"`
	Bid      int    `json:"bid"`
	Suit     string `json:"suit,omitempty"`
	Pass     bool   `json:"pass"`
}

// HandSync is the authoritative card list for the user's hand after an
// exchange phase. RecipientID names where departed cards went, when known.
type HandSync struct {
	Cards       []cards.Card `json:"cards"`
	RecipientID string       `json:"recipientId,omitempty"`
}

// HandRevealed discloses a previously hidden hand (blind-nil reveal).
type HandRevealed struct {
	PlayerID string       `json:"playerId"`
	Cards    []cards.Card `json:"cards"`
}

// YourTurn prompts the local player to act before the deadline.
type YourTurn struct {
	PlayerID string    `json:"playerId"`
	Deadline time.Time `json:"deadline"`
}

// PlayerTimedOut announces a seat the server auto-played.
type PlayerTimedOut struct {
	PlayerID string `json:"playerId"`
}

// ErrorPayload carries a server-side rejection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
