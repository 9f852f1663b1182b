package director

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/choreo"
	"github.com/sclarke500/cardtable/transport"
)

// Spades animates a spades table: full 52-card deal, won tricks stacked next
// to each winner, and blind-nil hands kept hidden until their owner chooses
// to look.
type Spades struct {
	ctrl *choreo.Controller
	log  slog.Logger

	mu             sync.Mutex
	boardW, boardH float64
	blindSeats     map[string]bool
}

// NewSpades builds the spades director for a board of the given size.
func NewSpades(ctrl *choreo.Controller, boardW, boardH float64, log slog.Logger) *Spades {
	if log == nil {
		log = slog.Disabled
	}
	return &Spades{
		ctrl:       ctrl,
		log:        log,
		boardW:     boardW,
		boardH:     boardH,
		blindSeats: make(map[string]bool),
	}
}

// SpadesConfig is the controller configuration spades expects.
func SpadesConfig(log slog.Logger) choreo.Config {
	return choreo.Config{
		GameType:     "spades",
		TrickLayout:  choreo.TrickLayoutConverge,
		CompleteMode: choreo.CompleteStack,
		Log:          log,
	}
}

// SetBoardSize records new board dimensions.
func (s *Spades) SetBoardSize(w, h float64) {
	s.mu.Lock()
	s.boardW, s.boardH = w, h
	s.mu.Unlock()
}

func (s *Spades) boardSize() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardW, s.boardH
}

// MarkBlind records a seat playing blind nil. Its cards stay hidden until a
// hand_revealed message arrives for it.
func (s *Spades) MarkBlind(playerID string) {
	s.mu.Lock()
	s.blindSeats[playerID] = true
	s.mu.Unlock()
}

// IsBlind reports whether a seat is still playing blind.
func (s *Spades) IsBlind(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blindSeats[playerID]
}

// Less orders a spades hand by suit (spades first) then descending rank.
func (s *Spades) Less(a, b cards.Card) bool {
	if a.Suit != b.Suit {
		return suitOrder(a.Suit, cards.Spades) < suitOrder(b.Suit, cards.Spades)
	}
	return a.Rank.Value() > b.Rank.Value()
}

// AnimatePhase implements Animator.
func (s *Spades) AnimatePhase(ctx context.Context, snap Snapshot) error {
	switch snap.Phase {
	case PhaseSetup:
		w, h := s.boardSize()
		return s.ctrl.SetupTable(w, h, snap.Players, snap.DealerSeat)

	case PhaseDealing:
		if err := s.ctrl.Deal(ctx, choreo.DealOptions{
			Stagger: dealStagger,
			Flight:  dealFlight,
		}); err != nil {
			return err
		}
		if err := s.ctrl.RevealUserHand(ctx, revealTime); err != nil {
			return err
		}
		return s.ctrl.SortUserHand(ctx, s.Less, sortTime)

	case PhaseBidding, PhasePlaying:
		return nil

	case PhaseTrickComplete:
		return s.ctrl.CompleteTrick(ctx, snap.TrickWinnerID)

	case PhaseRoundComplete, PhaseGameOver:
		return nil
	}
	s.log.Tracef("spades: no animation for phase %s", snap.Phase)
	return nil
}

// HandleMessage implements MessageHandler.
func (s *Spades) HandleMessage(ctx context.Context, msg transport.Message) error {
	switch msg.Name {
	case transport.MsgGameState:
		var state transport.GameState
		if err := msg.Decode(&state); err != nil {
			return err
		}
		return s.restoreState(ctx, state)

	case transport.MsgCardPlayed:
		var p transport.CardPlayed
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return s.ctrl.PlayCard(ctx, p.Card, p.PlayerID, p.CardIndex)

	case transport.MsgTrickComplete:
		var p transport.TrickComplete
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return s.ctrl.CompleteTrick(ctx, p.WinnerID)

	case transport.MsgHandRevealed:
		var p transport.HandRevealed
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.blindSeats, p.PlayerID)
		s.mu.Unlock()
		return s.ctrl.RevealHiddenHand(ctx, p.PlayerID, p.Cards, revealTime)

	case transport.MsgBidMade, transport.MsgYourTurn, transport.MsgPlayerTimedOut,
		transport.MsgRoundComplete, transport.MsgGameOver:
		return nil

	case transport.MsgError:
		var p transport.ErrorPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.log.Warnf("server error %s: %s", p.Code, p.Message)
		return nil
	}
	return fmt.Errorf("spades: unknown message %q", msg.Name)
}

// Timeout implements MessageHandler.
func (s *Spades) Timeout(name string) time.Duration {
	switch name {
	case transport.MsgCardPlayed:
		return fallbackTimeout(playTotal)
	case transport.MsgTrickComplete:
		return fallbackTimeout(trickTotal)
	case transport.MsgHandRevealed:
		return fallbackTimeout(revealTime, 13*revealStep())
	case transport.MsgGameState:
		return fallbackTimeout(52*dealStagger, dealFlight, revealTime, sortTime)
	default:
		return fallbackTimeout()
	}
}

func revealStep() time.Duration { return 12 * time.Millisecond }

func (s *Spades) restoreState(ctx context.Context, state transport.GameState) error {
	players := playersFromState(state)
	w, h := s.boardSize()
	if err := s.ctrl.SetupTable(w, h, players, state.DealerSeat); err != nil {
		return err
	}
	if err := s.ctrl.Deal(ctx, choreo.DealOptions{}); err != nil {
		return err
	}
	if err := s.ctrl.RevealUserHand(ctx, 0); err != nil {
		return err
	}
	if err := s.ctrl.SortUserHand(ctx, s.Less, 0); err != nil {
		return err
	}
	for i, pc := range state.PlayedCards {
		if err := s.ctrl.PlayCard(ctx, pc.Card, pc.PlayerID, i); err != nil {
			return err
		}
	}
	return nil
}
