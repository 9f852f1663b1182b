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

// Shared animation pacing across game directors.
const (
	dealStagger = 100 * time.Millisecond
	dealFlight  = 300 * time.Millisecond
	sortTime    = 250 * time.Millisecond
	revealTime  = 300 * time.Millisecond
	playTotal   = 650 * time.Millisecond
	trickTotal  = 400 * time.Millisecond
	syncTotal   = 850 * time.Millisecond
)

// Euchre animates a euchre table: 24-card deck, four seats, a kitty with a
// turn-up, converging tricks swept to the winner.
type Euchre struct {
	ctrl *choreo.Controller
	log  slog.Logger

	mu             sync.Mutex
	boardW, boardH float64
	trump          cards.Suit
}

// NewEuchre builds the euchre director for a board of the given size.
func NewEuchre(ctrl *choreo.Controller, boardW, boardH float64, log slog.Logger) *Euchre {
	if log == nil {
		log = slog.Disabled
	}
	return &Euchre{ctrl: ctrl, log: log, boardW: boardW, boardH: boardH}
}

// SetBoardSize records new board dimensions (resize, orientation change).
func (e *Euchre) SetBoardSize(w, h float64) {
	e.mu.Lock()
	e.boardW, e.boardH = w, h
	e.mu.Unlock()
}

func (e *Euchre) boardSize() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.boardW, e.boardH
}

// EuchreConfig is the controller configuration euchre expects.
func EuchreConfig(log slog.Logger) choreo.Config {
	return choreo.Config{
		GameType:     "euchre",
		TrickLayout:  choreo.TrickLayoutConverge,
		CompleteMode: choreo.CompleteSweep,
		Log:          log,
	}
}

// SetTrump fixes the trump suit; the hand sorter is trump-aware from then
// on.
func (e *Euchre) SetTrump(suit cards.Suit) {
	e.mu.Lock()
	e.trump = suit
	e.mu.Unlock()
}

func sameColor(a, b cards.Suit) bool {
	red := func(s cards.Suit) bool { return s == cards.Hearts || s == cards.Diamonds }
	return red(a) == red(b)
}

// effectiveSuit accounts for the left bower: the jack of the same color
// counts as trump.
func (e *Euchre) effectiveSuit(c cards.Card) cards.Suit {
	if e.trump != "" && c.Rank == cards.Jack && sameColor(c.Suit, e.trump) {
		return e.trump
	}
	return c.Suit
}

func (e *Euchre) weight(c cards.Card) int {
	if e.trump != "" && e.effectiveSuit(c) == e.trump {
		if c.Rank == cards.Jack {
			if c.Suit == e.trump {
				return 120 // right bower
			}
			return 119 // left bower
		}
		return 100 + c.Rank.Value()
	}
	return c.Rank.Value()
}

func suitOrder(s, trump cards.Suit) int {
	if s == trump {
		return 0
	}
	for i, suit := range []cards.Suit{cards.Spades, cards.Hearts, cards.Clubs, cards.Diamonds} {
		if s == suit {
			return i + 1
		}
	}
	return 5
}

// Less orders a euchre hand: trump (bowers first) ahead of the off suits,
// descending rank within each suit.
func (e *Euchre) Less(a, b cards.Card) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sa, sb := e.effectiveSuit(a), e.effectiveSuit(b)
	if sa != sb {
		return suitOrder(sa, e.trump) < suitOrder(sb, e.trump)
	}
	return e.weight(a) > e.weight(b)
}

// AnimatePhase implements Animator for the single-player regime.
func (e *Euchre) AnimatePhase(ctx context.Context, snap Snapshot) error {
	switch snap.Phase {
	case PhaseSetup:
		e.SetTrump(snap.TrumpSuit)
		w, h := e.boardSize()
		return e.ctrl.SetupTable(w, h, snap.Players, snap.DealerSeat)

	case PhaseDealing:
		if err := e.deal(ctx, snap); err != nil {
			return err
		}
		if err := e.ctrl.RevealUserHand(ctx, revealTime); err != nil {
			return err
		}
		return e.ctrl.SortUserHand(ctx, e.Less, sortTime)

	case PhaseBidding:
		// The turn-up is already face up from the deal.
		return nil

	case PhaseDealerDiscard:
		if len(snap.UserHand) == 0 {
			return nil
		}
		if err := e.ctrl.SyncUserHand(ctx, snap.UserHand, ""); err != nil {
			return err
		}
		return e.ctrl.SortUserHand(ctx, e.Less, sortTime)

	case PhasePlaying:
		if snap.TrumpSuit != "" {
			e.SetTrump(snap.TrumpSuit)
		}
		return e.ctrl.SortUserHand(ctx, e.Less, sortTime)

	case PhaseTrickComplete:
		return e.ctrl.CompleteTrick(ctx, snap.TrickWinnerID)

	case PhaseRoundComplete, PhaseGameOver:
		return nil
	}
	e.log.Tracef("euchre: no animation for phase %s", snap.Phase)
	return nil
}

func (e *Euchre) deal(ctx context.Context, snap Snapshot) error {
	opts := choreo.DealOptions{
		ExtraDeckCards:     snap.Kitty,
		KeepRemainingCards: true,
		FlipTopCard:        true,
		Stagger:            dealStagger,
		Flight:             dealFlight,
	}
	if snap.TurnUpCard != nil {
		opts.TurnUpCardID = snap.TurnUpCard.ID
	}
	return e.ctrl.Deal(ctx, opts)
}

// HandleMessage implements MessageHandler for the multiplayer regime.
func (e *Euchre) HandleMessage(ctx context.Context, msg transport.Message) error {
	switch msg.Name {
	case transport.MsgGameState:
		var state transport.GameState
		if err := msg.Decode(&state); err != nil {
			return err
		}
		return e.restoreState(ctx, state)

	case transport.MsgCardPlayed:
		var p transport.CardPlayed
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return e.ctrl.PlayCard(ctx, p.Card, p.PlayerID, p.CardIndex)

	case transport.MsgTrickComplete:
		var p transport.TrickComplete
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return e.ctrl.CompleteTrick(ctx, p.WinnerID)

	case transport.MsgBidMade:
		var p transport.BidMade
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if p.Pass || p.Suit == "" {
			return nil
		}
		e.SetTrump(cards.Suit(p.Suit))
		return e.ctrl.SortUserHand(ctx, e.Less, sortTime)

	case transport.MsgHandSync:
		var p transport.HandSync
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if err := e.ctrl.SyncUserHand(ctx, p.Cards, p.RecipientID); err != nil {
			return err
		}
		return e.ctrl.SortUserHand(ctx, e.Less, sortTime)

	case transport.MsgYourTurn, transport.MsgPlayerTimedOut,
		transport.MsgRoundComplete, transport.MsgGameOver:
		// Prompt and score messages carry no table animation.
		return nil

	case transport.MsgError:
		var p transport.ErrorPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		e.log.Warnf("server error %s: %s", p.Code, p.Message)
		return nil
	}
	return fmt.Errorf("euchre: unknown message %q", msg.Name)
}

// Timeout implements MessageHandler.
func (e *Euchre) Timeout(name string) time.Duration {
	switch name {
	case transport.MsgCardPlayed:
		return fallbackTimeout(playTotal)
	case transport.MsgTrickComplete:
		return fallbackTimeout(trickTotal)
	case transport.MsgHandSync:
		return fallbackTimeout(syncTotal, sortTime)
	case transport.MsgGameState:
		// Full rebuild: a deal's worth of staggered flights.
		return fallbackTimeout(24*dealStagger, dealFlight, revealTime, sortTime)
	default:
		return fallbackTimeout()
	}
}

// restoreState rebuilds the table from an authoritative snapshot: layout and
// deal replayed instantly, mid-trick cards put back in the play area.
func (e *Euchre) restoreState(ctx context.Context, state transport.GameState) error {
	players := playersFromState(state)
	e.SetTrump(cards.Suit(state.TrumpSuit))

	w, h := e.boardSize()
	if err := e.ctrl.SetupTable(w, h, players, state.DealerSeat); err != nil {
		return err
	}

	opts := choreo.DealOptions{KeepRemainingCards: state.TurnUpCard != nil}
	if state.TurnUpCard != nil {
		opts.ExtraDeckCards = []cards.Card{*state.TurnUpCard}
		opts.FlipTopCard = true
		opts.TurnUpCardID = state.TurnUpCard.ID
	}
	if err := e.ctrl.Deal(ctx, opts); err != nil {
		return err
	}
	if err := e.ctrl.RevealUserHand(ctx, 0); err != nil {
		return err
	}
	if err := e.ctrl.SortUserHand(ctx, e.Less, 0); err != nil {
		return err
	}

	for i, pc := range state.PlayedCards {
		if err := e.ctrl.PlayCard(ctx, pc.Card, pc.PlayerID, i); err != nil {
			return err
		}
	}
	return nil
}
