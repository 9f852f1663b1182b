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

// President animates a president (shedding) table: three to eight seats, the
// whole deck dealt out, multi-card plays overlaid in the middle, the pile
// swept when it clears.
type President struct {
	ctrl *choreo.Controller
	log  slog.Logger

	mu             sync.Mutex
	boardW, boardH float64
}

// NewPresident builds the president director for a board of the given size.
func NewPresident(ctrl *choreo.Controller, boardW, boardH float64, log slog.Logger) *President {
	if log == nil {
		log = slog.Disabled
	}
	return &President{ctrl: ctrl, log: log, boardW: boardW, boardH: boardH}
}

// PresidentConfig is the controller configuration president expects.
func PresidentConfig(log slog.Logger) choreo.Config {
	return choreo.Config{
		GameType:     "president",
		TrickLayout:  choreo.TrickLayoutOverlay,
		CompleteMode: choreo.CompleteSweep,
		Log:          log,
	}
}

// SetBoardSize records new board dimensions.
func (p *President) SetBoardSize(w, h float64) {
	p.mu.Lock()
	p.boardW, p.boardH = w, h
	p.mu.Unlock()
}

func (p *President) boardSize() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.boardW, p.boardH
}

func presidentValue(r cards.Rank) int {
	// Twos beat everything in president.
	if r == cards.Two {
		return 15
	}
	return r.Value()
}

// Less orders a president hand by game rank alone, strongest first; suit
// only breaks ties so equal ranks sit together.
func (p *President) Less(a, b cards.Card) bool {
	va, vb := presidentValue(a.Rank), presidentValue(b.Rank)
	if va != vb {
		return va > vb
	}
	return suitOrder(a.Suit, cards.Spades) < suitOrder(b.Suit, cards.Spades)
}

// AnimatePhase implements Animator.
func (p *President) AnimatePhase(ctx context.Context, snap Snapshot) error {
	switch snap.Phase {
	case PhaseSetup:
		w, h := p.boardSize()
		return p.ctrl.SetupTable(w, h, snap.Players, snap.DealerSeat)

	case PhaseDealing:
		if err := p.ctrl.Deal(ctx, choreo.DealOptions{
			Stagger: dealStagger,
			Flight:  dealFlight,
		}); err != nil {
			return err
		}
		if err := p.ctrl.RevealUserHand(ctx, revealTime); err != nil {
			return err
		}
		return p.ctrl.SortUserHand(ctx, p.Less, sortTime)

	case PhasePlaying:
		return nil

	case PhaseTrickComplete:
		// The pile cleared: everyone passed. Nobody owns the sweep.
		return p.ctrl.CompleteTrick(ctx, snap.TrickWinnerID)

	case PhaseRoundComplete, PhaseGameOver:
		return nil
	}
	p.log.Tracef("president: no animation for phase %s", snap.Phase)
	return nil
}

// HandleMessage implements MessageHandler.
func (p *President) HandleMessage(ctx context.Context, msg transport.Message) error {
	switch msg.Name {
	case transport.MsgGameState:
		var state transport.GameState
		if err := msg.Decode(&state); err != nil {
			return err
		}
		return p.restoreState(ctx, state)

	case transport.MsgCardPlayed:
		var played transport.CardPlayed
		if err := msg.Decode(&played); err != nil {
			return err
		}
		return p.ctrl.PlayCard(ctx, played.Card, played.PlayerID, played.CardIndex)

	case transport.MsgTrickComplete:
		var done transport.TrickComplete
		if err := msg.Decode(&done); err != nil {
			return err
		}
		return p.ctrl.CompleteTrick(ctx, done.WinnerID)

	case transport.MsgHandSync:
		// Card passing between president and scum at round start.
		var sync transport.HandSync
		if err := msg.Decode(&sync); err != nil {
			return err
		}
		if err := p.ctrl.SyncUserHand(ctx, sync.Cards, sync.RecipientID); err != nil {
			return err
		}
		return p.ctrl.SortUserHand(ctx, p.Less, sortTime)

	case transport.MsgBidMade, transport.MsgYourTurn, transport.MsgPlayerTimedOut,
		transport.MsgRoundComplete, transport.MsgGameOver:
		return nil

	case transport.MsgError:
		var e transport.ErrorPayload
		if err := msg.Decode(&e); err != nil {
			return err
		}
		p.log.Warnf("server error %s: %s", e.Code, e.Message)
		return nil
	}
	return fmt.Errorf("president: unknown message %q", msg.Name)
}

// Timeout implements MessageHandler.
func (p *President) Timeout(name string) time.Duration {
	switch name {
	case transport.MsgCardPlayed:
		return fallbackTimeout(playTotal)
	case transport.MsgTrickComplete:
		return fallbackTimeout(trickTotal)
	case transport.MsgHandSync:
		return fallbackTimeout(syncTotal, sortTime)
	case transport.MsgGameState:
		return fallbackTimeout(52*dealStagger, dealFlight, revealTime, sortTime)
	default:
		return fallbackTimeout()
	}
}

func (p *President) restoreState(ctx context.Context, state transport.GameState) error {
	players := playersFromState(state)
	w, h := p.boardSize()
	if err := p.ctrl.SetupTable(w, h, players, state.DealerSeat); err != nil {
		return err
	}
	if err := p.ctrl.Deal(ctx, choreo.DealOptions{}); err != nil {
		return err
	}
	if err := p.ctrl.RevealUserHand(ctx, 0); err != nil {
		return err
	}
	if err := p.ctrl.SortUserHand(ctx, p.Less, 0); err != nil {
		return err
	}
	for i, pc := range state.PlayedCards {
		if err := p.ctrl.PlayCard(ctx, pc.Card, pc.PlayerID, i); err != nil {
			return err
		}
	}
	return nil
}
