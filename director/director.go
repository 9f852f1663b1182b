// Package director drives game-specific animation flows on top of the
// generic choreography controller. A director translates rules-engine state
// (single player) or server messages (multiplayer) into controller calls.
//
// The two regimes differ in how work arrives. Single player reacts to state
// snapshots and must not animate the same phase twice; multiplayer consumes a
// strictly ordered message queue where each message's animation finishes
// before the next is applied.
package director

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/semaphore"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/choreo"
)

// Phase represents the current stage of a hand.
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhaseDealing       Phase = "dealing"
	PhaseBidding       Phase = "bidding"
	PhaseDealerDiscard Phase = "dealer_discard"
	PhasePlaying       Phase = "playing"
	PhaseTrickComplete Phase = "trick_complete"
	PhaseRoundComplete Phase = "round_complete"
	PhaseGameOver      Phase = "game_over"
)

func (p Phase) Equal(other Phase) bool { return p == other }

// Snapshot is the rules-engine state a director animates from. It carries
// everything any supported game needs; fields irrelevant to a game stay
// zero.
type Snapshot struct {
	Phase         Phase
	Players       []choreo.Player
	DealerSeat    int
	TurnPlayerID  string
	TrickWinnerID string
	TrumpSuit     cards.Suit
	TurnUpCard    *cards.Card
	Kitty         []cards.Card
	UserHand      []cards.Card
}

// Animator is the per-game phase animation hook the solo regime drives.
type Animator interface {
	AnimatePhase(ctx context.Context, snap Snapshot) error
}

// Solo serializes phase animations for a local rules engine. State snapshots
// may arrive while a previous animation is still running; the gate makes the
// new one wait instead of overlapping. Snapshots that arrive before the
// board has registered its card elements are deferred until BoardReady.
type Solo struct {
	log  slog.Logger
	anim Animator
	gate *semaphore.Weighted

	mu         sync.Mutex
	boardReady bool
	lastPhase  Phase
	pending    *Snapshot

	// OnSettled, when set, fires after each phase animation completes. The
	// rules engine uses it to advance AI turns only once the table is
	// visually caught up.
	OnSettled func(Phase)
}

// NewSolo creates the single-player regime around a game's animator.
func NewSolo(anim Animator, log slog.Logger) *Solo {
	if log == nil {
		log = slog.Disabled
	}
	return &Solo{
		log:  log,
		anim: anim,
		gate: semaphore.NewWeighted(1),
	}
}

// BoardReady marks the rendering surface as mounted and replays the snapshot
// that was deferred while it wasn't, if any.
func (s *Solo) BoardReady(ctx context.Context) error {
	s.mu.Lock()
	s.boardReady = true
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snap == nil {
		return nil
	}
	s.log.Debugf("board ready, replaying deferred %s", snap.Phase)
	return s.StateChanged(ctx, *snap)
}

// StateChanged animates the transition into snap's phase. Repeated
// notifications for the same phase are dropped, so a rules engine may publish
// its state freely. Blocks until the animation completes.
func (s *Solo) StateChanged(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	if !s.boardReady {
		s.pending = &snap
		s.mu.Unlock()
		s.log.Tracef("board not ready, deferring %s", snap.Phase)
		return nil
	}
	if snap.Phase == s.lastPhase {
		s.mu.Unlock()
		return nil
	}
	s.lastPhase = snap.Phase
	s.mu.Unlock()

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.gate.Release(1)

	if err := s.anim.AnimatePhase(ctx, snap); err != nil {
		return err
	}
	if s.OnSettled != nil {
		s.OnSettled(snap.Phase)
	}
	return nil
}

// Do runs an ad-hoc animation (a card play, a trick completion) under the
// same gate as phase animations, so the rules engine can await the visual
// consequence of an action before advancing turn state.
func (s *Solo) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.gate.Release(1)
	return fn(ctx)
}

// Reset clears the phase memory so the next hand's phases animate again.
func (s *Solo) Reset() {
	s.mu.Lock()
	s.lastPhase = ""
	s.pending = nil
	s.mu.Unlock()
}

// fallbackTimeout bounds one message's animation: the sum of its expected
// animation durations plus half again as margin, never under two seconds.
// A stuck animation must not stall the whole queue.
func fallbackTimeout(durations ...time.Duration) time.Duration {
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	sum += sum / 2
	if sum < 2*time.Second {
		sum = 2 * time.Second
	}
	return sum
}
