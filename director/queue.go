package director

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/decred/slog"

	"github.com/sclarke500/cardtable/choreo"
	"github.com/sclarke500/cardtable/transport"
)

// playersFromState converts a wire player list to controller players.
func playersFromState(state transport.GameState) []choreo.Player {
	players := make([]choreo.Player, len(state.Players))
	for i, p := range state.Players {
		players[i] = choreo.Player{
			ID:       p.ID,
			Name:     p.Name,
			IsHuman:  p.IsHuman,
			Hand:     p.Cards,
			HandSize: p.HandSize,
		}
	}
	return players
}

const (
	queueBuffer = 128
	// watchdogIdle is how long the queue tolerates total server silence
	// while armed before escalating to a resync.
	watchdogIdle = 30 * time.Second
)

// MessageHandler is the per-game message dispatch the queue regime drives.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg transport.Message) error
	// Timeout returns the fallback deadline for a message's animation.
	Timeout(name string) time.Duration
}

// ErrDesync signals that the visual state can no longer be trusted and a
// fresh game_state push is needed.
var ErrDesync = errors.New("table desynced")

// Queue applies server messages strictly in arrival order, one at a time,
// each message's animation finishing (or timing out) before the next starts.
// Messages keep queueing while an animation runs; nothing is dropped.
type Queue struct {
	log      slog.Logger
	handler  MessageHandler
	msgs     chan transport.Message
	awaiting atomic.Bool

	// Idle overrides the watchdog window when set before Run.
	Idle time.Duration

	// OnDesync, when set, fires when a message times out, the queue
	// overflows, or the watchdog trips. The owner requests a full state
	// resync.
	OnDesync func(reason error)
}

// NewQueue creates the multiplayer regime around a game's message handler.
func NewQueue(handler MessageHandler, log slog.Logger) *Queue {
	if log == nil {
		log = slog.Disabled
	}
	q := &Queue{
		log:     log,
		handler: handler,
		msgs:    make(chan transport.Message, queueBuffer),
	}
	q.awaiting.Store(true)
	return q
}

// AwaitServer arms or disarms the idle watchdog. Armed (the default) means
// the client is waiting on the server, so prolonged silence is a stall worth
// escalating. Disarm it while the local player is the one holding things up.
func (q *Queue) AwaitServer(on bool) {
	q.awaiting.Store(on)
}

// Enqueue adds a message to the tail of the queue without blocking.
func (q *Queue) Enqueue(msg transport.Message) error {
	select {
	case q.msgs <- msg:
		return nil
	default:
		err := fmt.Errorf("%w: queue full, dropped %s", ErrDesync, msg.Name)
		q.desync(err)
		return err
	}
}

// Run drains the queue until ctx is canceled. Each message is handled under
// its own fallback deadline; a timeout triggers a desync instead of stalling
// everything behind it. A liveness watchdog, reset by every received
// message, escalates to a desync when the server goes silent while the
// client is awaiting it.
func (q *Queue) Run(ctx context.Context) error {
	idle := q.Idle
	if idle <= 0 {
		idle = watchdogIdle
	}
	watchdog := time.NewTimer(idle)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q.msgs:
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(idle)
			q.apply(ctx, msg)
		case <-watchdog.C:
			if q.awaiting.Load() {
				q.desync(fmt.Errorf("%w: no server update in %s", ErrDesync, idle))
			}
			watchdog.Reset(idle)
		}
	}
}

func (q *Queue) apply(ctx context.Context, msg transport.Message) {
	timeout := q.handler.Timeout(msg.Name)
	if timeout <= 0 {
		timeout = fallbackTimeout()
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := q.handler.HandleMessage(mctx, msg)
	switch {
	case err == nil:
		q.log.Tracef("applied %s in %s", msg.Name, time.Since(start))
	case errors.Is(err, context.DeadlineExceeded):
		q.desync(fmt.Errorf("%w: %s animation exceeded %s", ErrDesync, msg.Name, timeout))
	case ctx.Err() != nil:
		// Shutting down, nothing to report.
	default:
		q.log.Errorf("handling %s: %v", msg.Name, err)
	}
}

func (q *Queue) desync(err error) {
	q.log.Warnf("%v", err)
	if q.OnDesync != nil {
		q.OnDesync(err)
	}
}

// Feed pumps a transport feed into the queue until the feed closes or ctx is
// canceled. Run must be draining the queue concurrently.
func (q *Queue) Feed(ctx context.Context, incoming <-chan transport.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-incoming:
			if !ok {
				return nil
			}
			if err := q.Enqueue(msg); err != nil {
				return err
			}
		}
	}
}
