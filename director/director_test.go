package director

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/choreo"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
	"github.com/sclarke500/cardtable/transport"
)

type recordingAnimator struct {
	mu     sync.Mutex
	phases []Phase
	block  chan struct{}
	active int32
	maxAct int32
}

func (a *recordingAnimator) AnimatePhase(ctx context.Context, snap Snapshot) error {
	cur := atomic.AddInt32(&a.active, 1)
	defer atomic.AddInt32(&a.active, -1)
	for {
		max := atomic.LoadInt32(&a.maxAct)
		if cur <= max || atomic.CompareAndSwapInt32(&a.maxAct, max, cur) {
			break
		}
	}

	a.mu.Lock()
	a.phases = append(a.phases, snap.Phase)
	a.mu.Unlock()

	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *recordingAnimator) seen() []Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Phase(nil), a.phases...)
}

func TestSoloDefersUntilBoardReady(t *testing.T) {
	anim := &recordingAnimator{}
	solo := NewSolo(anim, nil)

	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseDealing}))
	assert.Empty(t, anim.seen(), "nothing animates before the board mounts")

	require.NoError(t, solo.BoardReady(context.Background()))
	assert.Equal(t, []Phase{PhaseDealing}, anim.seen())
}

func TestSoloDropsRepeatedPhase(t *testing.T) {
	anim := &recordingAnimator{}
	solo := NewSolo(anim, nil)
	require.NoError(t, solo.BoardReady(context.Background()))

	for i := 0; i < 3; i++ {
		require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhasePlaying}))
	}
	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseTrickComplete}))

	assert.Equal(t, []Phase{PhasePlaying, PhaseTrickComplete}, anim.seen())
}

func TestSoloResetReplaysPhases(t *testing.T) {
	anim := &recordingAnimator{}
	solo := NewSolo(anim, nil)
	require.NoError(t, solo.BoardReady(context.Background()))

	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseDealing}))
	solo.Reset()
	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseDealing}))

	assert.Equal(t, []Phase{PhaseDealing, PhaseDealing}, anim.seen())
}

func TestSoloSerializesAnimations(t *testing.T) {
	anim := &recordingAnimator{block: make(chan struct{})}
	solo := NewSolo(anim, nil)
	require.NoError(t, solo.BoardReady(context.Background()))

	phases := []Phase{PhaseDealing, PhaseBidding, PhasePlaying, PhaseTrickComplete}
	var wg sync.WaitGroup
	for _, p := range phases {
		wg.Add(1)
		go func() {
			defer wg.Done()
			solo.StateChanged(context.Background(), Snapshot{Phase: p})
		}()
	}
	// Release one animation at a time.
	for i := 0; i < len(phases); i++ {
		anim.block <- struct{}{}
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&anim.maxAct), "animations overlapped")
	assert.Len(t, anim.seen(), len(phases))
}

func TestSoloSettledCallback(t *testing.T) {
	anim := &recordingAnimator{}
	solo := NewSolo(anim, nil)
	var settled []Phase
	solo.OnSettled = func(p Phase) { settled = append(settled, p) }
	require.NoError(t, solo.BoardReady(context.Background()))

	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseDealing}))
	require.NoError(t, solo.StateChanged(context.Background(), Snapshot{Phase: PhaseBidding}))
	assert.Equal(t, []Phase{PhaseDealing, PhaseBidding}, settled)
}

func TestSoloDoSharesGate(t *testing.T) {
	anim := &recordingAnimator{block: make(chan struct{})}
	solo := NewSolo(anim, nil)
	require.NoError(t, solo.BoardReady(context.Background()))

	go solo.StateChanged(context.Background(), Snapshot{Phase: PhaseDealing})
	require.Eventually(t, func() bool {
		return len(anim.seen()) == 1
	}, 2*time.Second, time.Millisecond, "phase animation never started")

	// The phase animation holds the gate until released; Do must wait.
	var ran atomic.Bool
	done := make(chan struct{})
	go func() {
		solo.Do(context.Background(), func(context.Context) error {
			ran.Store(true)
			return nil
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load(), "Do ran while a phase animation held the gate")

	anim.block <- struct{}{}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Do never ran after the gate freed")
	}
	assert.True(t, ran.Load())
}

type recordingHandler struct {
	mu      sync.Mutex
	names   []string
	perMsg  time.Duration
	timeout time.Duration
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg transport.Message) error {
	if h.perMsg > 0 {
		select {
		case <-time.After(h.perMsg):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.mu.Lock()
	h.names = append(h.names, msg.Name)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) Timeout(string) time.Duration { return h.timeout }

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.names...)
}

func TestQueuePreservesOrder(t *testing.T) {
	handler := &recordingHandler{perMsg: 5 * time.Millisecond, timeout: time.Second}
	q := NewQueue(handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	names := []string{
		transport.MsgCardPlayed, transport.MsgCardPlayed, transport.MsgCardPlayed,
		transport.MsgCardPlayed, transport.MsgTrickComplete, transport.MsgYourTurn,
	}
	for _, name := range names {
		require.NoError(t, q.Enqueue(transport.Message{Name: name}))
	}

	require.Eventually(t, func() bool {
		return len(handler.seen()) == len(names)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, names, handler.seen())
}

func TestQueueTimeoutTriggersDesync(t *testing.T) {
	handler := &recordingHandler{perMsg: time.Second, timeout: 20 * time.Millisecond}
	q := NewQueue(handler, nil)

	desynced := make(chan error, 1)
	q.OnDesync = func(err error) { desynced <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Enqueue(transport.Message{Name: transport.MsgCardPlayed}))

	select {
	case err := <-desynced:
		assert.ErrorIs(t, err, ErrDesync)
	case <-time.After(2 * time.Second):
		t.Fatal("desync never fired")
	}
}

func TestQueueWatchdogEscalatesServerSilence(t *testing.T) {
	handler := &recordingHandler{timeout: time.Second}
	q := NewQueue(handler, nil)
	q.Idle = 20 * time.Millisecond

	desynced := make(chan error, 8)
	q.OnDesync = func(err error) { desynced <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	// No messages arrive at all. The watchdog notices.
	select {
	case err := <-desynced:
		assert.ErrorIs(t, err, ErrDesync)
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog never fired")
	}
}

func TestQueueWatchdogDisarmedWhileNotAwaiting(t *testing.T) {
	handler := &recordingHandler{timeout: time.Second}
	q := NewQueue(handler, nil)
	q.Idle = 15 * time.Millisecond
	q.AwaitServer(false)

	desynced := make(chan error, 8)
	q.OnDesync = func(err error) { desynced <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	time.Sleep(5 * q.Idle)
	assert.Empty(t, desynced)
}

func TestFallbackTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, fallbackTimeout())
	assert.Equal(t, 2*time.Second, fallbackTimeout(time.Second))
	assert.Equal(t, 6*time.Second, fallbackTimeout(3*time.Second, time.Second))
}

func newEuchreDirector(t *testing.T) (*Euchre, *choreo.Controller) {
	t.Helper()
	eng := engine.New(engine.ImmediateClock{}, nil)
	vp := layout.NewViewport(1000, 700)
	ctrl := choreo.New(eng, vp, EuchreConfig(nil))
	return NewEuchre(ctrl, 1000, 700, nil), ctrl
}

func euchreSnapshot() Snapshot {
	deck := cards.NewEuchreDeck()
	players := make([]choreo.Player, 4)
	for i := range players {
		players[i] = choreo.Player{
			ID:      []string{"p0", "p1", "p2", "p3"}[i],
			IsHuman: i == 0,
			Hand:    deck[i*5 : i*5+5],
		}
	}
	turnUp := deck[23]
	return Snapshot{
		Players:    players,
		DealerSeat: 0,
		Kitty:      deck[20:24],
		TurnUpCard: &turnUp,
	}
}

func TestEuchreDealPhase(t *testing.T) {
	dir, ctrl := newEuchreDirector(t)
	snap := euchreSnapshot()

	snap.Phase = PhaseSetup
	require.NoError(t, dir.AnimatePhase(context.Background(), snap))
	snap.Phase = PhaseDealing
	require.NoError(t, dir.AnimatePhase(context.Background(), snap))

	eng := ctrl.Engine()
	for seat := 0; seat < 4; seat++ {
		assert.Equal(t, 5, eng.Hand(seat).Len())
	}
	assert.Equal(t, 4, eng.Deck().Len(), "kitty stays in the deck")
}

func TestEuchreLessTrumpOrder(t *testing.T) {
	dir, _ := newEuchreDirector(t)
	dir.SetTrump(cards.Hearts)

	right := cards.New(cards.Hearts, cards.Jack)
	left := cards.New(cards.Diamonds, cards.Jack)
	aceTrump := cards.New(cards.Hearts, cards.Ace)
	aceOff := cards.New(cards.Spades, cards.Ace)

	assert.True(t, dir.Less(right, left), "right bower before left")
	assert.True(t, dir.Less(left, aceTrump), "left bower before trump ace")
	assert.True(t, dir.Less(aceTrump, aceOff), "trump before off suit")
	assert.False(t, dir.Less(aceOff, aceTrump))
}

func TestEuchreHandlesCardPlayed(t *testing.T) {
	dir, ctrl := newEuchreDirector(t)
	snap := euchreSnapshot()
	snap.Phase = PhaseSetup
	require.NoError(t, dir.AnimatePhase(context.Background(), snap))
	snap.Phase = PhaseDealing
	require.NoError(t, dir.AnimatePhase(context.Background(), snap))

	msg, err := transport.NewMessage(transport.MsgCardPlayed, transport.CardPlayed{
		PlayerID: "p1",
		Card:     snap.Players[1].Hand[0],
	})
	require.NoError(t, err)
	require.NoError(t, dir.HandleMessage(context.Background(), msg))

	assert.Equal(t, 1, ctrl.Engine().Pile("play-area").Len())
	assert.Equal(t, 4, ctrl.Engine().Hand(1).Len())
}

func TestEuchreUnknownMessage(t *testing.T) {
	dir, _ := newEuchreDirector(t)
	err := dir.HandleMessage(context.Background(), transport.Message{Name: "nonsense"})
	assert.Error(t, err)
}

func TestPresidentOrdersTwosHighest(t *testing.T) {
	eng := engine.New(engine.ImmediateClock{}, nil)
	ctrl := choreo.New(eng, layout.NewViewport(1000, 700), PresidentConfig(nil))
	dir := NewPresident(ctrl, 1000, 700, nil)

	two := cards.New(cards.Clubs, cards.Two)
	ace := cards.New(cards.Spades, cards.Ace)
	three := cards.New(cards.Hearts, cards.Three)

	assert.True(t, dir.Less(two, ace))
	assert.True(t, dir.Less(ace, three))
	assert.False(t, dir.Less(three, two))
}
