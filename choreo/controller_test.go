package choreo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
)

type fakeView struct {
	mu       sync.Mutex
	snaps    []engine.Transform
	animates []engine.Transform
}

func (v *fakeView) Snap(t engine.Transform) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snaps = append(v.snaps, t)
}

func (v *fakeView) Animate(ctx context.Context, to engine.Transform, d time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.animates = append(v.animates, to)
	return ctx.Err()
}

func (v *fakeView) last() (engine.Transform, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.animates) == 0 {
		return engine.Transform{}, false
	}
	return v.animates[len(v.animates)-1], true
}

func euchrePlayers() []Player {
	deck := cards.NewEuchreDeck()
	players := make([]Player, 4)
	for i := range players {
		players[i] = Player{
			ID:      []string{"p0", "p1", "p2", "p3"}[i],
			Name:    []string{"You", "West", "North", "East"}[i],
			IsHuman: i == 0,
			Hand:    deck[i*5 : i*5+5],
		}
	}
	return players
}

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	eng := engine.New(engine.ImmediateClock{}, nil)
	vp := layout.NewViewport(1000, 700)
	return New(eng, vp, cfg)
}

func TestSetupTableContainers(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	require.NoError(t, c.SetupTable(1000, 700, euchrePlayers(), 0))

	eng := c.Engine()
	require.NotNil(t, eng.Deck())
	require.Len(t, eng.Hands(), 4)
	require.NotNil(t, eng.Pile("play-area"))
	assert.Nil(t, eng.Pile("tricks-won-0"))

	assert.True(t, eng.Hand(0).IsUser)
	for i := 1; i < 4; i++ {
		assert.False(t, eng.Hand(i).IsUser)
	}
}

func TestSetupTableStackModePiles(t *testing.T) {
	c := newTestController(t, Config{GameType: "spades", CompleteMode: CompleteStack})
	require.NoError(t, c.SetupTable(1000, 700, euchrePlayers(), 2))

	for i := 0; i < 4; i++ {
		require.NotNil(t, c.Engine().Pile(trickPileID(i)))
	}
}

func TestDealRoundRobinWithKitty(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))

	deck := cards.NewEuchreDeck()
	kitty := deck[20:24]
	err := c.Deal(context.Background(), DealOptions{
		ExtraDeckCards:     kitty,
		KeepRemainingCards: true,
		FlipTopCard:        true,
	})
	require.NoError(t, err)

	eng := c.Engine()
	for seat, p := range players {
		h := eng.Hand(seat)
		require.Equal(t, 5, h.Len(), "seat %d", seat)
		for k, mc := range h.Cards() {
			assert.Equal(t, p.Hand[k].ID, mc.Card.ID, "seat %d card %d", seat, k)
		}
	}

	// The kitty survives in the deck with the turn-up on top.
	require.Equal(t, 4, eng.Deck().Len())
	top := eng.Deck().Cards()[eng.Deck().Len()-1]
	assert.Equal(t, kitty[3].ID, top.Card.ID)
	assert.True(t, engine.RenderedFaceUp(top.FaceUp, top.FlipAngle))
}

func TestDealDiscardsRemainderByDefault(t *testing.T) {
	c := newTestController(t, Config{GameType: "spades"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))

	require.NoError(t, c.Deal(context.Background(), DealOptions{
		ExtraDeckCards: cards.NewEuchreDeck()[20:24],
	}))
	assert.Equal(t, 0, c.Engine().Deck().Len())
}

func TestDealSynthesizesPlaceholders(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	// Opponents' cards are unknown in multiplayer.
	for i := 1; i < 4; i++ {
		players[i].Hand = nil
		players[i].HandSize = 5
	}
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	for seat := 1; seat < 4; seat++ {
		h := c.Engine().Hand(seat)
		require.Equal(t, 5, h.Len())
		for _, mc := range h.Cards() {
			assert.True(t, cards.IsPlaceholder(mc.Card.ID))
		}
	}
}

func TestPlayCardIdempotent(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	card := players[1].Hand[0]
	require.NoError(t, c.PlayCard(context.Background(), card, "p1", 0))
	require.NoError(t, c.PlayCard(context.Background(), card, "p1", 0))

	assert.Equal(t, 1, c.Engine().Pile(playAreaID).Len())
	assert.Equal(t, 4, c.Engine().Hand(1).Len())
}

func TestPlayCardMaterializesPlaceholder(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	played := players[2].Hand[3]
	players[2].Hand = nil
	players[2].HandSize = 5
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	require.NoError(t, c.PlayCard(context.Background(), played, "p2", 0))

	pile := c.Engine().Pile(playAreaID)
	require.Equal(t, 1, pile.Len())
	mc := pile.Cards()[0]
	// The placeholder was revealed in place: real suit and rank, but the
	// original placeholder ID so the bound visual element carries over.
	assert.Equal(t, played.Suit, mc.Card.Suit)
	assert.Equal(t, played.Rank, mc.Card.Rank)
	assert.True(t, cards.IsPlaceholder(mc.Card.ID))
	assert.Equal(t, 4, c.Engine().Hand(2).Len())
}

func TestPlayCardIdempotentWithPlaceholders(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	played := players[2].Hand[0]
	players[2].Hand = nil
	players[2].HandSize = 5
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	// A server retry delivers the same play twice. The pile holds the card
	// under its placeholder's ID, so the repeat must not consume a second
	// placeholder slot.
	require.NoError(t, c.PlayCard(context.Background(), played, "p2", 0))
	require.NoError(t, c.PlayCard(context.Background(), played, "p2", 0))

	pile := c.Engine().Pile(playAreaID)
	assert.Equal(t, 1, pile.Len())
	copies := 0
	for _, mc := range pile.Cards() {
		if mc.Card.Equals(played) {
			copies++
		}
	}
	assert.Equal(t, 1, copies)
	assert.Equal(t, 4, c.Engine().Hand(2).Len())
}

func TestLayoutChangeReprojectsPlayedCards(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	view := &fakeView{}
	card := players[1].Hand[0]
	c.Engine().SetCardRef(card.ID, view)
	require.NoError(t, c.PlayCard(context.Background(), card, "p1", 0))

	// Rotate to portrait. The played card follows the relocated play area
	// rather than the flight target registered on the old board.
	require.NoError(t, c.HandleLayoutChange(context.Background(), 700, 1000, 0))
	got, ok := view.last()
	require.True(t, ok)

	want := c.Engine().Pile(playAreaID).TargetFor(0)
	assert.InDelta(t, want.X, got.X, 0.001)
	assert.InDelta(t, want.Y, got.Y, 0.001)
}

func TestPlayCardUnknownPlayerIsNoop(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	require.NoError(t, c.SetupTable(1000, 700, euchrePlayers(), 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	require.NoError(t, c.PlayCard(context.Background(), cards.New(cards.Spades, cards.Ace), "nobody", 0))
	assert.Equal(t, 0, c.Engine().Pile(playAreaID).Len())
}

func TestCompleteTrickSweepClearsPile(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre", CompleteMode: CompleteSweep})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	for i, p := range players {
		require.NoError(t, c.PlayCard(context.Background(), p.Hand[0], p.ID, i))
	}
	require.Equal(t, 4, c.Engine().Pile(playAreaID).Len())

	require.NoError(t, c.CompleteTrick(context.Background(), "p1"))
	assert.Equal(t, 0, c.Engine().Pile(playAreaID).Len())
	assert.Equal(t, 1, c.TricksWon("p1"))
}

func TestCompleteTrickStacksWithOffset(t *testing.T) {
	c := newTestController(t, Config{GameType: "spades", CompleteMode: CompleteStack})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	view := &fakeView{}
	first := players[0].Hand[0]
	c.Engine().SetCardRef(first.ID, view)

	require.NoError(t, c.PlayCard(context.Background(), first, "p0", 0))
	require.NoError(t, c.CompleteTrick(context.Background(), "p0"))
	firstTarget, ok := view.last()
	require.True(t, ok)

	second := players[0].Hand[1]
	c.Engine().SetCardRef(second.ID, view)
	require.NoError(t, c.PlayCard(context.Background(), second, "p0", 1))
	require.NoError(t, c.CompleteTrick(context.Background(), "p0"))
	secondTarget, ok := view.last()
	require.True(t, ok)

	assert.Equal(t, 2, c.TricksWon("p0"))
	assert.Equal(t, 2, c.Engine().Pile(trickPileID(0)).Len())
	// Seat 0 is on the bottom edge, so successive tricks shift right.
	assert.Greater(t, secondTarget.X, firstTarget.X)
}

func TestHideAndRestoreOpponentHands(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	require.NoError(t, c.SetupTable(1000, 700, euchrePlayers(), 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	userPos := c.Engine().Hand(0).Position()
	oppSeatPos := c.Table().Seats[1].HandPosition

	require.NoError(t, c.HideOpponentHands(context.Background()))
	assert.Equal(t, userPos, c.Engine().Hand(0).Position(), "user hand stays put")
	assert.NotEqual(t, oppSeatPos, c.Engine().Hand(1).Position())
	assert.InDelta(t, 0.01, c.Engine().Hand(1).Scale(), 0.001)

	require.NoError(t, c.RestoreHands(context.Background(), false))
	assert.Equal(t, oppSeatPos, c.Engine().Hand(1).Position())
	assert.Greater(t, c.Engine().Hand(1).Scale(), 0.1)
}

func TestSyncUserHandDiff(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	have := players[0].Hand // five cards
	replacement := cards.New(cards.Hearts, cards.Ace)
	if _, mc := c.Engine().Hand(0).Find(replacement.ID); mc != nil {
		replacement = cards.New(cards.Clubs, cards.Ace)
	}
	want := append([]cards.Card{replacement}, have[1:]...)

	require.NoError(t, c.SyncUserHand(context.Background(), want, "p1"))

	h := c.Engine().Hand(0)
	require.Equal(t, 5, h.Len())
	_, gone := h.Find(have[0].ID)
	assert.Nil(t, gone)
	_, added := h.Find(replacement.ID)
	assert.NotNil(t, added)
}

func TestSyncUserHandNoChangesAnimatesNothing(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	view := &fakeView{}
	for _, mc := range c.Engine().Hand(0).Cards() {
		c.Engine().SetCardRef(mc.Card.ID, view)
	}
	view.mu.Lock()
	view.animates = nil
	view.mu.Unlock()

	require.NoError(t, c.SyncUserHand(context.Background(), players[0].Hand, ""))
	_, animated := view.last()
	assert.False(t, animated)
}

func TestRevealHiddenHandReplacesCards(t *testing.T) {
	c := newTestController(t, Config{GameType: "spades"})
	players := euchrePlayers()
	revealed := players[3].Hand
	players[3].Hand = nil
	players[3].HandSize = 5
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	require.NoError(t, c.RevealHiddenHand(context.Background(), "p3", revealed, 100*time.Millisecond))

	h := c.Engine().Hand(3)
	require.Equal(t, 5, h.Len())
	for k, mc := range h.Cards() {
		assert.Equal(t, revealed[k].ID, mc.Card.ID)
		assert.False(t, cards.IsPlaceholder(mc.Card.ID))
	}
}

func TestHandleLayoutChangeRepositionsContainers(t *testing.T) {
	c := newTestController(t, Config{GameType: "euchre"})
	require.NoError(t, c.SetupTable(1000, 700, euchrePlayers(), 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	before := c.Table()
	require.NoError(t, c.HandleLayoutChange(context.Background(), 700, 1000, 100*time.Millisecond))
	after := c.Table()

	assert.NotEqual(t, before.Center, after.Center)
	assert.Equal(t, after.Center, c.Engine().Pile(playAreaID).Position())
	for i, h := range c.Engine().Hands() {
		assert.Equal(t, after.Seats[i].HandPosition, h.Position(), "seat %d", i)
	}
}

func TestSortUserHandReordersAndKeepsCards(t *testing.T) {
	c := newTestController(t, Config{GameType: "president"})
	players := euchrePlayers()
	require.NoError(t, c.SetupTable(1000, 700, players, 0))
	require.NoError(t, c.Deal(context.Background(), DealOptions{}))

	byID := func(a, b cards.Card) bool { return a.ID < b.ID }
	require.NoError(t, c.SortUserHand(context.Background(), byID, 100*time.Millisecond))

	h := c.Engine().Hand(0)
	require.Equal(t, 5, h.Len())
	for k := 1; k < h.Len(); k++ {
		assert.True(t, h.Cards()[k-1].Card.ID <= h.Cards()[k].Card.ID)
	}

	// Sorting an already sorted hand is stable.
	orderBefore := make([]string, 0, h.Len())
	for _, mc := range h.Cards() {
		orderBefore = append(orderBefore, mc.Card.ID)
	}
	require.NoError(t, c.SortUserHand(context.Background(), byID, 100*time.Millisecond))
	for k, mc := range h.Cards() {
		assert.Equal(t, orderBefore[k], mc.Card.ID)
	}
}
