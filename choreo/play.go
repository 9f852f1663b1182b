package choreo

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
)

const (
	playFlight = 300 * time.Millisecond
	refanDelay = 150 * time.Millisecond
	refanTime  = 200 * time.Millisecond
	sweepTime  = 400 * time.Millisecond
	stackTime  = 350 * time.Millisecond
	hideTime   = 250 * time.Millisecond
)

// PlayCard moves one card from its owner's hand to the shared play area. Safe
// to invoke twice for the same card: if any pile already holds it, the call
// is a no-op. When the card is not physically present in the visual hand
// (multiplayer opponent placeholders), a placeholder slot is consumed and the
// flight starts from the seat's nominal hand position.
func (c *Controller) PlayCard(ctx context.Context, card cards.Card, playerID string, cardIndex int) error {
	pile := c.eng.Pile(playAreaID)
	if pile == nil {
		return nil
	}

	// Double-handling guard, across every pile. A card played through a
	// placeholder sits in the pile under the placeholder's ID, so match by
	// face as well as by ID.
	for _, p := range c.eng.Piles() {
		for _, mc := range p.Cards() {
			if mc.Card.ID == card.ID || mc.Card.Equals(card) {
				c.log.Tracef("playCard: %s already played", card.ID)
				return nil
			}
		}
	}

	c.mu.Lock()
	seat := c.seatOf(playerID)
	if seat < 0 {
		c.mu.Unlock()
		c.log.Tracef("playCard: unknown player %s", playerID)
		return nil
	}
	target := c.playTarget(seat, cardIndex)
	c.playCount++
	hidden := c.hiddenSeats[seat]
	seatPos := c.table.Seats[seat].HandPosition
	c.mu.Unlock()

	hand := c.eng.Hand(seat)
	if hand == nil {
		return nil
	}

	mc := c.materialize(hand, card, seatPos)
	if mc == nil {
		return nil
	}

	// The card should read as face up while it flies, whatever the engine
	// believes about it.
	c.eng.EnsureRenderedFace(mc.Card.ID, true)
	pile.SetCardTarget(mc.Card.ID, target)
	if err := c.eng.MoveCard(ctx, mc.Card.ID, pile, &target, playFlight); err != nil {
		return err
	}

	// Close the gap the departing card left, after a beat.
	if hand.Len() > 0 && !hidden {
		if err := c.eng.Clock().Sleep(ctx, refanDelay); err != nil {
			return err
		}
		hand.InvalidateArc()
		return c.eng.AnimateContainer(ctx, hand, refanTime)
	}
	return nil
}

// materialize resolves the managed card for a play. Order of preference: the
// real card in the hand; a placeholder slot revealed in place (ID preserved
// so the bound visual element survives); a synthesized card snapped to the
// seat position so the flight has an origin.
func (c *Controller) materialize(hand *engine.Hand, card cards.Card, seatPos layout.Point) *engine.ManagedCard {
	if _, mc := hand.Find(card.ID); mc != nil {
		return mc
	}

	for _, mc := range hand.Cards() {
		if cards.IsPlaceholder(mc.Card.ID) {
			mc.Card.Reveal(card.Suit, card.Rank)
			return mc
		}
	}

	// Desync: the hand has neither the card nor a placeholder. Synthesize
	// an origin rather than failing the play.
	mc := c.eng.AddCardToHand(hand, card, false)
	if mc.View != nil {
		mc.View.Snap(engine.Transform{X: seatPos.X, Y: seatPos.Y, Scale: hand.Scale(), Rotation: hand.Rotation()})
	}
	return mc
}

// playTarget computes where a played card lands.
func (c *Controller) playTarget(seat, cardIndex int) engine.Transform {
	center := c.table.Center
	cardW := c.vp.BaseCardWidth()
	scale := c.vp.Scale(layout.UsagePlayArea)
	// Deterministic pseudo-random rotation, seeded by play index so replays
	// and resyncs land cards identically.
	r := rand.New(rand.NewSource(int64(c.playCount)))
	jitter := (r.Float64()*2 - 1) * 8

	if c.cfg.TrickLayout == TrickLayoutOverlay {
		group := c.playCount % 3
		return engine.Transform{
			X:        center.X + float64(group-1)*cardW*0.5 + float64(cardIndex)*cardW*0.25,
			Y:        center.Y,
			Scale:    scale,
			Rotation: jitter,
		}
	}

	// Converge toward center with a per-seat directional offset.
	s := c.table.Seats[seat]
	rad := s.AngleToCenter * math.Pi / 180
	return engine.Transform{
		X:        center.X - math.Cos(rad)*cardW*0.45,
		Y:        center.Y - math.Sin(rad)*cardW*0.45,
		Scale:    scale,
		Rotation: jitter,
	}
}

// CompleteTrick resolves the shared pile: sweep mode flies everything off
// board and clears; stack mode flies the cards to the winner's personal
// won-trick pile, successive tricks offset outward along the table edge.
func (c *Controller) CompleteTrick(ctx context.Context, winnerID string) error {
	pile := c.eng.Pile(playAreaID)
	if pile == nil || pile.Len() == 0 {
		return nil
	}

	if c.cfg.CompleteMode == CompleteSweep {
		return c.sweepTrick(ctx, pile, winnerID)
	}
	return c.stackTrick(ctx, pile, winnerID)
}

func (c *Controller) sweepTrick(ctx context.Context, pile *engine.Pile, winnerID string) error {
	c.mu.Lock()
	seat := c.seatOf(winnerID)
	off := engine.Transform{X: c.boardW / 2, Y: -c.vp.BaseCardWidth() * 3, Scale: c.vp.Scale(layout.UsageSweep)}
	if seat >= 0 {
		// Sweep toward the winner's edge.
		s := c.table.Seats[seat]
		rad := s.AngleToCenter * math.Pi / 180
		off.X = s.HandPosition.X - math.Cos(rad)*c.vp.BaseCardWidth()*4
		off.Y = s.HandPosition.Y - math.Sin(rad)*c.vp.BaseCardWidth()*4
	}
	c.tricksWon[winnerID]++
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, mc := range pile.Cards() {
		if mc.View == nil {
			continue
		}
		view := mc.View
		g.Go(func() error {
			return view.Animate(gctx, off, sweepTime)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, mc := range pile.Clear() {
		c.eng.ClearCardRef(mc.Card.ID)
	}
	return nil
}

func (c *Controller) stackTrick(ctx context.Context, pile *engine.Pile, winnerID string) error {
	c.mu.Lock()
	seat := c.seatOf(winnerID)
	if seat < 0 {
		c.mu.Unlock()
		c.log.Tracef("completeTrick: unknown winner %s", winnerID)
		return nil
	}
	trickIndex := c.tricksWon[winnerID]
	c.tricksWon[winnerID]++
	pos := c.trickPilePosition(seat, trickIndex)
	rotation := c.table.Seats[seat].Rotation
	scale := c.vp.Scale(layout.UsageTricksWon)
	c.mu.Unlock()

	dest := c.eng.Pile(trickPileID(seat))
	if dest == nil {
		return nil
	}

	target := engine.Transform{X: pos.X, Y: pos.Y, Scale: scale, Rotation: rotation}
	played := append([]*engine.ManagedCard(nil), pile.Cards()...)
	g, gctx := errgroup.WithContext(ctx)
	for _, mc := range played {
		id := mc.Card.ID
		dest.SetCardTarget(id, target)
		g.Go(func() error {
			return c.eng.MoveCard(gctx, id, dest, &target, stackTime)
		})
	}
	return g.Wait()
}

// HideOpponentHands collapses every non-user hand to near-zero scale at its
// owner's avatar, decluttering the table once hands are no longer
// inspectable.
func (c *Controller) HideOpponentHands(ctx context.Context) error {
	c.mu.Lock()
	hiddenScale := c.vp.Scale(layout.UsageHidden)
	type move struct {
		hand *engine.Hand
		pos  layout.Point
	}
	var moves []move
	for i, h := range c.eng.Hands() {
		if h.IsUser || i >= len(c.table.Seats) {
			continue
		}
		c.hiddenSeats[i] = true
		moves = append(moves, move{hand: h, pos: c.avatarPosition(i)})
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range moves {
		m.hand.SetPosition(m.pos)
		m.hand.SetScale(hiddenScale)
		g.Go(func() error {
			return c.eng.AnimateContainer(gctx, m.hand, hideTime)
		})
	}
	return g.Wait()
}

// RestoreHands brings hidden hands back to their seat slots. With animate
// false they snap instantly, which is how a resumed saved game comes back.
func (c *Controller) RestoreHands(ctx context.Context, animate bool) error {
	c.mu.Lock()
	scale := c.vp.Scale(layout.UsageOpponentHand)
	var hands []*engine.Hand
	for i, h := range c.eng.Hands() {
		if !c.hiddenSeats[i] || i >= len(c.table.Seats) {
			continue
		}
		delete(c.hiddenSeats, i)
		h.SetPosition(c.table.Seats[i].HandPosition)
		h.SetScale(scale)
		hands = append(hands, h)
	}
	c.mu.Unlock()

	if !animate {
		for _, h := range hands {
			c.eng.SnapContainer(h)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hands {
		g.Go(func() error {
			return c.eng.AnimateContainer(gctx, h, hideTime)
		})
	}
	return g.Wait()
}
