package choreo

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
)

// DealOptions configures a deal.
type DealOptions struct {
	// ExtraDeckCards stay in the deck after dealing (kitty/turn-up). The
	// last entry ends up on top of the remaining deck.
	ExtraDeckCards []cards.Card
	// KeepRemainingCards leaves leftover deck cards on the table at visible
	// scale; otherwise they fly off screen and are removed.
	KeepRemainingCards bool
	// FlipTopCard flips the top remaining card face up (the turn-up).
	FlipTopCard bool
	// TurnUpCardID identifies the card to flip when it isn't the top one.
	TurnUpCardID string
	// FanSpacing overrides the derived user-hand fan spacing.
	FanSpacing float64

	Stagger time.Duration
	Flight  time.Duration
}

// Deal loads the deck and deals every player's hand with a round-robin
// animation. Unknown opponent cards are synthesized as placeholders sized to
// HandSize. Games with unequal final hand sizes still animate a plausible
// round-robin deal: a seat simply drops out of rounds it has no card for.
func (c *Controller) Deal(ctx context.Context, opts DealOptions) error {
	c.mu.Lock()
	players := c.players
	counts := make([]int, len(players))
	rounds := 0
	for i, p := range players {
		counts[i] = len(p.Hand)
		if counts[i] == 0 {
			counts[i] = p.HandSize
		}
		if counts[i] > rounds {
			rounds = counts[i]
		}
	}

	// Flat deal queue, round-robin interleaved: round 0 to every seat, then
	// round 1, and so on.
	var queue []cards.Card
	for round := 0; round < rounds; round++ {
		for i, p := range players {
			if round >= counts[i] {
				continue
			}
			if round < len(p.Hand) {
				queue = append(queue, p.Hand[round])
			} else {
				queue = append(queue, cards.NewPlaceholder(p.ID, round))
			}
		}
	}
	c.mu.Unlock()

	// The deck's backing list is LIFO: highest index is dealt first. Extras
	// go in first so they stay at the bottom of the deal order, with the
	// turn-up as the top card of what remains; the queue is then loaded in
	// reverse so it deals in forward order.
	for _, extra := range opts.ExtraDeckCards {
		if _, err := c.eng.AddCardToDeck(extra, false); err != nil {
			return err
		}
	}
	for i := len(queue) - 1; i >= 0; i-- {
		if _, err := c.eng.AddCardToDeck(queue[i], false); err != nil {
			return err
		}
	}

	if err := c.eng.DealSequence(ctx, counts, opts.Stagger, opts.Flight); err != nil {
		return err
	}

	if err := c.focusUserHand(ctx, opts.FanSpacing, opts.Flight); err != nil {
		return err
	}

	return c.settleRemaining(ctx, opts)
}

// focusUserHand relocates the user's hand to its focused on-screen position,
// scales it up, and re-fans it with derived spacing and curvature.
func (c *Controller) focusUserHand(ctx context.Context, spacingOverride float64, d time.Duration) error {
	hand := c.userHand()
	if hand == nil {
		return nil
	}

	c.mu.Lock()
	count := hand.Len()
	hand.SetFanSpacing(c.userFanSpacing(count, spacingOverride))
	hand.FanCurve = fanCurveFor(count)
	hand.SetScale(c.vp.Scale(layout.UsageUserHand))
	if len(c.table.Seats) > 0 {
		hand.SetPosition(c.table.Seats[0].HandPosition)
	}
	c.mu.Unlock()

	return c.eng.AnimateContainer(ctx, hand, d)
}

func (c *Controller) userHand() *engine.Hand {
	for _, h := range c.eng.Hands() {
		if h.IsUser {
			return h
		}
	}
	return nil
}

// settleRemaining handles leftover deck cards after the deal: kept on the
// table at visible scale (and optionally turned up), or flown off screen and
// removed.
func (c *Controller) settleRemaining(ctx context.Context, opts DealOptions) error {
	deck := c.eng.Deck()
	if deck == nil || deck.Len() == 0 {
		return nil
	}

	if !opts.KeepRemainingCards {
		return c.discardDeck(ctx, opts.Flight)
	}

	c.mu.Lock()
	cardW := c.vp.BaseCardWidth()
	deck.SetPosition(layout.Point{X: c.table.Center.X - cardW, Y: c.table.Center.Y})
	deck.SetScale(c.vp.Scale(layout.UsageDeck))
	c.mu.Unlock()
	if err := c.eng.AnimateContainer(ctx, deck, opts.Flight); err != nil {
		return err
	}

	if !opts.FlipTopCard {
		return nil
	}

	turnUp := opts.TurnUpCardID
	if turnUp == "" {
		top := deck.Cards()[deck.Len()-1]
		turnUp = top.Card.ID
	}
	if err := c.eng.FlipCard(ctx, turnUp, true, opts.Flight); err != nil {
		return err
	}
	if _, mc := c.eng.FindCard(turnUp); mc != nil {
		if !engine.RenderedFaceUp(mc.FaceUp, mc.FlipAngle) {
			// This combination has a history of double-flip bugs; catch it
			// loudly in development builds.
			c.log.Warnf("turn-up %s does not render face up (faceUp=%v angle=%v)",
				turnUp, mc.FaceUp, mc.FlipAngle)
		}
	}
	return nil
}

// discardDeck animates leftover cards off screen and removes them.
func (c *Controller) discardDeck(ctx context.Context, d time.Duration) error {
	deck := c.eng.Deck()
	if deck == nil {
		return nil
	}
	c.mu.Lock()
	off := engine.Transform{X: c.boardW / 2, Y: -c.vp.BaseCardWidth() * 3, Scale: deck.Scale()}
	c.mu.Unlock()

	leftovers := append([]*engine.ManagedCard(nil), deck.Cards()...)
	for _, mc := range leftovers {
		if mc.View != nil {
			if err := mc.View.Animate(ctx, off, d); err != nil {
				return err
			}
		}
		c.eng.RemoveCard(mc.Card.ID)
	}
	return nil
}

// SortUserHand reorders the user's hand with the supplied comparator and
// animates every card to its new slot without altering face orientation. The
// comparator stays pluggable so each game's ordering rule lives in its
// director, not here.
func (c *Controller) SortUserHand(ctx context.Context, less func(a, b cards.Card) bool, d time.Duration) error {
	hand := c.userHand()
	if hand == nil || less == nil {
		return nil
	}
	c.eng.SortHand(hand, less)
	return c.eng.AnimateContainer(ctx, hand, d)
}

// revealStagger is the per-card delay of a staggered hand reveal.
const revealStagger = 12 * time.Millisecond

// RevealUserHand staggers a face-up flip across the user's hand. Visual only:
// logical face-up flags are untouched.
func (c *Controller) RevealUserHand(ctx context.Context, d time.Duration) error {
	hand := c.userHand()
	if hand == nil {
		return nil
	}
	clock := c.eng.Clock()
	g, gctx := errgroup.WithContext(ctx)
	for i, mc := range hand.Cards() {
		g.Go(func() error {
			if err := clock.Sleep(gctx, time.Duration(i)*revealStagger); err != nil {
				return err
			}
			return c.eng.FlipCard(gctx, mc.Card.ID, true, d)
		})
	}
	return g.Wait()
}

// RevealHiddenHand materializes a hidden/placeholder hand with real cards:
// the card list is replaced wholesale, snapped to the owner's avatar so the
// fly-out has a believable origin, then fanned out face up. Used for blind
// nil reveals and similar late disclosures.
func (c *Controller) RevealHiddenHand(ctx context.Context, playerID string, newCards []cards.Card, d time.Duration) error {
	c.mu.Lock()
	seat := c.seatOf(playerID)
	if seat < 0 {
		c.mu.Unlock()
		c.log.Tracef("revealHiddenHand: unknown player %s", playerID)
		return nil
	}
	avatar := c.avatarPosition(seat)
	delete(c.hiddenSeats, seat)
	seatPos := c.table.Seats[seat].HandPosition
	scale := c.vp.Scale(layout.UsageOpponentHand)
	c.mu.Unlock()

	hand := c.eng.Hand(seat)
	if hand == nil {
		return nil
	}

	for _, mc := range append([]*engine.ManagedCard(nil), hand.Cards()...) {
		c.eng.RemoveCard(mc.Card.ID)
	}
	for _, card := range newCards {
		c.eng.AddCardToHand(hand, card, false)
	}

	// Start collapsed at the avatar, then fly out to the fanned layout.
	hand.SetPosition(avatar)
	hand.SetScale(c.vp.Scale(layout.UsageMini))
	hand.InvalidateArc()
	c.eng.SnapContainer(hand)
	if err := c.eng.Clock().WaitFrames(ctx, 2); err != nil {
		return err
	}

	hand.SetPosition(seatPos)
	hand.SetScale(scale)
	if err := c.eng.AnimateContainer(ctx, hand, d); err != nil {
		return err
	}

	for i, mc := range hand.Cards() {
		if err := c.eng.Clock().Sleep(ctx, time.Duration(i)*revealStagger/2); err != nil {
			return err
		}
		if err := c.eng.FlipCard(ctx, mc.Card.ID, true, d/2); err != nil {
			return err
		}
	}
	return nil
}
