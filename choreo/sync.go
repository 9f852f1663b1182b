package choreo

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
)

const (
	syncFlight     = 300 * time.Millisecond
	syncRefWait    = 500 * time.Millisecond
	syncFlipTime   = 250 * time.Millisecond
	syncRefanDelay = 100 * time.Millisecond
)

// SyncUserHand reconciles the user's visual hand against an authoritative
// card list, as pushed by a server after an exchange phase. Cards missing
// from want fly away and are dropped; cards new to want fly in face down and
// flip up. Cards present in both stay untouched, so a sync against an
// identical list animates nothing.
//
// recipientID optionally names the player the departing cards went to; when
// set the removal flight aims at their seat, otherwise at the table center.
func (c *Controller) SyncUserHand(ctx context.Context, want []cards.Card, recipientID string) error {
	hand := c.userHand()
	if hand == nil {
		return nil
	}

	wantIDs := make(map[string]cards.Card, len(want))
	for _, card := range want {
		wantIDs[card.ID] = card
	}

	var removed []*engine.ManagedCard
	haveIDs := make(map[string]bool)
	for _, mc := range hand.Cards() {
		haveIDs[mc.Card.ID] = true
		if _, keep := wantIDs[mc.Card.ID]; !keep {
			removed = append(removed, mc)
		}
	}

	var added []cards.Card
	for _, card := range want {
		if !haveIDs[card.ID] {
			added = append(added, card)
		}
	}

	if len(removed) == 0 && len(added) == 0 {
		return nil
	}

	c.mu.Lock()
	dest := c.table.Center
	if seat := c.seatOf(recipientID); seat >= 0 {
		dest = c.table.Seats[seat].HandPosition
	}
	origin := c.table.Center
	scale := c.vp.Scale(layout.UsageUserHand)
	c.mu.Unlock()

	if err := c.flyOutRemoved(ctx, hand, removed, dest); err != nil {
		return err
	}
	if err := c.flyInAdded(ctx, hand, added, origin, scale); err != nil {
		return err
	}

	// Settle the survivors into their new fan.
	if err := c.eng.Clock().Sleep(ctx, syncRefanDelay); err != nil {
		return err
	}
	hand.InvalidateArc()
	return c.eng.AnimateContainer(ctx, hand, refanTime)
}

func (c *Controller) flyOutRemoved(ctx context.Context, hand *engine.Hand, removed []*engine.ManagedCard, dest layout.Point) error {
	if len(removed) == 0 {
		return nil
	}
	mini := c.vp.Scale(layout.UsageMini)
	g, gctx := errgroup.WithContext(ctx)
	for _, mc := range removed {
		mc := mc
		g.Go(func() error {
			if mc.View != nil {
				to := engine.Transform{X: dest.X, Y: dest.Y, Scale: mini, FlipAngle: mc.FlipAngle}
				if engine.RenderedFaceUp(mc.FaceUp, mc.FlipAngle) {
					to.FlipAngle += 180
				}
				if err := mc.View.Animate(gctx, to, syncFlight); err != nil {
					return err
				}
			}
			c.eng.RemoveCard(mc.Card.ID)
			c.eng.ClearCardRef(mc.Card.ID)
			return nil
		})
	}
	return g.Wait()
}

func (c *Controller) flyInAdded(ctx context.Context, hand *engine.Hand, added []cards.Card, origin layout.Point, scale float64) error {
	if len(added) == 0 {
		return nil
	}
	clock := c.eng.Clock()
	g, gctx := errgroup.WithContext(ctx)
	for _, card := range added {
		mc := c.eng.AddCardToHand(hand, card, false)
		idx, _ := hand.Find(mc.Card.ID)
		target := hand.TargetFor(idx)
		g.Go(func() error {
			// New cards need their visual element bound before they can
			// move. Give the renderer a bounded window to register it.
			refCtx, cancel := context.WithTimeout(gctx, syncRefWait)
			view, err := c.eng.WaitForRef(refCtx, mc.Card.ID)
			cancel()
			if err != nil {
				c.log.Tracef("syncUserHand: no ref for %s: %v", mc.Card.ID, err)
				return nil
			}
			view.Snap(engine.Transform{X: origin.X, Y: origin.Y, Scale: scale})
			if err := clock.WaitFrames(gctx, 2); err != nil {
				return err
			}
			if err := view.Animate(gctx, target, syncFlight); err != nil {
				return err
			}
			return c.eng.FlipCard(gctx, mc.Card.ID, true, syncFlipTime)
		})
	}
	return g.Wait()
}
