package engine

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
)

// DealSequence round-robin deals counts[i] cards into the i-th registered
// hand. Hands with fewer cards drop out of later rounds, but within a round
// every eligible hand receives its card before the next round begins. Card
// placement is synchronous in queue order; the flight animations overlap,
// staggered by the given delay.
func (e *Engine) DealSequence(ctx context.Context, counts []int, stagger, flight time.Duration) error {
	hands := e.Hands()
	if len(counts) > len(hands) {
		counts = counts[:len(hands)]
	}

	rounds := 0
	for _, n := range counts {
		if n > rounds {
			rounds = n
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for round := 0; round < rounds; round++ {
		for i, n := range counts {
			if round >= n {
				continue
			}
			e.mu.Lock()
			if e.deck == nil {
				e.mu.Unlock()
				_ = g.Wait()
				return ErrNoDeck
			}
			mc, start, target := e.dealLocked(hands[i])
			e.mu.Unlock()
			if mc == nil {
				return g.Wait()
			}
			g.Go(func() error {
				return e.flyCard(gctx, mc, start, target, flight)
			})
			if err := e.clock.Sleep(ctx, stagger); err != nil {
				_ = g.Wait()
				return err
			}
		}
	}
	return g.Wait()
}

// SortHand reorders a hand's managed-card list with the supplied comparator.
// Pure reordering: no cards are added or lost, and face orientation is
// untouched. The caller re-animates the hand afterwards.
func (e *Engine) SortHand(h *Hand, less func(a, b cards.Card) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sort.SliceStable(h.cards, func(i, j int) bool {
		return less(*h.cards[i].Card, *h.cards[j].Card)
	})
}

// EnsureRenderedFace adjusts a card's flip rotation so its next animated
// transform renders the requested face, without animating here and without
// touching the logical face-up flag.
func (e *Engine) EnsureRenderedFace(cardID string, faceUp bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, mc := e.findLocked(cardID)
	if mc == nil {
		return
	}
	if RenderedFaceUp(mc.FaceUp, mc.FlipAngle) != faceUp {
		mc.FlipAngle += 180
	}
}
