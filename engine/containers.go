package engine

import (
	"math"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/layout"
)

// ManagedCard is a card owned by a container: identity, logical face-up flag,
// the current visual flip rotation, and the (possibly absent) visual handle.
type ManagedCard struct {
	Card      *cards.Card
	FaceUp    bool
	FlipAngle float64
	View      CardView
}

// Container is the shared surface of Deck, Hand and Pile. Card order is
// meaningful: it is stacking/z-order, and for hands it is display order.
type Container interface {
	ID() string
	Position() layout.Point
	SetPosition(layout.Point)
	Scale() float64
	SetScale(float64)
	Rotation() float64
	SetRotation(float64)
	Cards() []*ManagedCard
	Len() int
	Append(mc *ManagedCard)
	Remove(cardID string) *ManagedCard
	Find(cardID string) (int, *ManagedCard)
	// TargetFor computes the visual placement for the card at the given
	// index, from the container's position and per-variant layout rule.
	TargetFor(index int) Transform
}

type containerBase struct {
	id       string
	pos      layout.Point
	scale    float64
	rotation float64
	cards    []*ManagedCard
}

func (b *containerBase) ID() string                  { return b.id }
func (b *containerBase) Position() layout.Point      { return b.pos }
func (b *containerBase) SetPosition(p layout.Point)  { b.pos = p }
func (b *containerBase) Scale() float64              { return b.scale }
func (b *containerBase) SetScale(s float64)          { b.scale = s }
func (b *containerBase) Rotation() float64           { return b.rotation }
func (b *containerBase) SetRotation(r float64)       { b.rotation = r }
func (b *containerBase) Cards() []*ManagedCard       { return b.cards }
func (b *containerBase) Len() int                    { return len(b.cards) }
func (b *containerBase) Append(mc *ManagedCard)      { b.cards = append(b.cards, mc) }

func (b *containerBase) Find(cardID string) (int, *ManagedCard) {
	for i, mc := range b.cards {
		if mc.Card.ID == cardID {
			return i, mc
		}
	}
	return -1, nil
}

func (b *containerBase) Remove(cardID string) *ManagedCard {
	i, mc := b.Find(cardID)
	if mc == nil {
		return nil
	}
	b.cards = append(b.cards[:i], b.cards[i+1:]...)
	return mc
}

// Deck is the stack cards are dealt from. The top of the deck is the highest
// index; a card added last is dealt first.
type Deck struct {
	containerBase
}

// Pop removes and returns the top card, or nil when the deck is empty.
func (d *Deck) Pop() *ManagedCard {
	if len(d.cards) == 0 {
		return nil
	}
	mc := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return mc
}

func (d *Deck) TargetFor(index int) Transform {
	// Slight per-card offset so the stack reads as a stack.
	return Transform{
		X:        d.pos.X + 0.2*float64(index),
		Y:        d.pos.Y - 0.2*float64(index),
		Scale:    d.scale,
		Rotation: d.rotation,
	}
}

// HandMode selects how a hand lays its cards out.
type HandMode string

const (
	HandFanned     HandMode = "fanned"
	HandLooseStack HandMode = "looseStack"
)

// HandOptions configures a new hand.
type HandOptions struct {
	Mode          HandMode
	FanSpacing    float64
	FanCurve      float64
	FaceUp        bool
	IsUser        bool
	AngleToCenter float64
	Scale         float64
	Rotation      float64
}

// Hand is an ordered, fanned (or loosely stacked) set of cards for one seat.
type Hand struct {
	containerBase
	Mode          HandMode
	FanCurve      float64
	FaceUp        bool
	IsUser        bool
	AngleToCenter float64

	fanSpacing float64
	// arcSpacing is the locked fan spacing. It survives card count changes
	// so the fan doesn't jitter while cards are mid-animation, and is
	// invalidated on resize or explicit re-spacing.
	arcSpacing float64
}

// FanSpacing returns the configured fan spacing.
func (h *Hand) FanSpacing() float64 { return h.fanSpacing }

// SetFanSpacing replaces the fan spacing and unlocks the arc.
func (h *Hand) SetFanSpacing(s float64) {
	h.fanSpacing = s
	h.arcSpacing = 0
}

// InvalidateArc drops the locked arc spacing; the next layout re-derives it.
func (h *Hand) InvalidateArc() { h.arcSpacing = 0 }

func (h *Hand) lockedSpacing() float64 {
	if h.arcSpacing == 0 {
		h.arcSpacing = h.fanSpacing
	}
	return h.arcSpacing
}

func (h *Hand) TargetFor(index int) Transform {
	n := len(h.cards)
	if n == 0 {
		return Transform{X: h.pos.X, Y: h.pos.Y, Scale: h.scale, Rotation: h.rotation}
	}

	if h.Mode == HandLooseStack {
		return Transform{
			X:        h.pos.X + 2*float64(index),
			Y:        h.pos.Y,
			Scale:    h.scale,
			Rotation: h.rotation,
		}
	}

	spacing := h.lockedSpacing()
	off := float64(index) - float64(n-1)/2

	x := h.pos.X + off*spacing
	y := h.pos.Y

	// Droop edge cards away from the table center so the fan appears to
	// curve around it.
	droop := off * off * h.FanCurve * 0.35
	rad := h.AngleToCenter * math.Pi / 180
	x -= math.Cos(rad) * droop
	y -= math.Sin(rad) * droop

	return Transform{
		X:        x,
		Y:        y,
		Scale:    h.scale,
		Rotation: h.rotation + off*h.FanCurve,
	}
}

// PileOptions configures a new pile.
type PileOptions struct {
	Scale    float64
	Rotation float64
}

// Pile accumulates cards from multiple contributors: the trick in progress,
// or a per-winner won-trick stack.
type Pile struct {
	containerBase
	targets map[string]Transform
}

// SetCardTarget pre-registers where an in-flight card is headed, so a second
// concurrent animation reads the intended destination rather than the stale
// current one.
func (p *Pile) SetCardTarget(cardID string, t Transform) {
	if p.targets == nil {
		p.targets = make(map[string]Transform)
	}
	p.targets[cardID] = t
}

// CardTarget returns the pre-registered destination for a card, if any.
func (p *Pile) CardTarget(cardID string) (Transform, bool) {
	t, ok := p.targets[cardID]
	return t, ok
}

// InvalidateTargets drops every pre-registered destination. Registered
// targets describe board coordinates that stop being meaningful once the
// pile itself moves.
func (p *Pile) InvalidateTargets() {
	p.targets = nil
}

// Clear empties the pile without per-card animation bookkeeping and returns
// the removed cards.
func (p *Pile) Clear() []*ManagedCard {
	removed := p.cards
	p.cards = nil
	p.targets = nil
	return removed
}

func (p *Pile) TargetFor(index int) Transform {
	if len(p.cards) > index && index >= 0 {
		if t, ok := p.targets[p.cards[index].Card.ID]; ok {
			return t
		}
	}
	return Transform{
		X:        p.pos.X + 0.3*float64(index),
		Y:        p.pos.Y - 0.3*float64(index),
		Scale:    p.scale,
		Rotation: p.rotation,
	}
}
