package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/layout"
)

var (
	// ErrNoDeck is raised when cards are added before a deck exists. This is
	// a caller-side ordering bug, not a runtime race, so it fails fast.
	ErrNoDeck = errors.New("no deck created")
	// ErrDuplicateContainer is raised when a container ID is reused.
	ErrDuplicateContainer = errors.New("duplicate container id")
	// ErrReset is returned to ref waiters when the engine is reset out from
	// under them.
	ErrReset = errors.New("card table reset")
)

// Engine is the single mutable source of truth for which container holds
// which card, and which visual handle represents which card. It is decoupled
// from any specific game's rules.
//
// Referenced containers or cards being absent is an expected race with state
// resets, so most operations are defensive no-ops in that case. The one
// exception is adding to a nonexistent deck, which raises ErrNoDeck.
type Engine struct {
	mu    sync.Mutex
	log   slog.Logger
	clock FrameClock

	deck  *Deck
	hands []*Hand
	piles []*Pile

	refs       map[string]CardView
	refWaiters map[string][]chan CardView
}

// New creates an engine with the given frame clock. A nil logger disables
// logging.
func New(clock FrameClock, log slog.Logger) *Engine {
	if clock == nil {
		clock = NewFrameClock()
	}
	if log == nil {
		log = slog.Disabled
	}
	return &Engine{
		log:        log,
		clock:      clock,
		refs:       make(map[string]CardView),
		refWaiters: make(map[string][]chan CardView),
	}
}

// Clock returns the engine's frame clock.
func (e *Engine) Clock() FrameClock { return e.clock }

func (e *Engine) idExistsLocked(id string) bool {
	if e.deck != nil && e.deck.ID() == id {
		return true
	}
	for _, h := range e.hands {
		if h.ID() == id {
			return true
		}
	}
	for _, p := range e.piles {
		if p.ID() == id {
			return true
		}
	}
	return false
}

// CreateDeck constructs and registers the deck.
func (e *Engine) CreateDeck(id string, pos layout.Point, scale float64) (*Deck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idExistsLocked(id) || e.deck != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateContainer, id)
	}
	d := &Deck{containerBase{id: id, pos: pos, scale: scale}}
	e.deck = d
	return d, nil
}

// CreateHand constructs and registers a hand.
func (e *Engine) CreateHand(id string, pos layout.Point, opts HandOptions) (*Hand, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idExistsLocked(id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateContainer, id)
	}
	mode := opts.Mode
	if mode == "" {
		mode = HandFanned
	}
	h := &Hand{
		containerBase: containerBase{id: id, pos: pos, scale: opts.Scale, rotation: opts.Rotation},
		Mode:          mode,
		FanCurve:      opts.FanCurve,
		FaceUp:        opts.FaceUp,
		IsUser:        opts.IsUser,
		AngleToCenter: opts.AngleToCenter,
		fanSpacing:    opts.FanSpacing,
	}
	e.hands = append(e.hands, h)
	return h, nil
}

// CreatePile constructs and registers a pile.
func (e *Engine) CreatePile(id string, pos layout.Point, opts PileOptions) (*Pile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idExistsLocked(id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateContainer, id)
	}
	p := &Pile{containerBase: containerBase{id: id, pos: pos, scale: opts.Scale, rotation: opts.Rotation}}
	e.piles = append(e.piles, p)
	return p, nil
}

func (e *Engine) newManagedLocked(c cards.Card, faceUp bool) *ManagedCard {
	card := c
	return &ManagedCard{
		Card:   &card,
		FaceUp: faceUp,
		View:   e.refs[c.ID],
	}
}

// AddCardToDeck adds a card to the deck's backing list. Deck creation must
// precede dealing; violating that ordering is an error.
func (e *Engine) AddCardToDeck(c cards.Card, faceUp bool) (*ManagedCard, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deck == nil {
		return nil, ErrNoDeck
	}
	if _, mc := e.findLocked(c.ID); mc != nil {
		// Already owned somewhere; exclusivity holds.
		return mc, nil
	}
	mc := e.newManagedLocked(c, faceUp)
	e.deck.Append(mc)
	return mc, nil
}

// AddCardToHand appends a card directly to a hand (multiplayer catch-up path).
func (e *Engine) AddCardToHand(h *Hand, c cards.Card, faceUp bool) *ManagedCard {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, mc := e.findLocked(c.ID); mc != nil {
		return mc
	}
	mc := e.newManagedLocked(c, faceUp)
	h.Append(mc)
	return mc
}

// AddCardToPile appends a card directly to a pile (snapshot restore path).
func (e *Engine) AddCardToPile(p *Pile, c cards.Card, faceUp bool) *ManagedCard {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, mc := e.findLocked(c.ID); mc != nil {
		return mc
	}
	mc := e.newManagedLocked(c, faceUp)
	p.Append(mc)
	return mc
}

// RemoveCard drops a card from whichever container owns it. Missing cards are
// a no-op.
func (e *Engine) RemoveCard(cardID string) *ManagedCard {
	e.mu.Lock()
	defer e.mu.Unlock()
	from, mc := e.findLocked(cardID)
	if mc == nil {
		return nil
	}
	return from.Remove(cardID)
}

// dealLocked performs the state move of one deal synchronously and returns
// what the flight animation needs. Returns nil when the deck is empty, which
// is an expected terminal condition, not an error.
func (e *Engine) dealLocked(to *Hand) (mc *ManagedCard, start, target Transform) {
	mc = e.deck.Pop()
	if mc == nil {
		return nil, Transform{}, Transform{}
	}
	start = e.deck.TargetFor(e.deck.Len())
	to.Append(mc)
	target = to.TargetFor(to.Len() - 1)
	start.FlipAngle = mc.FlipAngle
	target.FlipAngle = mc.FlipAngle
	return mc, start, target
}

func (e *Engine) flyCard(ctx context.Context, mc *ManagedCard, start, target Transform, flight time.Duration) error {
	view := mc.View
	if view == nil {
		return nil
	}
	// Snap to the start position, then wait two paint frames so the
	// rendering substrate has committed it before the transition begins.
	// Starting a transition in the same frame as a position reset can be
	// collapsed entirely.
	view.Snap(start)
	if err := e.clock.WaitFrames(ctx, 2); err != nil {
		return err
	}
	return view.Animate(ctx, target, flight)
}

// DealCard pops the top card from the deck into the hand and animates the
// flight. Returns (nil, nil) when the deck is empty.
func (e *Engine) DealCard(ctx context.Context, to *Hand, flight time.Duration) (*ManagedCard, error) {
	e.mu.Lock()
	if e.deck == nil {
		e.mu.Unlock()
		return nil, ErrNoDeck
	}
	mc, start, target := e.dealLocked(to)
	e.mu.Unlock()
	if mc == nil {
		return nil, nil
	}
	return mc, e.flyCard(ctx, mc, start, target, flight)
}

// DealAll round-robins one card to every hand for cardsPerHand rounds,
// staggering the starts and letting the flights overlap, then waits out the
// final flight.
func (e *Engine) DealAll(ctx context.Context, cardsPerHand int, stagger, flight time.Duration) error {
	counts := make([]int, len(e.Hands()))
	for i := range counts {
		counts[i] = cardsPerHand
	}
	return e.DealSequence(ctx, counts, stagger, flight)
}

// MoveCard atomically moves a card between containers and animates it to the
// target. There is never a window where the card exists in neither or both
// containers. If targetPos is nil the destination's natural next-slot
// position is used. Resolves immediately when no visual handle is bound.
func (e *Engine) MoveCard(ctx context.Context, cardID string, to Container, targetPos *Transform, d time.Duration) error {
	e.mu.Lock()
	from, mc := e.findLocked(cardID)
	if mc == nil || to == nil {
		e.mu.Unlock()
		e.log.Tracef("moveCard: %s not present, skipping", cardID)
		return nil
	}
	if from != to {
		from.Remove(cardID)
		to.Append(mc)
	}
	var t Transform
	if targetPos != nil {
		t = *targetPos
	} else {
		t = to.TargetFor(to.Len() - 1)
	}
	t.FlipAngle = mc.FlipAngle
	view := mc.View
	e.mu.Unlock()

	if view == nil {
		return nil
	}
	return view.Animate(ctx, t, d)
}

// FlipCard animates a card's visual orientation so it renders with the given
// face. This is purely visual: the managed card's logical FaceUp flag is not
// touched, which lets a card appear face up before the engine believes it is.
func (e *Engine) FlipCard(ctx context.Context, cardID string, faceUp bool, d time.Duration) error {
	e.mu.Lock()
	owner, mc := e.findLocked(cardID)
	if mc == nil {
		e.mu.Unlock()
		e.log.Tracef("flipCard: %s not present, skipping", cardID)
		return nil
	}
	if RenderedFaceUp(mc.FaceUp, mc.FlipAngle) != faceUp {
		mc.FlipAngle += 180
	}
	idx, _ := owner.Find(cardID)
	t := owner.TargetFor(idx)
	t.FlipAngle = mc.FlipAngle
	view := mc.View
	e.mu.Unlock()

	if view == nil {
		return nil
	}
	return view.Animate(ctx, t, d)
}

// Reset drops all containers and the visual-handle map. Used at the start of
// every new round or game; in-flight animations are expected to resolve
// against missing state and no-op.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.deck = nil
	e.hands = nil
	e.piles = nil
	e.refs = make(map[string]CardView)
	waiters := e.refWaiters
	e.refWaiters = make(map[string][]chan CardView)
	e.mu.Unlock()

	for _, ws := range waiters {
		for _, w := range ws {
			close(w)
		}
	}
}

// SetCardRef binds a visual handle to a card identity. Called by the
// rendering layer on mount; pending WaitForRef calls are resolved here.
func (e *Engine) SetCardRef(cardID string, view CardView) {
	e.mu.Lock()
	e.refs[cardID] = view
	if _, mc := e.findLocked(cardID); mc != nil {
		mc.View = view
	}
	waiters := e.refWaiters[cardID]
	delete(e.refWaiters, cardID)
	e.mu.Unlock()

	for _, w := range waiters {
		w <- view
		close(w)
	}
}

// ClearCardRef unbinds a visual handle. Called by the rendering layer on
// unmount.
func (e *Engine) ClearCardRef(cardID string) {
	e.mu.Lock()
	delete(e.refs, cardID)
	if _, mc := e.findLocked(cardID); mc != nil {
		mc.View = nil
	}
	e.mu.Unlock()
}

// WaitForRef blocks until the rendering layer has bound a visual handle for
// the card. This replaces guessing how long mounting takes with an explicit
// registration acknowledgment.
func (e *Engine) WaitForRef(ctx context.Context, cardID string) (CardView, error) {
	e.mu.Lock()
	if view, ok := e.refs[cardID]; ok {
		e.mu.Unlock()
		return view, nil
	}
	w := make(chan CardView, 1)
	e.refWaiters[cardID] = append(e.refWaiters[cardID], w)
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case view, ok := <-w:
		if !ok || view == nil {
			return nil, ErrReset
		}
		return view, nil
	}
}

// CardRef returns the bound visual handle for a card, or nil.
func (e *Engine) CardRef(cardID string) CardView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refs[cardID]
}

func (e *Engine) findLocked(cardID string) (Container, *ManagedCard) {
	if e.deck != nil {
		if _, mc := e.deck.Find(cardID); mc != nil {
			return e.deck, mc
		}
	}
	for _, h := range e.hands {
		if _, mc := h.Find(cardID); mc != nil {
			return h, mc
		}
	}
	for _, p := range e.piles {
		if _, mc := p.Find(cardID); mc != nil {
			return p, mc
		}
	}
	return nil, nil
}

// FindCard returns the container owning a card and its managed entry, or
// (nil, nil).
func (e *Engine) FindCard(cardID string) (Container, *ManagedCard) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findLocked(cardID)
}

// Deck returns the current deck, which may be nil.
func (e *Engine) Deck() *Deck {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deck
}

// Hands returns the registered hands in creation order.
func (e *Engine) Hands() []*Hand {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Hand, len(e.hands))
	copy(out, e.hands)
	return out
}

// Hand returns the hand at the given seat index, or nil.
func (e *Engine) Hand(i int) *Hand {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.hands) {
		return nil
	}
	return e.hands[i]
}

// Piles returns the registered piles in creation order.
func (e *Engine) Piles() []*Pile {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Pile, len(e.piles))
	copy(out, e.piles)
	return out
}

// Pile returns the pile with the given ID, or nil.
func (e *Engine) Pile(id string) *Pile {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.piles {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// Containers returns every registered container.
func (e *Engine) Containers() []Container {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Container
	if e.deck != nil {
		out = append(out, e.deck)
	}
	for _, h := range e.hands {
		out = append(out, h)
	}
	for _, p := range e.piles {
		out = append(out, p)
	}
	return out
}

// AllCards flattens every managed card across all containers.
func (e *Engine) AllCards() []*ManagedCard {
	var out []*ManagedCard
	for _, c := range e.Containers() {
		out = append(out, c.Cards()...)
	}
	return out
}

// AnimateContainer animates every card in a container to its recomputed slot
// position concurrently and waits for all flights to settle.
func (e *Engine) AnimateContainer(ctx context.Context, c Container, d time.Duration) error {
	e.mu.Lock()
	type flight struct {
		view CardView
		t    Transform
	}
	var flights []flight
	for i, mc := range c.Cards() {
		if mc.View == nil {
			continue
		}
		t := c.TargetFor(i)
		t.FlipAngle = mc.FlipAngle
		flights = append(flights, flight{view: mc.View, t: t})
	}
	e.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range flights {
		g.Go(func() error {
			return f.view.Animate(gctx, f.t, d)
		})
	}
	return g.Wait()
}

// SnapContainer places every card in a container at its slot position with no
// transition.
func (e *Engine) SnapContainer(c Container) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, mc := range c.Cards() {
		if mc.View == nil {
			continue
		}
		t := c.TargetFor(i)
		t.FlipAngle = mc.FlipAngle
		mc.View.Snap(t)
	}
}
