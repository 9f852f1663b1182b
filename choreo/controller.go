// Package choreo implements the game-agnostic animation choreography every
// card game needs: table setup, dealing, playing to a shared area, trick
// completion, hand reveal/sort/hide, and multiplayer hand resynchronization.
// Game-specific directors compose a Controller rather than reimplementing
// choreography.
package choreo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/sclarke500/cardtable/cards"
	"github.com/sclarke500/cardtable/engine"
	"github.com/sclarke500/cardtable/layout"
)

// TrickLayout selects how played cards are arranged in the shared play area.
type TrickLayout string

const (
	// TrickLayoutConverge places cards toward table center with a small
	// per-seat directional offset (trick-taking games).
	TrickLayoutConverge TrickLayout = "trick"
	// TrickLayoutOverlay groups cards per play with a horizontal spread
	// (shedding games with multi-card plays).
	TrickLayoutOverlay TrickLayout = "overlay"
)

// CompleteMode selects what happens to the shared pile when a trick ends.
type CompleteMode string

const (
	// CompleteSweep flies all cards off board in one animation.
	CompleteSweep CompleteMode = "sweep"
	// CompleteStack flies cards to the winner's personal won-trick pile.
	CompleteStack CompleteMode = "stack"
)

// Config holds the per-game choreography configuration.
type Config struct {
	GameType     string
	TrickLayout  TrickLayout
	CompleteMode CompleteMode
	LayoutMode   layout.Mode
	Log          slog.Logger
}

// Player describes one seat from the controller's point of view. Hand is
// empty for multiplayer opponents whose cards the server doesn't reveal; only
// HandSize is known then.
type Player struct {
	ID       string
	Name     string
	IsHuman  bool
	Hand     []cards.Card
	HandSize int
}

const (
	deckID     = "deck"
	playAreaID = "play-area"
)

func handID(seat int) string { return fmt.Sprintf("hand-%d", seat) }

func trickPileID(seat int) string { return fmt.Sprintf("tricks-won-%d", seat) }

// Controller orchestrates animations on a card table engine. Between calls it
// is effectively stateless apart from the won-trick counters and the set of
// hidden seats; everything else is derived from the engine's container state
// at call time.
type Controller struct {
	mu  sync.Mutex
	cfg Config
	log slog.Logger
	eng *engine.Engine
	vp  *layout.Viewport

	boardW, boardH float64
	table          layout.Result
	players        []Player
	dealerSeat     int

	tricksWon   map[string]int
	hiddenSeats map[int]bool
	playCount   int
}

// New creates a controller over the given engine and viewport context.
func New(eng *engine.Engine, vp *layout.Viewport, cfg Config) *Controller {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	if cfg.TrickLayout == "" {
		cfg.TrickLayout = TrickLayoutConverge
	}
	if cfg.CompleteMode == "" {
		cfg.CompleteMode = CompleteSweep
	}
	if cfg.LayoutMode == "" {
		cfg.LayoutMode = layout.ModeNormal
	}
	return &Controller{
		cfg:         cfg,
		log:         log,
		eng:         eng,
		vp:          vp,
		tricksWon:   make(map[string]int),
		hiddenSeats: make(map[int]bool),
	}
}

// Engine exposes the underlying card table engine (for directors and the
// rendering layer's ref wiring).
func (c *Controller) Engine() *engine.Engine { return c.eng }

// Table returns the last computed table layout.
func (c *Controller) Table() layout.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

// TricksWon returns the won-trick count for a player.
func (c *Controller) TricksWon(playerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tricksWon[playerID]
}

func (c *Controller) seatOf(playerID string) int {
	for i, p := range c.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// SeatOf returns the seat index for a player ID, or -1.
func (c *Controller) SeatOf(playerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seatOf(playerID)
}

// SetupTable resets the engine and builds the table: layout, deck, one hand
// per seat, the shared play area, and (in stack mode) one won-trick pile per
// seat. The deck sits at the dealer's seat when known, else off table.
func (c *Controller) SetupTable(boardW, boardH float64, players []Player, dealerSeat int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	table, err := layout.Compute(boardW, boardH, c.cfg.LayoutMode, len(players), nil)
	if err != nil {
		return fmt.Errorf("setup table: %w", err)
	}

	c.eng.Reset()
	c.boardW, c.boardH = boardW, boardH
	c.table = table
	c.players = append([]Player(nil), players...)
	c.dealerSeat = dealerSeat
	c.tricksWon = make(map[string]int)
	c.hiddenSeats = make(map[int]bool)
	c.playCount = 0

	cardW := c.vp.BaseCardWidth()

	deckPos := layout.Point{X: -cardW, Y: -cardW}
	if dealerSeat >= 0 && dealerSeat < len(table.Seats) {
		deckPos = table.Seats[dealerSeat].HandPosition
	}
	if _, err := c.eng.CreateDeck(deckID, deckPos, c.vp.Scale(layout.UsageDeck)); err != nil {
		return err
	}

	for i, seat := range table.Seats {
		opts := engine.HandOptions{
			Mode:          engine.HandFanned,
			FaceUp:        seat.IsUser,
			IsUser:        seat.IsUser,
			AngleToCenter: seat.AngleToCenter,
			Rotation:      seat.Rotation,
		}
		if seat.IsUser {
			opts.FanSpacing = cardW * 0.45
			opts.FanCurve = 3
			opts.Scale = c.vp.Scale(layout.UsageUserHand)
		} else {
			opts.FanSpacing = cardW * 0.25
			opts.FanCurve = 2
			opts.Scale = c.vp.Scale(layout.UsageOpponentHand)
		}
		if _, err := c.eng.CreateHand(handID(i), seat.HandPosition, opts); err != nil {
			return err
		}
	}

	if _, err := c.eng.CreatePile(playAreaID, table.Center, engine.PileOptions{
		Scale: c.vp.Scale(layout.UsagePlayArea),
	}); err != nil {
		return err
	}

	if c.cfg.CompleteMode == CompleteStack {
		for i := range table.Seats {
			pos := c.trickPilePosition(i, 0)
			if _, err := c.eng.CreatePile(trickPileID(i), pos, engine.PileOptions{
				Scale: c.vp.Scale(layout.UsageTricksWon),
			}); err != nil {
				return err
			}
		}
	}

	c.log.Debugf("table set up: %d seats, dealer %d", len(players), dealerSeat)
	return nil
}

// trickPilePosition computes where a seat's n-th won trick lands: at the
// seat's table edge, successive tricks offset outward along the edge.
func (c *Controller) trickPilePosition(seat, trickIndex int) layout.Point {
	s := c.table.Seats[seat]
	cardW := c.vp.BaseCardWidth() * c.vp.Scale(layout.UsageTricksWon)
	step := cardW * 0.4 * float64(trickIndex)

	pos := s.HandPosition
	switch s.Side {
	case layout.SideBottom:
		pos.X += cardW*1.6 + step
	case layout.SideTop:
		pos.X -= cardW*1.6 + step
	case layout.SideLeft:
		pos.Y -= cardW*1.6 + step
	case layout.SideRight:
		pos.Y += cardW*1.6 + step
	}
	return pos
}

// avatarPosition is where a seat's hand collapses to when hidden: pushed from
// the seat slot away from table center.
func (c *Controller) avatarPosition(seat int) layout.Point {
	s := c.table.Seats[seat]
	rad := s.AngleToCenter * math.Pi / 180
	return layout.Point{
		X: s.HandPosition.X - math.Cos(rad)*30,
		Y: s.HandPosition.Y - math.Sin(rad)*30,
	}
}

// HandleLayoutChange recomputes the table layout for new board dimensions and
// re-projects every container to its new position, animating them
// concurrently. Invoked on resize and orientation change.
func (c *Controller) HandleLayoutChange(ctx context.Context, boardW, boardH float64, d time.Duration) error {
	c.mu.Lock()
	table, err := layout.Compute(boardW, boardH, c.cfg.LayoutMode, len(c.players), nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("layout change: %w", err)
	}
	c.boardW, c.boardH = boardW, boardH
	c.table = table
	cardW := c.vp.BaseCardWidth()

	var containers []engine.Container

	if deck := c.eng.Deck(); deck != nil {
		deck.SetPosition(layout.Point{X: table.Center.X - cardW, Y: table.Center.Y})
		containers = append(containers, deck)
	}

	for i, h := range c.eng.Hands() {
		if i >= len(table.Seats) {
			break
		}
		seat := table.Seats[i]
		if c.hiddenSeats[i] {
			h.SetPosition(c.avatarPosition(i))
		} else {
			h.SetPosition(seat.HandPosition)
		}
		h.AngleToCenter = seat.AngleToCenter
		h.SetRotation(seat.Rotation)
		// The cached fan radius is stale at the new size.
		h.InvalidateArc()
		if h.IsUser {
			h.SetFanSpacing(c.userFanSpacing(h.Len(), 0))
		}
		containers = append(containers, h)
	}

	if pile := c.eng.Pile(playAreaID); pile != nil {
		pile.SetPosition(table.Center)
		// Settled flights registered targets on the old board.
		pile.InvalidateTargets()
		containers = append(containers, pile)
	}
	if c.cfg.CompleteMode == CompleteStack {
		for i := range table.Seats {
			if pile := c.eng.Pile(trickPileID(i)); pile != nil {
				pile.SetPosition(c.trickPilePosition(i, 0))
				pile.InvalidateTargets()
				containers = append(containers, pile)
			}
		}
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, cont := range containers {
		g.Go(func() error {
			return c.eng.AnimateContainer(gctx, cont, d)
		})
	}
	return g.Wait()
}

// userFanSpacing derives the user hand's fan spacing: an explicit override
// wins, else cards spread to fill the available table width, clamped to a
// min/max fraction of card width.
func (c *Controller) userFanSpacing(count int, override float64) float64 {
	if override > 0 {
		return override
	}
	cardW := c.vp.BaseCardWidth() * c.vp.Scale(layout.UsageUserHand)
	if count <= 1 {
		return cardW * 0.45
	}
	spread := c.table.Table.Width * 0.8 / float64(count-1)
	if c.table.Table.Width == 0 {
		// Layout not computed yet; fall back to viewport width.
		w, _ := c.vp.Size()
		spread = w * 0.6 / float64(count-1)
	}
	minSpacing := cardW * 0.18
	maxSpacing := cardW * 0.60
	return math.Max(minSpacing, math.Min(maxSpacing, spread))
}

// fanCurveFor makes curvature inversely related to card count: fewer cards,
// more pronounced arc.
func fanCurveFor(count int) float64 {
	if count <= 0 {
		return 1.5
	}
	bonus := 0.0
	if count <= 4 {
		bonus = 2
	}
	return math.Max(1.5, math.Min(9, 20/float64(count)+bonus))
}
