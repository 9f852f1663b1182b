package layout

import (
	"fmt"
	"math"
)

// Point is a position on the board in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Side identifies which edge of the table a seat sits on.
type Side string

const (
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideTop    Side = "top"
	SideRight  Side = "right"
)

// Mode selects the table inset margins. Wide mode uses a smaller horizontal
// margin to fit more seats.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeWide   Mode = "wide"
)

// SeatSpec places a seat on a side at a fractional position along that side's
// edge, with a card rotation in degrees.
type SeatSpec struct {
	Side     Side
	Pos      float64
	Rotation float64
}

// Seat is the computed geometry for one seat.
type Seat struct {
	Index         int
	Side          Side
	HandPosition  Point
	Rotation      float64
	AngleToCenter float64
	IsUser        bool
}

// Bounds is the inset table rectangle inside the board.
type Bounds struct {
	Left    float64
	Top     float64
	Right   float64
	Bottom  float64
	Width   float64
	Height  float64
	CenterX float64
	CenterY float64
}

// Result is the full table layout. It is recomputed on every resize and never
// mutated in place.
type Result struct {
	Seats  []Seat
	Table  Bounds
	Center Point
}

// Seat presets keyed by player count. Seat 0 is always the user at
// bottom-center; the rest are assigned clockwise.
var seatPresets = map[int][]SeatSpec{
	4: {
		{SideBottom, 0.50, 0},
		{SideLeft, 0.50, 90},
		{SideTop, 0.50, 180},
		{SideRight, 0.50, 270},
	},
	5: {
		{SideBottom, 0.50, 0},
		{SideLeft, 0.50, 90},
		{SideTop, 0.33, 180},
		{SideTop, 0.67, 180},
		{SideRight, 0.50, 270},
	},
	6: {
		{SideBottom, 0.50, 0},
		{SideLeft, 0.50, 90},
		{SideTop, 0.25, 180},
		{SideTop, 0.50, 180},
		{SideTop, 0.75, 180},
		{SideRight, 0.50, 270},
	},
	7: {
		{SideBottom, 0.50, 0},
		{SideLeft, 0.33, 90},
		{SideLeft, 0.67, 90},
		{SideTop, 0.33, 180},
		{SideTop, 0.67, 180},
		{SideRight, 0.67, 270},
		{SideRight, 0.33, 270},
	},
	8: {
		{SideBottom, 0.50, 0},
		{SideLeft, 0.33, 90},
		{SideLeft, 0.67, 90},
		{SideTop, 0.25, 180},
		{SideTop, 0.50, 180},
		{SideTop, 0.75, 180},
		{SideRight, 0.67, 270},
		{SideRight, 0.33, 270},
	},
}

// Compute derives seat geometry and table bounds from board pixel dimensions.
// It is a pure function: identical inputs yield identical output. Overrides
// replace the preset spec for the given seat indices.
func Compute(boardWidth, boardHeight float64, mode Mode, playerCount int, overrides map[int]SeatSpec) (Result, error) {
	preset, ok := seatPresets[playerCount]
	if !ok {
		return Result{}, fmt.Errorf("unsupported player count: %d", playerCount)
	}

	insetX := boardWidth * 0.10
	if mode == ModeWide {
		insetX = boardWidth * 0.04
	}
	insetY := boardHeight * 0.10

	table := Bounds{
		Left:   insetX,
		Top:    insetY,
		Right:  boardWidth - insetX,
		Bottom: boardHeight - insetY,
	}
	table.Width = table.Right - table.Left
	table.Height = table.Bottom - table.Top
	table.CenterX = table.Left + table.Width/2
	table.CenterY = table.Top + table.Height/2

	// Hands sit inset from the table edge; the inset tracks table size so
	// small boards don't push hands off screen.
	handInset := 0.10 * math.Min(table.Width, table.Height)

	seats := make([]Seat, playerCount)
	for i := 0; i < playerCount; i++ {
		spec := preset[i]
		if ov, ok := overrides[i]; ok {
			spec = ov
		}

		pos := project(table, spec, handInset)
		seats[i] = Seat{
			Index:         i,
			Side:          spec.Side,
			HandPosition:  pos,
			Rotation:      spec.Rotation,
			AngleToCenter: angleDeg(pos, Point{X: table.CenterX, Y: table.CenterY}),
			IsUser:        i == 0,
		}
	}

	return Result{
		Seats:  seats,
		Table:  table,
		Center: Point{X: table.CenterX, Y: table.CenterY},
	}, nil
}

func project(table Bounds, spec SeatSpec, handInset float64) Point {
	switch spec.Side {
	case SideBottom:
		return Point{X: table.Left + spec.Pos*table.Width, Y: table.Bottom - handInset}
	case SideTop:
		return Point{X: table.Left + spec.Pos*table.Width, Y: table.Top + handInset}
	case SideLeft:
		return Point{X: table.Left + handInset, Y: table.Top + spec.Pos*table.Height}
	case SideRight:
		return Point{X: table.Right - handInset, Y: table.Top + spec.Pos*table.Height}
	default:
		return Point{X: table.CenterX, Y: table.CenterY}
	}
}

// angleDeg returns the angle in degrees from a seat position to the table
// center, used for radial fan curvature.
func angleDeg(from, to Point) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
}
