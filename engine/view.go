package engine

import (
	"context"
	"time"
)

// Transform is the full visual placement of a card on the board.
type Transform struct {
	X         float64
	Y         float64
	Scale     float64
	Rotation  float64
	FlipAngle float64
}

// CardView is the visual handle bound to a card by the rendering layer. The
// binding is weak and non-owning: the handle is registered and unregistered by
// the render layer's mount/unmount lifecycle and may be briefly absent, so
// every caller must null-check and degrade gracefully.
type CardView interface {
	// Snap places the card immediately, with no transition.
	Snap(t Transform)
	// Animate transitions the card to the target transform over the given
	// duration and returns once the transition has settled (or the context
	// is cancelled).
	Animate(ctx context.Context, to Transform, d time.Duration) error
}
