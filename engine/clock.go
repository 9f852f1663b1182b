package engine

import (
	"context"
	"time"
)

// FrameInterval is one paint frame at 60fps.
const FrameInterval = 16 * time.Millisecond

// FrameClock abstracts paint-frame scheduling. An animation that resets a
// card's position and starts a transition in the same frame can be collapsed
// by the rendering substrate, so movement sequences wait out paint frames
// between the snap and the transition.
type FrameClock interface {
	// WaitFrames waits for n paint opportunities.
	WaitFrames(ctx context.Context, n int) error
	// Sleep waits for a pacing delay (deal stagger, re-fan delay).
	Sleep(ctx context.Context, d time.Duration) error
}

type frameClock struct{}

// NewFrameClock returns the wall-clock frame scheduler.
func NewFrameClock() FrameClock {
	return frameClock{}
}

func (frameClock) WaitFrames(ctx context.Context, n int) error {
	return sleepCtx(ctx, time.Duration(n)*FrameInterval)
}

func (frameClock) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ImmediateClock is a zero-wait clock for tests and headless runs.
type ImmediateClock struct{}

func (ImmediateClock) WaitFrames(ctx context.Context, n int) error { return ctx.Err() }

func (ImmediateClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }
