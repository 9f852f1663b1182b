package engine

import "math"

// RenderedFaceUp reports whether a card appears face up on screen. The
// rendered orientation is the XOR of the logical face-up flag and whether the
// flip rotation has passed an odd number of half turns: a card can appear
// face up via rotation animation while its logical state remains face down,
// or vice versa. Call sites must never compute this ad hoc.
func RenderedFaceUp(logicalFaceUp bool, flipAngle float64) bool {
	halfTurns := int(math.Round(math.Abs(flipAngle) / 180))
	inverted := halfTurns%2 == 1
	return inverted != logicalFaceUp
}
