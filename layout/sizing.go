package layout

import "sync"

// DeviceMode classifies the viewport into a small number of tiers. Scales and
// card sizes are looked up per tier rather than interpolated continuously.
type DeviceMode string

const (
	DeviceSmallMobile DeviceMode = "small_mobile"
	DeviceMobile      DeviceMode = "mobile"
	DeviceFull        DeviceMode = "full"
)

// Breakpoint widths for device classification.
const (
	smallMobileMaxWidth = 480
	mobileMaxWidth      = 900
)

// UsageKind names the context a card is rendered in; every context has its own
// scale multiplier per device tier.
type UsageKind string

const (
	UsageUserHand     UsageKind = "userHand"
	UsageOpponentHand UsageKind = "opponentHand"
	UsagePlayArea     UsageKind = "playArea"
	UsageDeck         UsageKind = "deck"
	UsageTricksWon    UsageKind = "tricksWon"
	UsageSweep        UsageKind = "sweep"
	UsageMini         UsageKind = "mini"
	UsageHidden       UsageKind = "hidden"
)

var baseCardWidths = map[DeviceMode]float64{
	DeviceSmallMobile: 52,
	DeviceMobile:      64,
	DeviceFull:        80,
}

var scaleTables = map[DeviceMode]map[UsageKind]float64{
	DeviceSmallMobile: {
		UsageUserHand:     1.15,
		UsageOpponentHand: 0.55,
		UsagePlayArea:     0.75,
		UsageDeck:         0.65,
		UsageTricksWon:    0.45,
		UsageSweep:        0.60,
		UsageMini:         0.35,
		UsageHidden:       0.01,
	},
	DeviceMobile: {
		UsageUserHand:     1.25,
		UsageOpponentHand: 0.60,
		UsagePlayArea:     0.85,
		UsageDeck:         0.70,
		UsageTricksWon:    0.50,
		UsageSweep:        0.65,
		UsageMini:         0.40,
		UsageHidden:       0.01,
	},
	DeviceFull: {
		UsageUserHand:     1.35,
		UsageOpponentHand: 0.70,
		UsagePlayArea:     1.00,
		UsageDeck:         0.80,
		UsageTricksWon:    0.55,
		UsageSweep:        0.75,
		UsageMini:         0.45,
		UsageHidden:       0.01,
	},
}

// ClassifyDevice maps a viewport width to its device tier.
func ClassifyDevice(width float64) DeviceMode {
	switch {
	case width <= smallMobileMaxWidth:
		return DeviceSmallMobile
	case width <= mobileMaxWidth:
		return DeviceMobile
	default:
		return DeviceFull
	}
}

// BaseCardWidthFor returns the unscaled card width for a device tier.
func BaseCardWidthFor(mode DeviceMode) float64 {
	return baseCardWidths[mode]
}

// ScaleFor returns the scale multiplier for a usage context at a device tier.
func ScaleFor(usage UsageKind, mode DeviceMode) float64 {
	if table, ok := scaleTables[mode]; ok {
		if s, ok := table[usage]; ok {
			return s
		}
	}
	return 1
}

// Viewport holds the cached viewport reading. It is constructed once at
// application start and passed to every component that needs sizing; the
// rendering layer calls Update on each resize event, so the classification
// runs once per resize rather than once per card per frame.
type Viewport struct {
	mu     sync.RWMutex
	width  float64
	height float64
}

// NewViewport creates a viewport context with an initial reading.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{width: width, height: height}
}

// Update replaces the cached reading.
func (v *Viewport) Update(width, height float64) {
	v.mu.Lock()
	v.width = width
	v.height = height
	v.mu.Unlock()
}

// Size returns the cached width and height.
func (v *Viewport) Size() (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

// Mode returns the device tier for the cached reading.
func (v *Viewport) Mode() DeviceMode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ClassifyDevice(v.width)
}

// BaseCardWidth returns the unscaled card width for the cached reading.
func (v *Viewport) BaseCardWidth() float64 {
	return BaseCardWidthFor(v.Mode())
}

// Scale returns the multiplier for a usage context at the cached reading.
func (v *Viewport) Scale(usage UsageKind) float64 {
	return ScaleFor(usage, v.Mode())
}
