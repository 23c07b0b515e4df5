package render

import (
	"math"
	"strings"
)

// WebRingRadius is the radius of the web view's SVG progress circle.
const WebRingRadius = 90

// Ring describes a circular progress indicator drawn as a dashed stroke.
type Ring struct {
	Circumference float64
	// DashOffset is the undrawn length of the stroke.
	DashOffset float64
}

// RingFor returns the stroke geometry for progress (clamped to [0,1]) on
// a circle of radius r.
func RingFor(progress, r float64) Ring {
	progress = clamp01(progress)
	c := 2 * math.Pi * r
	return Ring{Circumference: c, DashOffset: c * (1 - progress)}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	}
	return f
}

// ringGlyphs are the eighths used for the terminal ring.
var ringGlyphs = []string{"○", "◔", "◔", "◑", "◑", "◕", "◕", "●"}

// Glyph returns a single character approximating progress.
func Glyph(progress float64) string {
	i := int(clamp01(progress) * float64(len(ringGlyphs)-1))
	return ringGlyphs[i]
}

// Bar returns a width-cell text bar with filled cells for progress.
func Bar(progress float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(clamp01(progress) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
