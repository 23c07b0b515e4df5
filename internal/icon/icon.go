// Package icon draws the application icon: a three-quarter progress ring
// on a dark rounded square. It is used by the tray, the web manifest and
// cmd/mkicon.
package icon

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	background = color.NRGBA{0x1d, 0x1f, 0x27, 0xff}
	track      = color.NRGBA{0x3a, 0x3e, 0x4a, 0xff}
	ring       = color.NRGBA{0xa5, 0x8f, 0xc9, 0xff}
)

// Fill is the fraction of the ring drawn in the accent colour.
const Fill = 0.75

// Draw renders the icon at size×size pixels.
func Draw(size int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	s := float64(size)
	c := s / 2
	corner := s * 0.18
	outer := s * 0.36
	width := s * 0.075

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			a := roundedSquareCoverage(px, py, s, corner)
			if a == 0 {
				continue
			}
			col := background

			dx, dy := px-c, py-c
			r := math.Hypot(dx, dy)
			if d := math.Abs(r - outer); d < width/2+1 {
				cov := math.Min(1, width/2+0.5-d)
				if cov > 0 {
					// Angle clockwise from twelve o'clock, in [0,1).
					t := math.Atan2(dx, -dy) / (2 * math.Pi)
					if t < 0 {
						t++
					}
					fg := track
					if t <= Fill {
						fg = ring
					}
					col = blend(col, fg, cov)
				}
			}
			col.A = uint8(float64(col.A) * a)
			img.SetNRGBA(x, y, col)
		}
	}
	return img
}

// PNG returns Draw(size) encoded as PNG.
func PNG(size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Draw(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func roundedSquareCoverage(x, y, size, radius float64) float64 {
	cx := math.Max(radius, math.Min(size-radius, x))
	cy := math.Max(radius, math.Min(size-radius, y))
	d := math.Hypot(x-cx, y-cy)
	return math.Max(0, math.Min(1, radius-d+0.5))
}

func blend(bg, fg color.NRGBA, a float64) color.NRGBA {
	mix := func(b, f uint8) uint8 { return uint8(float64(b)*(1-a) + float64(f)*a + 0.5) }
	return color.NRGBA{mix(bg.R, fg.R), mix(bg.G, fg.G), mix(bg.B, fg.B), 0xff}
}
