package render

import (
	"github.com/lucasb-eyer/go-colorful"
	"image/color"
	"math"
)

// goldenAngle is the hue step in degrees that spreads consecutive colors
// evenly around the color wheel
var goldenAngle = 180 * (3 - math.Sqrt(5))

var (
	// objectColors is the palette tracked objects are painted with, indexed
	// by object ID
	objectColors = Palette(32)

	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Gray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Palette returns n distinct saturated colors.  The sequence is deterministic
// so the same index always yields the same color.
func Palette(n int) []color.RGBA {

	if n < 0 {
		n = 0
	}

	pal := make([]color.RGBA, n)

	for i := range pal {
		hue := math.Mod(float64(i)*goldenAngle, 360)
		// alternate the value so neighbouring hues are easier to tell apart
		val := 1.0
		if i%2 == 1 {
			val = 0.8
		}

		r, g, b := colorful.Hsv(hue, 0.85, val).Clamped().RGB255()
		pal[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	return pal
}

// ObjectColor returns the color used to draw the object with the given ID
func ObjectColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return objectColors[id%len(objectColors)]
}
