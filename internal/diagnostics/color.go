package diagnostics

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	rampGood  = colorful.Color{R: 0.15, G: 0.55, B: 0.20}
	rampWarn  = colorful.Color{R: 0.85, G: 0.75, B: 0.10}
	rampBad   = colorful.Color{R: 0.95, G: 0.15, B: 0.10}
	rampEmpty = color.RGBA{40, 40, 40, 255}
)

// ratioColor maps value/reference to a green, yellow, red ramp. Ratios up
// to 1 are green and 1.6 or more are red.
func ratioColor(value, reference float64) color.RGBA {
	if value <= 0 || reference <= 0 || math.IsNaN(value) {
		return rampEmpty
	}
	t := math.Max(0, math.Min((value/reference-1)/0.6, 1))

	var c colorful.Color
	if t < 0.5 {
		c = rampGood.BlendLab(rampWarn, t*2)
	} else {
		c = rampWarn.BlendLab(rampBad, (t-0.5)*2)
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}
