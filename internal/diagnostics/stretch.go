package diagnostics

import (
	"image"
	"math"

	"seeingmetrics/pkg/seeing"
)

// Stretch maps img linearly to 8-bit grey, black at lo and white at hi.
// Non-finite pixels are black.
func Stretch(img *seeing.Image, lo, hi float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	span := hi - lo
	for i, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) || !(span > 0) {
			continue
		}
		t := (v - lo) / span
		out.Pix[(i/img.Width)*out.Stride+i%img.Width] = uint8(math.Round(255 * math.Max(0, math.Min(t, 1))))
	}
	return out
}

// AutoStretch stretches img from one background sigma below the clipped
// median to fifteen sigma above it, so faint stars stay visible.
func AutoStretch(img *seeing.Image) *image.Gray {
	bg := seeing.SigmaClippedStats(img.Pix, seeing.DefaultSigmaClip)
	lo, hi := img.Range()
	if bg.N > 0 && bg.StdDev > 0 {
		lo = math.Max(lo, bg.Median-bg.StdDev)
		hi = math.Min(hi, bg.Median+15*bg.StdDev)
	}
	return Stretch(img, lo, hi)
}
