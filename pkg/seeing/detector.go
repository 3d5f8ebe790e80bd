/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package seeing

import (
	"context"
	"fmt"
	"image"
	"math"
)

// detectionKernel is a lowered, normalized circular Gaussian. Correlating
// background-subtracted data with it yields the amplitude of the best-fitting
// Gaussian at each pixel. For white pixel noise of standard deviation s the
// amplitude noise is s*relerr.
type detectionKernel struct {
	half      int
	weights   []float64
	footprint []image.Point
	inFP      []bool
	relerr    float64
}

func newDetectionKernel(fwhm float64) detectionKernel {
	sigma := fwhm / SigmaToFWHM
	radius := 1.5 * sigma
	half := max(2, int(radius))
	size := 2*half + 1

	k := detectionKernel{
		half:    half,
		weights: make([]float64, size*size),
		inFP:    make([]bool, size*size),
	}
	gauss := make([]float64, size*size)
	var sum, sumSq float64
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			r := math.Hypot(float64(dx), float64(dy))
			if r > radius && r > 2.0 {
				continue
			}
			i := (dy+half)*size + dx + half
			g := math.Exp(-float64(dx*dx+dy*dy) / (2 * sigma * sigma))
			gauss[i] = g
			k.inFP[i] = true
			k.footprint = append(k.footprint, image.Pt(dx, dy))
			sum += g
			sumSq += g * g
		}
	}
	n := float64(len(k.footprint))
	denom := sumSq - sum*sum/n
	k.relerr = 1 / math.Sqrt(denom)
	for i, in := range k.inFP {
		if in {
			k.weights[i] = (gauss[i] - sum/n) / denom
		}
	}
	return k
}

func (k detectionKernel) mat() Mat {
	size := 2*k.half + 1
	m := NewMatWithSize(size, size)
	data := m.DataFloat32()
	for i, w := range k.weights {
		data[i] = float32(w)
	}
	return m
}

// Detect finds point sources in img. Pixels excluded by mask are never
// reported as source peaks; a nil mask falls back to p.Region.
func Detect(ctx context.Context, img *Image, p DetectorParams, mask *Mask) (*DetectionResult, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	if !(p.FWHM > 0) {
		return nil, fmt.Errorf("%w: FWHM must be positive, got %f", ErrInvalidParams, p.FWHM)
	}
	if mask == nil && !p.Region.IsFull() {
		mask = p.Region.Mask(img.Width, img.Height)
	}
	if mask != nil && (mask.Width != img.Width || mask.Height != img.Height) {
		return nil, fmt.Errorf("%w: mask is %dx%d, image is %dx%d", ErrDetection, mask.Height, mask.Width, img.Height, img.Width)
	}

	kernel := newDetectionKernel(p.FWHM)
	result := &DetectionResult{
		Sources: []SourceCandidate{},
		Metrics: DetectorMetrics{KernelRadius: kernel.half},
	}
	if img.Empty() {
		result.Background = SigmaClippedStats(nil, p.Clip)
		return result, nil
	}

	background := make([]float64, 0, len(img.Pix))
	for i, v := range img.Pix {
		if mask == nil || !mask.excluded[i] {
			background = append(background, v)
		}
	}
	result.Background = SigmaClippedStats(background, p.Clip)
	result.Metrics.UnmaskedPixels = len(background)
	if result.Background.N == 0 {
		return result, nil
	}

	// Threshold is compared with the amplitude map, so it is scaled to the
	// amplitude noise of the kernel.
	switch p.ThresholdMode {
	case ThresholdAbsolute:
		result.Threshold = p.Threshold * kernel.relerr
	default:
		result.Threshold = p.Threshold * result.Background.StdDev * kernel.relerr
	}

	width, height := img.Width, img.Height
	sub := NewMatWithSize(height, width)
	defer sub.Close()
	subData := sub.DataFloat32()
	for i, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			subData[i] = 0
			continue
		}
		subData[i] = float32(v - result.Background.Median)
	}

	kmat := kernel.mat()
	defer kmat.Close()
	conv := NewMatWithSize(height, width)
	defer conv.Close()
	filter2DConstant(sub, &conv, kmat)
	convData := conv.DataFloat32()

	half := kernel.half
	for y := half; y < height-half; y++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for x := half; x < width-half; x++ {
			amp := float64(convData[y*width+x])
			if !(amp > result.Threshold) || !isLocalMax(convData, width, x, y, kernel.footprint) {
				continue
			}
			result.Metrics.PeakCandidates++

			if mask != nil && footprintMasked(mask, x, y, kernel.footprint) {
				result.Metrics.MaskedPeaks++
				continue
			}

			src, ok := measureSource(subData, width, x, y, amp, kernel, p, &result.Metrics)
			if ok {
				result.Sources = append(result.Sources, src)
			}
		}
	}
	result.Metrics.TotalDetected = len(result.Sources)
	return result, nil
}

// isLocalMax reports whether (x, y) is the maximum of the amplitude map over
// the footprint. Plateaus resolve to their first pixel in scan order.
func isLocalMax(conv []float32, width, x, y int, footprint []image.Point) bool {
	c := conv[y*width+x]
	for _, d := range footprint {
		if d.X == 0 && d.Y == 0 {
			continue
		}
		v := conv[(y+d.Y)*width+x+d.X]
		if v > c {
			return false
		}
		if v == c && (d.Y < 0 || (d.Y == 0 && d.X < 0)) {
			return false
		}
	}
	return true
}

func footprintMasked(mask *Mask, x, y int, footprint []image.Point) bool {
	for _, d := range footprint {
		if mask.Excluded(x+d.X, y+d.Y) {
			return true
		}
	}
	return false
}

// measureSource computes DAOFIND sharpness, the weighted centroid and the
// flux of the peak at (x, y).
func measureSource(sub []float32, width, x, y int, amp float64, k detectionKernel, p DetectorParams, metrics *DetectorMetrics) (SourceCandidate, bool) {
	peak := float64(sub[y*width+x])

	var others float64
	for _, d := range k.footprint {
		if d.X == 0 && d.Y == 0 {
			continue
		}
		others += float64(sub[(y+d.Y)*width+x+d.X])
	}
	sharpness := (peak - others/float64(len(k.footprint)-1)) / amp
	if sharpness < p.SharpLo {
		metrics.TooFlat++
		return SourceCandidate{}, false
	}
	if sharpness > p.SharpHi {
		metrics.TooSharp++
		return SourceCandidate{}, false
	}

	var flux, sx, sy float64
	for _, d := range k.footprint {
		v := float64(sub[(y+d.Y)*width+x+d.X])
		if v <= 0 {
			continue
		}
		flux += v
		sx += v * float64(x+d.X)
		sy += v * float64(y+d.Y)
	}
	if !(flux > 0) {
		metrics.DegenerateFlux++
		return SourceCandidate{}, false
	}

	return SourceCandidate{
		X:         sx / flux,
		Y:         sy / flux,
		Flux:      flux,
		Peak:      peak,
		Sharpness: sharpness,
	}, true
}
