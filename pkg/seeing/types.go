/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package seeing

import (
	"fmt"
	"math"
	"runtime"
)

// ThresholdMode selects how DetectorParams.Threshold is interpreted.
type ThresholdMode int

const (
	// ThresholdSigma multiplies Threshold by the clipped background standard
	// deviation, so it is a significance in units of the amplitude noise.
	ThresholdSigma ThresholdMode = iota
	// ThresholdAbsolute uses Threshold as a pixel noise level in
	// background-subtracted image units.
	ThresholdAbsolute
)

func (m ThresholdMode) String() string {
	switch m {
	case ThresholdSigma:
		return "sigma"
	case ThresholdAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// ParseThresholdMode parses "sigma" or "absolute".
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch s {
	case "sigma", "":
		return ThresholdSigma, nil
	case "absolute":
		return ThresholdAbsolute, nil
	}
	return 0, fmt.Errorf("%w: threshold mode %q", ErrInvalidParams, s)
}

// FilterWindow selects the flux window used by FilterGood.
type FilterWindow int

const (
	// FilterUpper keeps flux < UpperFactor * median.
	FilterUpper FilterWindow = iota
	// FilterSymmetric keeps median*(1-f) < flux < median*(1+f).
	FilterSymmetric
)

func (w FilterWindow) String() string {
	switch w {
	case FilterUpper:
		return "upper"
	case FilterSymmetric:
		return "symmetric"
	default:
		return "unknown"
	}
}

// ParseFilterWindow parses "upper" or "symmetric".
func ParseFilterWindow(s string) (FilterWindow, error) {
	switch s {
	case "upper", "":
		return FilterUpper, nil
	case "symmetric":
		return FilterSymmetric, nil
	}
	return 0, fmt.Errorf("%w: filter window %q", ErrInvalidParams, s)
}

// RatioRect represents a rectangle defined by ratios in [0, 1).
type RatioRect struct {
	StartX float64
	StartY float64
	Width  float64
	Height float64
}

// RatioRectFull is a RatioRect covering the entire image.
var RatioRectFull = RatioRect{StartX: 0, StartY: 0, Width: 1, Height: 1}

// NewRatioRect creates a new RatioRect with validation.
func NewRatioRect(startX, startY, width, height float64) (RatioRect, error) {
	if startX < 0 || startX >= 1 {
		return RatioRect{}, fmt.Errorf("startX must be in [0, 1), got %f", startX)
	}
	if startY < 0 || startY >= 1 {
		return RatioRect{}, fmt.Errorf("startY must be in [0, 1), got %f", startY)
	}
	if width <= 0 {
		return RatioRect{}, fmt.Errorf("width must be positive, got %f", width)
	}
	if height <= 0 {
		return RatioRect{}, fmt.Errorf("height must be positive, got %f", height)
	}
	return RatioRect{
		StartX: startX,
		StartY: startY,
		Width:  math.Min(width, 1.0-startX),
		Height: math.Min(height, 1.0-startY),
	}, nil
}

func (r RatioRect) EndExclusiveX() float64 { return r.StartX + r.Width }
func (r RatioRect) EndExclusiveY() float64 { return r.StartY + r.Height }

func (r RatioRect) IsFull() bool {
	return r.Width >= 1 && r.Height >= 1
}

// RatioRectFromCenterROI creates a RatioRect centered on the image with the given ROI ratio.
func RatioRectFromCenterROI(roi float64) RatioRect {
	return RatioRect{
		StartX: (1.0 - roi) / 2.0,
		StartY: (1.0 - roi) / 2.0,
		Width:  roi,
		Height: roi,
	}
}

// pixelBounds converts the ratios to pixel bounds [x0, x1) x [y0, y1).
func (r RatioRect) pixelBounds(width, height int) (x0, y0, x1, y1 int) {
	x0 = int(math.Floor(float64(width) * r.StartX))
	y0 = int(math.Floor(float64(height) * r.StartY))
	x1 = min(x0+int(float64(width)*r.Width), width)
	y1 = min(y0+int(float64(height)*r.Height), height)
	return x0, y0, x1, y1
}

// StarDetectionRegion restricts detection to OuterBoundary, minus the
// optional InnerCropBoundary.
type StarDetectionRegion struct {
	OuterBoundary     RatioRect
	InnerCropBoundary *RatioRect
}

// StarDetectionRegionFull covers the entire image.
var StarDetectionRegionFull = StarDetectionRegion{OuterBoundary: RatioRectFull}

func (r StarDetectionRegion) IsFull() bool {
	return r.InnerCropBoundary == nil && r.OuterBoundary.IsFull()
}

// Mask builds the detection mask of the region for an image of the given size.
func (r StarDetectionRegion) Mask(width, height int) *Mask {
	m := NewMask(width, height)
	x0, y0, x1, y1 := r.OuterBoundary.pixelBounds(width, height)
	m.ExcludeRect(0, 0, width, y0)
	m.ExcludeRect(0, y1, width, height)
	m.ExcludeRect(0, y0, x0, y1)
	m.ExcludeRect(x1, y0, width, y1)
	if r.InnerCropBoundary != nil {
		m.ExcludeRect(r.InnerCropBoundary.pixelBounds(width, height))
	}
	return m
}

// SigmaClip configures iterative sigma clipping.
type SigmaClip struct {
	Sigma    float64
	MaxIters int
}

// DefaultSigmaClip clips at 3 sigma for at most 5 iterations.
var DefaultSigmaClip = SigmaClip{Sigma: 3.0, MaxIters: 5}

// DetectorParams contains the source detection parameters.
type DetectorParams struct {
	// FWHM is the expected profile width in pixels; it sizes the matched filter.
	FWHM float64
	// Threshold is the detection significance, see ThresholdMode. It is
	// scaled by the amplitude noise of the kernel before it is compared with
	// the matched-filter amplitude.
	Threshold     float64
	ThresholdMode ThresholdMode
	SharpLo       float64
	SharpHi       float64
	Clip          SigmaClip
	Region        StarDetectionRegion
}

// FilterParams contains the flux window policy.
type FilterParams struct {
	Window            FilterWindow
	UpperFactor       float64
	SymmetricFraction float64
}

// FitterParams bounds the Levenberg-Marquardt solver.
type FitterParams struct {
	MaxIterations int
	Tolerance     float64
}

// AggregateParams contains the plausibility window and clipping of the aggregator.
type AggregateParams struct {
	MinFWHM float64
	MaxFWHM float64
	Clip    SigmaClip
}

// Params contains all parameters of a seeing estimation run.
type Params struct {
	Detector        DetectorParams
	Filter          FilterParams
	CutoutHalfWidth int
	Fitter          FitterParams
	Aggregate       AggregateParams
	// Workers bounds concurrent source fits; 0 uses GOMAXPROCS.
	Workers int
	// SubtractBackground offsets cutouts by the detection background median.
	SubtractBackground bool
	// Recenter refits each source on a cutout centred on its first fit.
	Recenter bool
}

// NewParams creates a Params with default values.
func NewParams() *Params {
	return &Params{
		Detector: DetectorParams{
			FWHM:          3.0,
			Threshold:     5.0,
			ThresholdMode: ThresholdSigma,
			SharpLo:       0.2,
			SharpHi:       1.0,
			Clip:          DefaultSigmaClip,
			Region:        StarDetectionRegionFull,
		},
		Filter: FilterParams{
			Window:            FilterUpper,
			UpperFactor:       2.0,
			SymmetricFraction: 0.25,
		},
		CutoutHalfWidth: 15,
		Fitter: FitterParams{
			MaxIterations: 400,
			Tolerance:     1e-10,
		},
		Aggregate: AggregateParams{
			MinFWHM: 0.5,
			MaxFWHM: 20.0,
			Clip:    DefaultSigmaClip,
		},
		SubtractBackground: true,
	}
}

// Validate checks the parameters for values the pipeline cannot run with.
func (p *Params) Validate() error {
	switch {
	case !(p.Detector.FWHM > 0):
		return fmt.Errorf("%w: detector FWHM must be positive, got %f", ErrInvalidParams, p.Detector.FWHM)
	case p.Detector.Threshold < 0:
		return fmt.Errorf("%w: threshold must be non-negative, got %f", ErrInvalidParams, p.Detector.Threshold)
	case p.Detector.SharpLo > p.Detector.SharpHi:
		return fmt.Errorf("%w: sharpness window [%f, %f] is empty", ErrInvalidParams, p.Detector.SharpLo, p.Detector.SharpHi)
	case p.CutoutHalfWidth <= 0:
		return fmt.Errorf("%w: cutout half width must be positive, got %d", ErrInvalidParams, p.CutoutHalfWidth)
	case p.Filter.UpperFactor <= 0:
		return fmt.Errorf("%w: filter upper factor must be positive, got %f", ErrInvalidParams, p.Filter.UpperFactor)
	case p.Filter.SymmetricFraction <= 0 || p.Filter.SymmetricFraction >= 1:
		return fmt.Errorf("%w: symmetric fraction must be in (0, 1), got %f", ErrInvalidParams, p.Filter.SymmetricFraction)
	case p.Fitter.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidParams, p.Fitter.MaxIterations)
	case p.Aggregate.MinFWHM > p.Aggregate.MaxFWHM:
		return fmt.Errorf("%w: FWHM window [%f, %f] is empty", ErrInvalidParams, p.Aggregate.MinFWHM, p.Aggregate.MaxFWHM)
	case p.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidParams, p.Workers)
	}
	return nil
}

func (p *Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// SourceCandidate is a detected point source.
type SourceCandidate struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Flux      float64 `json:"flux"`
	Peak      float64 `json:"peak"`
	Sharpness float64 `json:"sharpness"`
}

func (s SourceCandidate) String() string {
	return fmt.Sprintf("{X=%f, Y=%f, Flux=%f, Peak=%f, Sharpness=%f}", s.X, s.Y, s.Flux, s.Peak, s.Sharpness)
}

// DetectorMetrics tracks detection filtering statistics.
type DetectorMetrics struct {
	PeakCandidates int
	MaskedPeaks    int
	TooSharp       int
	TooFlat        int
	DegenerateFlux int
	TotalDetected  int
	UnmaskedPixels int
	KernelRadius   int
}

// DetectionResult is the output of Detect.
type DetectionResult struct {
	Sources    []SourceCandidate
	Background ClippedStats
	// Threshold is the effective matched-filter threshold in image units.
	Threshold float64
	Metrics   DetectorMetrics
}

// FittedProfile contains the result of a 2D Gaussian fit to a cutout.
// Positions are in cutout pixel coordinates.
type FittedProfile struct {
	Amplitude  float64 `json:"amplitude"`
	XMean      float64 `json:"x_mean"`
	YMean      float64 `json:"y_mean"`
	XStdDev    float64 `json:"x_stddev"`
	YStdDev    float64 `json:"y_stddev"`
	Theta      float64 `json:"theta"`
	Iterations int     `json:"iterations"`
	RSquared   float64 `json:"r_squared"`
}

func (p *FittedProfile) XFWHM() float64 { return p.XStdDev * SigmaToFWHM }
func (p *FittedProfile) YFWHM() float64 { return p.YStdDev * SigmaToFWHM }

// FWHM is the mean of the two axis widths converted to FWHM.
func (p *FittedProfile) FWHM() float64 {
	return (p.XStdDev + p.YStdDev) / 2.0 * SigmaToFWHM
}

func (p *FittedProfile) String() string {
	return fmt.Sprintf("{Amplitude=%f, XMean=%f, YMean=%f, XStdDev=%f, YStdDev=%f, Theta=%f, FWHM=%f, RSquared=%f}",
		p.Amplitude, p.XMean, p.YMean, p.XStdDev, p.YStdDev, p.Theta, p.FWHM(), p.RSquared)
}

// SeeingEstimate is the aggregated seeing of a scene, in pixels.
type SeeingEstimate struct {
	FWHM        float64 `json:"fwhm"`
	Median      float64 `json:"median"`
	StdDev      float64 `json:"stddev"`
	Used        int     `json:"used"`
	Implausible int     `json:"implausible"`
	Clipped     int     `json:"clipped"`
}

// ZonePosition identifies a zone in the 3x3 field grid.
type ZonePosition int

const (
	ZoneTopLeft ZonePosition = iota
	ZoneTop
	ZoneTopRight
	ZoneLeft
	ZoneCenter
	ZoneRight
	ZoneBottomLeft
	ZoneBottom
	ZoneBottomRight
)

// ZoneOrder lists the zones row by row.
var ZoneOrder = []ZonePosition{
	ZoneTopLeft, ZoneTop, ZoneTopRight,
	ZoneLeft, ZoneCenter, ZoneRight,
	ZoneBottomLeft, ZoneBottom, ZoneBottomRight,
}

// ZoneData holds per-zone statistics.
type ZoneData struct {
	Label      string  `json:"label"`
	MedianFWHM float64 `json:"median_fwhm"`
	StarCount  int     `json:"star_count"`
}

// FieldAnalysis holds the result of 3x3 field tilt analysis.
type FieldAnalysis struct {
	Zones       map[ZonePosition]ZoneData `json:"zones"`
	TiltPct     float64                   `json:"tilt_pct"`
	OffAxisPct  float64                   `json:"off_axis_pct"`
	BestCorner  string                    `json:"best_corner"`
	WorstCorner string                    `json:"worst_corner"`
	Reliable    bool                      `json:"reliable"`
}
