package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"seeingmetrics/pkg/seeing"
)

// Star status values.
const (
	StatusOK            = "ok"
	StatusCutoutClipped = "cutout_clipped"
	StatusFitFailed     = "fit_failed"
	StatusImplausible   = "implausible"
	StatusCancelled     = "cancelled"
	StatusError         = "error"
)

// Star is the report line of one measured source.
type Star struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Flux      float64 `json:"flux"`
	Sharpness float64 `json:"sharpness"`
	FWHM      float64 `json:"fwhm,omitempty"`
	Status    string  `json:"status"`
}

// Report is the outcome of one seeing measurement.
type Report struct {
	ID         string                 `json:"id"`
	Image      string                 `json:"image"`
	Width      int                    `json:"width"`
	Height     int                    `json:"height"`
	CreatedAt  time.Time              `json:"created_at"`
	DurationMS float64                `json:"duration_ms"`
	PixelScale float64                `json:"pixel_scale,omitempty"`
	Seeing     *seeing.SeeingEstimate `json:"seeing,omitempty"`
	FWHMArcsec float64                `json:"fwhm_arcsec,omitempty"`
	Background *seeing.ClippedStats   `json:"background,omitempty"`
	Threshold  float64                `json:"threshold"`
	Detected   int                    `json:"detected"`
	Good       int                    `json:"good"`
	Failures   map[string]int         `json:"failures,omitempty"`
	Field      *seeing.FieldAnalysis  `json:"field,omitempty"`
	Stars      []Star                 `json:"stars"`
	Error      string                 `json:"error,omitempty"`
}

// New builds a report for the image named name. res may be partial or nil
// and runErr is the error Estimate returned, if any. pixelScale is in
// arcsec per pixel, 0 when unknown.
func New(name string, width, height int, res *seeing.Result, runErr error, pixelScale float64) *Report {
	r := &Report{
		ID:         uuid.NewString(),
		Image:      name,
		Width:      width,
		Height:     height,
		CreatedAt:  time.Now().UTC(),
		PixelScale: pixelScale,
		Stars:      []Star{},
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if res == nil {
		return r
	}

	r.DurationMS = float64(res.Duration) / float64(time.Millisecond)
	r.Seeing = res.Seeing
	r.Field = res.Field
	r.Good = len(res.GoodSources)
	if r.Seeing != nil {
		r.FWHMArcsec = r.Arcsec(r.Seeing.FWHM)
	}
	if det := res.Detection; det != nil {
		r.Detected = len(det.Sources)
		r.Threshold = det.Threshold
		if det.Background.N > 0 {
			bg := det.Background
			r.Background = &bg
		}
	}

	for i := range res.Outcomes {
		o := &res.Outcomes[i]
		x, y := o.Center()
		star := Star{
			X:         x,
			Y:         y,
			Flux:      o.Source.Flux,
			Sharpness: o.Source.Sharpness,
			Status:    Status(o.Err),
		}
		if o.Profile != nil {
			star.FWHM = o.FWHM
		}
		if star.Status != StatusOK {
			if r.Failures == nil {
				r.Failures = make(map[string]int)
			}
			r.Failures[star.Status]++
		}
		r.Stars = append(r.Stars, star)
	}
	return r
}

// Status maps a per-source error to its report status.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, seeing.ErrCutoutClipped):
		return StatusCutoutClipped
	case errors.Is(err, seeing.ErrFitConvergence):
		return StatusFitFailed
	case errors.Is(err, seeing.ErrImplausibleFWHM):
		return StatusImplausible
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusError
	}
}

// Arcsec converts a length in pixels to arcseconds. It returns 0 when the
// pixel scale is unknown.
func (r *Report) Arcsec(px float64) float64 {
	if r.PixelScale <= 0 {
		return 0
	}
	return px * r.PixelScale
}

// OK reports whether the run produced a seeing estimate.
func (r *Report) OK() bool { return r.Seeing != nil }
