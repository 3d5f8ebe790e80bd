package seeing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// SourceOutcome is the measurement of one source. Err is nil on success and
// otherwise wraps ErrCutoutClipped, ErrFitConvergence, ErrImplausibleFWHM or
// the context error.
type SourceOutcome struct {
	Source  SourceCandidate
	Cutout  *Cutout
	Profile *FittedProfile
	FWHM    float64
	Err     error
}

// Center returns the fitted centre in image coordinates, or the detected
// position when there is no fit.
func (o *SourceOutcome) Center() (float64, float64) {
	if o.Profile == nil || o.Cutout == nil {
		return o.Source.X, o.Source.Y
	}
	return o.Cutout.ToImage(o.Profile.XMean, o.Profile.YMean)
}

// OK reports whether the source contributes to the seeing estimate.
func (o *SourceOutcome) OK() bool { return o.Err == nil }

// Result is the output of Estimator.Estimate.
type Result struct {
	Seeing      *SeeingEstimate
	Detection   *DetectionResult
	GoodSources []SourceCandidate
	Outcomes    []SourceOutcome
	Field       *FieldAnalysis
	Duration    time.Duration
}

// FWHMs returns the FWHM of every outcome that produced a fit, plausible or not.
func (r *Result) FWHMs() []float64 {
	values := make([]float64, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil || errors.Is(o.Err, ErrImplausibleFWHM) {
			values = append(values, o.FWHM)
		}
	}
	return values
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used for stage summaries and per-source skips.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Estimator) {
		e.logger = logger
	}
}

// Estimator runs the detect, filter, measure and aggregate stages with a
// fixed set of parameters. It is safe for concurrent use.
type Estimator struct {
	params *Params
	logger *slog.Logger
}

// NewEstimator validates p and returns an Estimator. A nil p uses NewParams.
func NewEstimator(p *Params, opts ...Option) (*Estimator, error) {
	if p == nil {
		p = NewParams()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Estimator{params: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Estimator) Params() *Params { return e.params }

// Estimate measures the seeing of img. When no plausible measurement
// survives, the partial result is returned together with ErrInsufficientData.
func (e *Estimator) Estimate(ctx context.Context, img *Image, mask *Mask) (*Result, error) {
	start := time.Now()

	det, err := Detect(ctx, img, e.params.Detector, mask)
	if err != nil {
		return nil, err
	}
	e.logger.Info("detected sources",
		"count", len(det.Sources),
		"peaks", det.Metrics.PeakCandidates,
		"background", det.Background.Median,
		"noise", det.Background.StdDev,
		"threshold", det.Threshold)

	good := FilterGood(det.Sources, e.params.Filter)
	e.logger.Info("filtered sources", "good", len(good), "rejected", len(det.Sources)-len(good))

	offset := 0.0
	if e.params.SubtractBackground && det.Background.N > 0 {
		offset = det.Background.Median
	}
	outcomes := e.measureSources(ctx, img, good, offset)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Detection:   det,
		GoodSources: good,
		Outcomes:    outcomes,
		Field:       AnalyzeField(outcomes, img.Width, img.Height),
	}
	result.Seeing, err = Aggregate(result.FWHMs(), e.params.Aggregate)
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}
	e.logger.Info("estimated seeing",
		"fwhm", result.Seeing.FWHM,
		"used", result.Seeing.Used,
		"implausible", result.Seeing.Implausible,
		"clipped", result.Seeing.Clipped,
		"duration", result.Duration)
	return result, nil
}

// MeasureSources cuts out and fits every source of img. The sources may come
// from Detect or from any external selection. A failing source never aborts
// the batch; its outcome carries the error.
func (e *Estimator) MeasureSources(ctx context.Context, img *Image, sources []SourceCandidate) ([]SourceOutcome, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	offset := 0.0
	if e.params.SubtractBackground {
		if bg := SigmaClippedStats(img.Pix, e.params.Detector.Clip); bg.N > 0 {
			offset = bg.Median
		}
	}
	outcomes := e.measureSources(ctx, img, sources, offset)
	return outcomes, ctx.Err()
}

func (e *Estimator) measureSources(ctx context.Context, img *Image, sources []SourceCandidate, offset float64) []SourceOutcome {
	outcomes := make([]SourceOutcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.params.workers())
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = SourceOutcome{Source: src, Err: err}
				return nil
			}
			outcomes[i] = e.measureSource(img, src, offset)
			if err := outcomes[i].Err; err != nil {
				e.logger.Debug("skipping source", "x", src.X, "y", src.Y, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Estimator) measureSource(img *Image, src SourceCandidate, offset float64) SourceOutcome {
	out := SourceOutcome{Source: src}
	hw := e.params.CutoutHalfWidth

	c, ok := ExtractCutout(img, src.X, src.Y, hw)
	if !ok {
		out.Err = fmt.Errorf("%w: source at (%.1f, %.1f), half width %d", ErrCutoutClipped, src.X, src.Y, hw)
		return out
	}
	subtractOffset(c, offset)

	profile, err := FitProfile(c, e.params.Fitter)
	if err != nil {
		out.Cutout = c
		out.Err = fmt.Errorf("source at (%.1f, %.1f): %w", src.X, src.Y, err)
		return out
	}

	if e.params.Recenter {
		cx, cy := c.ToImage(profile.XMean, profile.YMean)
		if rc, ok := ExtractCutout(img, cx, cy, hw); ok {
			subtractOffset(rc, offset)
			if refit, err := FitProfile(rc, e.params.Fitter); err == nil {
				c, profile = rc, refit
			} else {
				e.logger.Debug("recentered fit failed, keeping first fit", "x", cx, "y", cy, "error", err)
			}
		}
	}

	out.Cutout = c
	out.Profile = profile
	out.FWHM = profile.FWHM()
	if !e.params.Aggregate.Plausible(out.FWHM) {
		out.Err = fmt.Errorf("%w: %.3f px outside [%.2f, %.2f]", ErrImplausibleFWHM,
			out.FWHM, e.params.Aggregate.MinFWHM, e.params.Aggregate.MaxFWHM)
	}
	return out
}

func subtractOffset(c *Cutout, offset float64) {
	if offset == 0 {
		return
	}
	for i := range c.Pix {
		c.Pix[i] -= offset
	}
}
