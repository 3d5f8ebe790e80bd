package seeing

import (
	"fmt"
	"math"
)

// Plausible reports whether fwhm is finite and inside [MinFWHM, MaxFWHM].
func (p AggregateParams) Plausible(fwhm float64) bool {
	return !math.IsNaN(fwhm) && !math.IsInf(fwhm, 0) && fwhm >= p.MinFWHM && fwhm <= p.MaxFWHM
}

// Aggregate combines per-source FWHM values into a seeing estimate: values
// outside the plausibility window are dropped, the rest are sigma clipped
// and their mean is the estimate.
func Aggregate(fwhms []float64, p AggregateParams) (*SeeingEstimate, error) {
	plausible := make([]float64, 0, len(fwhms))
	for _, v := range fwhms {
		if p.Plausible(v) {
			plausible = append(plausible, v)
		}
	}
	if len(plausible) == 0 {
		return nil, fmt.Errorf("%w: no plausible FWHM among %d values", ErrInsufficientData, len(fwhms))
	}

	s := SigmaClippedStats(plausible, p.Clip)
	if s.N == 0 {
		return nil, fmt.Errorf("%w: every value was clipped", ErrInsufficientData)
	}
	return &SeeingEstimate{
		FWHM:        s.Mean,
		Median:      s.Median,
		StdDev:      s.StdDev,
		Used:        s.N,
		Implausible: len(fwhms) - len(plausible),
		Clipped:     len(plausible) - s.N,
	}, nil
}
