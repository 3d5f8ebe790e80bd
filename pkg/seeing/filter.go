package seeing

import "math"

// FilterGood keeps the candidates whose flux lies inside the window around the
// median candidate flux selected by p.Window. Saturated and blended sources
// sit far above the median and are removed.
func FilterGood(cands []SourceCandidate, p FilterParams) []SourceCandidate {
	good := make([]SourceCandidate, 0, len(cands))
	if len(cands) == 0 {
		return good
	}

	fluxes := make([]float64, len(cands))
	for i, c := range cands {
		fluxes[i] = c.Flux
	}
	med := Median(fluxes)

	var lo, hi float64
	switch p.Window {
	case FilterSymmetric:
		lo = med - p.SymmetricFraction*med
		hi = med + p.SymmetricFraction*med
	default:
		lo = math.Inf(-1)
		hi = p.UpperFactor * med
	}

	for _, c := range cands {
		if c.Flux > lo && c.Flux < hi {
			good = append(good, c)
		}
	}
	return good
}
