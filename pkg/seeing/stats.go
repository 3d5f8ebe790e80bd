package seeing

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// SigmaToFWHM converts a Gaussian standard deviation to its full width at half maximum.
var SigmaToFWHM = 2.0 * math.Sqrt(2.0*math.Log(2.0))

// ClippedStats holds the statistics of the values surviving sigma clipping.
type ClippedStats struct {
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	StdDev     float64 `json:"stddev"`
	N          int     `json:"n"`
	Iterations int     `json:"iterations"`
}

func (s ClippedStats) String() string {
	return fmt.Sprintf("{Mean=%f, Median=%f, StdDev=%f, N=%d, Iterations=%d}", s.Mean, s.Median, s.StdDev, s.N, s.Iterations)
}

// SigmaClippedStats iteratively rejects values further than clip.Sigma
// standard deviations from the median, until nothing is rejected or
// clip.MaxIters passes have run. Non-finite values are ignored.
// With no usable values, N is 0 and the statistics are NaN.
func SigmaClippedStats(values []float64, clip SigmaClip) ClippedStats {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return ClippedStats{Mean: math.NaN(), Median: math.NaN(), StdDev: math.NaN()}
	}
	slices.Sort(kept)

	iterations := 0
	for iterations < clip.MaxIters {
		med := sortedMedian(kept)
		_, std := stat.PopMeanStdDev(kept, nil)
		lo, hi := med-clip.Sigma*std, med+clip.Sigma*std

		// kept is sorted, so the survivors are a contiguous run.
		start, _ := slices.BinarySearch(kept, lo)
		end := len(kept)
		for end > start && kept[end-1] > hi {
			end--
		}
		iterations++
		if start == 0 && end == len(kept) {
			break
		}
		// The median always lies inside [lo, hi], so kept never empties.
		kept = kept[start:end]
	}

	mean, std := stat.PopMeanStdDev(kept, nil)
	return ClippedStats{
		Mean:       mean,
		Median:     sortedMedian(kept),
		StdDev:     std,
		N:          len(kept),
		Iterations: iterations,
	}
}

// Median returns the median of the finite values, or NaN if there are none.
func Median(values []float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	slices.Sort(sorted)
	return sortedMedian(sorted)
}

func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}
