package seeing

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func withFluxes(fluxes ...float64) []SourceCandidate {
	cands := make([]SourceCandidate, len(fluxes))
	for i, f := range fluxes {
		cands[i] = SourceCandidate{X: float64(i), Y: float64(i), Flux: f}
	}
	return cands
}

func TestFilterGoodUpper(t *testing.T) {
	t.Parallel()

	p := NewParams().Filter
	cands := withFluxes(100, 90, 110, 105, 95, 5000, 199, 200)
	got := FilterGood(cands, p)

	// median flux is 107.5, the window is flux < 215
	want := withFluxes(100, 90, 110, 105, 95, 5000, 199, 200)
	want = append(want[:5:5], want[6], want[7])
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterGood mismatch (-want +got):\n%s", diff)
	}

	med := Median([]float64{100, 90, 110, 105, 95, 5000, 199, 200})
	for _, c := range got {
		assert.Less(t, c.Flux, p.UpperFactor*med)
	}
}

func TestFilterGoodSymmetric(t *testing.T) {
	t.Parallel()

	p := NewParams().Filter
	p.Window = FilterSymmetric
	cands := withFluxes(100, 74, 76, 124, 126, 100, 100)
	got := FilterGood(cands, p)

	// median 100, window (75, 125) exclusive
	assert.Len(t, got, 5)
	for _, c := range got {
		assert.Greater(t, c.Flux, 75.0)
		assert.Less(t, c.Flux, 125.0)
	}
}

func TestFilterGoodEdgeCases(t *testing.T) {
	t.Parallel()

	p := NewParams().Filter
	assert.Empty(t, FilterGood(nil, p))
	assert.NotNil(t, FilterGood(nil, p))

	single := withFluxes(42)
	assert.Equal(t, single, FilterGood(single, p))
}

func TestFilterGoodUpperRandom(t *testing.T) {
	t.Parallel()

	p := NewParams().Filter
	r := rand.New(rand.NewPCG(21, 8))
	for trial := 0; trial < 200; trial++ {
		fluxes := make([]float64, 1+r.IntN(60))
		for i := range fluxes {
			// Log-uniform over four decades, with occasional exact repeats.
			fluxes[i] = 10 * math.Pow(10, 4*r.Float64())
			if i > 0 && r.IntN(8) == 0 {
				fluxes[i] = fluxes[r.IntN(i)]
			}
		}
		cands := withFluxes(fluxes...)

		// Any subset, with the median recomputed over that subset.
		for _, set := range [][]SourceCandidate{cands, randomSubset(r, cands)} {
			if len(set) == 0 {
				continue
			}
			med := Median(candidateFluxes(set))
			got := FilterGood(set, p)
			kept := 0
			for _, c := range set {
				if c.Flux < p.UpperFactor*med {
					kept++
				}
			}
			assert.Len(t, got, kept, "trial %d", trial)
			for _, c := range got {
				assert.Less(t, c.Flux, p.UpperFactor*med, "trial %d", trial)
			}
			// At least half the candidates are at or below the median.
			assert.GreaterOrEqual(t, 2*len(got), len(set), "trial %d", trial)
		}
	}
}

func randomSubset(r *rand.Rand, cands []SourceCandidate) []SourceCandidate {
	var out []SourceCandidate
	for _, c := range cands {
		if r.IntN(2) == 0 {
			out = append(out, c)
		}
	}
	return out
}

func candidateFluxes(cands []SourceCandidate) []float64 {
	out := make([]float64, len(cands))
	for i, c := range cands {
		out[i] = c.Flux
	}
	return out
}
