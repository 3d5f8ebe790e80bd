package seeing

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateRejectsOutliers(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(7, 11))
	fwhms := make([]float64, 0, 105)
	for i := 0; i < 100; i++ {
		fwhms = append(fwhms, 3.0+0.1*r.NormFloat64())
	}
	for i := 0; i < 5; i++ {
		fwhms = append(fwhms, 15.0)
	}

	est, err := Aggregate(fwhms, NewParams().Aggregate)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, est.FWHM, 0.05)
	assert.InDelta(t, 3.0, est.Median, 0.05)
	assert.Less(t, est.StdDev, 0.2)
	assert.Equal(t, 0, est.Implausible)
	assert.GreaterOrEqual(t, est.Clipped, 5)
	assert.Equal(t, len(fwhms), est.Used+est.Clipped+est.Implausible)
}

func TestAggregateWindow(t *testing.T) {
	t.Parallel()

	p := AggregateParams{MinFWHM: 1, MaxFWHM: 5, Clip: DefaultSigmaClip}
	est, err := Aggregate([]float64{1, 5, 0.99, 5.01, math.NaN(), math.Inf(1)}, p)
	require.NoError(t, err)
	assert.Equal(t, 2, est.Used)
	assert.Equal(t, 4, est.Implausible)
	assert.Equal(t, 0, est.Clipped)
	assert.InDelta(t, 3.0, est.FWHM, 1e-12)

	assert.True(t, p.Plausible(1))
	assert.True(t, p.Plausible(5))
	assert.False(t, p.Plausible(math.NaN()))
}

func TestAggregateInsufficientData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		fwhms []float64
	}{
		{"nil", nil},
		{"empty", []float64{}},
		{"all implausible", []float64{0.1, 0.2, 25, 40}},
		{"non-finite", []float64{math.NaN(), math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			est, err := Aggregate(tt.fwhms, NewParams().Aggregate)
			require.ErrorIs(t, err, ErrInsufficientData)
			assert.Nil(t, est)
		})
	}
}

func TestAggregateSingleValue(t *testing.T) {
	t.Parallel()

	est, err := Aggregate([]float64{4.2}, NewParams().Aggregate)
	require.NoError(t, err)
	assert.InDelta(t, 4.2, est.FWHM, 1e-12)
	assert.InDelta(t, 4.2, est.Median, 1e-12)
	assert.InDelta(t, 0.0, est.StdDev, 1e-12)
	assert.Equal(t, 1, est.Used)
}
