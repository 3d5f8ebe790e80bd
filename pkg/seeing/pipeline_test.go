package seeing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEstimator(t *testing.T, mutate func(*Params)) *Estimator {
	t.Helper()
	p := NewParams()
	p.Detector.FWHM = 7
	if mutate != nil {
		mutate(p)
	}
	e, err := NewEstimator(p, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return e
}

func TestEstimateSyntheticField(t *testing.T) {
	t.Parallel()

	truth := 3.0 * SigmaToFWHM
	for _, recenter := range []bool{false, true} {
		e := testEstimator(t, func(p *Params) { p.Recenter = recenter })
		img, stars := syntheticField(11)

		res, err := e.Estimate(context.Background(), img, nil)
		require.NoError(t, err, "recenter %v", recenter)
		require.NotNil(t, res.Seeing)

		assert.InEpsilon(t, truth, res.Seeing.FWHM, 0.1)
		assert.InEpsilon(t, truth, res.Seeing.Median, 0.1)
		assert.GreaterOrEqual(t, res.Seeing.Used, 15)
		assert.Len(t, res.Detection.Sources, len(stars))
		assert.Len(t, res.GoodSources, len(stars))
		assert.Len(t, res.Outcomes, len(res.GoodSources))
		assert.True(t, res.Duration > 0)

		for _, o := range res.Outcomes {
			require.NoError(t, o.Err)
			x, y := o.Center()
			_, d := nearest(stars, x, y)
			assert.Less(t, d, 0.2)
		}
		require.NotNil(t, res.Field)
		assert.Equal(t, len(stars), countStars(res.Field))
	}
}

func TestEstimateRandomField(t *testing.T) {
	t.Parallel()

	truth := 3.0 * SigmaToFWHM
	for seed := uint64(1); seed <= 5; seed++ {
		e, err := NewEstimator(NewParams(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		require.NoError(t, err)
		img, stars := randomStarField(seed)

		res, err := e.Estimate(context.Background(), img, nil)
		require.NoError(t, err, "seed %d", seed)
		require.NotNil(t, res.Seeing)
		assert.InEpsilon(t, truth, res.Seeing.FWHM, 0.1, "seed %d", seed)
		assert.Len(t, res.Detection.Sources, len(stars), "seed %d", seed)
		assert.Len(t, res.GoodSources, len(stars), "seed %d", seed)
	}
}

func countStars(fa *FieldAnalysis) int {
	n := 0
	for _, z := range fa.Zones {
		n += z.StarCount
	}
	return n
}

func TestEstimateImplausible(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, func(p *Params) { p.Aggregate.MaxFWHM = 5 })
	img, stars := syntheticField(12)

	res, err := e.Estimate(context.Background(), img, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
	require.NotNil(t, res)
	assert.Nil(t, res.Seeing)
	assert.Nil(t, res.Field)
	require.Len(t, res.Outcomes, len(stars))
	for _, o := range res.Outcomes {
		assert.ErrorIs(t, o.Err, ErrImplausibleFWHM)
		assert.NotNil(t, o.Profile)
	}
	assert.Len(t, res.FWHMs(), len(stars))
}

func TestEstimateEmptyImage(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, nil)
	res, err := e.Estimate(context.Background(), &Image{}, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
	require.NotNil(t, res)
	assert.Empty(t, res.Outcomes)
	assert.Nil(t, res.Seeing)

	_, err = e.Estimate(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrDetection)
}

func TestEstimateCancelled(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, nil)
	img, _ := syntheticField(13)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Estimate(ctx, img, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestMeasureSources(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, func(p *Params) { p.Workers = 2 })
	img, stars := syntheticField(14)

	sources := []SourceCandidate{
		{X: stars[6].X, Y: stars[6].Y},
		{X: 5, Y: 5},
		{X: 495, Y: 250},
		{X: stars[12].X + 0.4, Y: stars[12].Y - 0.3},
	}
	outcomes, err := e.MeasureSources(context.Background(), img, sources)
	require.NoError(t, err)
	require.Len(t, outcomes, len(sources))

	assert.True(t, outcomes[0].OK())
	assert.InEpsilon(t, 3.0*SigmaToFWHM, outcomes[0].FWHM, 0.1)
	assert.ErrorIs(t, outcomes[1].Err, ErrCutoutClipped)
	assert.Nil(t, outcomes[1].Cutout)
	assert.ErrorIs(t, outcomes[2].Err, ErrCutoutClipped)
	assert.True(t, outcomes[3].OK())

	x, y := outcomes[3].Center()
	assert.InDelta(t, stars[12].X, x, 0.2)
	assert.InDelta(t, stars[12].Y, y, 0.2)

	for i, o := range outcomes {
		assert.Equal(t, sources[i], o.Source)
	}
}

func TestMeasureSourcesOutOfRangePositions(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, func(p *Params) { p.Workers = 2 })
	img, stars := syntheticField(15)

	sources := []SourceCandidate{
		{X: math.Inf(1), Y: 250},
		{X: 250, Y: math.Inf(-1)},
		{X: math.NaN(), Y: 250},
		{X: 1e20, Y: 250},
		{X: 250, Y: 1e300},
		{X: stars[0].X, Y: stars[0].Y},
	}
	outcomes, err := e.MeasureSources(context.Background(), img, sources)
	require.NoError(t, err)
	require.Len(t, outcomes, len(sources))
	for _, o := range outcomes[:5] {
		assert.ErrorIs(t, o.Err, ErrCutoutClipped)
		assert.Nil(t, o.Cutout)
	}
	assert.True(t, outcomes[5].OK())
}

func TestMeasureSourcesFitFailure(t *testing.T) {
	t.Parallel()

	e := testEstimator(t, nil)
	img := &Image{Width: 100, Height: 100, Pix: make([]float64, 100*100)}

	outcomes, err := e.MeasureSources(context.Background(), img, []SourceCandidate{{X: 50, Y: 50}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, ErrFitConvergence)
	assert.False(t, outcomes[0].OK())
	assert.NotNil(t, outcomes[0].Cutout)

	res := &Result{Outcomes: outcomes}
	assert.Empty(t, res.FWHMs())
}

func TestNewEstimator(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(nil)
	require.NoError(t, err)
	assert.Equal(t, NewParams(), e.Params())

	p := NewParams()
	p.Detector.FWHM = -1
	_, err = NewEstimator(p)
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.True(t, errors.Is(err, ErrInvalidParams))
}
