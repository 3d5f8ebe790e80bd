package seeing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImage(t *testing.T) {
	t.Parallel()

	img, err := NewImage([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 6.0, img.At(2, 1))
	assert.Equal(t, 2.0, img.At(1, 0))

	empty, err := NewImage(nil, 0, 0)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	tests := []struct {
		name  string
		pix   []float64
		shape []int
	}{
		{"one dimension", []float64{1, 2}, []int{2}},
		{"three dimensions", []float64{1, 2}, []int{1, 1, 2}},
		{"size mismatch", []float64{1, 2, 3}, []int{2, 2}},
		{"negative", nil, []int{-1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewImage(tt.pix, tt.shape...)
			require.ErrorIs(t, err, ErrDetection)
		})
	}
}

func TestNewImageFromRows(t *testing.T) {
	t.Parallel()

	img, err := NewImageFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, img.Pix)

	_, err = NewImageFromRows([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, ErrDetection)

	empty, err := NewImageFromRows(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestStarDetectionRegionMask(t *testing.T) {
	t.Parallel()

	inner := RatioRectFromCenterROI(0.5)
	region := StarDetectionRegion{OuterBoundary: RatioRectFull, InnerCropBoundary: &inner}
	m := region.Mask(8, 8)
	assert.False(t, m.Excluded(0, 0))
	assert.True(t, m.Excluded(2, 2))
	assert.True(t, m.Excluded(5, 5))
	assert.False(t, m.Excluded(6, 6))
	assert.Equal(t, 64-16, m.Included())

	outer := StarDetectionRegion{OuterBoundary: RatioRectFromCenterROI(0.5)}
	m = outer.Mask(8, 8)
	assert.Equal(t, 16, m.Included())
	assert.False(t, m.Excluded(3, 4))
	assert.True(t, m.Excluded(1, 4))
	assert.True(t, m.Excluded(4, 7))

	assert.True(t, StarDetectionRegionFull.IsFull())
	assert.False(t, region.IsFull())
}

func TestNewRatioRect(t *testing.T) {
	t.Parallel()

	r, err := NewRatioRect(0.5, 0.25, 0.8, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r.Width, 1e-12)
	assert.InDelta(t, 0.5, r.Height, 1e-12)

	_, err = NewRatioRect(1.0, 0, 0.5, 0.5)
	require.Error(t, err)
	_, err = NewRatioRect(0, 0, 0, 0.5)
	require.Error(t, err)
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero FWHM", func(p *Params) { p.Detector.FWHM = 0 }},
		{"negative threshold", func(p *Params) { p.Detector.Threshold = -1 }},
		{"inverted sharpness", func(p *Params) { p.Detector.SharpLo = 2 }},
		{"zero half width", func(p *Params) { p.CutoutHalfWidth = 0 }},
		{"symmetric fraction", func(p *Params) { p.Filter.SymmetricFraction = 1 }},
		{"no iterations", func(p *Params) { p.Fitter.MaxIterations = 0 }},
		{"empty FWHM window", func(p *Params) { p.Aggregate.MinFWHM = 30 }},
		{"negative workers", func(p *Params) { p.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewParams()
			tt.mutate(p)
			require.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestParseModes(t *testing.T) {
	t.Parallel()

	m, err := ParseThresholdMode("absolute")
	require.NoError(t, err)
	assert.Equal(t, ThresholdAbsolute, m)
	assert.Equal(t, "sigma", ThresholdSigma.String())
	_, err = ParseThresholdMode("percent")
	require.ErrorIs(t, err, ErrInvalidParams)

	w, err := ParseFilterWindow("symmetric")
	require.NoError(t, err)
	assert.Equal(t, FilterSymmetric, w)
	assert.Equal(t, "upper", FilterUpper.String())
	_, err = ParseFilterWindow("lower")
	require.ErrorIs(t, err, ErrInvalidParams)
}
