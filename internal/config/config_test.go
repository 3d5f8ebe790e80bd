package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seeingmetrics/pkg/seeing"
)

func TestNewConfigMatchesDefaultParams(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	p, err := cfg.Params()
	require.NoError(t, err)
	if diff := cmp.Diff(seeing.NewParams(), p); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
image:
  pixel_scale: 1.25
  roi: 0.8
  exclude_center: 0.2
detection:
  fwhm: 6.5
  threshold_mode: absolute
  threshold: 40
filter:
  window: symmetric
fit:
  half_width: 20
  recenter: true
output:
  format: markdown
history:
  enabled: true
  dir: /tmp/seeing-history
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.25, cfg.Image.PixelScale)
	assert.Equal(t, FormatMarkdown, cfg.Output.Format)
	assert.Equal(t, "/tmp/seeing-history", cfg.HistoryDir())
	assert.True(t, cfg.History.Enabled)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 3.0, cfg.Detection.ClipSigma)
	assert.Equal(t, 400, cfg.Fit.MaxIterations)
	assert.True(t, cfg.Fit.SubtractBackground)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, 6.5, p.Detector.FWHM)
	assert.Equal(t, seeing.ThresholdAbsolute, p.Detector.ThresholdMode)
	assert.Equal(t, 40.0, p.Detector.Threshold)
	assert.Equal(t, seeing.FilterSymmetric, p.Filter.Window)
	assert.Equal(t, 20, p.CutoutHalfWidth)
	assert.True(t, p.Recenter)
	assert.InDelta(t, 0.1, p.Detector.Region.OuterBoundary.StartX, 1e-12)
	require.NotNil(t, p.Detector.Region.InnerCropBoundary)
	assert.InDelta(t, 0.4, p.Detector.Region.InnerCropBoundary.StartX, 1e-12)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("detection: [1, 2"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"format", func(c *Config) { c.Output.Format = "xml" }, ErrInvalidFormat},
		{"roi zero", func(c *Config) { c.Image.ROI = 0 }, ErrInvalidROI},
		{"roi above one", func(c *Config) { c.Image.ROI = 1.5 }, ErrInvalidROI},
		{"exclude negative", func(c *Config) { c.Image.ExcludeCenter = -0.1 }, ErrInvalidExcludeCenter},
		{"exclude covers roi", func(c *Config) { c.Image.ROI, c.Image.ExcludeCenter = 0.5, 0.5 }, ErrInvalidExcludeCenter},
		{"pixel scale", func(c *Config) { c.Image.PixelScale = -1 }, ErrInvalidPixelScale},
		{"threshold mode", func(c *Config) { c.Detection.ThresholdMode = "percent" }, seeing.ErrInvalidParams},
		{"filter window", func(c *Config) { c.Filter.Window = "lower" }, seeing.ErrInvalidParams},
		{"fwhm", func(c *Config) { c.Detection.FWHM = 0 }, seeing.ErrInvalidParams},
		{"half width", func(c *Config) { c.Fit.HalfWidth = 0 }, seeing.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestFindAndResolve(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "explicit.yaml")
	assert.Equal(t, path, Find(path))

	_, err := Resolve(path)
	require.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0o600))
	cfg, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
}

func TestHistoryDirDefault(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	assert.Equal(t, DataDir(), cfg.HistoryDir())
	assert.Equal(t, AppName, filepath.Base(DataDir()))
	assert.Equal(t, AppName, filepath.Base(ConfigDir()))
}
