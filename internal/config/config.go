package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"seeingmetrics/pkg/seeing"
)

const (
	// AppName names the XDG directories of the application.
	AppName = "seeingmetrics"

	// DefaultConfigFile is looked up in the current directory.
	DefaultConfigFile = ".seeing.yaml"

	// Output formats.
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Config is the complete run configuration.
type Config struct {
	Image     ImageConfig     `yaml:"image"`
	Detection DetectionConfig `yaml:"detection"`
	Filter    FilterConfig    `yaml:"filter"`
	Fit       FitConfig       `yaml:"fit"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Output    OutputConfig    `yaml:"output"`
	History   HistoryConfig   `yaml:"history"`
}

// ImageConfig describes how the input frame is prepared.
type ImageConfig struct {
	// PixelScale in arcsec per pixel. Zero reads it from the FITS header.
	PixelScale float64 `yaml:"pixel_scale"`
	// Debayer converts a raw RGGB mosaic to luminance before detection.
	Debayer bool `yaml:"debayer"`
	// ROI is the centred fraction of the frame searched for stars.
	ROI float64 `yaml:"roi"`
	// ExcludeCenter is the centred fraction of the frame ignored, 0 for none.
	ExcludeCenter float64 `yaml:"exclude_center"`
}

type DetectionConfig struct {
	FWHM          float64 `yaml:"fwhm"`
	Threshold     float64 `yaml:"threshold"`
	ThresholdMode string  `yaml:"threshold_mode"`
	SharpLo       float64 `yaml:"sharp_lo"`
	SharpHi       float64 `yaml:"sharp_hi"`
	ClipSigma     float64 `yaml:"clip_sigma"`
	ClipIters     int     `yaml:"clip_iters"`
}

type FilterConfig struct {
	Window            string  `yaml:"window"`
	UpperFactor       float64 `yaml:"upper_factor"`
	SymmetricFraction float64 `yaml:"symmetric_fraction"`
}

type FitConfig struct {
	HalfWidth          int     `yaml:"half_width"`
	MaxIterations      int     `yaml:"max_iterations"`
	Tolerance          float64 `yaml:"tolerance"`
	Workers            int     `yaml:"workers"`
	Recenter           bool    `yaml:"recenter"`
	SubtractBackground bool    `yaml:"subtract_background"`
}

type AggregateConfig struct {
	MinFWHM   float64 `yaml:"min_fwhm"`
	MaxFWHM   float64 `yaml:"max_fwhm"`
	ClipSigma float64 `yaml:"clip_sigma"`
	ClipIters int     `yaml:"clip_iters"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
}

type HistoryConfig struct {
	// Enabled records every measurement in the history database.
	Enabled bool `yaml:"enabled"`
	// Dir holds the database. Empty uses DataDir.
	Dir string `yaml:"dir"`
}

// NewConfig returns a Config with the defaults of seeing.NewParams.
func NewConfig() *Config {
	p := seeing.NewParams()
	return &Config{
		Image: ImageConfig{
			ROI: 1.0,
		},
		Detection: DetectionConfig{
			FWHM:          p.Detector.FWHM,
			Threshold:     p.Detector.Threshold,
			ThresholdMode: p.Detector.ThresholdMode.String(),
			SharpLo:       p.Detector.SharpLo,
			SharpHi:       p.Detector.SharpHi,
			ClipSigma:     p.Detector.Clip.Sigma,
			ClipIters:     p.Detector.Clip.MaxIters,
		},
		Filter: FilterConfig{
			Window:            p.Filter.Window.String(),
			UpperFactor:       p.Filter.UpperFactor,
			SymmetricFraction: p.Filter.SymmetricFraction,
		},
		Fit: FitConfig{
			HalfWidth:          p.CutoutHalfWidth,
			MaxIterations:      p.Fitter.MaxIterations,
			Tolerance:          p.Fitter.Tolerance,
			Workers:            p.Workers,
			Recenter:           p.Recenter,
			SubtractBackground: p.SubtractBackground,
		},
		Aggregate: AggregateConfig{
			MinFWHM:   p.Aggregate.MinFWHM,
			MaxFWHM:   p.Aggregate.MaxFWHM,
			ClipSigma: p.Aggregate.Clip.Sigma,
			ClipIters: p.Aggregate.Clip.MaxIters,
		},
		Output: OutputConfig{
			Format: FormatText,
		},
	}
}

// DataDir returns the XDG data directory of the application.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the XDG config directory of the application.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HistoryDir returns the directory of the history database.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	return DataDir()
}

// Validate checks the configuration, including the pipeline parameters it
// converts to.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatMarkdown:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}
	if !(c.Image.ROI > 0) || c.Image.ROI > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidROI, c.Image.ROI)
	}
	if c.Image.ExcludeCenter < 0 || c.Image.ExcludeCenter >= c.Image.ROI {
		return fmt.Errorf("%w: %f with roi %f", ErrInvalidExcludeCenter, c.Image.ExcludeCenter, c.Image.ROI)
	}
	if c.Image.PixelScale < 0 {
		return fmt.Errorf("%w: %f", ErrInvalidPixelScale, c.Image.PixelScale)
	}
	p, err := c.Params()
	if err != nil {
		return err
	}
	return p.Validate()
}

// Params converts the configuration to pipeline parameters.
func (c *Config) Params() (*seeing.Params, error) {
	mode, err := seeing.ParseThresholdMode(c.Detection.ThresholdMode)
	if err != nil {
		return nil, err
	}
	window, err := seeing.ParseFilterWindow(c.Filter.Window)
	if err != nil {
		return nil, err
	}

	region := seeing.StarDetectionRegionFull
	if c.Image.ROI < 1 {
		region.OuterBoundary = seeing.RatioRectFromCenterROI(c.Image.ROI)
	}
	if c.Image.ExcludeCenter > 0 {
		inner := seeing.RatioRectFromCenterROI(c.Image.ExcludeCenter)
		region.InnerCropBoundary = &inner
	}

	return &seeing.Params{
		Detector: seeing.DetectorParams{
			FWHM:          c.Detection.FWHM,
			Threshold:     c.Detection.Threshold,
			ThresholdMode: mode,
			SharpLo:       c.Detection.SharpLo,
			SharpHi:       c.Detection.SharpHi,
			Clip:          seeing.SigmaClip{Sigma: c.Detection.ClipSigma, MaxIters: c.Detection.ClipIters},
			Region:        region,
		},
		Filter: seeing.FilterParams{
			Window:            window,
			UpperFactor:       c.Filter.UpperFactor,
			SymmetricFraction: c.Filter.SymmetricFraction,
		},
		CutoutHalfWidth: c.Fit.HalfWidth,
		Fitter: seeing.FitterParams{
			MaxIterations: c.Fit.MaxIterations,
			Tolerance:     c.Fit.Tolerance,
		},
		Aggregate: seeing.AggregateParams{
			MinFWHM: c.Aggregate.MinFWHM,
			MaxFWHM: c.Aggregate.MaxFWHM,
			Clip:    seeing.SigmaClip{Sigma: c.Aggregate.ClipSigma, MaxIters: c.Aggregate.ClipIters},
		},
		Workers:            c.Fit.Workers,
		SubtractBackground: c.Fit.SubtractBackground,
		Recenter:           c.Fit.Recenter,
	}, nil
}

// Load reads a YAML configuration file on top of the defaults.
// A missing file returns ErrConfigNotFound.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Find returns the configuration file to use. An explicit path is returned
// as is; otherwise the current directory and then the XDG config directory
// are searched. It returns "" when no file exists.
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if cwd, err := os.Getwd(); err == nil {
		path := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	path := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// Resolve loads the file Find selects, or returns the defaults when there
// is none.
func Resolve(explicit string) (*Config, error) {
	path := Find(explicit)
	if path == "" {
		return NewConfig(), nil
	}
	return Load(path)
}
