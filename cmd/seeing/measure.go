package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"seeingmetrics/internal/config"
	"seeingmetrics/internal/diagnostics"
	"seeingmetrics/internal/history"
	applog "seeingmetrics/internal/log"
	"seeingmetrics/internal/report"
	"seeingmetrics/pkg/fitsimage"
	"seeingmetrics/pkg/seeing"
)

const (
	montageCell = 64
	montageCols = 10
)

// measureOptions holds the flags of the measure command. Flags only
// override the configuration when they are set on the command line.
type measureOptions struct {
	fwhm          float64
	threshold     float64
	thresholdMode string
	halfWidth     int
	filter        string
	workers       int
	recenter      bool
	roi           float64
	excludeCenter float64
	pixelScale    float64
	debayer       bool
	format        string
	history       bool

	positions string
	output    string
	overlay   string
	preview   string
	montage   string
	histogram string
}

func newMeasureCmd() *cobra.Command {
	opts := &measureOptions{}
	defaults := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "measure <image>",
		Short: "Measure the seeing of a FITS or raster image",
		Long: `Measure detects the stars of the image, keeps those whose flux is not far
above the median, fits a 2D Gaussian to a square cutout around each and
reports the sigma-clipped mean FWHM.

With --positions the detection step is skipped and the stars listed in the
CSV file (x,y per line, pixel coordinates) are measured instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runMeasure(ctx, args[0], cfg, opts, cmd.OutOrStdout(), newLogger(cmd))
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.fwhm, "fwhm", defaults.Detection.FWHM, "Expected star FWHM in pixels, sizes the detection filter")
	f.Float64Var(&opts.threshold, "threshold", defaults.Detection.Threshold, "Detection threshold, see --threshold-mode")
	f.StringVar(&opts.thresholdMode, "threshold-mode", defaults.Detection.ThresholdMode, "Threshold unit: sigma (background noise) or absolute")
	f.IntVar(&opts.halfWidth, "half-width", defaults.Fit.HalfWidth, "Half width of the square cutout fitted around each star")
	f.StringVar(&opts.filter, "filter", defaults.Filter.Window, "Flux window: upper (< 2x median) or symmetric (median +/- 25%)")
	f.IntVar(&opts.workers, "workers", defaults.Fit.Workers, "Concurrent fits, 0 for one per CPU")
	f.BoolVar(&opts.recenter, "recenter", defaults.Fit.Recenter, "Refit each star on a cutout centred on its first fit")
	f.Float64Var(&opts.roi, "roi", defaults.Image.ROI, "Centred fraction of the frame searched for stars")
	f.Float64Var(&opts.excludeCenter, "exclude-center", defaults.Image.ExcludeCenter, "Centred fraction of the frame excluded from detection")
	f.Float64Var(&opts.pixelScale, "pixel-scale", defaults.Image.PixelScale, "Pixel scale in arcsec/px, 0 to read it from the FITS header")
	f.BoolVar(&opts.debayer, "debayer", defaults.Image.Debayer, "Convert a raw RGGB frame to luminance")
	f.StringVarP(&opts.format, "format", "f", defaults.Output.Format, "Report format: text, json or markdown")
	f.BoolVar(&opts.history, "history", defaults.History.Enabled, "Record the run in the history database")
	f.StringVar(&opts.positions, "positions", "", "CSV file of star positions to measure instead of detecting")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.StringVar(&opts.overlay, "overlay", "", "Write the 3x3 field analysis overlay (JPEG)")
	f.StringVar(&opts.preview, "preview", "", "Write a stretched preview with the measured stars circled")
	f.StringVar(&opts.montage, "montage", "", "Write a montage of the star cutouts")
	f.StringVar(&opts.histogram, "histogram", "", "Write a histogram of the star FWHM values (PNG or SVG)")

	return cmd
}

// apply copies the flags set on the command line into cfg.
func (o *measureOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("fwhm") {
		cfg.Detection.FWHM = o.fwhm
	}
	if changed("threshold") {
		cfg.Detection.Threshold = o.threshold
	}
	if changed("threshold-mode") {
		cfg.Detection.ThresholdMode = o.thresholdMode
	}
	if changed("half-width") {
		cfg.Fit.HalfWidth = o.halfWidth
	}
	if changed("filter") {
		cfg.Filter.Window = o.filter
	}
	if changed("workers") {
		cfg.Fit.Workers = o.workers
	}
	if changed("recenter") {
		cfg.Fit.Recenter = o.recenter
	}
	if changed("roi") {
		cfg.Image.ROI = o.roi
	}
	if changed("exclude-center") {
		cfg.Image.ExcludeCenter = o.excludeCenter
	}
	if changed("pixel-scale") {
		cfg.Image.PixelScale = o.pixelScale
	}
	if changed("debayer") {
		cfg.Image.Debayer = o.debayer
	}
	if changed("format") {
		cfg.Output.Format = o.format
	}
	if changed("history") {
		cfg.History.Enabled = o.history
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Resolve(path)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	return applog.New(cmd.ErrOrStderr(), verbose, asJSON)
}

func runMeasure(ctx context.Context, path string, cfg *config.Config, opts *measureOptions, stdout io.Writer, logger *slog.Logger) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	estimator, err := seeing.NewEstimator(params, seeing.WithLogger(logger))
	if err != nil {
		return err
	}

	frame, err := fitsimage.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	img := frame.Image
	if cfg.Image.Debayer {
		img = fitsimage.DebayerRGGB(img)
	}
	logger.Info("loaded image", "path", path, "width", img.Width, "height", img.Height, "bitdepth", frame.BitDepth)

	pixelScale := cfg.Image.PixelScale
	if pixelScale == 0 {
		if scale, ok := frame.Metadata.PixelScale(); ok {
			pixelScale = scale
		}
	}

	var res *seeing.Result
	var runErr error
	if opts.positions != "" {
		res, runErr = measurePositions(ctx, estimator, img, opts.positions)
	} else {
		res, runErr = estimator.Estimate(ctx, img, nil)
	}
	if runErr != nil && !errors.Is(runErr, seeing.ErrInsufficientData) {
		return runErr
	}

	rep := report.New(filepath.Base(path), img.Width, img.Height, res, runErr, pixelScale)
	if err := writeReport(rep, cfg.Output.Format, opts.output, stdout); err != nil {
		return err
	}
	if err := writeDiagnostics(img, res, opts, logger); err != nil {
		return err
	}
	if cfg.History.Enabled {
		if err := recordHistory(ctx, cfg.HistoryDir(), rep); err != nil {
			return err
		}
	}
	return runErr
}

// measurePositions fits the stars listed in a CSV file and aggregates them
// the same way Estimate does.
func measurePositions(ctx context.Context, e *seeing.Estimator, img *seeing.Image, path string) (*seeing.Result, error) {
	start := time.Now()
	sources, err := readPositions(path)
	if err != nil {
		return nil, err
	}
	outcomes, err := e.MeasureSources(ctx, img, sources)
	if err != nil {
		return nil, err
	}

	res := &seeing.Result{
		GoodSources: sources,
		Outcomes:    outcomes,
		Field:       seeing.AnalyzeField(outcomes, img.Width, img.Height),
	}
	res.Seeing, err = seeing.Aggregate(res.FWHMs(), e.Params().Aggregate)
	res.Duration = time.Since(start)
	return res, err
}

func writeReport(rep *report.Report, format, output string, stdout io.Writer) (err error) {
	out := stdout
	if output != "" {
		var f *os.File
		f, err = os.Create(output) //nolint:gosec // user supplied output path
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		out = f
	}

	w, err := report.NewWriter(format, out)
	if err != nil {
		return err
	}
	return w.Write(rep)
}

func writeDiagnostics(img *seeing.Image, res *seeing.Result, opts *measureOptions, logger *slog.Logger) error {
	if res == nil {
		return nil
	}
	if opts.overlay != "" {
		if res.Field == nil {
			logger.Warn("no field analysis, skipping overlay", "path", opts.overlay)
		} else if err := diagnostics.RenderFieldOverlay(res.Field, img.Width, img.Height, opts.overlay); err != nil {
			return err
		}
	}
	if opts.preview != "" {
		if err := diagnostics.RenderStarOverlay(img, res.Outcomes, opts.preview); err != nil {
			return err
		}
	}
	if opts.montage != "" {
		err := diagnostics.SaveMontage(res.Outcomes, montageCell, montageCols, opts.montage)
		if errors.Is(err, diagnostics.ErrNoCutouts) {
			logger.Warn("no cutouts, skipping montage", "path", opts.montage)
		} else if err != nil {
			return err
		}
	}
	if opts.histogram != "" {
		err := diagnostics.SaveHistogram(res.FWHMs(), res.Seeing, opts.histogram)
		if errors.Is(err, diagnostics.ErrNoData) {
			logger.Warn("no FWHM values, skipping histogram", "path", opts.histogram)
		} else if err != nil {
			return err
		}
	}
	return nil
}

func recordHistory(ctx context.Context, dir string, rep *report.Report) error {
	store, err := history.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, rep)
}
