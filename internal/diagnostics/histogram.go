package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"seeingmetrics/pkg/seeing"
)

// ErrNoData is returned when there is no finite FWHM to plot.
var ErrNoData = errors.New("no FWHM values to plot")

const (
	histogramWidth  = 6 * vg.Inch
	histogramHeight = 4 * vg.Inch
)

// Histogram plots the distribution of fwhms with the aggregated estimate,
// when not nil, as a vertical line.
func Histogram(fwhms []float64, est *seeing.SeeingEstimate, bins int) (*plot.Plot, error) {
	values := make(plotter.Values, 0, len(fwhms))
	for _, v := range fwhms {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}
	if bins <= 0 {
		bins = max(5, int(math.Sqrt(float64(len(values)))))
	}

	p := plot.New()
	p.Title.Text = "Star FWHM"
	p.X.Label.Text = "FWHM (px)"
	p.Y.Label.Text = "Stars"

	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, fmt.Errorf("build histogram: %w", err)
	}
	hist.FillColor = color.RGBA{90, 130, 200, 255}
	p.Add(hist)

	if est != nil {
		peak := 0.0
		for _, b := range hist.Bins {
			peak = math.Max(peak, b.Weight)
		}
		line, err := plotter.NewLine(plotter.XYs{{X: est.FWHM, Y: 0}, {X: est.FWHM, Y: peak}})
		if err != nil {
			return nil, fmt.Errorf("build estimate line: %w", err)
		}
		line.Color = color.RGBA{200, 30, 30, 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("seeing %.2f px", est.FWHM), line)
	}
	return p, nil
}

// SaveHistogram writes Histogram to path. The format follows the file
// extension.
func SaveHistogram(fwhms []float64, est *seeing.SeeingEstimate, path string) error {
	p, err := Histogram(fwhms, est, 0)
	if err != nil {
		return err
	}
	if err := p.Save(histogramWidth, histogramHeight, path); err != nil {
		return fmt.Errorf("save histogram: %w", err)
	}
	return nil
}

// HistogramPNG renders Histogram as PNG bytes.
func HistogramPNG(fwhms []float64, est *seeing.SeeingEstimate) ([]byte, error) {
	p, err := Histogram(fwhms, est, 0)
	if err != nil {
		return nil, err
	}
	wt, err := p.WriterTo(histogramWidth, histogramHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	return buf.Bytes(), nil
}
