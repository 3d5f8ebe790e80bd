package diagnostics

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"seeingmetrics/pkg/seeing"
)

// ErrNoImage is returned when there is no frame to draw on.
var ErrNoImage = errors.New("no image data")

const previewMaxSize = 1600

var failedColor = color.RGBA{255, 60, 200, 255}

// StarOverlay returns a stretched preview of img, at most previewMaxSize
// pixels on a side, with a circle around every measured source. Circles of
// plausible fits are coloured by FWHM relative to the median of the frame;
// failed sources are magenta.
func StarOverlay(img *seeing.Image, outcomes []seeing.SourceOutcome) (*image.NRGBA, error) {
	if img == nil || img.Empty() {
		return nil, ErrNoImage
	}
	out := imaging.Fit(AutoStretch(img), previewMaxSize, previewMaxSize, imaging.Lanczos)
	scale := float64(out.Bounds().Dx()) / float64(img.Width)

	fwhms := make([]float64, 0, len(outcomes))
	for i := range outcomes {
		if outcomes[i].OK() {
			fwhms = append(fwhms, outcomes[i].FWHM)
		}
	}
	median := seeing.Median(fwhms)

	for i := range outcomes {
		o := &outcomes[i]
		x, y := o.Center()
		radius := 6
		c := color.Color(failedColor)
		if o.OK() {
			radius = max(int(o.FWHM*scale*1.5), 4)
			c = ratioColor(o.FWHM, median)
		}
		drawCircle(out, int(x*scale), int(y*scale), radius, c)
	}
	return out, nil
}

// RenderStarOverlay writes StarOverlay to path. The format follows the
// file extension.
func RenderStarOverlay(img *seeing.Image, outcomes []seeing.SourceOutcome, path string) error {
	out, err := StarOverlay(img, outcomes)
	if err != nil {
		return err
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("save star overlay: %w", err)
	}
	return nil
}
