package diagnostics

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"seeingmetrics/pkg/seeing"
)

// ErrNoCutouts is returned when no outcome carries a cutout.
var ErrNoCutouts = errors.New("no cutouts to render")

const montageBorder = 2

// Montage tiles the cutouts of outcomes into a grid of cols columns. Each
// cutout is min/max stretched and scaled to cell x cell pixels, framed green
// when the source contributed to the estimate and magenta otherwise.
func Montage(outcomes []seeing.SourceOutcome, cell, cols int) (*image.NRGBA, error) {
	if cell <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid montage layout: cell %d, cols %d", cell, cols)
	}
	tiles := make([]*seeing.SourceOutcome, 0, len(outcomes))
	for i := range outcomes {
		if c := outcomes[i].Cutout; c != nil && !c.Empty() {
			tiles = append(tiles, &outcomes[i])
		}
	}
	if len(tiles) == 0 {
		return nil, ErrNoCutouts
	}

	cols = min(cols, len(tiles))
	rows := (len(tiles) + cols - 1) / cols
	pitch := cell + 2*montageBorder
	dst := imaging.New(cols*pitch, rows*pitch, color.Black)

	for i, o := range tiles {
		x0 := (i % cols) * pitch
		y0 := (i / cols) * pitch
		frame := color.Color(failedColor)
		if o.OK() {
			frame = rampGood
		}
		fill(dst, image.Rect(x0, y0, x0+pitch, y0+pitch), frame)

		lo, hi := o.Cutout.Range()
		tile := imaging.Resize(Stretch(&o.Cutout.Image, lo, hi), cell, cell, imaging.NearestNeighbor)
		dst = imaging.Paste(dst, tile, image.Pt(x0+montageBorder, y0+montageBorder))
	}
	return dst, nil
}

// SaveMontage writes Montage to path. The format follows the file extension.
func SaveMontage(outcomes []seeing.SourceOutcome, cell, cols int, path string) error {
	m, err := Montage(outcomes, cell, cols)
	if err != nil {
		return err
	}
	if err := imaging.Save(m, path); err != nil {
		return fmt.Errorf("save montage: %w", err)
	}
	return nil
}
