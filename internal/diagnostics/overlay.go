package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"

	"golang.org/x/image/font/basicfont"

	"seeingmetrics/pkg/seeing"
)

// ErrNoField is returned when there is no field analysis to draw.
var ErrNoField = errors.New("no field analysis data")

const (
	overlayWidth    = 800
	overlaySummaryH = 60
	jpegQuality     = 90
)

var zoneGrid = [3][3]seeing.ZonePosition{
	{seeing.ZoneTopLeft, seeing.ZoneTop, seeing.ZoneTopRight},
	{seeing.ZoneLeft, seeing.ZoneCenter, seeing.ZoneRight},
	{seeing.ZoneBottomLeft, seeing.ZoneBottom, seeing.ZoneBottomRight},
}

// RenderFieldOverlay draws the field analysis of a width x height frame and
// writes it to outputPath as JPEG.
func RenderFieldOverlay(field *seeing.FieldAnalysis, width, height int, outputPath string) error {
	data, err := FieldOverlayJPEG(field, width, height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil { //nolint:gosec // output image is not sensitive
		return fmt.Errorf("write overlay file: %w", err)
	}
	return nil
}

// FieldOverlayJPEG draws the field analysis and returns it as JPEG bytes.
func FieldOverlayJPEG(field *seeing.FieldAnalysis, width, height int) ([]byte, error) {
	img, err := renderFieldImage(field, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// renderFieldImage paints each zone by its median FWHM relative to the
// centre, labels it and draws the tilt arrow from the best to the worst
// corner. The frame is rendered overlayWidth pixels wide.
func renderFieldImage(field *seeing.FieldAnalysis, width, height int) (*image.RGBA, error) {
	if field == nil {
		return nil, ErrNoField
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	scale := float64(overlayWidth) / float64(width)
	imgW := overlayWidth
	imgH := max(int(float64(height)*scale), 100)
	totalH := imgH + overlaySummaryH

	img := image.NewRGBA(image.Rect(0, 0, imgW, totalH))
	fill(img, img.Bounds(), color.Black)

	frac := seeing.FieldEdgeFraction
	xLo := int(float64(imgW) * frac)
	xHi := int(float64(imgW) * (1.0 - frac))
	yLo := int(float64(imgH) * frac)
	yHi := int(float64(imgH) * (1.0 - frac))
	xBounds := [3][2]int{{0, xLo}, {xLo, xHi}, {xHi, imgW}}
	yBounds := [3][2]int{{0, yLo}, {yLo, yHi}, {yHi, imgH}}

	centerFWHM := field.Zones[seeing.ZoneCenter].MedianFWHM
	if centerFWHM <= 0 {
		centerFWHM = 1
	}

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			zone := field.Zones[zoneGrid[row][col]]
			r := image.Rect(xBounds[col][0], yBounds[row][0], xBounds[col][1], yBounds[row][1])
			fill(img, r, ratioColor(zone.MedianFWHM, centerFWHM))
		}
	}

	gridColor := color.RGBA{255, 255, 255, 180}
	for x := 0; x < imgW; x++ {
		img.Set(x, yLo, gridColor)
		img.Set(x, yHi, gridColor)
	}
	for y := 0; y < imgH; y++ {
		img.Set(xLo, y, gridColor)
		img.Set(xHi, y, gridColor)
	}

	face := basicfont.Face7x13
	white := color.RGBA{255, 255, 255, 255}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			zone := field.Zones[zoneGrid[row][col]]
			x0, x1 := xBounds[col][0], xBounds[col][1]
			y0, y1 := yBounds[row][0], yBounds[row][1]
			cx := (x0 + x1) / 2
			cy := (y0 + y1) / 2

			// Circle radius follows the zone FWHM on the rendered scale.
			if zone.MedianFWHM > 0 {
				radius := min(max(int(zone.MedianFWHM*scale*3), 3), (x1-x0)/3)
				drawCircle(img, cx, cy, radius, color.RGBA{255, 255, 255, 200})
			}

			drawCenteredText(img, face, zoneGrid[row][col].String(), cx, cy-14, white)
			drawCenteredText(img, face, fmt.Sprintf("FWHM: %.2f", zone.MedianFWHM), cx, cy+2, white)
			drawCenteredText(img, face, fmt.Sprintf("n=%d", zone.StarCount), cx, cy+16, white)
		}
	}

	if field.WorstCorner != "" && field.BestCorner != "" {
		bestX, bestY := cornerCenter(field.BestCorner, xBounds, yBounds)
		worstX, worstY := cornerCenter(field.WorstCorner, xBounds, yBounds)
		arrowColor := color.RGBA{255, 80, 80, 255}
		drawLine(img, bestX, bestY, worstX, worstY, arrowColor)
		drawArrowHead(img, bestX, bestY, worstX, worstY, arrowColor)
	}

	summaryColor := color.RGBA{220, 220, 220, 255}
	summaryY := imgH + 15
	tilt := fmt.Sprintf("Tilt: %.1f%%  (worst: %s, best: %s)", field.TiltPct, field.WorstCorner, field.BestCorner)
	offAxis := fmt.Sprintf("Off-axis: %.1f%%", field.OffAxisPct)
	if !field.Reliable {
		offAxis += "  [LOW STAR COUNT - UNRELIABLE]"
	}
	drawText(img, face, tilt, 10, summaryY, summaryColor)
	drawText(img, face, offAxis, 10, summaryY+18, summaryColor)

	return img, nil
}

// cornerCenter returns the centre pixel of a named corner zone.
func cornerCenter(label string, xBounds, yBounds [3][2]int) (int, int) {
	var col, row int
	switch label {
	case seeing.ZoneTopLeft.String():
		col, row = 0, 0
	case seeing.ZoneTopRight.String():
		col, row = 2, 0
	case seeing.ZoneBottomLeft.String():
		col, row = 0, 2
	case seeing.ZoneBottomRight.String():
		col, row = 2, 2
	default:
		return 0, 0
	}
	return (xBounds[col][0] + xBounds[col][1]) / 2, (yBounds[row][0] + yBounds[row][1]) / 2
}
