package seeing

import "fmt"

// Cutout is a square stamp of an image. OriginX and OriginY are the image
// coordinates of the stamp's (0, 0) pixel.
type Cutout struct {
	Image
	OriginX int
	OriginY int
}

// ToImage maps cutout coordinates to image coordinates.
func (c *Cutout) ToImage(x, y float64) (float64, float64) {
	return x + float64(c.OriginX), y + float64(c.OriginY)
}

func (c *Cutout) String() string {
	return fmt.Sprintf("{Origin=(%d, %d), Size=%dx%d}", c.OriginX, c.OriginY, c.Width, c.Height)
}

// ExtractCutout returns the 2*halfWidth square stamp whose window is
// [int(y)-halfWidth, int(y)+halfWidth) x [int(x)-halfWidth, int(x)+halfWidth).
// It reports false when the window is not entirely inside img.
func ExtractCutout(img *Image, xCenter, yCenter float64, halfWidth int) (*Cutout, bool) {
	if img == nil || halfWidth <= 0 || 2*halfWidth > min(img.Width, img.Height) {
		return nil, false
	}
	// Rejects NaN and anything int() cannot represent.
	if !(xCenter >= 0 && xCenter < float64(img.Width)) || !(yCenter >= 0 && yCenter < float64(img.Height)) {
		return nil, false
	}
	x0 := int(xCenter) - halfWidth
	y0 := int(yCenter) - halfWidth
	x1 := int(xCenter) + halfWidth
	y1 := int(yCenter) + halfWidth
	if x0 < 0 || y0 < 0 || x1 > img.Width || y1 > img.Height {
		return nil, false
	}

	size := 2 * halfWidth
	pix := make([]float64, 0, size*size)
	for y := y0; y < y1; y++ {
		pix = append(pix, img.Pix[y*img.Width+x0:y*img.Width+x1]...)
	}
	return &Cutout{
		Image:   Image{Width: size, Height: size, Pix: pix},
		OriginX: x0,
		OriginY: y0,
	}, true
}
