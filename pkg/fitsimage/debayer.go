package fitsimage

import "seeingmetrics/pkg/seeing"

// DebayerRGGB interpolates a raw RGGB mosaic bilinearly and returns the
// luminance (R+G+B)/3 of every pixel. Red sits on even rows and even
// columns, blue on odd rows and odd columns. Neighbours outside the frame
// replicate the nearest edge pixel.
func DebayerRGGB(src *seeing.Image) *seeing.Image {
	w, h := src.Width, src.Height
	out := &seeing.Image{Width: w, Height: h, Pix: make([]float64, w*h)}

	at := func(x, y int) float64 {
		return src.Pix[min(max(y, 0), h-1)*w+min(max(x, 0), w-1)]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			self := at(x, y)
			horiz := (at(x-1, y) + at(x+1, y)) / 2
			vert := (at(x, y-1) + at(x, y+1)) / 2
			cross := (horiz + vert) / 2
			diag := (at(x-1, y-1) + at(x+1, y-1) + at(x-1, y+1) + at(x+1, y+1)) / 4

			// On red and blue sites the two other channels are the cross and
			// diagonal means; on green sites they are the row and column pairs.
			var sum float64
			if (x+y)%2 == 0 {
				sum = self + cross + diag
			} else {
				sum = self + horiz + vert
			}
			out.Pix[y*w+x] = sum / 3
		}
	}
	return out
}
