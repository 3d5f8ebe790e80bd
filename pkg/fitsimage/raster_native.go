//go:build !purego && !js

package fitsimage

import (
	"fmt"

	"gocv.io/x/gocv"

	"seeingmetrics/pkg/seeing"
)

// readRaster loads through OpenCV, which keeps the full bit depth of 16-bit
// PNG and TIFF files. Formats OpenCV cannot read fall back to the Go decoders.
func readRaster(path string) (*Frame, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale|gocv.IMReadAnyDepth)
	if src.Empty() {
		return decodeRasterFile(path)
	}
	defer src.Close()

	scale := 1.0
	if src.Type() == gocv.MatTypeCV8U {
		scale = 257.0
	}

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV32F)
	data, err := floatMat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	w, h := floatMat.Cols(), floatMat.Rows()
	pix := make([]float64, w*h)
	for i := range pix {
		pix[i] = float64(data[i]) * scale
	}
	img, err := seeing.NewImage(pix, h, w)
	if err != nil {
		return nil, err
	}
	return &Frame{Image: img, BitDepth: 16, Metadata: NewMetadata()}, nil
}
