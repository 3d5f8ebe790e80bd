package fitsimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder

	"seeingmetrics/pkg/seeing"
)

var fitsExtensions = map[string]bool{".fits": true, ".fit": true, ".fts": true}

// IsFITS reports whether path has a FITS file extension.
func IsFITS(path string) bool {
	return fitsExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads a FITS file or a raster image (PNG, JPEG, GIF, TIFF, BMP),
// chosen by the file extension.
func Load(path string) (*Frame, error) {
	if IsFITS(path) {
		return ReadFITS(path)
	}
	return readRaster(path)
}

// LoadBytes decodes an in-memory FITS file or raster image.
func LoadBytes(data []byte) (*Frame, error) {
	if bytes.HasPrefix(data, []byte("SIMPLE")) {
		return ReadFITSFromBytes(data)
	}
	return DecodeRaster(bytes.NewReader(data))
}

// DecodeRaster decodes a raster image into 16-bit luminance values.
func DecodeRaster(r io.Reader) (*Frame, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	return frameFromImage(img)
}

func decodeRasterFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	return DecodeRaster(f)
}

func frameFromImage(img image.Image) (*Frame, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			pix[y*w+x] = float64(gray.Y)
		}
	}
	out, err := seeing.NewImage(pix, h, w)
	if err != nil {
		return nil, err
	}
	return &Frame{Image: out, BitDepth: 16, Metadata: NewMetadata()}, nil
}
