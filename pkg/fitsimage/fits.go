package fitsimage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/astrogo/fitsio"

	"seeingmetrics/pkg/seeing"
)

// Frame is a decoded image with its header metadata.
type Frame struct {
	Image    *seeing.Image
	BitDepth int
	Metadata *Metadata
}

// ReadFITS reads the primary image HDU of a FITS file.
func ReadFITS(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return DecodeFITS(f)
}

// ReadFITSFromBytes decodes a FITS file held in memory.
func ReadFITSFromBytes(data []byte) (*Frame, error) {
	return DecodeFITS(bytes.NewReader(data))
}

// DecodeFITS decodes the primary image HDU from r. Pixel values are
// physical values (BSCALE and BZERO applied).
func DecodeFITS(r io.Reader) (*Frame, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFITS, err)
	}
	defer f.Close()

	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: primary HDU is not an image", ErrInvalidFITS)
	}
	hdr := hdu.Header()

	axes := hdr.Axes()
	if len(axes) < 2 || axes[0] == 0 || axes[1] == 0 {
		return nil, fmt.Errorf("%w: axes %v", ErrInvalidFITS, axes)
	}
	for _, extra := range axes[2:] {
		if extra != 1 {
			return nil, fmt.Errorf("%w: only single-plane images are supported, axes %v", ErrInvalidFITS, axes)
		}
	}
	width, height := axes[0], axes[1]

	meta := NewMetadata()
	for _, key := range hdr.Keys() {
		if card := hdr.Get(key); card != nil && card.Value != nil {
			meta.Set(key, cardString(card.Value))
		}
	}
	bscale := 1.0
	if v, ok := meta.GetDouble("BSCALE"); ok {
		bscale = v
	}
	bzero, _ := meta.GetDouble("BZERO")

	pix, err := decodePixels(hdu.Raw(), hdr.Bitpix(), width*height, bscale, bzero)
	if err != nil {
		return nil, err
	}
	img, err := seeing.NewImage(pix, height, width)
	if err != nil {
		return nil, err
	}
	return &Frame{Image: img, BitDepth: abs(hdr.Bitpix()), Metadata: meta}, nil
}

func decodePixels(raw []byte, bitpix, n int, bscale, bzero float64) ([]float64, error) {
	size := abs(bitpix) / 8
	if size == 0 {
		return nil, fmt.Errorf("%w: BITPIX %d", ErrInvalidFITS, bitpix)
	}
	if len(raw) < n*size {
		return nil, fmt.Errorf("%w: %d data bytes for %d pixels of BITPIX %d", ErrInvalidFITS, len(raw), n, bitpix)
	}

	pix := make([]float64, n)
	for i := range pix {
		b := raw[i*size:]
		var v float64
		switch bitpix {
		case 8:
			v = float64(b[0])
		case 16:
			v = float64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			v = float64(int32(binary.BigEndian.Uint32(b)))
		case 64:
			v = float64(int64(binary.BigEndian.Uint64(b)))
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(b))
		default:
			return nil, fmt.Errorf("%w: unsupported BITPIX %d", ErrInvalidFITS, bitpix)
		}
		pix[i] = v*bscale + bzero
	}
	return pix, nil
}

func cardString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
