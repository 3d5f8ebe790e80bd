package seeing

import (
	"fmt"
	"math"
)

// Image is a row-major 2D array of intensities, Pix[y*Width+x].
// The pipeline never modifies an Image it is given.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage wraps pix with the given shape (rows, cols).
func NewImage(pix []float64, shape ...int) (*Image, error) {
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: image must be 2-D, got %d dimensions", ErrDetection, len(shape))
	}
	rows, cols := shape[0], shape[1]
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative image shape %dx%d", ErrDetection, rows, cols)
	}
	if len(pix) != rows*cols {
		return nil, fmt.Errorf("%w: %d pixels do not match shape %dx%d", ErrDetection, len(pix), rows, cols)
	}
	return &Image{Width: cols, Height: rows, Pix: pix}, nil
}

// NewImageFromRows copies rows into a new Image. All rows must have the same length.
func NewImageFromRows(rows [][]float64) (*Image, error) {
	if len(rows) == 0 {
		return &Image{}, nil
	}
	cols := len(rows[0])
	pix := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: ragged row %d has %d columns, want %d", ErrDetection, i, len(r), cols)
		}
		pix = append(pix, r...)
	}
	return &Image{Width: cols, Height: len(rows), Pix: pix}, nil
}

// At returns the intensity at column x, row y.
func (img *Image) At(x, y int) float64 {
	return img.Pix[y*img.Width+x]
}

func (img *Image) Empty() bool {
	return img.Width == 0 || img.Height == 0
}

// Range returns the minimum and maximum finite intensity.
func (img *Image) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func (img *Image) validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrDetection)
	}
	if img.Width < 0 || img.Height < 0 || len(img.Pix) != img.Width*img.Height {
		return fmt.Errorf("%w: %d pixels do not match shape %dx%d", ErrDetection, len(img.Pix), img.Height, img.Width)
	}
	return nil
}

// Mask marks pixels excluded from detection.
type Mask struct {
	Width    int
	Height   int
	excluded []bool
}

// NewMask returns a mask with every pixel included.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, excluded: make([]bool, width*height)}
}

func (m *Mask) Exclude(x, y int) {
	m.excluded[y*m.Width+x] = true
}

// ExcludeRect excludes the pixels of [x0, x1) x [y0, y1), clamped to the mask.
func (m *Mask) ExcludeRect(x0, y0, x1, y1 int) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, m.Width), min(y1, m.Height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.excluded[y*m.Width+x] = true
		}
	}
}

func (m *Mask) Excluded(x, y int) bool {
	return m.excluded[y*m.Width+x]
}

// Included returns the number of pixels not excluded.
func (m *Mask) Included() int {
	n := 0
	for _, e := range m.excluded {
		if !e {
			n++
		}
	}
	return n
}
