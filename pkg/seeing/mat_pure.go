//go:build purego || js

package seeing

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data []float32
	rows int
	cols int
}

func NewMatWithSize(rows, cols int) Mat {
	return Mat{data: make([]float32, rows*cols), rows: rows, cols: cols}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m *Mat) Close() {
	m.data = nil
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing float32 slice.
func (m Mat) DataFloat32() []float32 {
	return m.data
}

// filter2DConstant correlates src with kernel, treating pixels outside src as zero.
func filter2DConstant(src Mat, dst *Mat, kernel Mat) {
	rows, cols := src.rows, src.cols
	kRows, kCols := kernel.rows, kernel.cols
	kyHalf, kxHalf := kRows/2, kCols/2
	srcData := src.data
	k := kernel.data

	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
	out := dst.data

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float32
			for i := 0; i < kRows; i++ {
				rr := r + i - kyHalf
				if rr < 0 || rr >= rows {
					continue
				}
				rowOff := rr * cols
				kOff := i * kCols
				for j := 0; j < kCols; j++ {
					cc := c + j - kxHalf
					if cc < 0 || cc >= cols {
						continue
					}
					sum += srcData[rowOff+cc] * k[kOff+j]
				}
			}
			out[r*cols+c] = sum
		}
	}
}
