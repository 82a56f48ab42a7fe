package dataset

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix. It implements mat.Matrix so the
// engine and gonum helpers can consume it like any other matrix.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*CSR)(nil)

// NewCSR builds a CSR matrix. indices must be strictly increasing within
// each row and smaller than cols.
func NewCSR(rows, cols int, indptr, indices []int, data []float64) *CSR {
	if len(indptr) != rows+1 {
		panic(mat.ErrShape)
	}
	if len(indices) != len(data) || indptr[rows] != len(data) {
		panic(mat.ErrShape)
	}
	return &CSR{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}
}

// Dims implements mat.Matrix.
func (c *CSR) Dims() (int, int) {
	return c.rows, c.cols
}

// At implements mat.Matrix.
func (c *CSR) At(i, j int) float64 {
	if i < 0 || i >= c.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= c.cols {
		panic(mat.ErrColAccess)
	}
	lo, hi := c.indptr[i], c.indptr[i+1]
	k := lo + sort.SearchInts(c.indices[lo:hi], j)
	if k < hi && c.indices[k] == j {
		return c.data[k]
	}
	return 0
}

// T implements mat.Matrix.
func (c *CSR) T() mat.Matrix {
	return mat.Transpose{Matrix: c}
}

// NNZ returns the number of stored entries.
func (c *CSR) NNZ() int {
	return len(c.data)
}

// DoRowNonZero calls fn for each stored entry of row i in column order.
func (c *CSR) DoRowNonZero(i int, fn func(j int, v float64)) {
	for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
		fn(c.indices[k], c.data[k])
	}
}

// RowView writes row i into dst (allocating when dst is short) and returns it.
func (c *CSR) RowView(i int, dst []float64) []float64 {
	if len(dst) < c.cols {
		dst = make([]float64, c.cols)
	}
	dst = dst[:c.cols]
	for j := range dst {
		dst[j] = 0
	}
	c.DoRowNonZero(i, func(j int, v float64) { dst[j] = v })
	return dst
}

// ToDense materialises the matrix. Like mat.NewDense it panics when
// either dimension is zero.
func (c *CSR) ToDense() *mat.Dense {
	d := mat.NewDense(c.rows, c.cols, nil)
	for i := 0; i < c.rows; i++ {
		c.DoRowNonZero(i, func(j int, v float64) { d.Set(i, j, v) })
	}
	return d
}

// WithCols returns the same matrix widened to cols columns. It is used to
// align a test file to the feature count of a trained model.
func (c *CSR) WithCols(cols int) *CSR {
	if cols < c.cols {
		panic(mat.ErrShape)
	}
	return &CSR{rows: c.rows, cols: cols, indptr: c.indptr, indices: c.indices, data: c.data}
}

// RowNonZeroDoer is implemented by sparse matrices that can iterate the
// stored entries of a row.
type RowNonZeroDoer interface {
	DoRowNonZero(i int, fn func(j int, v float64))
}

// Row copies row i of any matrix into dst, using the sparse fast path when
// available.
func Row(dst []float64, i int, m mat.Matrix) []float64 {
	switch v := m.(type) {
	case *CSR:
		return v.RowView(i, dst)
	case mat.RawMatrixer:
		_, cols := m.Dims()
		raw := v.RawMatrix()
		if len(dst) < cols {
			dst = make([]float64, cols)
		}
		copy(dst[:cols], raw.Data[i*raw.Stride:i*raw.Stride+cols])
		return dst[:cols]
	default:
		return mat.Row(nil, i, m)
	}
}
