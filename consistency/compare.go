package consistency

import (
	"math"

	"github.com/YuminosukeSato/gbdtcheck/metrics"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultDecimal is the number of decimal places predictions must agree to.
const DefaultDecimal = 5

// Tolerance is the largest absolute difference accepted at decimal places,
// 1.5 * 10^-decimal.
func Tolerance(decimal int) float64 {
	return 1.5 * math.Pow10(-decimal)
}

// Comparison is the element-wise comparison of two prediction matrices.
type Comparison struct {
	ExpectedName string
	ActualName   string
	Expected     *mat.Dense
	Actual       *mat.Dense

	Decimal    int
	MaxAbsDiff float64
	Row, Col   int
	Mismatched int
}

// Passed reports whether every element is within tolerance.
func (c *Comparison) Passed() bool {
	return c.Mismatched == 0
}

// Total returns the number of compared elements.
func (c *Comparison) Total() int {
	r, k := c.Expected.Dims()
	return r * k
}

// Compare runs both predictors and compares their output.
func Compare(expected, actual Predictor, decimal int) (*Comparison, error) {
	want, err := expected.Predict()
	if err != nil {
		return nil, errors.Wrapf(err, "predict with %s", expected.Name())
	}
	got, err := actual.Predict()
	if err != nil {
		return nil, errors.Wrapf(err, "predict with %s", actual.Name())
	}
	return AssertAlmostEqual(expected.Name(), want, actual.Name(), got, decimal)
}

// AssertAlmostEqual checks |want - got| < 1.5 * 10^-decimal element-wise.
// NaN matches NaN only. On failure the comparison is returned together
// with a PredictionMismatchError locating the largest deviation.
func AssertAlmostEqual(wantName string, want *mat.Dense, gotName string, got *mat.Dense, decimal int) (*Comparison, error) {
	diff, row, col, err := metrics.MaxAbsDiff(want, got)
	if err != nil {
		return nil, errors.Wrapf(err, "compare %s with %s", wantName, gotName)
	}

	cmp := &Comparison{
		ExpectedName: wantName,
		ActualName:   gotName,
		Expected:     want,
		Actual:       got,
		Decimal:      decimal,
		MaxAbsDiff:   diff,
		Row:          row,
		Col:          col,
	}
	tol := Tolerance(decimal)
	rows, cols := want.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !(metrics.AbsDiff(want.At(i, j), got.At(i, j)) < tol) {
				cmp.Mismatched++
			}
		}
	}
	if cmp.Passed() {
		return cmp, nil
	}
	return cmp, errors.NewPredictionMismatchError(&errors.PredictionMismatchError{
		Expected:   wantName,
		Actual:     gotName,
		Index:      row*cols + col,
		Row:        row,
		Col:        col,
		Want:       want.At(row, col),
		Got:        got.At(row, col),
		MaxAbsDiff: diff,
		Decimal:    decimal,
		Mismatched: cmp.Mismatched,
		Total:      rows * cols,
	})
}
