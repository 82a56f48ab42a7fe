package metrics

import (
	"math"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaxAbsDiff は同じ形状の 2 行列の要素ごとの絶対差の最大値とその位置を返す。
// 両方 NaN の要素は一致とみなし、片方だけ NaN の要素は +Inf の差とする。
func MaxAbsDiff(a, b mat.Matrix) (diff float64, row, col int, err error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb {
		return 0, 0, 0, errors.NewDimensionError("MaxAbsDiff", ra, rb, 0)
	}
	if ca != cb {
		return 0, 0, 0, errors.NewDimensionError("MaxAbsDiff", ca, cb, 1)
	}

	diff = -1
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			d := AbsDiff(a.At(i, j), b.At(i, j))
			if d > diff {
				diff, row, col = d, i, j
			}
		}
	}
	if diff < 0 {
		diff = 0
	}
	return diff, row, col, nil
}

// AbsDiff は NaN を考慮した |x - y|
func AbsDiff(x, y float64) float64 {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn || yn:
		return math.Inf(1)
	}
	if x == y {
		return 0
	}
	return math.Abs(x - y)
}
