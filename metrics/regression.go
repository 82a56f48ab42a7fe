// Package metrics は学習時の評価指標と予測の比較に使う数値関数を提供する。
// すべての関数は重み付き（weights が nil なら等重み）で、LightGBM の
// 同名メトリクスと同じ定義に従う。
package metrics

import (
	"math"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// checkInputs はラベル・予測・重みの長さを検証する
func checkInputs(op string, yTrue, yPred, weights []float64) error {
	n := len(yTrue)
	if n == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != n {
		return errors.NewDimensionError(op, n, len(yPred), 0)
	}
	if weights != nil && len(weights) != n {
		return errors.NewDimensionError(op, n, len(weights), 0)
	}
	return nil
}

func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

// MSE は重み付き平均二乗誤差（LightGBM の l2）を計算する
func MSE(yTrue, yPred, weights []float64) (float64, error) {
	if err := checkInputs("MSE", yTrue, yPred, weights); err != nil {
		return 0, err
	}

	// MSE = Σw(y - ŷ)² / Σw
	var sum, sumW float64
	for i, y := range yTrue {
		w := weightAt(weights, i)
		diff := y - yPred[i]
		sum += w * diff * diff
		sumW += w
	}
	if sumW <= 0 {
		return 0, errors.NewValueError("MSE", "sum of weights must be positive")
	}
	return sum / sumW, nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred, weights []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred, weights)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}
