package metrics

import (
	"sort"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func checkBinaryLabels(op string, yTrue []float64) error {
	for i, y := range yTrue {
		if y != 0 && y != 1 {
			return errors.NewValueError(op, "label must be 0 or 1, index "+strconv.Itoa(i))
		}
	}
	return nil
}

// BinaryLogLoss は二値分類の重み付き対数損失を計算する。yPred は正例の確率。
func BinaryLogLoss(yTrue, yPred, weights []float64) (float64, error) {
	if err := checkInputs("BinaryLogLoss", yTrue, yPred, weights); err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum, sumW float64
	for i, y := range yTrue {
		w := weightAt(weights, i)
		if y == 1 {
			sum -= w * errors.StabilizeLog(yPred[i])
		} else {
			sum -= w * errors.StabilizeLog(1-yPred[i])
		}
		sumW += w
	}
	return sum / sumW, nil
}

// AUC は ROC 曲線下面積を計算する。同点のスコアは 0.5 として数える。
// 正例または負例が存在しない場合は 1 を返す（LightGBM と同じ）。
func AUC(yTrue, yScore, weights []float64) (float64, error) {
	if err := checkInputs("AUC", yTrue, yScore, weights); err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, len(yTrue))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore[idx[a]] < yScore[idx[b]] })

	// スコア昇順に走査し、各正例より小さいスコアの負例の重みを累積する
	var accum, negSeen, sumPos, sumNeg float64
	for start := 0; start < len(idx); {
		end := start
		var pos, neg float64
		for end < len(idx) && yScore[idx[end]] == yScore[idx[start]] {
			w := weightAt(weights, idx[end])
			if yTrue[idx[end]] == 1 {
				pos += w
			} else {
				neg += w
			}
			end++
		}
		accum += pos * (negSeen + 0.5*neg)
		negSeen += neg
		sumPos += pos
		sumNeg += neg
		start = end
	}
	if sumPos == 0 || sumNeg == 0 {
		return 1, nil
	}
	return accum / (sumPos * sumNeg), nil
}

// MultiLogLoss は多クラス分類の対数損失を計算する。prob は行 × クラスの確率行列。
func MultiLogLoss(yTrue []float64, prob mat.Matrix, weights []float64) (float64, error) {
	rows, classes := prob.Dims()
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("MultiLogLoss", "empty input")
	}
	if rows != len(yTrue) {
		return 0, errors.NewDimensionError("MultiLogLoss", len(yTrue), rows, 0)
	}
	if weights != nil && len(weights) != rows {
		return 0, errors.NewDimensionError("MultiLogLoss", rows, len(weights), 0)
	}

	var sum, sumW float64
	for i, y := range yTrue {
		k := int(y)
		if float64(k) != y || k < 0 || k >= classes {
			return 0, errors.NewValueError("MultiLogLoss", "label out of range at index "+strconv.Itoa(i))
		}
		w := weightAt(weights, i)
		sum -= w * errors.StabilizeLog(prob.At(i, k))
		sumW += w
	}
	return sum / sumW, nil
}
