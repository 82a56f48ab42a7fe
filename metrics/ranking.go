package metrics

import (
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// DefaultLabelGain は LightGBM の既定ゲイン 2^i - 1 を n 個返す
func DefaultLabelGain(n int) []float64 {
	gain := make([]float64, n)
	for i := range gain {
		gain[i] = math.Pow(2, float64(i)) - 1
	}
	return gain
}

// discount は順位 rank（0 始まり）の割引率 1/log2(rank+2)
func discount(rank int) float64 {
	return 1 / math.Log2(float64(rank)+2)
}

// dcgAtK は並び順 order の先頭 k 件の DCG を計算する
func dcgAtK(labels []float64, order []int, k int, labelGain []float64) float64 {
	if k > len(order) {
		k = len(order)
	}
	var dcg float64
	for i := 0; i < k; i++ {
		dcg += labelGain[int(labels[order[i]])] * discount(i)
	}
	return dcg
}

// NDCGAtK はクエリごとの NDCG@k の平均を計算する。
// bounds は [0, s0, s0+s1, ...] 形式のクエリ境界で、nil なら全体を 1 クエリとみなす。
// labelGain が nil なら DefaultLabelGain を使う。
// 理想 DCG が 0 のクエリ（関連文書なし）は 1 として数える。
func NDCGAtK(yTrue, yScore []float64, bounds []int, k int, labelGain []float64) (float64, error) {
	if err := checkInputs("NDCGAtK", yTrue, yScore, nil); err != nil {
		return 0, err
	}
	if k <= 0 {
		return 0, errors.NewValueError("NDCGAtK", "k must be positive, got "+strconv.Itoa(k))
	}
	if bounds == nil {
		bounds = []int{0, len(yTrue)}
	}
	if len(bounds) < 2 || bounds[0] != 0 || bounds[len(bounds)-1] != len(yTrue) {
		return 0, errors.NewValueError("NDCGAtK", "query boundaries do not cover the input")
	}

	maxLabel := 0
	for i, y := range yTrue {
		l := int(y)
		if float64(l) != y || l < 0 {
			return 0, errors.NewValueError("NDCGAtK", "relevance must be a non-negative integer, index "+strconv.Itoa(i))
		}
		if l > maxLabel {
			maxLabel = l
		}
	}
	if labelGain == nil {
		labelGain = DefaultLabelGain(maxLabel + 1)
	}
	if maxLabel >= len(labelGain) {
		return 0, errors.NewValueError("NDCGAtK", "relevance "+strconv.Itoa(maxLabel)+" has no label gain")
	}

	var sum float64
	numQueries := len(bounds) - 1
	for q := 0; q < numQueries; q++ {
		labels := yTrue[bounds[q]:bounds[q+1]]
		scores := yScore[bounds[q]:bounds[q+1]]

		ideal := make([]int, len(labels))
		byScore := make([]int, len(labels))
		for i := range ideal {
			ideal[i], byScore[i] = i, i
		}
		sort.SliceStable(ideal, func(a, b int) bool { return labels[ideal[a]] > labels[ideal[b]] })
		sort.SliceStable(byScore, func(a, b int) bool { return scores[byScore[a]] > scores[byScore[b]] })

		maxDCG := dcgAtK(labels, ideal, k, labelGain)
		if maxDCG <= 0 {
			sum++
			continue
		}
		sum += dcgAtK(labels, byScore, k, labelGain) / maxDCG
	}
	return sum / float64(numQueries), nil
}
