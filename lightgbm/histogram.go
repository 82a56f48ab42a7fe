package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/gbdtcheck/core/parallel"
)

// HistogramBin accumulates gradient statistics of one bin.
type HistogramBin struct {
	SumGrad float64
	SumHess float64
	Count   int
}

// SplitInfo is the best split found for a leaf on one feature.
type SplitInfo struct {
	Feature      int
	ThresholdBin uint16
	Threshold    float64
	Gain         float64
	LeftGrad     float64
	LeftHess     float64
	LeftCount    int
	RightGrad    float64
	RightHess    float64
	RightCount   int
}

// Valid reports whether the split was accepted by the constraints.
func (s SplitInfo) Valid() bool {
	return s.Feature >= 0
}

func invalidSplit() SplitInfo {
	return SplitInfo{Feature: -1, Gain: math.Inf(-1)}
}

// splitFinder searches leaf splits over binned data.
type splitFinder struct {
	data   *BinnedData
	params *TrainingParams
	reg    *RegularizationStrategy
}

// buildHistogram accumulates the rows of a leaf for feature f.
func (sf *splitFinder) buildHistogram(f int, rows []int, grad, hess []float64) []HistogramBin {
	hist := make([]HistogramBin, sf.data.mappers[f].NumBins())
	bins := sf.data.bins[f]
	for _, r := range rows {
		b := &hist[bins[r]]
		b.SumGrad += grad[r]
		b.SumHess += hess[r]
		b.Count++
	}
	return hist
}

// bestForFeature scans thresholds left to right and keeps the first
// maximum.
func (sf *splitFinder) bestForFeature(f int, rows []int, grad, hess []float64, sumGrad, sumHess float64) SplitInfo {
	hist := sf.buildHistogram(f, rows, grad, hess)
	best := invalidSplit()
	p := sf.params

	var leftGrad, leftHess float64
	leftCount := 0
	for b := 0; b+1 < len(hist); b++ {
		leftGrad += hist[b].SumGrad
		leftHess += hist[b].SumHess
		leftCount += hist[b].Count
		if hist[b].Count == 0 {
			continue
		}
		rightCount := len(rows) - leftCount
		if leftCount < p.MinDataInLeaf || leftHess < p.MinSumHessianInLeaf {
			continue
		}
		if rightCount < p.MinDataInLeaf {
			break
		}
		rightGrad, rightHess := sumGrad-leftGrad, sumHess-leftHess
		if rightCount == 0 || rightHess < p.MinSumHessianInLeaf {
			continue
		}

		gain := sf.reg.SplitGain(leftGrad, leftHess, rightGrad, rightHess, sumGrad, sumHess)
		if gain <= p.MinGainToSplit || gain <= best.Gain {
			continue
		}
		best = SplitInfo{
			Feature:      f,
			ThresholdBin: uint16(b),
			Threshold:    sf.data.mappers[f].UpperBounds[b],
			Gain:         gain,
			LeftGrad:     leftGrad,
			LeftHess:     leftHess,
			LeftCount:    leftCount,
			RightGrad:    rightGrad,
			RightHess:    rightHess,
			RightCount:   rightCount,
		}
	}
	return best
}

// FindBestSplit evaluates features in parallel and reduces in feature order
// so ties resolve to the lowest feature index regardless of scheduling.
func (sf *splitFinder) FindBestSplit(features, rows []int, grad, hess []float64) SplitInfo {
	var sumGrad, sumHess float64
	for _, r := range rows {
		sumGrad += grad[r]
		sumHess += hess[r]
	}

	results := make([]SplitInfo, len(features))
	parallel.ParallelizeWithThreshold(len(features), 1, sf.params.NumThreads, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = sf.bestForFeature(features[i], rows, grad, hess, sumGrad, sumHess)
		}
	})

	best := invalidSplit()
	for _, s := range results {
		if s.Valid() && s.Gain > best.Gain {
			best = s
		}
	}
	return best
}
