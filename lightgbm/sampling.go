package lightgbm

import (
	"math/rand"
	"sort"
)

// SamplingStrategy draws the rows (bagging) and features (feature_fraction)
// used by each tree. Both streams are seeded, so a run is reproducible.
type SamplingStrategy struct {
	featureRNG      *rand.Rand
	baggingRNG      *rand.Rand
	featureFraction float64
	baggingFraction float64
	baggingFreq     int

	bag []int
}

// NewSamplingStrategy creates a sampler from the seeds in params.
func NewSamplingStrategy(params *TrainingParams) *SamplingStrategy {
	return &SamplingStrategy{
		featureRNG:      rand.New(rand.NewSource(params.FeatureFractionSeed)),
		baggingRNG:      rand.New(rand.NewSource(params.BaggingSeed)),
		featureFraction: params.FeatureFraction,
		baggingFraction: params.BaggingFraction,
		baggingFreq:     params.BaggingFreq,
	}
}

// BaggingEnabled reports whether rows are subsampled at all.
func (s *SamplingStrategy) BaggingEnabled() bool {
	return s.baggingFreq > 0 && s.baggingFraction < 1
}

// SampleFeatures returns the sorted feature subset for one tree.
func (s *SamplingStrategy) SampleFeatures(usable []int) []int {
	if s.featureFraction >= 1 || len(usable) == 0 {
		return usable
	}
	numSample := int(float64(len(usable))*s.featureFraction + 0.5)
	if numSample < 1 {
		numSample = 1
	}

	perm := append([]int(nil), usable...)
	for i := 0; i < numSample; i++ {
		j := i + s.featureRNG.Intn(len(perm)-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	picked := perm[:numSample]
	sort.Ints(picked)
	return picked
}

// SampleInstances returns the in-bag rows for iteration. A new bag is drawn
// every baggingFreq iterations and reused in between. The result is sorted.
func (s *SamplingStrategy) SampleInstances(numInstances, iteration int) []int {
	if !s.BaggingEnabled() {
		if len(s.bag) != numInstances {
			s.bag = make([]int, numInstances)
			for i := range s.bag {
				s.bag[i] = i
			}
		}
		return s.bag
	}
	if s.bag != nil && iteration%s.baggingFreq != 0 {
		return s.bag
	}

	numSample := int(float64(numInstances) * s.baggingFraction)
	if numSample < 1 {
		numSample = 1
	}
	perm := make([]int, numInstances)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < numSample; i++ {
		j := i + s.baggingRNG.Intn(numInstances-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	s.bag = perm[:numSample]
	sort.Ints(s.bag)
	return s.bag
}

// RegularizationStrategy applies L1/L2 regularisation to leaf outputs and
// split gains.
type RegularizationStrategy struct {
	lambdaL1 float64
	lambdaL2 float64
}

// NewRegularizationStrategy creates a new regularization strategy.
func NewRegularizationStrategy(params *TrainingParams) *RegularizationStrategy {
	return &RegularizationStrategy{lambdaL1: params.LambdaL1, lambdaL2: params.LambdaL2}
}

func (r *RegularizationStrategy) thresholdL1(sumGrad float64) float64 {
	if r.lambdaL1 <= 0 {
		return sumGrad
	}
	switch {
	case sumGrad > r.lambdaL1:
		return sumGrad - r.lambdaL1
	case sumGrad < -r.lambdaL1:
		return sumGrad + r.lambdaL1
	}
	return 0
}

// LeafOutput is the optimal leaf value -T(G)/(H+l2).
func (r *RegularizationStrategy) LeafOutput(sumGrad, sumHess float64) float64 {
	return -r.thresholdL1(sumGrad) / (sumHess + r.lambdaL2 + kEpsilon)
}

// LeafGain is the loss reduction of a leaf holding the given sums.
func (r *RegularizationStrategy) LeafGain(sumGrad, sumHess float64) float64 {
	g := r.thresholdL1(sumGrad)
	return g * g / (sumHess + r.lambdaL2 + kEpsilon)
}

// SplitGain is the gain of splitting the parent into left and right.
func (r *RegularizationStrategy) SplitGain(leftGrad, leftHess, rightGrad, rightHess, parentGrad, parentHess float64) float64 {
	return r.LeafGain(leftGrad, leftHess) + r.LeafGain(rightGrad, rightHess) - r.LeafGain(parentGrad, parentHess)
}
