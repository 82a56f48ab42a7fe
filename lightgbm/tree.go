package lightgbm

import (
	"math"
)

const (
	categoricalMask = 1
	defaultLeftMask = 2

	missingNone = 0
	missingZero = 1
	missingNaN  = 2

	kZeroThreshold = 1e-35
)

// Tree is a single regression tree stored the way the LightGBM text format
// lays it out. Internal nodes are numbered 0..NumLeaves-2 and leaves
// 0..NumLeaves-1; a negative child c refers to leaf ^c.
type Tree struct {
	NumLeaves int

	SplitFeature   []int
	SplitGain      []float64
	Threshold      []float64
	DecisionType   []int8
	LeftChild      []int
	RightChild     []int
	InternalValue  []float64
	InternalWeight []float64
	InternalCount  []int

	LeafValue  []float64
	LeafWeight []float64
	LeafCount  []int

	Shrinkage float64

	// Training only.
	leafParent   []int
	leafDepth    []int
	thresholdBin []uint16
}

// NewTree returns a tree with a single leaf of value 0.
func NewTree(maxLeaves int) *Tree {
	t := &Tree{
		NumLeaves:  1,
		LeafValue:  make([]float64, 1, maxLeaves),
		LeafWeight: make([]float64, 1, maxLeaves),
		LeafCount:  make([]int, 1, maxLeaves),
		Shrinkage:  1,
		leafParent: make([]int, 1, maxLeaves),
		leafDepth:  make([]int, 1, maxLeaves),
	}
	t.leafParent[0] = -1
	return t
}

// splitSpec describes one accepted split.
type splitSpec struct {
	feature      int
	thresholdBin uint16
	threshold    float64
	gain         float64
	leftOutput   float64
	rightOutput  float64
	leftCount    int
	rightCount   int
	leftWeight   float64
	rightWeight  float64
}

// split turns leaf into an internal node. The left child keeps the leaf
// index, the right child becomes leaf NumLeaves. It returns the new leaf.
func (t *Tree) split(leaf int, s splitSpec) int {
	node := t.NumLeaves - 1
	if parent := t.leafParent[leaf]; parent >= 0 {
		if t.LeftChild[parent] == ^leaf {
			t.LeftChild[parent] = node
		} else {
			t.RightChild[parent] = node
		}
	}

	newLeaf := t.NumLeaves
	t.SplitFeature = append(t.SplitFeature, s.feature)
	t.SplitGain = append(t.SplitGain, s.gain)
	t.Threshold = append(t.Threshold, s.threshold)
	t.thresholdBin = append(t.thresholdBin, s.thresholdBin)
	t.DecisionType = append(t.DecisionType, defaultLeftMask)
	t.LeftChild = append(t.LeftChild, ^leaf)
	t.RightChild = append(t.RightChild, ^newLeaf)
	t.InternalValue = append(t.InternalValue, t.LeafValue[leaf])
	t.InternalWeight = append(t.InternalWeight, s.leftWeight+s.rightWeight)
	t.InternalCount = append(t.InternalCount, s.leftCount+s.rightCount)

	depth := t.leafDepth[leaf] + 1
	t.LeafValue[leaf] = s.leftOutput
	t.LeafWeight[leaf] = s.leftWeight
	t.LeafCount[leaf] = s.leftCount
	t.leafParent[leaf] = node
	t.leafDepth[leaf] = depth

	t.LeafValue = append(t.LeafValue, s.rightOutput)
	t.LeafWeight = append(t.LeafWeight, s.rightWeight)
	t.LeafCount = append(t.LeafCount, s.rightCount)
	t.leafParent = append(t.leafParent, node)
	t.leafDepth = append(t.leafDepth, depth)

	t.NumLeaves++
	return newLeaf
}

// ApplyShrinkage multiplies every output by rate.
func (t *Tree) ApplyShrinkage(rate float64) {
	for i := range t.LeafValue {
		t.LeafValue[i] *= rate
	}
	for i := range t.InternalValue {
		t.InternalValue[i] *= rate
	}
	t.Shrinkage *= rate
}

// AddBias shifts every output by bias.
func (t *Tree) AddBias(bias float64) {
	for i := range t.LeafValue {
		t.LeafValue[i] += bias
	}
	for i := range t.InternalValue {
		t.InternalValue[i] += bias
	}
}

// LeafDepth returns the depth of leaf (root leaf is 0). Only populated for
// trees grown in this process.
func (t *Tree) LeafDepth(leaf int) int {
	if leaf < len(t.leafDepth) {
		return t.leafDepth[leaf]
	}
	return 0
}

// Predict returns the output of the leaf features fall into.
func (t *Tree) Predict(features []float64) float64 {
	return t.LeafValue[t.GetLeaf(features)]
}

// GetLeaf returns the leaf index for features. Missing trailing features
// read as zero.
func (t *Tree) GetLeaf(features []float64) int {
	if t.NumLeaves <= 1 {
		return 0
	}
	node := 0
	for node >= 0 {
		var fval float64
		if f := t.SplitFeature[node]; f < len(features) {
			fval = features[f]
		}
		node = t.numericalDecision(fval, node)
	}
	return ^node
}

func (t *Tree) numericalDecision(fval float64, node int) int {
	dt := t.DecisionType[node]
	missing := (dt >> 2) & 3
	if math.IsNaN(fval) && missing != missingNaN {
		fval = 0
	}
	if (missing == missingZero && math.Abs(fval) <= kZeroThreshold) || (missing == missingNaN && math.IsNaN(fval)) {
		if dt&defaultLeftMask != 0 {
			return t.LeftChild[node]
		}
		return t.RightChild[node]
	}
	if fval <= t.Threshold[node] {
		return t.LeftChild[node]
	}
	return t.RightChild[node]
}

// leafBinned routes row i of binned training data.
func (t *Tree) leafBinned(data *BinnedData, i int) int {
	if t.NumLeaves <= 1 {
		return 0
	}
	node := 0
	for node >= 0 {
		if data.bins[t.SplitFeature[node]][i] <= t.thresholdBin[node] {
			node = t.LeftChild[node]
		} else {
			node = t.RightChild[node]
		}
	}
	return ^node
}

// MaxDepth returns the depth of the deepest leaf.
func (t *Tree) MaxDepth() int {
	if t.NumLeaves <= 1 {
		return 0
	}
	var walk func(node, depth int) int
	walk = func(node, depth int) int {
		if node < 0 {
			return depth
		}
		l := walk(t.LeftChild[node], depth+1)
		r := walk(t.RightChild[node], depth+1)
		if l > r {
			return l
		}
		return r
	}
	return walk(0, 0)
}
