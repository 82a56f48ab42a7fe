package lightgbm

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/gbdtcheck/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjective(t *testing.T) {
	tests := []struct {
		name string
		want ObjectiveType
	}{
		{"regression", RegressionL2},
		{"l2", RegressionL2},
		{"mse", RegressionL2},
		{"binary", BinaryLogistic},
		{"Multiclass", MulticlassSoftmax},
		{"softmax", MulticlassSoftmax},
		{"lambdarank", LambdaRank},
	}
	for _, tt := range tests {
		got, err := ParseObjective(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseObjective("tweedie")
	assert.Error(t, err)
}

func TestRegressionL2Objective(t *testing.T) {
	obj := &regressionL2{}
	meta := &Metadata{Labels: []float64{1, 3}, Weights: []float64{3, 1}}
	require.NoError(t, obj.Init(meta))

	t.Run("BoostFromScore", func(t *testing.T) {
		assert.InDelta(t, 1.5, obj.BoostFromScore(0), 1e-12)
	})

	t.Run("Gradients", func(t *testing.T) {
		grad := make([]float64, 2)
		hess := make([]float64, 2)
		obj.GetGradients([]float64{2, 2}, grad, hess)
		assert.Equal(t, []float64{3, -1}, grad)
		assert.Equal(t, []float64{3, 1}, hess)
	})
}

func TestBinaryObjective(t *testing.T) {
	obj := &binaryLogloss{sigmoid: 1}
	meta := &Metadata{Labels: []float64{1, 0, 0, 0}}
	require.NoError(t, obj.Init(meta))

	grad := make([]float64, 4)
	hess := make([]float64, 4)
	obj.GetGradients(make([]float64, 4), grad, hess)
	assert.InDelta(t, -0.5, grad[0], 1e-12)
	assert.InDelta(t, 0.5, grad[1], 1e-12)
	assert.InDelta(t, 0.25, hess[0], 1e-12)
	assert.InDelta(t, 0.25, hess[1], 1e-12)

	assert.InDelta(t, math.Log(1.0/3.0), obj.BoostFromScore(0), 1e-12)

	out := []float64{0}
	obj.ConvertOutput(out)
	assert.Equal(t, 0.5, out[0])
	assert.Equal(t, "binary sigmoid:1", obj.String())

	assert.Error(t, obj.Init(&Metadata{Labels: []float64{0, 2}}))
}

func TestMulticlassObjective(t *testing.T) {
	obj := &multiclassSoftmax{numClass: 3}
	meta := &Metadata{Labels: []float64{1, 0, 0, 2}}
	require.NoError(t, obj.Init(meta))

	grad := make([]float64, 12)
	hess := make([]float64, 12)
	obj.GetGradients(make([]float64, 12), grad, hess)

	// Row 0 has label 1; class-major layout puts class k at k*4.
	assert.InDelta(t, 1.0/3, grad[0], 1e-12)
	assert.InDelta(t, -2.0/3, grad[4], 1e-12)
	assert.InDelta(t, 1.0/3, grad[8], 1e-12)
	for _, h := range hess {
		assert.InDelta(t, 1.0/3, h, 1e-12)
	}

	assert.InDelta(t, math.Log(0.5), obj.BoostFromScore(0), 1e-12)
	assert.InDelta(t, math.Log(0.25), obj.BoostFromScore(2), 1e-12)

	out := []float64{1, 1, 1}
	obj.ConvertOutput(out)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, out, 1e-12)

	assert.Error(t, obj.Init(&Metadata{Labels: []float64{3}}))
	assert.Error(t, obj.Init(&Metadata{Labels: []float64{0.5}}))
}

func TestLambdarankObjective(t *testing.T) {
	obj := &lambdarankNDCG{sigmoid: 1, labelGain: metrics.DefaultLabelGain(31), maxPosition: 20}
	meta := &Metadata{
		Labels:          []float64{1, 0, 2, 2, 0},
		QueryBoundaries: []int{0, 2, 5},
	}
	require.NoError(t, obj.Init(meta))

	grad := make([]float64, 5)
	hess := make([]float64, 5)
	obj.GetGradients(make([]float64, 5), grad, hess)

	// The relevant document is pushed up, the other down, symmetrically.
	assert.Less(t, grad[0], 0.0)
	assert.Greater(t, grad[1], 0.0)
	assert.InDelta(t, -grad[0], grad[1], 1e-12)
	assert.InDelta(t, hess[0], hess[1], 1e-12)
	assert.Greater(t, hess[0], 0.0)

	pairedDiscount := 1 - 1/math.Log2(3)
	sum := pairedDiscount
	norm := math.Log2(1+sum) / sum
	assert.InDelta(t, -0.5*pairedDiscount*norm, grad[0], 1e-12)

	// Tied labels inside a query produce no gradient between them.
	assert.Less(t, grad[2]+grad[3], 0.0)
	assert.Greater(t, grad[4], 0.0)

	assert.Zero(t, obj.BoostFromScore(0))
	assert.Error(t, (&lambdarankNDCG{sigmoid: 1, labelGain: obj.labelGain}).Init(&Metadata{Labels: []float64{1}}))
}
