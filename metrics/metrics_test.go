package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		weights []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect prediction", yTrue: []float64{1, 2, 3}, yPred: []float64{1, 2, 3}, want: 0},
		{name: "Constant offset", yTrue: []float64{1, 2, 3}, yPred: []float64{2, 3, 4}, want: 1},
		{name: "Weighted", yTrue: []float64{0, 0}, yPred: []float64{1, 3}, weights: []float64{3, 1}, want: 3},
		{name: "Empty", yTrue: []float64{}, yPred: []float64{}, wantErr: true},
		{name: "Length mismatch", yTrue: []float64{1, 2}, yPred: []float64{1}, wantErr: true},
		{name: "Zero weights", yTrue: []float64{1}, yPred: []float64{2}, weights: []float64{0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred, tt.weights)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	rmse, err := RMSE([]float64{0, 0}, []float64{3, 4}, nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(12.5), rmse, 1e-12)
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect predictions", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0, 0, 1, 1}, want: 0},
		{name: "Typical case", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.1, 0.2, 0.8, 0.9}, want: 0.164252},
		{name: "Worst predictions", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.9, 0.9, 0.1, 0.1}, want: 2.3025851},
		{name: "Non-binary labels", yTrue: []float64{0, 0.5, 1}, yPred: []float64{0.1, 0.5, 0.9}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(tt.yTrue, tt.yPred, nil)
			if tt.wantErr {
				var valueErr *errors.ValueError
				assert.True(t, errors.As(err, &valueErr))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		weights []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect classifier", yTrue: []float64{0, 0, 0, 1, 1, 1}, yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}, want: 1},
		{name: "Worst classifier", yTrue: []float64{0, 0, 0, 1, 1, 1}, yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1}, want: 0},
		{name: "All ties", yTrue: []float64{0, 1, 0, 1}, yPred: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "Typical case", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.75},
		{name: "Weighted", yTrue: []float64{0, 0, 1}, yPred: []float64{0.1, 0.9, 0.5}, weights: []float64{3, 1, 1}, want: 0.75},
		{name: "Single class", yTrue: []float64{1, 1, 1}, yPred: []float64{0.1, 0.4, 0.35}, want: 1},
		{name: "Non-binary labels", yTrue: []float64{0, 2}, yPred: []float64{0.1, 0.9}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yPred, tt.weights)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestMultiLogLoss(t *testing.T) {
	prob := mat.NewDense(2, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.1, 0.8,
	})
	got, err := MultiLogLoss([]float64{0, 2}, prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, -(math.Log(0.7)+math.Log(0.8))/2, got, 1e-12)

	_, err = MultiLogLoss([]float64{0, 3}, prob, nil)
	assert.Error(t, err)

	_, err = MultiLogLoss([]float64{0}, prob, nil)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestNDCGAtK(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		k       int
		want    float64
		wantErr bool
	}{
		{name: "Perfect ranking", yTrue: []float64{3, 2, 3, 0, 1, 2}, yPred: []float64{3.1, 2.9, 3.0, 0.1, 1.1, 2.1}, k: 6, want: 1},
		{name: "Reverse ranking", yTrue: []float64{3, 2, 3, 0, 1, 2}, yPred: []float64{1, 2, 3, 4, 5, 6}, k: 6, want: 0.706},
		{name: "NDCG@3", yTrue: []float64{3, 2, 3, 0, 1, 2}, yPred: []float64{2.5, 0.5, 2, 0, 1, 3}, k: 3, want: 0.845},
		{name: "Binary relevance", yTrue: []float64{1, 0, 1, 0, 1}, yPred: []float64{0.9, 0.8, 0.7, 0.6, 0.5}, k: 5, want: 0.885},
		{name: "No relevant documents", yTrue: []float64{0, 0, 0, 0}, yPred: []float64{1, 2, 3, 4}, k: 4, want: 1},
		{name: "Negative relevance", yTrue: []float64{1, -1, 2}, yPred: []float64{1, 2, 3}, k: 3, wantErr: true},
		{name: "Invalid k", yTrue: []float64{1, 2, 3}, yPred: []float64{1, 2, 3}, k: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NDCGAtK(tt.yTrue, tt.yPred, nil, tt.k, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestNDCGAtKAveragesQueries(t *testing.T) {
	labels := []float64{1, 0, 0, 1}
	scores := []float64{2, 1, 2, 1}
	got, err := NDCGAtK(labels, scores, []int{0, 2, 4}, 1, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)

	_, err = NDCGAtK(labels, scores, []int{0, 3}, 1, nil)
	assert.Error(t, err)
}

func TestMaxAbsDiff(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 2.5, 3, 3})

	diff, row, col, err := MaxAbsDiff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, diff)
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)

	_, _, _, err = MaxAbsDiff(a, mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestAbsDiffNaN(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, 0.0, AbsDiff(nan, nan))
	assert.True(t, math.IsInf(AbsDiff(nan, 1), 1))
	assert.Equal(t, 0.0, AbsDiff(math.Inf(1), math.Inf(1)))
}
