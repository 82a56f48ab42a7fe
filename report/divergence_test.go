package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPlotDivergenceWritesPNG(t *testing.T) {
	want := mat.NewDense(4, 2, []float64{0.1, 0.9, 0.2, 0.8, 0.3, 0.7, 0.4, 0.6})
	got := mat.DenseCopyOf(want)
	got.Set(2, 1, 0.75)

	path := filepath.Join(t.TempDir(), "multiclass.png")
	require.NoError(t, PlotDivergence(path, want, got, "multiclass"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 8)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}

func TestPlotDivergenceShapeMismatch(t *testing.T) {
	err := PlotDivergence(filepath.Join(t.TempDir(), "x.png"), mat.NewDense(2, 1, nil), mat.NewDense(3, 1, nil), "x")
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestPlotDivergenceUnwritablePath(t *testing.T) {
	want := mat.NewDense(1, 1, []float64{1})
	err := PlotDivergence(filepath.Join(t.TempDir(), "missing", "x.png"), want, want, "x")
	var fileErr *errors.FileAccessError
	assert.True(t, errors.As(err, &fileErr))
}

func TestFormatDiff(t *testing.T) {
	assert.Equal(t, "1.23e-05", formatDiff(0.0000123456))
}
