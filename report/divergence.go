// Package report renders diagnostics for failed consistency checks.
package report

import (
	"image/color"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/metrics"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotDivergence writes a PNG scatter of want against got, one point per
// element, with the y = x diagonal for reference. Both matrices must have
// the same shape.
func PlotDivergence(path string, want, got mat.Matrix, title string) error {
	rows, cols := want.Dims()
	if r, c := got.Dims(); r != rows || c != cols {
		if r != rows {
			return errors.NewDimensionError("PlotDivergence", rows, r, 0)
		}
		return errors.NewDimensionError("PlotDivergence", cols, c, 1)
	}
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}

	points := make(plotter.XYs, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			points = append(points, plotter.XY{X: want.At(i, j), Y: got.At(i, j)})
		}
	}
	diff, row, col, err := metrics.MaxAbsDiff(want, got)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "expected"
	p.Y.Label.Text = "actual"

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(2)

	worst, err := plotter.NewScatter(plotter.XYs{{X: want.At(row, col), Y: got.At(row, col)}})
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	worst.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
	worst.GlyphStyle.Radius = vg.Points(4)

	diagonal := plotter.NewFunction(func(x float64) float64 { return x })
	diagonal.Color = color.Gray{Y: 128}
	diagonal.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), diagonal, scatter, worst)
	p.Legend.Add("predictions", scatter)
	p.Legend.Add("max |diff| "+formatDiff(diff), worst)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.NewFileAccessError("save plot", path, err)
	}
	return nil
}

func formatDiff(d float64) string {
	return strconv.FormatFloat(d, 'g', 3, 64)
}
