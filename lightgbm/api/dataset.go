package api

import (
	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset is the training set handed to Train, similar to Python's
// lgb.Dataset: features, labels and the optional per-row side channels.
type Dataset struct {
	Data      mat.Matrix
	Label     []float64
	Weight    []float64
	InitScore []float64

	// QueryBoundaries are cumulative group offsets [0, g0, g0+g1, ..., rows].
	QueryBoundaries []int

	// Source is the file the data was read from, used in error messages.
	Source string
}

// DatasetOption configures NewDataset.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	weight    []float64
	initScore []float64
	group     []float64
	source    string
}

// WithWeight attaches one weight per row.
func WithWeight(weight []float64) DatasetOption {
	return func(o *datasetOptions) {
		o.weight = weight
	}
}

// WithInitScore attaches initial scores, class-major for multiclass.
func WithInitScore(initScore []float64) DatasetOption {
	return func(o *datasetOptions) {
		o.initScore = initScore
	}
}

// WithGroup attaches query group sizes. They must sum to the row count.
func WithGroup(sizes []float64) DatasetOption {
	return func(o *datasetOptions) {
		o.group = sizes
	}
}

// WithSource records the path the data came from.
func WithSource(path string) DatasetOption {
	return func(o *datasetOptions) {
		o.source = path
	}
}

// NewDataset builds a Dataset and checks that every side channel lines up
// with the rows of X. Init scores are checked against the class count in
// Train, once the objective is known.
func NewDataset(X mat.Matrix, label []float64, opts ...DatasetOption) (*Dataset, error) {
	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(label) != rows {
		return nil, errors.NewShapeMismatchError(o.source, "labels", rows, len(label))
	}

	ds := &Dataset{Data: X, Label: label, Source: o.source}
	if o.weight != nil {
		if err := dataset.CheckWeights(o.source, o.weight, rows); err != nil {
			return nil, err
		}
		ds.Weight = o.weight
	}
	if o.initScore != nil {
		if len(o.initScore) == 0 || len(o.initScore)%rows != 0 {
			return nil, errors.NewShapeMismatchError(o.source, "init scores", rows, len(o.initScore))
		}
		ds.InitScore = o.initScore
	}
	if o.group != nil {
		bounds, err := dataset.QueryBoundaries(o.source, o.group, rows)
		if err != nil {
			return nil, err
		}
		ds.QueryBoundaries = bounds
	}
	return ds, nil
}

// FromTable wraps a loaded table.
func FromTable(t *dataset.Table, opts ...DatasetOption) (*Dataset, error) {
	return NewDataset(t.Features, t.Labels, append([]DatasetOption{WithSource(t.Path)}, opts...)...)
}

// NumData returns the number of rows.
func (d *Dataset) NumData() int {
	r, _ := d.Data.Dims()
	return r
}

// NumFeature returns the number of feature columns.
func (d *Dataset) NumFeature() int {
	_, c := d.Data.Dims()
	return c
}
