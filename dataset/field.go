package dataset

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// FieldKind names an auxiliary per-row side channel.
type FieldKind int

const (
	FieldNone FieldKind = iota
	FieldWeight
	FieldInitScore
	FieldQueryGroup
)

// Suffix returns the file suffix LightGBM uses for the field next to a
// data file, e.g. ".weight" for binary.train.weight.
func (k FieldKind) Suffix() string {
	switch k {
	case FieldWeight:
		return ".weight"
	case FieldInitScore:
		return ".init"
	case FieldQueryGroup:
		return ".query"
	}
	return ""
}

func (k FieldKind) String() string {
	switch k {
	case FieldWeight:
		return "weight"
	case FieldInitScore:
		return "init_score"
	case FieldQueryGroup:
		return "query_group"
	}
	return "none"
}

// LoadField reads a single column numeric file.
func LoadField(path string) ([]float64, error) {
	data, _, cols, err := readMatrix("field", path)
	if err != nil {
		return nil, err
	}
	if cols != 1 {
		return nil, errors.NewDatasetParseError(path, 1,
			"field file must have one value per line, got "+strconv.Itoa(cols), nil)
	}
	return data, nil
}

// CheckWeights verifies one weight per row.
func CheckWeights(path string, weights []float64, rows int) error {
	if len(weights) != rows {
		return errors.NewShapeMismatchError(path, "weights", rows, len(weights))
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return errors.NewDatasetParseError(path, i+1, "weight must be non-negative", nil)
		}
	}
	return nil
}

// CheckInitScore verifies rows*numClass initial scores (class-major).
func CheckInitScore(path string, scores []float64, rows, numClass int) error {
	if numClass < 1 {
		numClass = 1
	}
	if len(scores) != rows*numClass {
		return errors.NewShapeMismatchError(path, "init scores", rows*numClass, len(scores))
	}
	return nil
}

// QueryBoundaries converts group sizes to boundaries [0, s0, s0+s1, ...].
// The sizes must be non-negative integers summing to rows.
func QueryBoundaries(path string, sizes []float64, rows int) ([]int, error) {
	bounds := make([]int, len(sizes)+1)
	for i, s := range sizes {
		if s < 0 || s != math.Trunc(s) {
			return nil, errors.NewDatasetParseError(path, i+1,
				"query group size must be a non-negative integer, got "+strconv.FormatFloat(s, 'g', -1, 64), nil)
		}
		if s > float64(rows-bounds[i]) {
			return nil, errors.NewDatasetParseError(path, i+1,
				"query groups cover more than "+strconv.Itoa(rows)+" rows", nil)
		}
		bounds[i+1] = bounds[i] + int(s)
	}
	if total := bounds[len(sizes)]; total != rows {
		return nil, errors.NewShapeMismatchError(path, "query groups", rows, total)
	}
	return bounds, nil
}
