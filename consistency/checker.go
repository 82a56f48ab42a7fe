package consistency

import (
	"github.com/YuminosukeSato/gbdtcheck/lightgbm/api"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Result collects the comparisons of one training run.
type Result struct {
	Family      string
	Booster     *api.Booster
	Comparisons []*Comparison
}

// MaxAbsDiff is the largest deviation over all comparisons.
func (r *Result) MaxAbsDiff() float64 {
	var worst float64
	for _, c := range r.Comparisons {
		if c.MaxAbsDiff > worst {
			worst = c.MaxAbsDiff
		}
	}
	return worst
}

// TrainPredictCheck trains with the loader's parameters, then predicts the
// test set in memory and through its file path and requires both to agree
// to DefaultDecimal places. The result is returned even on a mismatch so
// callers can inspect the predictions.
func (l *FileLoader) TrainPredictCheck(train *api.Dataset, test mat.Matrix, testPath string) (*Result, error) {
	return l.trainPredictCheck(train, test, testPath, DefaultDecimal)
}

func (l *FileLoader) trainPredictCheck(train *api.Dataset, test mat.Matrix, testPath string, decimal int) (*Result, error) {
	var booster *api.Booster
	err := errors.SafeExecute("train", func() error {
		var err error
		booster, err = api.Train(l.Params(), train)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Booster: booster}
	cmp, err := Compare(&InProcess{Booster: booster, Features: test}, &FilePath{Booster: booster, Path: testPath}, decimal)
	if cmp != nil {
		res.Comparisons = append(res.Comparisons, cmp)
	}
	return res, err
}

// CheckReference compares in-process predictions of test with the
// prediction file at refPath.
func CheckReference(booster *api.Booster, test mat.Matrix, refPath string) (*Comparison, error) {
	return Compare(&InProcess{Booster: booster, Features: test}, &Reference{Path: refPath}, DefaultDecimal)
}
