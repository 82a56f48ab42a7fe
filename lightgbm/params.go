package lightgbm

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/config"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// TrainingParams contains the hyperparameters the trainer understands.
type TrainingParams struct {
	Objective     ObjectiveType
	NumIterations int
	LearningRate  float64

	NumLeaves           int
	MaxDepth            int
	MinDataInLeaf       int
	MinSumHessianInLeaf float64
	LambdaL1            float64
	LambdaL2            float64
	MinGainToSplit      float64
	MaxBin              int

	FeatureFraction     float64
	FeatureFractionSeed int64
	BaggingFraction     float64
	BaggingFreq         int
	BaggingSeed         int64

	NumClass         int
	Sigmoid          float64
	LabelGain        []float64
	MaxPosition      int
	BoostFromAverage bool

	Metrics          []string
	MetricFreq       int
	IsTrainingMetric bool
	NDCGEvalAt       []int

	NumThreads int
	Verbosity  int

	// Raw is the option map the parameters were decoded from. It is written
	// to the parameters block of saved models.
	Raw map[string]string
}

// NewTrainingParams converts decoded options into trainer parameters and
// validates them.
func NewTrainingParams(p config.Params) (TrainingParams, error) {
	objective, err := ParseObjective(p.Objective)
	if err != nil {
		return TrainingParams{}, err
	}
	if b := strings.ToLower(p.Boosting); b != "gbdt" && b != "gbrt" {
		return TrainingParams{}, errors.NewValueError("boosting", "unsupported boosting "+strconv.Quote(p.Boosting))
	}

	tp := TrainingParams{
		Objective:           objective,
		NumIterations:       p.NumIterations,
		LearningRate:        p.LearningRate,
		NumLeaves:           p.NumLeaves,
		MaxDepth:            p.MaxDepth,
		MinDataInLeaf:       p.MinDataInLeaf,
		MinSumHessianInLeaf: p.MinSumHessianInLeaf,
		LambdaL1:            p.LambdaL1,
		LambdaL2:            p.LambdaL2,
		MinGainToSplit:      p.MinGainToSplit,
		MaxBin:              p.MaxBin,
		FeatureFraction:     p.FeatureFraction,
		FeatureFractionSeed: int64(p.FeatureFractionSeed),
		BaggingFraction:     p.BaggingFraction,
		BaggingFreq:         p.BaggingFreq,
		BaggingSeed:         int64(p.BaggingSeed),
		NumClass:            p.NumClass,
		Sigmoid:             p.Sigmoid,
		LabelGain:           p.LabelGain,
		MaxPosition:         p.MaxPosition,
		BoostFromAverage:    p.BoostFromAverage,
		Metrics:             p.Metric,
		MetricFreq:          p.MetricFreq,
		IsTrainingMetric:    p.IsTrainingMetric,
		NDCGEvalAt:          p.NDCGEvalAt,
		NumThreads:          p.NumThreads,
		Verbosity:           p.Verbosity,
	}
	if p.Seed != 0 {
		// A master seed overrides the per-purpose seeds.
		rng := rand.New(rand.NewSource(int64(p.Seed)))
		tp.BaggingSeed = rng.Int63()
		tp.FeatureFractionSeed = rng.Int63()
	}
	if objective != MulticlassSoftmax {
		tp.NumClass = 1
	}
	if err := tp.Validate(); err != nil {
		return TrainingParams{}, err
	}
	return tp, nil
}

// DefaultTrainingParams returns the defaults for objective. numClass is
// only read for the multiclass objective.
func DefaultTrainingParams(objective ObjectiveType, numClass int) (TrainingParams, error) {
	p := config.DefaultParams()
	p.Objective = string(objective)
	if objective == MulticlassSoftmax {
		p.NumClass = numClass
	}
	return NewTrainingParams(p)
}

// Validate checks ranges.
func (p *TrainingParams) Validate() error {
	switch {
	case p.NumIterations < 0:
		return errors.NewValueError("num_iterations", "must be non-negative")
	case p.LearningRate <= 0:
		return errors.NewValueError("learning_rate", "must be positive")
	case p.NumLeaves < 2:
		return errors.NewValueError("num_leaves", "must be at least 2")
	case p.MinDataInLeaf < 0:
		return errors.NewValueError("min_data_in_leaf", "must be non-negative")
	case p.MinSumHessianInLeaf < 0:
		return errors.NewValueError("min_sum_hessian_in_leaf", "must be non-negative")
	case p.LambdaL1 < 0 || p.LambdaL2 < 0:
		return errors.NewValueError("lambda", "regularisation must be non-negative")
	case p.MaxBin < 2 || p.MaxBin > 65535:
		return errors.NewValueError("max_bin", "must be in [2, 65535]")
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValueError("feature_fraction", "must be in (0, 1]")
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValueError("bagging_fraction", "must be in (0, 1]")
	case p.Objective == MulticlassSoftmax && p.NumClass < 2:
		return errors.NewValueError("num_class", "multiclass needs at least 2 classes")
	}
	return nil
}

// NumTreePerIteration is the number of trees grown per boosting round.
func (p *TrainingParams) NumTreePerIteration() int {
	if p.Objective == MulticlassSoftmax {
		return p.NumClass
	}
	return 1
}
