package api

import (
	lgb "github.com/YuminosukeSato/gbdtcheck/lightgbm"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Booster is a trained model, similar to Python's lgb.Booster.
type Booster struct {
	model  *lgb.Model
	params map[string]string
}

// LoadBooster reads a model file in LightGBM text format.
func LoadBooster(path string) (*Booster, error) {
	model, err := lgb.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return &Booster{model: model, params: model.Parameters}, nil
}

// BoosterFromString parses a model string produced by ModelToString.
func BoosterFromString(s string) (*Booster, error) {
	model, err := lgb.LoadFromString(s)
	if err != nil {
		return nil, err
	}
	return &Booster{model: model, params: model.Parameters}, nil
}

// PredictOption configures Predict.
type PredictOption func(*predictOptions)

type predictOptions struct {
	rawScore bool
}

// WithRawScore returns untransformed scores.
func WithRawScore() PredictOption {
	return func(o *predictOptions) {
		o.rawScore = true
	}
}

// Predict predicts an in-memory matrix. The result is rows x 1, or
// rows x num_class for multiclass.
func (b *Booster) Predict(X mat.Matrix, opts ...PredictOption) (*mat.Dense, error) {
	if b == nil || b.model == nil {
		return nil, errors.NewNotFittedError("Booster", "Predict")
	}
	o := &predictOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.rawScore {
		return b.model.PredictRaw(X)
	}
	return b.model.Predict(X)
}

// PredictFile predicts a data file the way the engine does on its own:
// the model goes through its text form and back, and the file is parsed
// by the engine's loader rather than by the caller.
func (b *Booster) PredictFile(path string) (*mat.Dense, error) {
	if b == nil || b.model == nil {
		return nil, errors.NewNotFittedError("Booster", "PredictFile")
	}
	model, err := lgb.LoadFromString(b.model.ModelToString())
	if err != nil {
		return nil, errors.Wrap(err, "reload model")
	}
	return model.PredictFile(path)
}

// SaveModel writes the model to path.
func (b *Booster) SaveModel(path string) error {
	if b == nil || b.model == nil {
		return errors.NewNotFittedError("Booster", "SaveModel")
	}
	return b.model.SaveToFile(path)
}

// ModelToString renders the model in LightGBM text format.
func (b *Booster) ModelToString() string {
	if b == nil || b.model == nil {
		return ""
	}
	return b.model.ModelToString()
}

// NumTrees returns the total number of trees.
func (b *Booster) NumTrees() int {
	return len(b.model.Trees)
}

// CurrentIteration returns the number of boosting rounds.
func (b *Booster) CurrentIteration() int {
	return b.model.NumIterations()
}

// NumClass returns the number of prediction columns.
func (b *Booster) NumClass() int {
	return b.model.NumOutputs()
}

// NumFeature returns the number of features the model expects.
func (b *Booster) NumFeature() int {
	return b.model.NumFeatures()
}

// FeatureImportance returns "split" or "gain" importances.
func (b *Booster) FeatureImportance(importanceType string) ([]float64, error) {
	return b.model.FeatureImportance(importanceType)
}

// Params returns the options the booster was trained with.
func (b *Booster) Params() map[string]string {
	out := make(map[string]string, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// Model exposes the underlying engine model.
func (b *Booster) Model() *lgb.Model {
	return b.model
}
