package consistency

import (
	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"github.com/YuminosukeSato/gbdtcheck/lightgbm/api"
	"gonum.org/v1/gonum/mat"
)

// Predictor produces one prediction matrix (rows x 1, or rows x num_class).
type Predictor interface {
	Name() string
	Predict() (*mat.Dense, error)
}

// InProcess predicts an in-memory matrix with a trained booster.
type InProcess struct {
	Booster  *api.Booster
	Features mat.Matrix
}

// Name implements Predictor.
func (p *InProcess) Name() string { return "in_process" }

// Predict implements Predictor.
func (p *InProcess) Predict() (*mat.Dense, error) {
	return p.Booster.Predict(p.Features)
}

// FilePath hands a data file to the booster, which reads it with the
// engine's own loader.
type FilePath struct {
	Booster *api.Booster
	Path    string
}

// Name implements Predictor.
func (p *FilePath) Name() string { return "file_path" }

// Predict implements Predictor.
func (p *FilePath) Predict() (*mat.Dense, error) {
	return p.Booster.PredictFile(p.Path)
}

// Reference reads predictions the engine executable already wrote.
type Reference struct {
	Path string
}

// Name implements Predictor.
func (p *Reference) Name() string { return "reference" }

// Predict implements Predictor.
func (p *Reference) Predict() (*mat.Dense, error) {
	return dataset.LoadMatrix(p.Path)
}

// Fixed wraps predictions computed elsewhere.
type Fixed struct {
	Label string
	Preds *mat.Dense
}

// Name implements Predictor.
func (p *Fixed) Name() string { return p.Label }

// Predict implements Predictor.
func (p *Fixed) Predict() (*mat.Dense, error) {
	return p.Preds, nil
}
