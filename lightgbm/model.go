package lightgbm

import (
	"bufio"
	"os"
	"strconv"

	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Model is a trained ensemble in LightGBM text model layout.
type Model struct {
	Version             string
	Objective           ObjectiveType
	ObjectiveLine       string
	NumClass            int
	NumTreePerIteration int
	LabelIndex          int
	MaxFeatureIdx       int
	FeatureNames        []string
	FeatureInfos        []string

	// Trees are iteration-major: tree i belongs to class i % NumTreePerIteration.
	Trees []*Tree

	// Parameters is the parameters block (option name to value).
	Parameters map[string]string

	converter func([]float64)
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		Version:             "v3",
		NumClass:            1,
		NumTreePerIteration: 1,
		Parameters:          make(map[string]string),
		converter:           func([]float64) {},
	}
}

// NumFeatures returns the number of features the model was trained on.
func (m *Model) NumFeatures() int {
	return m.MaxFeatureIdx + 1
}

// NumIterations returns the number of boosting rounds in the model.
func (m *Model) NumIterations() int {
	if m.NumTreePerIteration == 0 {
		return 0
	}
	return len(m.Trees) / m.NumTreePerIteration
}

// NumOutputs is the number of prediction columns (1, or num_class).
func (m *Model) NumOutputs() int {
	return m.NumTreePerIteration
}

// PredictRawRow accumulates raw scores of one row into out, which must
// have NumOutputs entries.
func (m *Model) PredictRawRow(features, out []float64) {
	for k := range out {
		out[k] = 0
	}
	for i, tree := range m.Trees {
		out[i%m.NumTreePerIteration] += tree.Predict(features)
	}
}

// PredictRow returns the transformed prediction of one row.
func (m *Model) PredictRow(features []float64) []float64 {
	out := make([]float64, m.NumOutputs())
	m.PredictRawRow(features, out)
	m.converter(out)
	return out
}

// PredictRaw returns untransformed scores, rows x NumOutputs.
func (m *Model) PredictRaw(X mat.Matrix) (*mat.Dense, error) {
	return m.predict(X, true)
}

// Predict returns transformed predictions: probabilities for binary and
// multiclass, raw scores otherwise. The result is rows x NumOutputs.
func (m *Model) Predict(X mat.Matrix) (*mat.Dense, error) {
	return m.predict(X, false)
}

func (m *Model) predict(X mat.Matrix, raw bool) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.ErrEmptyData
	}
	// Fewer columns are allowed: sparse files stop at their largest index.
	if cols > m.NumFeatures() {
		return nil, errors.NewDimensionError("Predict", m.NumFeatures(), cols, 1)
	}

	preds := mat.NewDense(rows, m.NumOutputs(), nil)
	features := make([]float64, m.NumFeatures())
	out := make([]float64, m.NumOutputs())
	for i := 0; i < rows; i++ {
		for j := cols; j < len(features); j++ {
			features[j] = 0
		}
		copy(features, dataset.Row(features[:cols], i, X))
		m.PredictRawRow(features, out)
		if !raw {
			m.converter(out)
		}
		preds.SetRow(i, out)
	}
	if err := errors.CheckMatrix("Predict", preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// PredictFile loads a data file (dense or SVM-light, detected from its
// content) and predicts it. Dense files carry the label in column 0.
func (m *Model) PredictFile(path string) (*mat.Dense, error) {
	table, err := dataset.LoadAuto(path)
	if err != nil {
		return nil, err
	}
	preds, err := m.Predict(table.Features)
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s", path)
	}
	log.GetLoggerWithName("lightgbm.predictor").Debug("File predicted",
		log.OperationKey, log.OperationPredict,
		log.PathKey, path,
		log.SparseKey, table.Sparse(),
		log.PredsKey, table.Rows(),
	)
	return preds, nil
}

// FeatureImportance returns per-feature split counts ("split") or total
// gains ("gain").
func (m *Model) FeatureImportance(importanceType string) ([]float64, error) {
	if importanceType != "split" && importanceType != "gain" {
		return nil, errors.NewValueError("FeatureImportance", "importance type must be split or gain")
	}
	importance := make([]float64, m.NumFeatures())
	for _, tree := range m.Trees {
		for node, f := range tree.SplitFeature {
			if importanceType == "split" {
				importance[f]++
			} else {
				importance[f] += tree.SplitGain[node]
			}
		}
	}
	return importance, nil
}

// WritePredictions writes one row per line, columns separated by tabs,
// with round-trip float precision.
func WritePredictions(path string, preds mat.Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewFileAccessError("write predictions", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewFileAccessError("write predictions", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	rows, cols := preds.Dims()
	buf := make([]byte, 0, 32*cols)
	for i := 0; i < rows; i++ {
		buf = buf[:0]
		for j := 0; j < cols; j++ {
			if j > 0 {
				buf = append(buf, '\t')
			}
			buf = strconv.AppendFloat(buf, preds.At(i, j), 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return errors.NewFileAccessError("write predictions", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewFileAccessError("write predictions", path, err)
	}
	return nil
}
