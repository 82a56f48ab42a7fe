// Package consistency checks that a trained booster predicts the same
// values whether it is handed an in-memory matrix or the path of the
// file the matrix was read from, and optionally that both agree with the
// prediction file written by the engine executable.
package consistency

import (
	"path/filepath"

	"github.com/YuminosukeSato/gbdtcheck/config"
	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// DefaultReferenceFile is the prediction file the engine executable writes.
const DefaultReferenceFile = "LightGBM_predict_result.txt"

// FileLoader resolves the files of one dataset family: dir/prefix+suffix
// for data and side files, dir/train.conf for the parameters.
type FileLoader struct {
	dir        string
	prefix     string
	configFile string
	cfg        *config.Config
	logger     log.Logger
}

// LoaderOption configures NewFileLoader.
type LoaderOption func(*FileLoader)

// WithConfigFile replaces the default train.conf.
func WithConfigFile(name string) LoaderOption {
	return func(l *FileLoader) {
		l.configFile = name
	}
}

// NewFileLoader parses the family's configuration file.
func NewFileLoader(dir, prefix string, opts ...LoaderOption) (*FileLoader, error) {
	l := &FileLoader{
		dir:        dir,
		prefix:     prefix,
		configFile: config.DefaultFile,
		logger:     log.GetLoggerWithName("consistency.loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	cfg, err := config.Load(dir, l.configFile)
	if err != nil {
		return nil, err
	}
	l.cfg = cfg
	return l, nil
}

// Dir returns the family directory.
func (l *FileLoader) Dir() string {
	return l.dir
}

// ConfigPath returns the parsed configuration file.
func (l *FileLoader) ConfigPath() string {
	return l.cfg.Path()
}

// Params returns a copy of the training options.
func (l *FileLoader) Params() map[string]string {
	return l.cfg.Map()
}

// Path resolves dir/prefix+suffix.
func (l *FileLoader) Path(suffix string) string {
	return filepath.Join(l.dir, l.prefix+suffix)
}

// LoadDataset reads dir/prefix+suffix, as SVM-light when sparse is set and
// as a dense matrix with the label in column 0 otherwise. The table keeps
// the resolved path for the file based prediction.
func (l *FileLoader) LoadDataset(suffix string, sparse bool) (*dataset.Table, error) {
	format := dataset.FormatDense
	if sparse {
		format = dataset.FormatSVMLight
	}
	return dataset.Load(l.Path(suffix), format)
}

// LoadField reads a one value per line side file.
func (l *FileLoader) LoadField(suffix string) ([]float64, error) {
	return dataset.LoadField(l.Path(suffix))
}

// LoadReference reads a prediction file in the family directory; an empty
// name means DefaultReferenceFile.
func (l *FileLoader) LoadReference(name string) (*mat.Dense, error) {
	if name == "" {
		name = DefaultReferenceFile
	}
	path := filepath.Join(l.dir, name)
	preds, err := dataset.LoadMatrix(path)
	if err != nil {
		return nil, err
	}
	rows, cols := preds.Dims()
	l.logger.Debug("Reference loaded",
		log.OperationKey, log.OperationLoadDataset,
		log.PathKey, path,
		log.SamplesKey, rows,
		"columns", cols,
	)
	return preds, nil
}
