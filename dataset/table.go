package dataset

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Format identifies a dataset text encoding.
type Format int

const (
	// FormatDense is a whitespace separated matrix, label in column 0.
	FormatDense Format = iota
	// FormatSVMLight is "label idx:value ..." per line.
	FormatSVMLight
)

func (f Format) String() string {
	if f == FormatSVMLight {
		return "svmlight"
	}
	return "dense"
}

// Table is a labelled feature matrix together with the file it came from.
// Features is a *mat.Dense for dense files and a *CSR for SVM-light files.
type Table struct {
	Features mat.Matrix
	Labels   []float64
	Path     string
	Format   Format
}

// Rows returns the number of examples.
func (t *Table) Rows() int {
	r, _ := t.Features.Dims()
	return r
}

// NumFeatures returns the number of feature columns.
func (t *Table) NumFeatures() int {
	_, c := t.Features.Dims()
	return c
}

// Sparse reports whether the table was read from SVM-light.
func (t *Table) Sparse() bool {
	return t.Format == FormatSVMLight
}

// Load reads path in the given format.
func Load(path string, format Format) (*Table, error) {
	if format == FormatSVMLight {
		return LoadSVMLight(path)
	}
	return LoadDense(path)
}

// LoadAuto detects the format from the first data line and loads path.
func LoadAuto(path string) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return Load(path, format)
}

// DetectFormat reports FormatSVMLight when the first data line contains an
// index:value token.
func DetectFormat(path string) (Format, error) {
	f, err := openFile("dataset", path)
	if err != nil {
		return FormatDense, err
	}
	defer f.Close()

	format := FormatDense
	found := false
	errStop := errors.New("stop")
	err = scanLines("dataset", path, f, func(_ int, line string) error {
		if strings.Contains(line, ":") {
			format = FormatSVMLight
		}
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return FormatDense, err
	}
	if !found {
		return FormatDense, errors.NewDatasetParseError(path, 0, "no data rows", errors.ErrEmptyData)
	}
	return format, nil
}

// LoadDense reads a whitespace separated matrix and splits column 0 (label)
// from columns 1..N (features). A file with R rows and C columns yields an
// R x (C-1) feature matrix.
func LoadDense(path string) (*Table, error) {
	data, rows, cols, err := readMatrix("dataset", path)
	if err != nil {
		return nil, err
	}
	if cols < 2 {
		return nil, errors.NewDatasetParseError(path, 0,
			"dense dataset needs a label and at least one feature, got "+strconv.Itoa(cols)+" columns", nil)
	}

	labels := make([]float64, rows)
	features := mat.NewDense(rows, cols-1, nil)
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		labels[i] = row[0]
		features.SetRow(i, row[1:])
	}

	log.GetLoggerWithName("dataset").Debug("Dense dataset loaded",
		log.OperationKey, log.OperationLoadDataset,
		log.PathKey, path,
		log.SamplesKey, rows,
		log.FeaturesKey, cols-1,
	)
	return &Table{Features: features, Labels: labels, Path: path, Format: FormatDense}, nil
}

// LoadSVMLight reads an SVM-light file. Feature indices are used as column
// numbers as written (LightGBM convention); "qid:" tokens are ignored. The
// column count is the largest index plus one.
func LoadSVMLight(path string) (*Table, error) {
	f, err := openFile("dataset", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		labels  []float64
		indptr  = []int{0}
		indices []int
		values  []float64
		cols    int
	)
	err = scanLines("dataset", path, f, func(lineNo int, line string) error {
		fields := strings.Fields(line)
		label, perr := parseFloat(fields[0])
		if perr != nil {
			return errors.NewDatasetParseError(path, lineNo, strconv.Quote(fields[0])+" is not a label", perr)
		}
		prev := -1
		for _, tok := range fields[1:] {
			idxStr, valStr, ok := strings.Cut(tok, ":")
			if !ok {
				return errors.NewDatasetParseError(path, lineNo, strconv.Quote(tok)+" is not index:value", nil)
			}
			if idxStr == "qid" {
				continue
			}
			idx, ierr := strconv.Atoi(idxStr)
			if ierr != nil || idx < 0 {
				return errors.NewDatasetParseError(path, lineNo, strconv.Quote(idxStr)+" is not a feature index", ierr)
			}
			if idx <= prev {
				return errors.NewDatasetParseError(path, lineNo, "feature indices must be strictly increasing", nil)
			}
			v, verr := parseFloat(valStr)
			if verr != nil {
				return errors.NewDatasetParseError(path, lineNo, strconv.Quote(valStr)+" is not a number", verr)
			}
			prev = idx
			if idx+1 > cols {
				cols = idx + 1
			}
			if v == 0 {
				continue
			}
			indices = append(indices, idx)
			values = append(values, v)
		}
		labels = append(labels, label)
		indptr = append(indptr, len(values))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.NewDatasetParseError(path, 0, "no data rows", errors.ErrEmptyData)
	}

	features := NewCSR(len(labels), cols, indptr, indices, values)
	log.GetLoggerWithName("dataset").Debug("SVM-light dataset loaded",
		log.OperationKey, log.OperationLoadDataset,
		log.PathKey, path,
		log.SamplesKey, len(labels),
		log.FeaturesKey, cols,
		log.SparseKey, true,
	)
	return &Table{Features: features, Labels: labels, Path: path, Format: FormatSVMLight}, nil
}

// LoadMatrix reads a rectangular numeric file without splitting a label,
// e.g. a prediction result file with one column per class.
func LoadMatrix(path string) (*mat.Dense, error) {
	data, rows, cols, err := readMatrix("reference", path)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, data), nil
}
