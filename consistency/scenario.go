package consistency

import (
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/gbdtcheck/dataset"
	"github.com/YuminosukeSato/gbdtcheck/lightgbm/api"
	"github.com/YuminosukeSato/gbdtcheck/lightgbm/application"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"github.com/YuminosukeSato/gbdtcheck/report"
)

// Scenario wires one dataset family: where its files live, how they are
// encoded and which side file accompanies the training set.
type Scenario struct {
	Family string
	Dir    string
	Prefix string
	Sparse bool
	Field  dataset.FieldKind
}

// DefaultScenarios returns the four families of the LightGBM examples
// directory rooted at root.
func DefaultScenarios(root string) []Scenario {
	return []Scenario{
		{Family: "binary", Dir: filepath.Join(root, "binary_classification"), Prefix: "binary", Field: dataset.FieldWeight},
		{Family: "multiclass", Dir: filepath.Join(root, "multiclass_classification"), Prefix: "multiclass"},
		{Family: "regression", Dir: filepath.Join(root, "regression"), Prefix: "regression", Field: dataset.FieldInitScore},
		{Family: "lambdarank", Dir: filepath.Join(root, "lambdarank"), Prefix: "rank", Sparse: true, Field: dataset.FieldQueryGroup},
	}
}

// FindScenario returns the scenario named family.
func FindScenario(scenarios []Scenario, family string) (Scenario, bool) {
	for _, sc := range scenarios {
		if sc.Family == family {
			return sc, true
		}
	}
	return Scenario{}, false
}

// RunOption configures Run.
type RunOption func(*runOptions)

type runOptions struct {
	decimal       int
	plotDir       string
	referenceFile string
	engineWorkDir string
}

// WithDecimal changes the number of decimal places compared.
func WithDecimal(decimal int) RunOption {
	return func(o *runOptions) {
		o.decimal = decimal
	}
}

// WithPlotDir writes a divergence plot into dir when a comparison fails.
func WithPlotDir(dir string) RunOption {
	return func(o *runOptions) {
		o.plotDir = dir
	}
}

// WithReferenceFile also compares the in-process predictions with a
// prediction file that already exists in the family directory.
func WithReferenceFile(name string) RunOption {
	return func(o *runOptions) {
		if name == "" {
			name = DefaultReferenceFile
		}
		o.referenceFile = name
	}
}

// WithEngineReference runs the command line engine (train, then predict
// the test file) with the family's configuration, writing its model and
// prediction file into workDir, and compares the in-process predictions
// with that file.
func WithEngineReference(workDir string) RunOption {
	return func(o *runOptions) {
		o.engineWorkDir = workDir
	}
}

// Run loads the scenario's files, trains and checks the predictions. Any
// error is wrapped with the family name.
func Run(sc Scenario, opts ...RunOption) (res *Result, err error) {
	o := &runOptions{decimal: DefaultDecimal}
	for _, opt := range opts {
		opt(o)
	}
	logger := log.GetLoggerWithName("consistency").With(log.FamilyKey, sc.Family)
	start := time.Now()

	defer func() {
		if err == nil {
			return
		}
		var mismatch *errors.PredictionMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Family = sc.Family
		}
		err = errors.Wrapf(err, "%s", sc.Family)
	}()

	loader, err := NewFileLoader(sc.Dir, sc.Prefix)
	if err != nil {
		return nil, err
	}
	train, err := loader.LoadDataset(".train", sc.Sparse)
	if err != nil {
		return nil, err
	}
	test, err := loader.LoadDataset(".test", sc.Sparse)
	if err != nil {
		return nil, err
	}
	ds, err := trainingSet(loader, train, sc.Field)
	if err != nil {
		return nil, err
	}

	res, err = loader.trainPredictCheck(ds, test.Features, test.Path, o.decimal)
	if res != nil {
		res.Family = sc.Family
	}
	if err == nil {
		var refPath string
		refPath, err = o.reference(loader, sc)
		if err == nil && refPath != "" {
			var cmp *Comparison
			cmp, err = Compare(&InProcess{Booster: res.Booster, Features: test.Features}, &Reference{Path: refPath}, o.decimal)
			if cmp != nil {
				res.Comparisons = append(res.Comparisons, cmp)
			}
		}
	}

	if res != nil {
		for _, cmp := range res.Comparisons {
			logger.Info("Predictions compared",
				log.OperationKey, log.OperationCheck,
				log.PredictorKey, cmp.ExpectedName+"/"+cmp.ActualName,
				log.MaxAbsDiffKey, cmp.MaxAbsDiff,
				log.DecimalKey, cmp.Decimal,
				log.PredsKey, cmp.Total(),
				"passed", cmp.Passed(),
			)
			if !cmp.Passed() && o.plotDir != "" {
				plotFailure(logger, o.plotDir, sc.Family, cmp)
			}
		}
	}
	if err != nil {
		return res, err
	}
	logger.Info("Scenario passed",
		log.OperationKey, log.OperationCheck,
		log.MaxAbsDiffKey, res.MaxAbsDiff(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// trainingSet attaches the scenario's side file to the training table.
func trainingSet(loader *FileLoader, train *dataset.Table, field dataset.FieldKind) (*api.Dataset, error) {
	if field == dataset.FieldNone {
		return api.FromTable(train)
	}
	values, err := loader.LoadField(".train" + field.Suffix())
	if err != nil {
		return nil, err
	}
	switch field {
	case dataset.FieldWeight:
		return api.FromTable(train, api.WithWeight(values))
	case dataset.FieldInitScore:
		return api.FromTable(train, api.WithInitScore(values))
	default:
		return api.FromTable(train, api.WithGroup(values))
	}
}

// reference returns the prediction file to compare against, materialising
// it with the engine when requested. It returns "" when none is configured.
func (o *runOptions) reference(loader *FileLoader, sc Scenario) (string, error) {
	switch {
	case o.engineWorkDir != "":
		return runEngine(loader, sc, o.engineWorkDir)
	case o.referenceFile != "":
		return filepath.Join(loader.Dir(), o.referenceFile), nil
	}
	return "", nil
}

// runEngine trains and predicts with the command line task runner exactly
// as `lightgbm config=train.conf` would, redirecting its outputs to workDir.
func runEngine(loader *FileLoader, sc Scenario, workDir string) (string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", errors.NewFileAccessError("engine reference", workDir, err)
	}
	// The application resolves relative paths against the config file's
	// directory, so everything handed to it is made absolute first.
	paths := []string{
		loader.ConfigPath(),
		loader.Path(".train"),
		loader.Path(".test"),
		filepath.Join(workDir, sc.Family+".model.txt"),
		filepath.Join(workDir, sc.Family+"."+DefaultReferenceFile),
	}
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", errors.NewFileAccessError("engine reference", p, err)
		}
		paths[i] = abs
	}
	conf, train, test, model, result := "config="+paths[0], paths[1], paths[2], paths[3], paths[4]

	tasks := [][]string{
		{conf, "task=train", "data=" + train, "output_model=" + model},
		{conf, "task=predict", "data=" + test, "input_model=" + model, "output_result=" + result},
	}
	for _, args := range tasks {
		app, err := application.FromArgs(args)
		if err != nil {
			return "", err
		}
		if err := app.Run(); err != nil {
			return "", errors.Wrapf(err, "engine %s", string(app.Task()))
		}
	}
	return result, nil
}

func plotFailure(logger log.Logger, dir, family string, cmp *Comparison) {
	path := filepath.Join(dir, family+"_"+cmp.ExpectedName+"_vs_"+cmp.ActualName+".png")
	title := family + ": " + cmp.ExpectedName + " vs " + cmp.ActualName
	if err := report.PlotDivergence(path, cmp.Expected, cmp.Actual, title); err != nil {
		logger.Warn("Failed to write divergence plot", log.PathKey, path, log.ErrAttr(err))
		return
	}
	logger.Info("Divergence plot written", log.PathKey, path)
}
