// Package application runs LightGBM command line tasks: task=train reads a
// data file and its side files and writes a model, task=predict applies a
// model to a data file and writes the prediction result file.
package application

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/gbdtcheck/config"
	"github.com/YuminosukeSato/gbdtcheck/dataset"
	lgb "github.com/YuminosukeSato/gbdtcheck/lightgbm"
	"github.com/YuminosukeSato/gbdtcheck/lightgbm/api"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
)

// Task is the value of the task option.
type Task string

const (
	TaskTrain   Task = "train"
	TaskPredict Task = "predict"
)

// ParseTask accepts the task names LightGBM understands.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "train", "training":
		return TaskTrain, nil
	case "predict", "prediction", "test":
		return TaskPredict, nil
	}
	return "", errors.NewValueError("task", "unsupported task "+strconv.Quote(s))
}

// Application holds the merged configuration of one invocation.
type Application struct {
	cfg    *config.Config
	params config.Params
	task   Task
	logger log.Logger
}

// New decodes cfg and prepares the task it names.
func New(cfg *config.Config) (*Application, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	task, err := ParseTask(params.Task)
	if err != nil {
		return nil, err
	}
	return &Application{
		cfg:    cfg,
		params: params,
		task:   task,
		logger: log.GetLoggerWithName("lightgbm.application"),
	}, nil
}

// FromArgs builds an application from command line tokens. A config=FILE
// token loads the file first; the remaining tokens override it.
func FromArgs(args []string) (*Application, error) {
	cli, err := config.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	cfg := cli
	if path, ok := configPath(cli); ok {
		file, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = file.Merge(cli)
	}
	return New(cfg)
}

func configPath(c *config.Config) (string, bool) {
	for _, key := range []string{"config", "config_file"} {
		if v, ok := c.Get(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Task returns the task the application will run.
func (a *Application) Task() Task {
	return a.task
}

// Params returns the decoded options.
func (a *Application) Params() config.Params {
	return a.params
}

// Run executes the configured task.
func (a *Application) Run() error {
	switch a.task {
	case TaskPredict:
		return a.Predict()
	default:
		return a.Train()
	}
}

// Resolve makes a relative path relative to the config file's directory.
func (a *Application) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.cfg.Dir(), path)
}

// Train loads the data file and its side files, trains, and writes
// output_model.
func (a *Application) Train() error {
	start := time.Now()
	if a.params.Data == "" {
		return errors.NewValueError("train", "no training data, set data=FILE")
	}
	if err := a.checkLayout(); err != nil {
		return err
	}

	ds, err := a.loadTrainingSet(a.Resolve(a.params.Data))
	if err != nil {
		return err
	}
	booster, err := api.Train(a.trainingOptions(), ds)
	if err != nil {
		return err
	}

	out := a.Resolve(a.params.OutputModel)
	if err := booster.SaveModel(out); err != nil {
		return err
	}
	a.logger.Info("Finished training",
		log.OperationKey, log.OperationTrain,
		log.PathKey, out,
		log.TreesKey, booster.NumTrees(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// trainingOptions returns the options passed to the trainer: the file
// options minus the ones that only steer this runner.
func (a *Application) trainingOptions() map[string]string {
	opts := a.cfg.Map()
	for key := range opts {
		switch config.CanonicalName(key) {
		case "task", "data", "valid", "input_model", "output_model", "output_result", "header", "label_column":
			delete(opts, key)
		case "config", "config_file":
			delete(opts, key)
		}
	}
	return opts
}

// checkLayout rejects data layouts the loaders do not read.
func (a *Application) checkLayout() error {
	if a.params.Header {
		return errors.NewValueError("header", "data files with a header line are not supported")
	}
	if lc := a.params.LabelColumn; lc != "" && lc != "0" {
		return errors.NewValueError("label_column", "the label must be the first column, got "+strconv.Quote(lc))
	}
	return nil
}

// loadTrainingSet reads path and the .weight, .init and .query files next
// to it when they exist.
func (a *Application) loadTrainingSet(path string) (*api.Dataset, error) {
	table, err := dataset.LoadAuto(path)
	if err != nil {
		return nil, err
	}

	var opts []api.DatasetOption
	for _, kind := range []dataset.FieldKind{dataset.FieldWeight, dataset.FieldInitScore, dataset.FieldQueryGroup} {
		side := path + kind.Suffix()
		if _, err := os.Stat(side); err != nil {
			continue
		}
		values, err := dataset.LoadField(side)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("Side file loaded",
			log.OperationKey, log.OperationLoadDataset,
			log.PathKey, side,
			"field", kind.String(),
		)
		switch kind {
		case dataset.FieldWeight:
			opts = append(opts, api.WithWeight(values))
		case dataset.FieldInitScore:
			opts = append(opts, api.WithInitScore(values))
		case dataset.FieldQueryGroup:
			opts = append(opts, api.WithGroup(values))
		}
	}
	return api.FromTable(table, opts...)
}

// Predict applies input_model to data and writes output_result.
func (a *Application) Predict() error {
	start := time.Now()
	if a.params.Data == "" {
		return errors.NewValueError("predict", "no data to predict, set data=FILE")
	}
	if err := a.checkLayout(); err != nil {
		return err
	}

	model, err := lgb.LoadFromFile(a.Resolve(a.params.InputModel))
	if err != nil {
		return err
	}
	preds, err := model.PredictFile(a.Resolve(a.params.Data))
	if err != nil {
		return err
	}

	out := a.Resolve(a.params.OutputResult)
	if err := lgb.WritePredictions(out, preds); err != nil {
		return err
	}
	rows, _ := preds.Dims()
	a.logger.Info("Finished prediction",
		log.OperationKey, log.OperationPredict,
		log.PathKey, out,
		log.PredsKey, rows,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// LogLevel maps the verbosity option to a log level name.
func LogLevel(verbosity int) string {
	switch {
	case verbosity < 0:
		return "error"
	case verbosity == 0:
		return "warn"
	case verbosity == 1:
		return "info"
	}
	return "debug"
}
