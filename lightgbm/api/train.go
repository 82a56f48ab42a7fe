package api

import (
	"strconv"
	"time"

	"github.com/YuminosukeSato/gbdtcheck/config"
	"github.com/YuminosukeSato/gbdtcheck/dataset"
	lgb "github.com/YuminosukeSato/gbdtcheck/lightgbm"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
)

// Train trains a booster, similar to Python's lgb.train(params, train_set).
//
// Parameters:
//   - params: option map as read from a train.conf file; aliases are accepted
//   - trainSet: training dataset
//   - options: overrides such as the number of boosting rounds
//
// Returns:
//   - Trained Booster
func Train(params map[string]string, trainSet *Dataset, options ...TrainOption) (*Booster, error) {
	if trainSet == nil {
		return nil, errors.NewValueError("Train", "training dataset is nil")
	}
	opts := &trainOptions{}
	for _, opt := range options {
		opt(opts)
	}

	raw := make(map[string]string, len(params)+2)
	for k, v := range params {
		raw[k] = v
	}
	if opts.numBoostRound > 0 {
		setOption(raw, "num_iterations", strconv.Itoa(opts.numBoostRound))
	}
	if opts.numThreads > 0 {
		setOption(raw, "num_threads", strconv.Itoa(opts.numThreads))
	}

	decoded, err := config.DecodeParams(trainSet.Source, raw)
	if err != nil {
		return nil, err
	}
	trainParams, err := lgb.NewTrainingParams(decoded)
	if err != nil {
		return nil, err
	}
	trainParams.Raw = raw

	if trainSet.InitScore != nil {
		err := dataset.CheckInitScore(trainSet.Source, trainSet.InitScore, trainSet.NumData(), trainParams.NumTreePerIteration())
		if err != nil {
			return nil, err
		}
	}

	logger := log.GetLoggerWithName("lightgbm.api")
	start := time.Now()

	trainer := lgb.NewTrainer(trainParams)
	meta := &lgb.Metadata{
		Labels:          trainSet.Label,
		Weights:         trainSet.Weight,
		InitScores:      trainSet.InitScore,
		QueryBoundaries: trainSet.QueryBoundaries,
	}
	if err := trainer.Fit(trainSet.Data, meta); err != nil {
		return nil, errors.Wrapf(err, "train %s", string(trainParams.Objective))
	}

	booster := &Booster{model: trainer.GetModel(), params: raw}
	logger.Debug("Booster trained",
		log.OperationKey, log.OperationTrain,
		log.ObjectiveKey, string(trainParams.Objective),
		log.TreesKey, len(booster.model.Trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return booster, nil
}

// setOption replaces every spelling of the canonical option name with name.
func setOption(raw map[string]string, name, value string) {
	for k := range raw {
		if config.CanonicalName(k) == name {
			delete(raw, k)
		}
	}
	raw[name] = value
}

// TrainOption is a functional option for training configuration
type TrainOption func(*trainOptions)

type trainOptions struct {
	numBoostRound int
	numThreads    int
}

// WithNumBoostRound overrides num_iterations.
func WithNumBoostRound(rounds int) TrainOption {
	return func(o *trainOptions) {
		o.numBoostRound = rounds
	}
}

// WithNumThreads overrides num_threads.
func WithNumThreads(threads int) TrainOption {
	return func(o *trainOptions) {
		o.numThreads = threads
	}
}
