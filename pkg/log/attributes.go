// Package log defines standard attribute keys for gbdtcheck log records.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "check.family") so records can be filtered by prefix.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type, e.g. "gbdt".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// ObjectiveKey records the training objective.
	ObjectiveKey = "model.objective"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
	SparseKey   = "data.sparse"
	GroupsKey   = "data.groups"
)

// Training progress and metrics.
const (
	IterationKey  = "training.iteration"
	TreesKey      = "training.trees"
	MetricKey     = "metrics.name"
	MetricValue   = "metrics.value"
	DurationMsKey = "perf.duration_ms"
)

// Consistency check context.
const (
	// FamilyKey names the dataset family under check.
	FamilyKey = "check.family"

	// PredictorKey names a prediction strategy.
	PredictorKey = "check.predictor"

	// MaxAbsDiffKey records the largest element-wise deviation.
	MaxAbsDiffKey = "check.max_abs_diff"

	// DecimalKey records the decimal precision of the comparison.
	DecimalKey = "check.decimal"

	// PredsKey indicates the number of compared predictions.
	PredsKey = "preds.count"
)

// Configuration.
const (
	ConfigPathKey = "config.path"
	ConfigKeysKey = "config.keys"
	RandomSeedKey = "config.random_seed"
)

// Standard operation values.
const (
	OperationLoadConfig  = "load_config"
	OperationLoadDataset = "load_dataset"
	OperationTrain       = "train"
	OperationPredict     = "predict"
	OperationCheck       = "check"
)
