package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
)

// Params is the typed view of a Config. Only the options listed here are
// interpreted; everything else is carried verbatim in Extra.
type Params struct {
	Task      string `koanf:"task"`
	Objective string `koanf:"objective"`
	Boosting  string `koanf:"boosting"`

	// I/O
	Data         string `koanf:"data"`
	Valid        string `koanf:"valid"`
	InputModel   string `koanf:"input_model"`
	OutputModel  string `koanf:"output_model"`
	OutputResult string `koanf:"output_result"`
	Header       bool   `koanf:"header"`
	LabelColumn  string `koanf:"label_column"`

	// Tree growth
	NumIterations       int     `koanf:"num_iterations"`
	LearningRate        float64 `koanf:"learning_rate"`
	NumLeaves           int     `koanf:"num_leaves"`
	MaxDepth            int     `koanf:"max_depth"`
	MinDataInLeaf       int     `koanf:"min_data_in_leaf"`
	MinSumHessianInLeaf float64 `koanf:"min_sum_hessian_in_leaf"`
	LambdaL1            float64 `koanf:"lambda_l1"`
	LambdaL2            float64 `koanf:"lambda_l2"`
	MinGainToSplit      float64 `koanf:"min_gain_to_split"`
	MaxBin              int     `koanf:"max_bin"`

	// Sampling
	FeatureFraction     float64 `koanf:"feature_fraction"`
	FeatureFractionSeed int     `koanf:"feature_fraction_seed"`
	BaggingFraction     float64 `koanf:"bagging_fraction"`
	BaggingFreq         int     `koanf:"bagging_freq"`
	BaggingSeed         int     `koanf:"bagging_seed"`
	Seed                int     `koanf:"seed"`

	// Objective specific
	NumClass         int       `koanf:"num_class"`
	Sigmoid          float64   `koanf:"sigmoid"`
	LabelGain        []float64 `koanf:"label_gain"`
	MaxPosition      int       `koanf:"max_position"`
	BoostFromAverage bool      `koanf:"boost_from_average"`

	// Metrics
	Metric           []string `koanf:"metric"`
	MetricFreq       int      `koanf:"metric_freq"`
	IsTrainingMetric bool     `koanf:"is_training_metric"`
	NDCGEvalAt       []int    `koanf:"ndcg_eval_at"`

	NumThreads int `koanf:"num_threads"`
	Verbosity  int `koanf:"verbosity"`

	// Extra holds unrecognised options, passed through untouched.
	Extra map[string]string `koanf:"-"`
}

// aliases maps every accepted spelling to its canonical option name.
var aliases = map[string]string{
	"task_type":                   "task",
	"objective_type":              "objective",
	"app":                         "objective",
	"application":                 "objective",
	"loss":                        "objective",
	"boosting_type":               "boosting",
	"boost":                       "boosting",
	"train":                       "data",
	"train_data":                  "data",
	"train_data_file":             "data",
	"data_filename":               "data",
	"test":                        "valid",
	"valid_data":                  "valid",
	"valid_data_file":             "valid",
	"test_data":                   "valid",
	"test_data_file":              "valid",
	"valid_filenames":             "valid",
	"model_input":                 "input_model",
	"model_in":                    "input_model",
	"model_output":                "output_model",
	"model_out":                   "output_model",
	"predict_result":              "output_result",
	"prediction_result":           "output_result",
	"predict_name":                "output_result",
	"prediction_name":             "output_result",
	"pred_name":                   "output_result",
	"name_prediction":             "output_result",
	"has_header":                  "header",
	"label":                       "label_column",
	"num_iteration":               "num_iterations",
	"n_iter":                      "num_iterations",
	"num_tree":                    "num_iterations",
	"num_trees":                   "num_iterations",
	"num_round":                   "num_iterations",
	"num_rounds":                  "num_iterations",
	"nrounds":                     "num_iterations",
	"num_boost_round":             "num_iterations",
	"n_estimators":                "num_iterations",
	"max_iter":                    "num_iterations",
	"shrinkage_rate":              "learning_rate",
	"eta":                         "learning_rate",
	"num_leaf":                    "num_leaves",
	"max_leaves":                  "num_leaves",
	"max_leaf":                    "num_leaves",
	"max_leaf_nodes":              "num_leaves",
	"min_data_per_leaf":           "min_data_in_leaf",
	"min_data":                    "min_data_in_leaf",
	"min_child_samples":           "min_data_in_leaf",
	"min_samples_leaf":            "min_data_in_leaf",
	"min_sum_hessian_per_leaf":    "min_sum_hessian_in_leaf",
	"min_sum_hessian":             "min_sum_hessian_in_leaf",
	"min_hessian":                 "min_sum_hessian_in_leaf",
	"min_child_weight":            "min_sum_hessian_in_leaf",
	"reg_alpha":                   "lambda_l1",
	"l1_regularization":           "lambda_l1",
	"reg_lambda":                  "lambda_l2",
	"lambda":                      "lambda_l2",
	"l2_regularization":           "lambda_l2",
	"min_split_gain":              "min_gain_to_split",
	"max_bins":                    "max_bin",
	"sub_feature":                 "feature_fraction",
	"colsample_bytree":            "feature_fraction",
	"sub_row":                     "bagging_fraction",
	"subsample":                   "bagging_fraction",
	"bagging":                     "bagging_fraction",
	"subsample_freq":              "bagging_freq",
	"bagging_fraction_seed":       "bagging_seed",
	"random_seed":                 "seed",
	"random_state":                "seed",
	"num_classes":                 "num_class",
	"metrics":                     "metric",
	"metric_types":                "metric",
	"output_freq":                 "metric_freq",
	"training_metric":             "is_training_metric",
	"train_metric":                "is_training_metric",
	"is_provide_training_metric":  "is_training_metric",
	"ndcg_at":                     "ndcg_eval_at",
	"eval_at":                     "ndcg_eval_at",
	"lambdarank_truncation_level": "max_position",
	"num_thread":                  "num_threads",
	"nthread":                     "num_threads",
	"nthreads":                    "num_threads",
	"n_jobs":                      "num_threads",
	"verbose":                     "verbosity",
}

// canonical lists the option names Params understands.
var canonical = map[string]bool{
	"task": true, "objective": true, "boosting": true,
	"data": true, "valid": true, "input_model": true, "output_model": true,
	"output_result": true, "header": true, "label_column": true,
	"num_iterations": true, "learning_rate": true, "num_leaves": true,
	"max_depth": true, "min_data_in_leaf": true, "min_sum_hessian_in_leaf": true,
	"lambda_l1": true, "lambda_l2": true, "min_gain_to_split": true, "max_bin": true,
	"feature_fraction": true, "feature_fraction_seed": true,
	"bagging_fraction": true, "bagging_freq": true, "bagging_seed": true, "seed": true,
	"num_class": true, "sigmoid": true, "label_gain": true, "max_position": true,
	"boost_from_average": true, "metric": true, "metric_freq": true,
	"is_training_metric": true, "ndcg_eval_at": true,
	"num_threads": true, "verbosity": true,
}

// CanonicalName resolves an alias to the option name Params uses. Names
// that are neither canonical nor aliases are returned unchanged.
func CanonicalName(key string) string {
	if name, ok := aliases[key]; ok {
		return name
	}
	return key
}

// IsRecognized reports whether key (or its alias target) is a Params option.
func IsRecognized(key string) bool {
	return canonical[CanonicalName(key)]
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	gain := make([]float64, 31)
	for i := range gain {
		gain[i] = math.Pow(2, float64(i)) - 1
	}
	return Params{
		Task:                "train",
		Objective:           "regression",
		Boosting:            "gbdt",
		OutputModel:         "LightGBM_model.txt",
		InputModel:          "LightGBM_model.txt",
		OutputResult:        "LightGBM_predict_result.txt",
		NumIterations:       100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		MaxBin:              255,
		FeatureFraction:     1.0,
		FeatureFractionSeed: 2,
		BaggingFraction:     1.0,
		BaggingSeed:         3,
		NumClass:            1,
		Sigmoid:             1.0,
		LabelGain:           gain,
		MaxPosition:         20,
		BoostFromAverage:    true,
		MetricFreq:          1,
		NDCGEvalAt:          []int{1, 2, 3, 4, 5},
		Verbosity:           1,
		Extra:               map[string]string{},
	}
}

// Params decodes the configuration into the typed view. Aliases are
// resolved first; two spellings of one option with different values are
// rejected.
func (c *Config) Params() (Params, error) {
	return DecodeParams(c.path, c.values)
}

// DecodeParams decodes values on top of DefaultParams.
func DecodeParams(path string, values map[string]string) (Params, error) {
	params := DefaultParams()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	known := make(map[string]interface{})
	source := make(map[string]string)
	for _, key := range keys {
		value := values[key]
		name := CanonicalName(key)
		if !canonical[name] {
			params.Extra[key] = value
			continue
		}
		if prev, dup := source[name]; dup && known[name] != value {
			return Params{}, errors.NewMalformedConfigError(path, 0, key+"="+value,
				fmt.Sprintf("conflicts with %s=%v (both set %s)", prev, known[name], name))
		}
		known[name] = value
		source[name] = key
	}

	// The decoder writes into existing slices element by element, so slice
	// defaults are applied only when the option is absent.
	defaults := params
	params.LabelGain, params.NDCGEvalAt = nil, nil

	k := koanf.New(Delimiter)
	if err := k.Load(confmap.Provider(known, Delimiter), nil); err != nil {
		return Params{}, errors.Wrap(err, "load params")
	}
	if err := k.UnmarshalWithConf("", &params, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Params{}, errors.NewValueError("Params", err.Error())
	}
	if params.LabelGain == nil {
		params.LabelGain = defaults.LabelGain
	}
	if params.NDCGEvalAt == nil {
		params.NDCGEvalAt = defaults.NDCGEvalAt
	}
	return params, nil
}
