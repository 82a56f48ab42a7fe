package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const binaryConf = `# task type, support train and predict
task = train

boosting_type = gbdt
objective = binary
metric = binary_logloss,auc
metric_freq = 1
is_training_metric = true
max_bin = 255
data = binary.train
valid_data = binary.test
num_trees = 100
learning_rate = 0.1
num_leaves = 63
feature_fraction = 0.8
bagging_freq = 5
bagging_fraction = 0.8
min_data_in_leaf = 50
min_sum_hessian_in_leaf = 5.0
is_enable_sparse = true
early_stopping = 10
   # indented comment
output_model = LightGBM_model.txt
`

func writeConf(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(content), 0o600))
	return dir
}

func TestLoadParsesKeyValueLines(t *testing.T) {
	dir := writeConf(t, binaryConf)

	cfg, err := Load(dir, DefaultFile)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultFile), cfg.Path())
	assert.Equal(t, dir, cfg.Dir())

	v, ok := cfg.Get("objective")
	assert.True(t, ok)
	assert.Equal(t, "binary", v)

	v, _ = cfg.Get("metric")
	assert.Equal(t, "binary_logloss,auc", v, "values stay uncoerced strings")

	v, _ = cfg.Get("min_sum_hessian_in_leaf")
	assert.Equal(t, "5.0", v)

	_, ok = cfg.Get("early_stopping")
	assert.False(t, ok, "early stopping must be filtered")

	assert.Equal(t, 19, cfg.Len())
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := writeConf(t, binaryConf)

	first, err := Load(dir, DefaultFile)
	require.NoError(t, err)
	second, err := Load(dir, DefaultFile)
	require.NoError(t, err)

	assert.Equal(t, first.Map(), second.Map())
	assert.Equal(t, first.Keys(), second.Keys())
}

func TestEarlyStoppingFamilyFiltered(t *testing.T) {
	tests := []struct {
		key      string
		filtered bool
	}{
		{"early_stopping", true},
		{"early_stopping_round", true},
		{"early_stopping_rounds", true},
		{"use_early_stopping_min_delta", true},
		{"Early_Stopping", false},
		{"EARLY_STOPPING_ROUND", false},
		{"early-stopping", false},
		{"num_leaves", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			dir := writeConf(t, tt.key+" = 10\n")
			cfg, err := Load(dir, DefaultFile)
			require.NoError(t, err)

			_, present := cfg.Get(tt.key)
			assert.Equal(t, !tt.filtered, present)
		})
	}
}

func TestMalformedLineIsReported(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		text    string
	}{
		{"missing separator", "task = train\nfoo bar\n", 2, "foo bar"},
		{"two separators", "a = b = c\n", 1, "a = b = c"},
		{"empty key", "# header\n\n = value\n", 3, "= value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConf(t, tt.content)

			_, err := Load(dir, DefaultFile)
			require.Error(t, err)

			var malformed *errors.MalformedConfigError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.line, malformed.Line)
			assert.Equal(t, tt.text, malformed.Text)
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestMissingFileIsFileAccessError(t *testing.T) {
	_, err := Load(t.TempDir(), DefaultFile)
	require.Error(t, err)

	var access *errors.FileAccessError
	require.True(t, errors.As(err, &access), "got %v", err)
	assert.Equal(t, "config", access.Op)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDirectoryIsFileAccessError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, DefaultFile), 0o700))

	_, err := Load(dir, DefaultFile)
	var access *errors.FileAccessError
	assert.True(t, errors.As(err, &access), "got %v", err)
}

func TestParseArgsAndMerge(t *testing.T) {
	dir := writeConf(t, binaryConf)
	fileCfg, err := Load(dir, DefaultFile)
	require.NoError(t, err)

	args, err := ParseArgs([]string{"task=predict", "data = binary.test", "early_stopping_round=3"})
	require.NoError(t, err)
	assert.Equal(t, 2, args.Len())

	merged := fileCfg.Merge(args)
	v, _ := merged.Get("task")
	assert.Equal(t, "predict", v)
	v, _ = merged.Get("data")
	assert.Equal(t, "binary.test", v)
	v, _ = merged.Get("objective")
	assert.Equal(t, "binary", v)
	assert.Equal(t, fileCfg.Path(), merged.Path())

	// Merge leaves the inputs untouched.
	v, _ = fileCfg.Get("task")
	assert.Equal(t, "train", v)

	_, err = ParseArgs([]string{"config=train.conf", "verbose"})
	var malformed *errors.MalformedConfigError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Line)
}

func TestMapReturnsCopy(t *testing.T) {
	cfg, err := FromMap(map[string]string{"objective": "regression", "early_stopping_round": "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Len())
	m := cfg.Map()
	m["objective"] = "binary"

	v, _ := cfg.Get("objective")
	assert.Equal(t, "regression", v)
}

func TestParserMarshalRoundTrip(t *testing.T) {
	p := NewParser("mem")
	in := map[string]interface{}{"num_leaves": "63", "objective": "binary"}

	b, err := p.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, "num_leaves = 63\nobjective = binary\n", string(b))

	out, err := p.Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
