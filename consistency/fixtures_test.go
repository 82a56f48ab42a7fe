package consistency

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

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
num_trees = 10
learning_rate = 0.1
num_leaves = 15
tree_learner = serial
feature_fraction = 0.8
bagging_freq = 5
bagging_fraction = 0.8
min_data_in_leaf = 5
min_sum_hessian_in_leaf = 1.0
is_enable_sparse = true
early_stopping_round = 3
output_model = LightGBM_model.txt
verbosity = -1
`

const multiclassConf = `task = train
boosting_type = gbdt
objective = multiclass
metric = multi_logloss
num_class = 3
metric_freq = 1
is_training_metric = true
data = multiclass.train
valid_data = multiclass.test
early_stopping = 10
num_trees = 10
learning_rate = 0.05
num_leaves = 7
min_data_in_leaf = 5
verbosity = -1
`

const regressionConf = `task = train
boosting_type = gbdt
objective = regression
metric = l2
metric_freq = 1
is_training_metric = true
data = regression.train
valid_data = regression.test
num_trees = 10
learning_rate = 0.05
num_leaves = 15
feature_fraction = 0.9
bagging_fraction = 0.8
bagging_freq = 5
min_data_in_leaf = 5
verbosity = -1
`

const rankConf = `task = train
objective = lambdarank
metric = ndcg
ndcg_eval_at = 1,3,5
metric_freq = 1
is_training_metric = true
max_bin = 255
data = rank.train
valid_data = rank.test
num_trees = 10
learning_rate = 0.1
num_leaves = 15
min_data_in_leaf = 5
min_sum_hessian_in_leaf = 0.001
verbosity = -1
`

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// denseRows writes label followed by features, space separated.
func denseRows(labels []float64, features [][]float64) string {
	var sb strings.Builder
	for i, y := range labels {
		sb.WriteString(formatFloat(y))
		for _, v := range features[i] {
			sb.WriteByte(' ')
			sb.WriteString(formatFloat(v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// svmRows writes label idx:value pairs for the non-zero features.
func svmRows(labels []float64, features [][]float64) string {
	var sb strings.Builder
	for i, y := range labels {
		sb.WriteString(formatFloat(y))
		for j, v := range features[i] {
			if v == 0 {
				continue
			}
			sb.WriteString(" " + strconv.Itoa(j) + ":" + formatFloat(v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func column(values []float64) string {
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString(formatFloat(v))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func uniform(rng *rand.Rand, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = math.Round(rng.Float64()*1e4) / 1e4
		}
	}
	return out
}

// writeExamples lays out the four LightGBM example families under root the
// way DefaultScenarios expects them.
func writeExamples(t *testing.T, root string) {
	t.Helper()
	writeBinary(t, filepath.Join(root, "binary_classification"))
	writeMulticlass(t, filepath.Join(root, "multiclass_classification"))
	writeRegression(t, filepath.Join(root, "regression"))
	writeRank(t, filepath.Join(root, "lambdarank"))
}

// writeBinary writes 100 x 10 train and test sets and 100 weights.
func writeBinary(t *testing.T, dir string) {
	rng := rand.New(rand.NewSource(1))
	for _, name := range []string{"binary.train", "binary.test"} {
		x := uniform(rng, 100, 10)
		y := make([]float64, 100)
		for i := range y {
			if x[i][0]+x[i][1] > 1 {
				y[i] = 1
			}
		}
		writeText(t, filepath.Join(dir, name), denseRows(y, x))
	}
	weights := make([]float64, 100)
	for i := range weights {
		weights[i] = 0.5 + 0.25*float64(i%4)
	}
	writeText(t, filepath.Join(dir, "binary.train.weight"), column(weights))
	writeText(t, filepath.Join(dir, "train.conf"), binaryConf)
}

func writeMulticlass(t *testing.T, dir string) {
	rng := rand.New(rand.NewSource(2))
	for _, name := range []string{"multiclass.train", "multiclass.test"} {
		x := uniform(rng, 150, 5)
		y := make([]float64, 150)
		for i := range y {
			y[i] = math.Min(2, math.Floor(x[i][0]*3))
		}
		writeText(t, filepath.Join(dir, name), denseRows(y, x))
	}
	writeText(t, filepath.Join(dir, "train.conf"), multiclassConf)
}

func writeRegression(t *testing.T, dir string) {
	rng := rand.New(rand.NewSource(3))
	for _, name := range []string{"regression.train", "regression.test"} {
		x := uniform(rng, 120, 4)
		y := make([]float64, 120)
		for i := range y {
			y[i] = 3*x[i][0] - 2*x[i][1] + 0.1*rng.NormFloat64()
		}
		writeText(t, filepath.Join(dir, name), denseRows(y, x))
	}
	initScores := make([]float64, 120)
	for i := range initScores {
		initScores[i] = 0.25 * float64(i%3)
	}
	writeText(t, filepath.Join(dir, "regression.train.init"), column(initScores))
	writeText(t, filepath.Join(dir, "train.conf"), regressionConf)
}

// writeRank writes sparse query data: 20 training and 10 test queries of
// 8 documents each over 6 features, about a third of them zero.
func writeRank(t *testing.T, dir string) {
	rng := rand.New(rand.NewSource(4))
	for _, f := range []struct {
		name    string
		queries int
	}{{"rank.train", 20}, {"rank.test", 10}} {
		rows := f.queries * 8
		x := uniform(rng, rows, 6)
		y := make([]float64, rows)
		for i := range x {
			for j := range x[i] {
				if rng.Float64() < 0.35 {
					x[i][j] = 0
				}
			}
			if x[i][5] == 0 {
				x[i][5] = 0.5
			}
			y[i] = math.Min(3, math.Floor(x[i][2]*4))
		}
		writeText(t, filepath.Join(dir, f.name), svmRows(y, x))

		sizes := make([]float64, f.queries)
		for q := range sizes {
			sizes[q] = 8
		}
		writeText(t, filepath.Join(dir, f.name+".query"), column(sizes))
	}
	writeText(t, filepath.Join(dir, "train.conf"), rankConf)
}

// chdir switches the working directory for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
