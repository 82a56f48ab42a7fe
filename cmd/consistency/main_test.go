package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const binaryConf = `task = train
objective = binary
num_trees = 10
num_leaves = 7
min_data_in_leaf = 5
early_stopping_round = 3
verbose = -1
`

// writeBinaryFamily lays out root/binary_classification with train and test
// sets of rows x 3 and a weight file.
func writeBinaryFamily(t *testing.T, root string, rows int) string {
	t.Helper()
	dir := filepath.Join(root, "binary_classification")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	rng := rand.New(rand.NewSource(7))
	for _, name := range []string{"binary.train", "binary.test"} {
		var b strings.Builder
		for i := 0; i < rows; i++ {
			x0, x1, x2 := rng.Float64(), rng.Float64(), rng.Float64()
			label := 0
			if x0+x1 > 1 {
				label = 1
			}
			fmt.Fprintf(&b, "%d\t%g\t%g\t%g\n", label, x0, x1, x2)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
	}
	var weights strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&weights, "%g\n", 0.5+0.5*float64(i%2))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binary.train.weight"), []byte(weights.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.conf"), []byte(binaryConf), 0o644))
	return dir
}

// chdir switches the working directory for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func runCommand(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunEngineReferenceFromRelativeRoot(t *testing.T) {
	root := t.TempDir()
	writeBinaryFamily(t, filepath.Join(root, "examples"), 80)
	chdir(t, root)

	code, stdout, stderr := runCommand(t, "-family", "binary", "-reference", "engine", "-work-dir", "work")
	require.Equal(t, 0, code, "stdout: %s\nstderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "ok    binary")
	assert.Contains(t, stdout, "over 2 comparisons")
	assert.FileExists(t, filepath.Join(root, "work", "binary", "binary.LightGBM_predict_result.txt"))
}

func TestRunWithoutReference(t *testing.T) {
	root := t.TempDir()
	writeBinaryFamily(t, root, 60)

	code, stdout, _ := runCommand(t, "-root", root, "-family", "binary")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "over 1 comparisons")
}

func TestRunFailingFamilyExitsOne(t *testing.T) {
	root := t.TempDir()
	dir := writeBinaryFamily(t, root, 60)
	bogus := strings.Repeat("0.5\n", 60)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LightGBM_predict_result.txt"), []byte(bogus), 0o644))
	plots := filepath.Join(root, "plots")

	code, stdout, _ := runCommand(t, "-root", root, "-family", "binary", "-reference", "file", "-plot-dir", plots)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "FAIL  binary")
	assert.FileExists(t, filepath.Join(plots, "binary_in_process_vs_reference.png"))
}

func TestRunUsageErrors(t *testing.T) {
	root := t.TempDir()
	writeBinaryFamily(t, root, 60)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown family", args: []string{"-root", root, "-family", "ranking"}, want: `unknown family "ranking"`},
		{name: "unknown reference", args: []string{"-root", root, "-family", "binary", "-reference", "cpp"}, want: `unknown -reference "cpp"`},
		{name: "bad log level", args: []string{"-root", root, "-log-level", "loud"}, want: "invalid log level"},
		{name: "undefined flag", args: []string{"-verbose"}, want: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCommand(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRunMissingRootFails(t *testing.T) {
	code, stdout, _ := runCommand(t, "-root", filepath.Join(t.TempDir(), "absent"), "-family", "regression")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "FAIL  regression")
}
