package lightgbm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

const maxModelLineBytes = 256 * 1024 * 1024

// SaveToFile writes the model in LightGBM text format.
func (m *Model) SaveToFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewFileAccessError("save model", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewFileAccessError("save model", path, cerr)
		}
	}()
	w := bufio.NewWriter(f)
	if err := m.SaveModel(w); err != nil {
		return errors.NewFileAccessError("save model", path, err)
	}
	if err := w.Flush(); err != nil {
		return errors.NewFileAccessError("save model", path, err)
	}
	return nil
}

// ModelToString renders the model in LightGBM text format: the header, the
// trees, the feature importances and the parameters block. Floats use the
// shortest representation that reads back to the same value.
func (m *Model) ModelToString() string {
	trees := make([]string, len(m.Trees))
	sizes := make([]string, len(m.Trees))
	for i, tree := range m.Trees {
		trees[i] = tree.toString(i)
		sizes[i] = strconv.Itoa(len(trees[i]))
	}

	var sb strings.Builder
	sb.WriteString("tree\n")
	fmt.Fprintf(&sb, "version=%s\n", m.Version)
	fmt.Fprintf(&sb, "num_class=%d\n", m.NumClass)
	fmt.Fprintf(&sb, "num_tree_per_iteration=%d\n", m.NumTreePerIteration)
	fmt.Fprintf(&sb, "label_index=%d\n", m.LabelIndex)
	fmt.Fprintf(&sb, "max_feature_idx=%d\n", m.MaxFeatureIdx)
	fmt.Fprintf(&sb, "objective=%s\n", m.ObjectiveLine)
	fmt.Fprintf(&sb, "feature_names=%s\n", strings.Join(m.FeatureNames, " "))
	fmt.Fprintf(&sb, "feature_infos=%s\n", strings.Join(m.FeatureInfos, " "))
	fmt.Fprintf(&sb, "tree_sizes=%s\n\n", strings.Join(sizes, " "))
	for _, t := range trees {
		sb.WriteString(t)
	}

	sb.WriteString("end of trees\n\n")
	if importance, err := m.FeatureImportance("split"); err == nil {
		sb.WriteString("feature_importances:\n")
		for _, j := range importanceOrder(importance) {
			fmt.Fprintf(&sb, "%s=%d\n", m.featureName(j), int(importance[j]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("parameters:\n")
	keys := make([]string, 0, len(m.Parameters))
	for k := range m.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "[%s: %s]\n", k, m.Parameters[k])
	}
	sb.WriteString("end of parameters\n\npandas_categorical:null\n")
	return sb.String()
}

// SaveModel writes ModelToString to w.
func (m *Model) SaveModel(w io.Writer) error {
	_, err := io.WriteString(w, m.ModelToString())
	return err
}

func (m *Model) featureName(j int) string {
	if j < len(m.FeatureNames) {
		return m.FeatureNames[j]
	}
	return "Column_" + strconv.Itoa(j)
}

// importanceOrder lists used features by decreasing importance.
func importanceOrder(importance []float64) []int {
	var order []int
	for j, v := range importance {
		if v > 0 {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return importance[order[a]] > importance[order[b]] })
	return order
}

func (t *Tree) toString(index int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tree=%d\n", index)
	fmt.Fprintf(&sb, "num_leaves=%d\n", t.NumLeaves)
	sb.WriteString("num_cat=0\n")
	fmt.Fprintf(&sb, "split_feature=%s\n", joinInts(t.SplitFeature))
	fmt.Fprintf(&sb, "split_gain=%s\n", joinFloats(t.SplitGain))
	fmt.Fprintf(&sb, "threshold=%s\n", joinFloats(t.Threshold))
	decision := make([]int, len(t.DecisionType))
	for i, d := range t.DecisionType {
		decision[i] = int(d)
	}
	fmt.Fprintf(&sb, "decision_type=%s\n", joinInts(decision))
	fmt.Fprintf(&sb, "left_child=%s\n", joinInts(t.LeftChild))
	fmt.Fprintf(&sb, "right_child=%s\n", joinInts(t.RightChild))
	fmt.Fprintf(&sb, "leaf_value=%s\n", joinFloats(t.LeafValue))
	fmt.Fprintf(&sb, "leaf_weight=%s\n", joinFloats(t.LeafWeight))
	fmt.Fprintf(&sb, "leaf_count=%s\n", joinInts(t.LeafCount))
	fmt.Fprintf(&sb, "internal_value=%s\n", joinFloats(t.InternalValue))
	fmt.Fprintf(&sb, "internal_weight=%s\n", joinFloats(t.InternalWeight))
	fmt.Fprintf(&sb, "internal_count=%s\n", joinInts(t.InternalCount))
	sb.WriteString("is_linear=0\n")
	fmt.Fprintf(&sb, "shrinkage=%s\n\n\n", formatFloat(t.Shrinkage))
	return sb.String()
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = formatFloat(x)
	}
	return strings.Join(parts, " ")
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

// parameterBlock renders training parameters for the model file.
func parameterBlock(p *TrainingParams) map[string]string {
	block := map[string]string{
		"objective":               string(p.Objective),
		"boosting":                "gbdt",
		"num_iterations":          strconv.Itoa(p.NumIterations),
		"learning_rate":           formatFloat(p.LearningRate),
		"num_leaves":              strconv.Itoa(p.NumLeaves),
		"max_depth":               strconv.Itoa(p.MaxDepth),
		"min_data_in_leaf":        strconv.Itoa(p.MinDataInLeaf),
		"min_sum_hessian_in_leaf": formatFloat(p.MinSumHessianInLeaf),
		"lambda_l1":               formatFloat(p.LambdaL1),
		"lambda_l2":               formatFloat(p.LambdaL2),
		"min_gain_to_split":       formatFloat(p.MinGainToSplit),
		"max_bin":                 strconv.Itoa(p.MaxBin),
		"feature_fraction":        formatFloat(p.FeatureFraction),
		"bagging_fraction":        formatFloat(p.BaggingFraction),
		"bagging_freq":            strconv.Itoa(p.BaggingFreq),
		"num_class":               strconv.Itoa(p.NumClass),
		"sigmoid":                 formatFloat(p.Sigmoid),
		"max_position":            strconv.Itoa(p.MaxPosition),
		"boost_from_average":      strconv.FormatBool(p.BoostFromAverage),
	}
	for k, v := range p.Raw {
		if _, ok := block[k]; !ok {
			block[k] = v
		}
	}
	return block
}

// LoadFromFile reads a model in LightGBM text format.
func LoadFromFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileAccessError("load model", path, err)
	}
	defer f.Close()

	model, err := LoadFromReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return model, nil
}

// LoadFromString parses the output of ModelToString.
func LoadFromString(s string) (*Model, error) {
	return LoadFromReader(strings.NewReader(s))
}

// treeParams holds the key=value pairs of one block.
type treeParams map[string]string

// LoadFromReader parses a model in LightGBM text format.
func LoadFromReader(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxModelLineBytes)

	header := treeParams{}
	var blocks []treeParams
	var current treeParams
	params := map[string]string{}

	const (
		inHeader = iota
		inTrees
		inTrailer
		inParameters
	)
	state := inHeader
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Tree=") && state != inParameters:
			current = treeParams{}
			blocks = append(blocks, current)
			state = inTrees
			continue
		case line == "end of trees":
			state = inTrailer
			continue
		case line == "parameters:":
			state = inParameters
			continue
		case line == "end of parameters":
			state = inTrailer
			continue
		}

		switch state {
		case inHeader:
			if line == "tree" {
				continue
			}
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				return nil, modelParseError(lineNo, "expected key=value, got "+strconv.Quote(line))
			}
			header[key] = value
		case inTrees:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				return nil, modelParseError(lineNo, "expected key=value, got "+strconv.Quote(line))
			}
			current[key] = value
		case inParameters:
			inner := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if key, value, ok := strings.Cut(inner, ": "); ok {
				params[key] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read model")
	}

	model, err := modelFromHeader(header)
	if err != nil {
		return nil, err
	}
	model.Parameters = params
	for i, block := range blocks {
		tree, err := treeFromParams(block)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		for _, f := range tree.SplitFeature {
			if f < 0 || f > model.MaxFeatureIdx {
				return nil, errors.NewValueError("model", fmt.Sprintf("tree %d splits on feature %d beyond max_feature_idx %d", i, f, model.MaxFeatureIdx))
			}
		}
		model.Trees = append(model.Trees, tree)
	}
	if len(model.Trees)%model.NumTreePerIteration != 0 {
		return nil, errors.NewValueError("model", fmt.Sprintf("%d trees is not a multiple of num_tree_per_iteration %d", len(model.Trees), model.NumTreePerIteration))
	}
	return model, nil
}

func modelParseError(lineNo int, reason string) error {
	return errors.NewValueError("model", "line "+strconv.Itoa(lineNo)+": "+reason)
}

func modelFromHeader(h treeParams) (*Model, error) {
	model := NewModel()
	if v, ok := h["version"]; ok {
		model.Version = v
	}
	var err error
	if model.NumClass, err = h.toInt("num_class", 1); err != nil {
		return nil, err
	}
	if model.NumTreePerIteration, err = h.toInt("num_tree_per_iteration", model.NumClass); err != nil {
		return nil, err
	}
	if model.LabelIndex, err = h.toInt("label_index", 0); err != nil {
		return nil, err
	}
	if _, ok := h["max_feature_idx"]; !ok {
		return nil, errors.NewValueError("model", "header has no max_feature_idx")
	}
	if model.MaxFeatureIdx, err = h.toInt("max_feature_idx", 0); err != nil {
		return nil, err
	}
	if model.NumTreePerIteration < 1 {
		return nil, errors.NewValueError("model", "num_tree_per_iteration must be positive")
	}

	model.ObjectiveLine = h["objective"]
	model.Objective, model.converter, err = outputConverter(model.ObjectiveLine, model.NumClass)
	if err != nil {
		return nil, err
	}
	model.FeatureNames = strings.Fields(h["feature_names"])
	model.FeatureInfos = strings.Fields(h["feature_infos"])
	return model, nil
}

// outputConverter rebuilds the prediction transform from an objective line
// such as "binary sigmoid:1" or "multiclass num_class:3".
func outputConverter(line string, numClass int) (ObjectiveType, func([]float64), error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return RegressionL2, func([]float64) {}, nil
	}
	objective, err := ParseObjective(fields[0])
	if err != nil {
		return "", nil, err
	}
	sigmoid := 1.0
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		switch key {
		case "sigmoid":
			if sigmoid, err = strconv.ParseFloat(value, 64); err != nil {
				return "", nil, errors.NewValueError("model", "bad sigmoid "+strconv.Quote(value))
			}
		case "num_class":
			if numClass, err = strconv.Atoi(value); err != nil {
				return "", nil, errors.NewValueError("model", "bad num_class "+strconv.Quote(value))
			}
		}
	}
	switch objective {
	case BinaryLogistic:
		obj := &binaryLogloss{sigmoid: sigmoid}
		return objective, obj.ConvertOutput, nil
	case MulticlassSoftmax:
		obj := &multiclassSoftmax{numClass: numClass}
		return objective, obj.ConvertOutput, nil
	}
	return objective, func([]float64) {}, nil
}

func treeFromParams(p treeParams) (*Tree, error) {
	numLeaves, err := p.toInt("num_leaves", -1)
	if err != nil {
		return nil, err
	}
	if numLeaves < 1 {
		return nil, errors.NewValueError("model", "num_leaves must be at least 1")
	}
	if numCat, _ := p.toInt("num_cat", 0); numCat > 0 {
		return nil, errors.NewValueError("model", "categorical splits are not supported")
	}

	t := &Tree{NumLeaves: numLeaves, Shrinkage: 1}
	numNodes := numLeaves - 1
	if t.LeafValue, err = p.toFloats("leaf_value", numLeaves, true); err != nil {
		return nil, err
	}
	if t.LeafWeight, err = p.toFloats("leaf_weight", numLeaves, false); err != nil {
		return nil, err
	}
	if t.LeafCount, err = p.toInts("leaf_count", numLeaves, false); err != nil {
		return nil, err
	}
	if v, ok := p["shrinkage"]; ok {
		if t.Shrinkage, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, errors.NewValueError("model", "bad shrinkage "+strconv.Quote(v))
		}
	}
	if numNodes == 0 {
		return t, nil
	}

	if t.SplitFeature, err = p.toInts("split_feature", numNodes, true); err != nil {
		return nil, err
	}
	if t.SplitGain, err = p.toFloats("split_gain", numNodes, false); err != nil {
		return nil, err
	}
	if t.Threshold, err = p.toFloats("threshold", numNodes, true); err != nil {
		return nil, err
	}
	decision, err := p.toInts("decision_type", numNodes, false)
	if err != nil {
		return nil, err
	}
	t.DecisionType = make([]int8, numNodes)
	for i := range t.DecisionType {
		if decision != nil {
			if decision[i]&categoricalMask != 0 {
				return nil, errors.NewValueError("model", "categorical splits are not supported")
			}
			t.DecisionType[i] = int8(decision[i])
		}
	}
	if t.LeftChild, err = p.toInts("left_child", numNodes, true); err != nil {
		return nil, err
	}
	if t.RightChild, err = p.toInts("right_child", numNodes, true); err != nil {
		return nil, err
	}
	for i := 0; i < numNodes; i++ {
		for _, c := range []int{t.LeftChild[i], t.RightChild[i]} {
			if c >= numNodes || (c < 0 && ^c >= numLeaves) {
				return nil, errors.NewValueError("model", fmt.Sprintf("node %d has child %d out of range", i, c))
			}
		}
	}
	if t.InternalValue, err = p.toFloats("internal_value", numNodes, false); err != nil {
		return nil, err
	}
	if t.InternalWeight, err = p.toFloats("internal_weight", numNodes, false); err != nil {
		return nil, err
	}
	if t.InternalCount, err = p.toInts("internal_count", numNodes, false); err != nil {
		return nil, err
	}
	return t, nil
}

func (p treeParams) toInt(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.NewValueError("model", "bad "+key+" "+strconv.Quote(v))
	}
	return n, nil
}

// toFloats parses a space separated array of exactly n values. Missing
// optional keys return nil.
func (p treeParams) toFloats(key string, n int, required bool) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		if required {
			return nil, errors.NewValueError("model", "tree has no "+key)
		}
		return nil, nil
	}
	fields := strings.Fields(v)
	if len(fields) != n {
		return nil, errors.NewValueError("model", fmt.Sprintf("%s has %d values, expected %d", key, len(fields), n))
	}
	out := make([]float64, n)
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.NewValueError("model", "bad "+key+" value "+strconv.Quote(f))
		}
		out[i] = x
	}
	return out, nil
}

func (p treeParams) toInts(key string, n int, required bool) ([]int, error) {
	v, ok := p[key]
	if !ok {
		if required {
			return nil, errors.NewValueError("model", "tree has no "+key)
		}
		return nil, nil
	}
	fields := strings.Fields(v)
	if len(fields) != n {
		return nil, errors.NewValueError("model", fmt.Sprintf("%s has %d values, expected %d", key, len(fields), n))
	}
	out := make([]int, n)
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.NewValueError("model", "bad "+key+" value "+strconv.Quote(f))
		}
		out[i] = x
	}
	return out, nil
}
