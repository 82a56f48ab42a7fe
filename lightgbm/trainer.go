package lightgbm

import (
	"math"
	"time"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Trainer implements histogram based, leaf-wise gradient boosting.
type Trainer struct {
	params TrainingParams

	data      *BinnedData
	meta      *Metadata
	objective Objective
	sampler   *SamplingStrategy
	finder    *splitFinder
	metrics   []*trainingMetric

	// Scores, gradients and hessians are class-major.
	scores    []float64
	gradients []float64
	hessians  []float64

	trees     []*Tree
	iteration int

	logger log.Logger
}

// NewTrainer creates a trainer for params.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{
		params: params,
		logger: log.GetLoggerWithName("lightgbm.trainer"),
	}
}

// Fit trains on X with the labels and side channels in meta.
func (t *Trainer) Fit(X mat.Matrix, meta *Metadata) error {
	start := time.Now()
	if err := t.params.Validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if err := checkMetadata(meta, rows, t.params.NumTreePerIteration()); err != nil {
		return err
	}

	objective, err := CreateObjective(&t.params)
	if err != nil {
		return err
	}
	if err := objective.Init(meta); err != nil {
		return err
	}
	metrics, err := resolveMetrics(&t.params, meta)
	if err != nil {
		return err
	}

	t.meta = meta
	t.objective = objective
	t.metrics = metrics
	t.data = NewBinnedData(X, t.params.MaxBin)
	t.sampler = NewSamplingStrategy(&t.params)
	t.finder = &splitFinder{data: t.data, params: &t.params, reg: NewRegularizationStrategy(&t.params)}
	t.trees = nil

	numTree := t.params.NumTreePerIteration()
	t.scores = make([]float64, rows*numTree)
	if meta.InitScores != nil {
		copy(t.scores, meta.InitScores)
	}
	t.gradients = make([]float64, rows*numTree)
	t.hessians = make([]float64, rows*numTree)

	t.logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.ObjectiveKey, string(t.params.Objective),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"usable_features", len(t.data.UsableFeatures()),
	)

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		finished := t.trainOneIter(iter)
		if t.params.IsTrainingMetric && t.params.MetricFreq > 0 && (iter+1)%t.params.MetricFreq == 0 {
			if err := t.evalMetrics(iter + 1); err != nil {
				return err
			}
		}
		if finished {
			if t.params.Verbosity > 0 {
				t.logger.Info("Stopped training because there are no more leaves that meet the split requirements",
					log.IterationKey, iter)
			}
			break
		}
	}

	t.logger.Info("Training finished",
		log.OperationKey, log.OperationTrain,
		log.TreesKey, len(t.trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func checkMetadata(meta *Metadata, rows, numTree int) error {
	if meta == nil || len(meta.Labels) != rows {
		got := 0
		if meta != nil {
			got = len(meta.Labels)
		}
		return errors.NewDimensionError("Fit", rows, got, 0)
	}
	if meta.Weights != nil && len(meta.Weights) != rows {
		return errors.NewDimensionError("Fit.weights", rows, len(meta.Weights), 0)
	}
	if meta.InitScores != nil && len(meta.InitScores) != rows*numTree {
		return errors.NewDimensionError("Fit.init_score", rows*numTree, len(meta.InitScores), 0)
	}
	if b := meta.QueryBoundaries; b != nil && (len(b) < 2 || b[0] != 0 || b[len(b)-1] != rows) {
		return errors.NewValueError("Fit", "query boundaries do not cover the data")
	}
	return nil
}

// trainOneIter grows one tree per class and reports whether training is
// finished because no tree could split.
func (t *Trainer) trainOneIter(iter int) bool {
	n := t.data.NumData()
	numTree := t.params.NumTreePerIteration()

	biases := make([]float64, numTree)
	if iter == 0 && t.params.BoostFromAverage && t.meta.InitScores == nil {
		for k := range biases {
			biases[k] = t.objective.BoostFromScore(k)
			if math.Abs(biases[k]) > kEpsilon {
				addConstant(t.scores[k*n:(k+1)*n], biases[k])
				t.logger.Debug("Start training from score",
					"class", k, "score", biases[k])
			}
		}
	}

	t.objective.GetGradients(t.scores, t.gradients, t.hessians)
	bag := t.sampler.SampleInstances(n, iter)

	newTrees := make([]*Tree, numTree)
	anySplit := false
	for k := 0; k < numTree; k++ {
		features := t.sampler.SampleFeatures(t.data.UsableFeatures())
		tree := t.growTree(bag, features, t.gradients[k*n:(k+1)*n], t.hessians[k*n:(k+1)*n])
		if tree.NumLeaves > 1 {
			anySplit = true
			tree.ApplyShrinkage(t.params.LearningRate)
			t.updateScores(tree, t.scores[k*n:(k+1)*n])
		}
		if math.Abs(biases[k]) > kEpsilon {
			tree.AddBias(biases[k])
		}
		newTrees[k] = tree
	}

	if !anySplit && iter > 0 {
		return true
	}
	t.trees = append(t.trees, newTrees...)
	return !anySplit
}

// leafState tracks the rows of a leaf under construction.
type leafState struct {
	rows []int
	best SplitInfo
}

// growTree grows a tree leaf-wise: the leaf with the largest gain is split
// until num_leaves is reached or no leaf can be split.
func (t *Trainer) growTree(bag, features []int, grad, hess []float64) *Tree {
	tree := NewTree(t.params.NumLeaves)
	reg := t.finder.reg

	var rootWeight float64
	for _, r := range bag {
		rootWeight += hess[r]
	}
	tree.LeafCount[0] = len(bag)
	tree.LeafWeight[0] = rootWeight

	leaves := []*leafState{{rows: bag}}
	leaves[0].best = t.findSplit(tree, 0, features, bag, grad, hess)

	for tree.NumLeaves < t.params.NumLeaves {
		bestLeaf := -1
		for l, st := range leaves {
			if st.best.Valid() && (bestLeaf < 0 || st.best.Gain > leaves[bestLeaf].best.Gain) {
				bestLeaf = l
			}
		}
		if bestLeaf < 0 {
			break
		}

		st := leaves[bestLeaf]
		s := st.best
		left, right := t.partition(st.rows, s)
		newLeaf := tree.split(bestLeaf, splitSpec{
			feature:      s.Feature,
			thresholdBin: s.ThresholdBin,
			threshold:    s.Threshold,
			gain:         s.Gain,
			leftOutput:   reg.LeafOutput(s.LeftGrad, s.LeftHess),
			rightOutput:  reg.LeafOutput(s.RightGrad, s.RightHess),
			leftCount:    s.LeftCount,
			rightCount:   s.RightCount,
			leftWeight:   s.LeftHess,
			rightWeight:  s.RightHess,
		})

		leaves[bestLeaf] = &leafState{rows: left}
		leaves = append(leaves, &leafState{rows: right})
		if tree.NumLeaves < t.params.NumLeaves {
			leaves[bestLeaf].best = t.findSplit(tree, bestLeaf, features, left, grad, hess)
			leaves[newLeaf].best = t.findSplit(tree, newLeaf, features, right, grad, hess)
		}
	}
	return tree
}

func (t *Trainer) findSplit(tree *Tree, leaf int, features, rows []int, grad, hess []float64) SplitInfo {
	if t.params.MaxDepth > 0 && tree.LeafDepth(leaf) >= t.params.MaxDepth {
		return invalidSplit()
	}
	if len(rows) < 2*t.params.MinDataInLeaf || len(rows) < 2 {
		return invalidSplit()
	}
	return t.finder.FindBestSplit(features, rows, grad, hess)
}

// partition splits rows by s, preserving order.
func (t *Trainer) partition(rows []int, s SplitInfo) (left, right []int) {
	bins := t.data.bins[s.Feature]
	left = make([]int, 0, s.LeftCount)
	right = make([]int, 0, s.RightCount)
	for _, r := range rows {
		if bins[r] <= s.ThresholdBin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// updateScores adds the tree output to every training row, in-bag or not.
func (t *Trainer) updateScores(tree *Tree, scores []float64) {
	for i := range scores {
		scores[i] += tree.LeafValue[tree.leafBinned(t.data, i)]
	}
}

func addConstant(xs []float64, c float64) {
	for i := range xs {
		xs[i] += c
	}
}

// trainingPredictions converts the current scores to a rows x k matrix.
func (t *Trainer) trainingPredictions() *mat.Dense {
	n := t.data.NumData()
	k := t.params.NumTreePerIteration()
	out := mat.NewDense(n, k, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			row[c] = t.scores[c*n+i]
		}
		t.objective.ConvertOutput(row)
		out.SetRow(i, row)
	}
	return out
}

func (t *Trainer) evalMetrics(iteration int) error {
	if len(t.metrics) == 0 {
		return nil
	}
	preds := t.trainingPredictions()
	for _, m := range t.metrics {
		value, err := m.eval(preds)
		if err != nil {
			return errors.Wrapf(err, "evaluate %s", m.name)
		}
		if t.params.Verbosity > 0 {
			t.logger.Info("Training metric",
				log.IterationKey, iteration,
				log.MetricKey, m.name,
				log.MetricValue, value,
			)
		} else {
			t.logger.Debug("Training metric",
				log.IterationKey, iteration,
				log.MetricKey, m.name,
				log.MetricValue, value,
			)
		}
	}
	return nil
}

// GetModel returns the trained model.
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Objective = t.params.Objective
	model.ObjectiveLine = t.objective.String()
	model.NumClass = t.params.NumClass
	model.NumTreePerIteration = t.params.NumTreePerIteration()
	model.MaxFeatureIdx = t.data.NumFeatures() - 1
	model.FeatureNames = DefaultFeatureNames(t.data.NumFeatures())
	model.FeatureInfos = t.data.FeatureInfos()
	model.Trees = t.trees
	model.Parameters = parameterBlock(&t.params)
	model.converter = t.objective.ConvertOutput
	return model
}

// Iteration returns the last completed iteration index.
func (t *Trainer) Iteration() int {
	return t.iteration
}
