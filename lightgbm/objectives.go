package lightgbm

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

const kEpsilon = 1e-15

// ObjectiveType names a training objective as written in config files and
// in the model text header.
type ObjectiveType string

const (
	RegressionL2      ObjectiveType = "regression"
	BinaryLogistic    ObjectiveType = "binary"
	MulticlassSoftmax ObjectiveType = "multiclass"
	LambdaRank        ObjectiveType = "lambdarank"
)

// ParseObjective resolves the aliases LightGBM accepts for the supported
// objectives.
func ParseObjective(name string) (ObjectiveType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "regression", "regression_l2", "l2", "mean_squared_error", "mse", "l2_root", "root_mean_squared_error", "rmse":
		return RegressionL2, nil
	case "binary":
		return BinaryLogistic, nil
	case "multiclass", "softmax":
		return MulticlassSoftmax, nil
	case "lambdarank":
		return LambdaRank, nil
	}
	return "", errors.NewValueError("objective", "unsupported objective "+strconv.Quote(name))
}

// Objective computes first and second order gradients for one boosting
// iteration. Scores and gradients are class-major: the score of row i for
// class k lives at k*numData+i.
type Objective interface {
	Name() ObjectiveType
	// NumModelPerIteration is the number of trees grown per iteration.
	NumModelPerIteration() int
	// Init validates labels and prepares per-dataset state.
	Init(meta *Metadata) error
	GetGradients(scores, gradients, hessians []float64)
	// BoostFromScore is the constant the first tree of class k starts from.
	BoostFromScore(class int) float64
	// ConvertOutput turns raw scores of one row into predictions in place.
	ConvertOutput(raw []float64)
	// String is the objective line of the model header.
	String() string
}

// Metadata carries the per-row side channels of a training set.
type Metadata struct {
	Labels     []float64
	Weights    []float64
	InitScores []float64
	// QueryBoundaries is [0, s0, s0+s1, ...] for ranking data.
	QueryBoundaries []int
}

// NumData returns the number of rows.
func (m *Metadata) NumData() int {
	return len(m.Labels)
}

func (m *Metadata) weight(i int) float64 {
	if m.Weights == nil {
		return 1
	}
	return m.Weights[i]
}

// CreateObjective builds the objective named by params.
func CreateObjective(params *TrainingParams) (Objective, error) {
	switch params.Objective {
	case RegressionL2:
		return &regressionL2{}, nil
	case BinaryLogistic:
		if params.Sigmoid <= 0 {
			return nil, errors.NewValueError("objective", "sigmoid must be positive")
		}
		return &binaryLogloss{sigmoid: params.Sigmoid}, nil
	case MulticlassSoftmax:
		if params.NumClass < 2 {
			return nil, errors.NewValueError("objective", "multiclass needs num_class >= 2, got "+strconv.Itoa(params.NumClass))
		}
		return &multiclassSoftmax{numClass: params.NumClass}, nil
	case LambdaRank:
		return &lambdarankNDCG{
			sigmoid:     params.Sigmoid,
			labelGain:   params.LabelGain,
			maxPosition: params.MaxPosition,
		}, nil
	}
	return nil, errors.NewValueError("objective", "unsupported objective "+strconv.Quote(string(params.Objective)))
}

// regressionL2 is least squares regression.
type regressionL2 struct {
	meta *Metadata
}

func (o *regressionL2) Name() ObjectiveType       { return RegressionL2 }
func (o *regressionL2) NumModelPerIteration() int { return 1 }
func (o *regressionL2) String() string            { return string(RegressionL2) }
func (o *regressionL2) ConvertOutput([]float64)   {}

func (o *regressionL2) Init(meta *Metadata) error {
	o.meta = meta
	return nil
}

func (o *regressionL2) GetGradients(scores, gradients, hessians []float64) {
	for i, label := range o.meta.Labels {
		w := o.meta.weight(i)
		gradients[i] = (scores[i] - label) * w
		hessians[i] = w
	}
}

func (o *regressionL2) BoostFromScore(int) float64 {
	var sum, sumW float64
	for i, label := range o.meta.Labels {
		w := o.meta.weight(i)
		sum += label * w
		sumW += w
	}
	if sumW == 0 {
		return 0
	}
	return sum / sumW
}

// binaryLogloss is logistic regression on {0, 1} labels.
type binaryLogloss struct {
	sigmoid float64
	meta    *Metadata
}

func (o *binaryLogloss) Name() ObjectiveType       { return BinaryLogistic }
func (o *binaryLogloss) NumModelPerIteration() int { return 1 }

func (o *binaryLogloss) String() string {
	return "binary sigmoid:" + formatFloat(o.sigmoid)
}

func (o *binaryLogloss) Init(meta *Metadata) error {
	for i, label := range meta.Labels {
		if label != 0 && label != 1 {
			return errors.NewValueError("binary", "label must be 0 or 1, row "+strconv.Itoa(i)+" has "+formatFloat(label))
		}
	}
	o.meta = meta
	return nil
}

func (o *binaryLogloss) GetGradients(scores, gradients, hessians []float64) {
	for i, label := range o.meta.Labels {
		y := -1.0
		if label > 0 {
			y = 1
		}
		response := -y * o.sigmoid / (1 + math.Exp(y*o.sigmoid*scores[i]))
		abs := math.Abs(response)
		w := o.meta.weight(i)
		gradients[i] = response * w
		hessians[i] = abs * (o.sigmoid - abs) * w
	}
}

func (o *binaryLogloss) BoostFromScore(int) float64 {
	var pos, sumW float64
	for i, label := range o.meta.Labels {
		w := o.meta.weight(i)
		if label > 0 {
			pos += w
		}
		sumW += w
	}
	if sumW == 0 {
		return 0
	}
	p := math.Min(math.Max(pos/sumW, kEpsilon), 1-kEpsilon)
	return math.Log(p/(1-p)) / o.sigmoid
}

func (o *binaryLogloss) ConvertOutput(raw []float64) {
	raw[0] = 1 / (1 + math.Exp(-o.sigmoid*raw[0]))
}

// multiclassSoftmax is multinomial log loss over num_class trees per
// iteration.
type multiclassSoftmax struct {
	numClass int
	meta     *Metadata
	priors   []float64
}

func (o *multiclassSoftmax) Name() ObjectiveType       { return MulticlassSoftmax }
func (o *multiclassSoftmax) NumModelPerIteration() int { return o.numClass }

func (o *multiclassSoftmax) String() string {
	return "multiclass num_class:" + strconv.Itoa(o.numClass)
}

func (o *multiclassSoftmax) Init(meta *Metadata) error {
	o.priors = make([]float64, o.numClass)
	var sumW float64
	for i, label := range meta.Labels {
		k := int(label)
		if float64(k) != label || k < 0 || k >= o.numClass {
			return errors.NewValueError("multiclass",
				"label must be an integer in [0, "+strconv.Itoa(o.numClass)+"), row "+strconv.Itoa(i)+" has "+formatFloat(label))
		}
		w := meta.weight(i)
		o.priors[k] += w
		sumW += w
	}
	if sumW > 0 {
		for k := range o.priors {
			o.priors[k] /= sumW
		}
	}
	o.meta = meta
	return nil
}

func (o *multiclassSoftmax) GetGradients(scores, gradients, hessians []float64) {
	n := o.meta.NumData()
	factor := float64(o.numClass) / float64(o.numClass-1)
	row := make([]float64, o.numClass)
	for i, label := range o.meta.Labels {
		for k := range row {
			row[k] = scores[k*n+i]
		}
		softmax(row)
		w := o.meta.weight(i)
		for k, p := range row {
			g := p
			if int(label) == k {
				g = p - 1
			}
			gradients[k*n+i] = g * w
			hessians[k*n+i] = factor * p * (1 - p) * w
		}
	}
}

func (o *multiclassSoftmax) BoostFromScore(class int) float64 {
	return math.Log(math.Max(kEpsilon, o.priors[class]))
}

func (o *multiclassSoftmax) ConvertOutput(raw []float64) {
	softmax(raw)
}

// lambdarankNDCG optimises NDCG with pairwise lambda gradients inside each
// query.
type lambdarankNDCG struct {
	sigmoid     float64
	labelGain   []float64
	maxPosition int
	meta        *Metadata
	invMaxDCG   []float64
}

func (o *lambdarankNDCG) Name() ObjectiveType       { return LambdaRank }
func (o *lambdarankNDCG) NumModelPerIteration() int { return 1 }
func (o *lambdarankNDCG) String() string            { return string(LambdaRank) }
func (o *lambdarankNDCG) BoostFromScore(int) float64 { return 0 }
func (o *lambdarankNDCG) ConvertOutput([]float64)   {}

func (o *lambdarankNDCG) Init(meta *Metadata) error {
	if len(meta.QueryBoundaries) < 2 {
		return errors.NewValueError("lambdarank", "query information is required for ranking")
	}
	if o.sigmoid <= 0 {
		return errors.NewValueError("lambdarank", "sigmoid must be positive")
	}
	for i, label := range meta.Labels {
		l := int(label)
		if float64(l) != label || l < 0 || l >= len(o.labelGain) {
			return errors.NewValueError("lambdarank",
				"label must be an integer in [0, "+strconv.Itoa(len(o.labelGain))+"), row "+strconv.Itoa(i)+" has "+formatFloat(label))
		}
	}
	bounds := meta.QueryBoundaries
	o.invMaxDCG = make([]float64, len(bounds)-1)
	for q := range o.invMaxDCG {
		maxDCG := maxDCGAtK(o.maxPosition, meta.Labels[bounds[q]:bounds[q+1]], o.labelGain)
		if maxDCG > 0 {
			o.invMaxDCG[q] = 1 / maxDCG
		}
	}
	o.meta = meta
	return nil
}

func (o *lambdarankNDCG) GetGradients(scores, gradients, hessians []float64) {
	bounds := o.meta.QueryBoundaries
	for q := 0; q+1 < len(bounds); q++ {
		start, end := bounds[q], bounds[q+1]
		o.queryGradients(q, start, end-start, scores[start:end], gradients[start:end], hessians[start:end])
	}
}

func (o *lambdarankNDCG) queryGradients(q, start, cnt int, scores, lambdas, hessians []float64) {
	for i := 0; i < cnt; i++ {
		lambdas[i], hessians[i] = 0, 0
	}
	invMaxDCG := o.invMaxDCG[q]
	if invMaxDCG == 0 || cnt < 2 {
		return
	}
	labels := o.meta.Labels[start : start+cnt]

	order := make([]int, cnt)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	best, worst := scores[order[0]], scores[order[cnt-1]]
	truncation := o.maxPosition
	if truncation > cnt || truncation <= 0 {
		truncation = cnt
	}

	var sumLambdas float64
	for i := 0; i < truncation; i++ {
		hi := order[i]
		for j := i + 1; j < cnt; j++ {
			lo := order[j]
			if labels[hi] == labels[lo] {
				continue
			}
			high, low := hi, lo
			highRank, lowRank := i, j
			if labels[high] < labels[low] {
				high, low = low, high
				highRank, lowRank = lowRank, highRank
			}
			deltaScore := scores[high] - scores[low]
			dcgGap := o.labelGain[int(labels[high])] - o.labelGain[int(labels[low])]
			pairedDiscount := math.Abs(discount(highRank) - discount(lowRank))
			deltaNDCG := dcgGap * pairedDiscount * invMaxDCG
			if best != worst {
				deltaNDCG /= 0.01 + math.Abs(deltaScore)
			}

			pLambda := 1 / (1 + math.Exp(o.sigmoid*deltaScore))
			pHessian := pLambda * (1 - pLambda)
			pLambda *= -o.sigmoid * deltaNDCG
			pHessian *= o.sigmoid * o.sigmoid * deltaNDCG

			lambdas[high] += pLambda
			hessians[high] += pHessian
			lambdas[low] -= pLambda
			hessians[low] += pHessian
			sumLambdas -= 2 * pLambda
		}
	}
	if sumLambdas > 0 {
		norm := math.Log2(1+sumLambdas) / sumLambdas
		for i := 0; i < cnt; i++ {
			lambdas[i] *= norm
			hessians[i] *= norm
		}
	}
	if o.meta.Weights != nil {
		for i := 0; i < cnt; i++ {
			w := o.meta.Weights[start+i]
			lambdas[i] *= w
			hessians[i] *= w
		}
	}
}

func discount(rank int) float64 {
	return 1 / math.Log2(2+float64(rank))
}

// maxDCGAtK is the DCG of the ideal ordering truncated at k (k <= 0 means
// the whole query).
func maxDCGAtK(k int, labels, labelGain []float64) float64 {
	sorted := append([]float64(nil), labels...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if k <= 0 || k > len(sorted) {
		k = len(sorted)
	}
	var dcg float64
	for i := 0; i < k; i++ {
		dcg += labelGain[int(sorted[i])] * discount(i)
	}
	return dcg
}

func softmax(x []float64) {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for i, v := range x {
		x[i] = math.Exp(v - maxVal)
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
