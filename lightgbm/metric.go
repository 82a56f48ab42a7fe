package lightgbm

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/metrics"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// trainingMetric evaluates converted training predictions (rows x k).
type trainingMetric struct {
	name string
	eval func(preds *mat.Dense) (float64, error)
}

// defaultMetric is the metric LightGBM reports when none is configured.
func defaultMetric(objective ObjectiveType) string {
	switch objective {
	case BinaryLogistic:
		return "binary_logloss"
	case MulticlassSoftmax:
		return "multi_logloss"
	case LambdaRank:
		return "ndcg"
	}
	return "l2"
}

// resolveMetrics maps metric names and aliases to evaluators.
func resolveMetrics(p *TrainingParams, meta *Metadata) ([]*trainingMetric, error) {
	names := p.Metrics
	if len(names) == 0 {
		names = []string{defaultMetric(p.Objective)}
	}

	column := func(preds *mat.Dense) []float64 {
		return mat.Col(nil, 0, preds)
	}

	var out []*trainingMetric
	seen := make(map[string]bool)
	add := func(m *trainingMetric) {
		if !seen[m.name] {
			seen[m.name] = true
			out = append(out, m)
		}
	}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "", "na", "null", "none", "custom":
			continue
		case "l2", "mse", "mean_squared_error", "regression", "regression_l2":
			add(&trainingMetric{name: "l2", eval: func(preds *mat.Dense) (float64, error) {
				return metrics.MSE(meta.Labels, column(preds), meta.Weights)
			}})
		case "rmse", "l2_root", "root_mean_squared_error":
			add(&trainingMetric{name: "rmse", eval: func(preds *mat.Dense) (float64, error) {
				return metrics.RMSE(meta.Labels, column(preds), meta.Weights)
			}})
		case "binary_logloss", "binary":
			add(&trainingMetric{name: "binary_logloss", eval: func(preds *mat.Dense) (float64, error) {
				return metrics.BinaryLogLoss(meta.Labels, column(preds), meta.Weights)
			}})
		case "auc":
			add(&trainingMetric{name: "auc", eval: func(preds *mat.Dense) (float64, error) {
				return metrics.AUC(meta.Labels, column(preds), meta.Weights)
			}})
		case "multi_logloss", "multiclass", "softmax", "multiclassova", "ova":
			add(&trainingMetric{name: "multi_logloss", eval: func(preds *mat.Dense) (float64, error) {
				return metrics.MultiLogLoss(meta.Labels, preds, meta.Weights)
			}})
		case "ndcg", "lambdarank", "rank_xendcg", "xendcg":
			if meta.QueryBoundaries == nil {
				return nil, errors.NewValueError("metric", "ndcg needs query information")
			}
			for _, k := range p.NDCGEvalAt {
				k := k
				add(&trainingMetric{name: "ndcg@" + strconv.Itoa(k), eval: func(preds *mat.Dense) (float64, error) {
					return metrics.NDCGAtK(meta.Labels, column(preds), meta.QueryBoundaries, k, p.LabelGain)
				}})
			}
		default:
			return nil, errors.NewValueError("metric", "unknown metric "+strconv.Quote(raw))
		}
	}
	return out, nil
}
