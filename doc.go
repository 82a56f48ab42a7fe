// Package gbdtcheck verifies that a gradient boosting engine produces the
// same predictions no matter which path the data takes through it.
//
// A check trains one booster per dataset family and predicts the test set
// twice: once from an in-memory matrix and once from the file on disk. The
// two results must agree to a fixed number of decimal places. Optionally a
// third prediction, produced by the command line application, is compared
// against the in-memory one.
//
// # Quick Start
//
//	loader, err := consistency.NewFileLoader("examples/binary_classification", "binary")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	train, err := loader.LoadDataset(".train", false)
//	...
//	result, err := loader.TrainPredictCheck(trainSet, test, testPath)
//
// Or, for the four built-in scenarios:
//
//	for _, sc := range consistency.DefaultScenarios("examples") {
//	    if _, err := consistency.Run(sc); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - config: key = value configuration files and command line overrides
//   - dataset: dense and SVM-light tables plus weight, init and query side files
//   - lightgbm: histogram GBDT engine and the v3 text model format
//   - lightgbm/api: Dataset, Train and Booster
//   - lightgbm/application: train and predict tasks driven by a config file
//   - consistency: predictors, comparison and the scenario runner
//   - metrics: evaluation metrics and element-wise deviation
//   - report: divergence plots for failed comparisons
//
// The cmd/lightgbm and cmd/consistency binaries expose the application and
// the scenario runner on the command line.
package gbdtcheck
