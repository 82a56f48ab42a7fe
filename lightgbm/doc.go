// Package lightgbm is a pure Go gradient boosting engine that reads and
// writes the LightGBM text model format.
//
// Training is histogram based and grows trees leaf-wise, like LightGBM's
// serial tree learner. Supported objectives are regression (L2), binary
// (logistic), multiclass (softmax) and lambdarank. Models can be saved,
// reloaded and used to predict in-memory matrices or data files.
//
// # Training
//
//	params, err := lightgbm.NewTrainingParams(cfgParams)
//	trainer := lightgbm.NewTrainer(params)
//	err = trainer.Fit(X, &lightgbm.Metadata{Labels: y, Weights: w})
//	model := trainer.GetModel()
//
// # Prediction
//
//	preds, err := model.Predict(X)            // rows x 1, or rows x num_class
//	preds, err = model.PredictFile("test.txt") // dense or SVM-light
//	err = lightgbm.WritePredictions("LightGBM_predict_result.txt", preds)
//
// # Model files
//
//	err = model.SaveToFile("LightGBM_model.txt")
//	model, err = lightgbm.LoadFromFile("LightGBM_model.txt")
//
// Thresholds are real-valued bin upper bounds, so a model reloaded from its
// text form predicts exactly what the in-memory model predicts. NaN feature
// values are treated as zero.
package lightgbm
