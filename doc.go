// Package segeval scores image-segmentation predictions against ground truth
// using the Dice similarity coefficient.
//
// # Quick Start
//
//	ev := segeval.NewEvaluator(segeval.WithThreshold(0.5))
//	res, err := ev.Evaluate(preds, labels, nil) // all classes
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(res.Summary())
//
// preds and labels are (N, H, W, C) tensors from package tensor. Predictions
// are binarized with v >= threshold; each (sample, class) pair is scored with
//
//	(2*sum(pred*gt) + 1) / (sum(pred) + sum(gt) + 1)
//
// so two empty masks score exactly 1. Per-class means are column means of the
// samples x classes score matrix.
//
// # Runners
//
// Dataset evaluation and overlay visualization live in internal/runner and are
// driven by the seg-eval and seg-viz commands. They consume the Predictor,
// Source and Renderer interfaces declared here.
package segeval
