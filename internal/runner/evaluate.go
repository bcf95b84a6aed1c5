// Package runner drives whole-dataset evaluation and batch visualization on
// top of a Predictor and a Source.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/history"
	"github.com/jamesainslie/go-segeval/internal/report"
	"github.com/jamesainslie/go-segeval/tensor"
)

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
}

// Evaluator scores a model against labeled data sources and writes one
// summary per source under LogDir.
type Evaluator struct {
	Predictor segeval.Predictor
	Scorer    *segeval.Evaluator // nil uses segeval.NewEvaluator()
	LogDir    string
	ModelName string
	History   Recorder  // optional
	Out       io.Writer // optional; receives the summaries printed by RunAll
	Logger    *slog.Logger
}

func (e *Evaluator) scorer() *segeval.Evaluator {
	if e.Scorer == nil {
		return segeval.NewEvaluator()
	}
	return e.Scorer
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Run drains src as a single batch, predicts it, scores every class and
// writes <LogDir>/<name>_results.txt, replacing any earlier file.
func (e *Evaluator) Run(ctx context.Context, name string, src segeval.Source) (*segeval.Result, error) {
	size := src.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: source %s", segeval.ErrEmptyDataSource, name)
	}

	batch, err := src.Next(ctx, size)
	if errors.Is(err, io.EOF) || (err == nil && (batch == nil || batch.Len() == 0)) {
		return nil, fmt.Errorf("%w: source %s returned no samples", segeval.ErrEmptyDataSource, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if batch.Labels == nil {
		return nil, fmt.Errorf("%w: source %s has no labels", segeval.ErrShapeMismatch, name)
	}

	preds, err := e.Predictor.Predict(ctx, batch.Images)
	if err != nil {
		return nil, fmt.Errorf("predicting %s: %w", name, err)
	}

	gt, err := GroundTruth(batch.Labels, preds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	scorer := e.scorer()
	res, err := scorer.Evaluate(preds, gt, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", name, err)
	}

	path, err := report.WriteSummary(e.LogDir, name, res)
	if err != nil {
		return nil, err
	}

	meta := report.Meta{
		RunID:     history.NewRunID(),
		Source:    name,
		Model:     e.ModelName,
		Threshold: scorer.Threshold(),
	}
	if _, err := report.WriteJSON(e.LogDir, meta, res); err != nil {
		return nil, err
	}

	if e.History != nil {
		run := history.Run{
			ID:        meta.RunID,
			Source:    name,
			Model:     e.ModelName,
			Threshold: meta.Threshold,
			Samples:   res.Samples(),
			Classes:   make([]history.ClassScore, len(res.Classes)),
		}
		for i, c := range res.Classes {
			run.Classes[i] = history.ClassScore{Class: c, Mean: res.Means[i]}
		}
		if _, err := e.History.Record(ctx, run); err != nil {
			return nil, fmt.Errorf("recording %s run: %w", name, err)
		}
	}

	e.logger().Info("evaluated source",
		"source", name,
		"samples", res.Samples(),
		"classes", len(res.Classes),
		"summary", path,
		"run_id", meta.RunID)

	return res, nil
}

// RunAll evaluates the validation source as "val" and the test source as
// "test", printing both summaries to Out.
func (e *Evaluator) RunAll(ctx context.Context, val, test segeval.Source) (valRes, testRes *segeval.Result, err error) {
	valRes, err = e.Run(ctx, "val", val)
	if err != nil {
		return nil, nil, err
	}
	e.print("Validation results: ", valRes)

	testRes, err = e.Run(ctx, "test", test)
	if err != nil {
		return nil, nil, err
	}
	e.print("Test results: ", testRes)

	return valRes, testRes, nil
}

func (e *Evaluator) print(title string, res *segeval.Result) {
	if e.Out == nil {
		return
	}
	_, _ = fmt.Fprintln(e.Out, title)
	_, _ = io.WriteString(e.Out, res.Summary())
}

// GroundTruth returns labels reshaped to match preds. Labels of equal shape
// are returned as is. Labels with exactly one extra axis lose the first
// singleton axis whose removal yields the prediction shape. Anything else is
// a shape mismatch.
func GroundTruth(labels, preds *tensor.Tensor) (*tensor.Tensor, error) {
	if labels.SameShape(preds) {
		return labels, nil
	}

	want := preds.Shape()
	shape := labels.Shape()
	if len(shape) == len(want)+1 {
		for axis, d := range shape {
			if d != 1 {
				continue
			}
			if !slices.Equal(slices.Delete(slices.Clone(shape), axis, axis+1), want) {
				continue
			}
			return labels.Squeeze(axis)
		}
	}
	return nil, fmt.Errorf("%w: labels %v cannot match predictions %v",
		segeval.ErrShapeMismatch, shape, want)
}
