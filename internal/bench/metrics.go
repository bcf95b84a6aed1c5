// Package bench provides threshold sweeps and pixel-level confusion metrics
// for segmentation models.
package bench

import (
	"fmt"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

// Metrics holds pixel counts and derived scores for one class.
type Metrics struct {
	Class          int
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
}

// Confusion binarizes pred at threshold and counts pixel agreement with gt.
// Ground truth pixels count as positive when >= 0.5.
func Confusion(pred, gt segeval.Mask, threshold float32) (Metrics, error) {
	if pred.Rows != gt.Rows || pred.Cols != gt.Cols || len(pred.Values) != len(gt.Values) {
		return Metrics{}, fmt.Errorf("%w: prediction %dx%d, ground truth %dx%d",
			segeval.ErrShapeMismatch, pred.Rows, pred.Cols, gt.Rows, gt.Cols)
	}

	var m Metrics
	for i, p := range pred.Values {
		predicted := p >= threshold
		actual := gt.Values[i] >= 0.5
		switch {
		case predicted && actual:
			m.TruePositives++
		case predicted:
			m.FalsePositives++
		case actual:
			m.FalseNegatives++
		}
	}
	m.finish()
	return m, nil
}

// add accumulates counts; derived scores must be recomputed with finish.
func (m *Metrics) add(o Metrics) {
	m.TruePositives += o.TruePositives
	m.FalsePositives += o.FalsePositives
	m.FalseNegatives += o.FalseNegatives
}

func (m *Metrics) finish() {
	tp, fp, fn := m.TruePositives, m.FalsePositives, m.FalseNegatives
	m.Precision, m.Recall, m.F1 = 0, 0, 0
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
}

// EvaluateClasses aggregates pixel confusion over every sample of the
// (N, H, W, C) tensors for each class in classes. A nil classes selects all.
func EvaluateClasses(preds, labels *tensor.Tensor, classes []int, threshold float32) ([]Metrics, error) {
	if !preds.SameShape(labels) {
		return nil, fmt.Errorf("%w: predictions %v, labels %v",
			segeval.ErrShapeMismatch, preds.Shape(), labels.Shape())
	}
	if preds.Rank() != 4 {
		return nil, fmt.Errorf("%w: expected (N, H, W, C) tensor, got shape %v",
			segeval.ErrShapeMismatch, preds.Shape())
	}
	if classes == nil {
		classes = allClasses(preds.Dim(3))
	}

	out := make([]Metrics, len(classes))
	for j, c := range classes {
		pm, err := segeval.ClassMasks(preds, c)
		if err != nil {
			return nil, err
		}
		gm, err := segeval.ClassMasks(labels, c)
		if err != nil {
			return nil, err
		}

		agg := Metrics{Class: c}
		for i := range pm {
			m, err := Confusion(pm[i], gm[i], threshold)
			if err != nil {
				return nil, fmt.Errorf("class %d sample %d: %w", c, i, err)
			}
			agg.add(m)
		}
		agg.finish()
		out[j] = agg
	}
	return out, nil
}

func allClasses(n int) []int {
	classes := make([]int, n)
	for i := range classes {
		classes[i] = i
	}
	return classes
}
