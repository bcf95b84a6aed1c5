package segeval

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/jamesainslie/go-segeval/tensor"
)

// Evaluator computes per-class Dice scores for batches of predictions.
// It holds no state between calls and is safe for concurrent use.
type Evaluator struct {
	threshold float32
	logger    *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{
		threshold: cfg.threshold,
		logger:    cfg.logger,
	}
}

// Threshold returns the binarization threshold in use.
func (e *Evaluator) Threshold() float32 {
	return e.threshold
}

// Result is the outcome of one evaluation.
type Result struct {
	// Classes lists the evaluated class indices in caller order.
	Classes []int
	// Means holds one mean Dice score per entry of Classes.
	Means []float64
	// Scores is the samples x classes matrix; column j belongs to Classes[j].
	Scores *mat.Dense
}

// Summary renders one "Class {c} DC={mean}" line per evaluated class.
func (r *Result) Summary() string {
	var b strings.Builder
	for i, c := range r.Classes {
		b.WriteString("Class ")
		b.WriteString(strconv.Itoa(c))
		b.WriteString(" DC=")
		b.WriteString(FormatScore(r.Means[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatScore renders v in its shortest round-trip form. Whole numbers keep a
// trailing ".0"; magnitudes below 1e-4 or from 1e16 up use exponent notation
// with at least two exponent digits, e.g. "1.0", "0.75", "9.999e-05".
func FormatScore(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Samples returns the number of scored samples.
func (r *Result) Samples() int {
	n, _ := r.Scores.Dims()
	return n
}

// Evaluate scores preds against labels, both shaped (N, H, W, C). A nil
// classes slice evaluates every class in order; otherwise the given order is
// preserved in the result.
func (e *Evaluator) Evaluate(preds, labels *tensor.Tensor, classes []int) (*Result, error) {
	if preds.Rank() != 4 {
		return nil, fmt.Errorf("%w: predictions must be (N, H, W, C), got %v", ErrShapeMismatch, preds.Shape())
	}
	if !preds.SameShape(labels) {
		return nil, fmt.Errorf("%w: predictions %v, labels %v", ErrShapeMismatch, preds.Shape(), labels.Shape())
	}

	numClasses := preds.Dim(3)
	if classes == nil {
		classes = make([]int, numClasses)
		for i := range classes {
			classes[i] = i
		}
	} else {
		classes = append([]int(nil), classes...)
	}
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	for _, c := range classes {
		if c < 0 || c >= numClasses {
			return nil, fmt.Errorf("%w: class %d, valid range [0, %d)", ErrIndexOutOfRange, c, numClasses)
		}
	}

	n := preds.Dim(0)
	if n == 0 {
		return nil, ErrEmptyDataSource
	}

	scores := mat.NewDense(n, len(classes), nil)
	means := make([]float64, len(classes))
	for j, c := range classes {
		p, err := ClassMasks(preds, c)
		if err != nil {
			return nil, err
		}
		g, err := ClassMasks(labels, c)
		if err != nil {
			return nil, err
		}
		col, err := ScoreBatch(p, g, e.threshold)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", c, err)
		}
		scores.SetCol(j, col)
		means[j] = stat.Mean(col, nil)

		e.logger.Debug("scored class", "class", c, "samples", n, "mean", means[j])
	}

	return &Result{
		Classes: classes,
		Means:   means,
		Scores:  scores,
	}, nil
}
