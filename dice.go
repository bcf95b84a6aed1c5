package segeval

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/jamesainslie/go-segeval/tensor"
)

// Mask is a single-class H x W plane for one sample, stored row-major.
// Values are probabilities in [0, 1] or binary {0, 1}.
type Mask struct {
	Rows   int
	Cols   int
	Values []float32
}

func (m Mask) validate() error {
	if m.Rows < 0 || m.Cols < 0 || len(m.Values) != m.Rows*m.Cols {
		return fmt.Errorf("%w: mask %dx%d holds %d values", ErrShapeMismatch, m.Rows, m.Cols, len(m.Values))
	}
	return nil
}

func (m Mask) float64s() []float64 {
	out := make([]float64, len(m.Values))
	for i, v := range m.Values {
		out[i] = float64(v)
	}
	return out
}

// Binarize returns a copy of m with values >= threshold set to 1 and the rest to 0.
func (m Mask) Binarize(threshold float32) Mask {
	out := make([]float32, len(m.Values))
	for i, v := range m.Values {
		if v >= threshold {
			out[i] = 1
		}
	}
	return Mask{Rows: m.Rows, Cols: m.Cols, Values: out}
}

// Score returns the smoothed Dice coefficient of two masks of equal shape:
//
//	(2*sum(pred*gt) + 1) / (sum(pred) + sum(gt) + 1)
//
// Two empty masks score exactly 1.
func Score(pred, gt Mask) (float64, error) {
	if err := pred.validate(); err != nil {
		return 0, err
	}
	if err := gt.validate(); err != nil {
		return 0, err
	}
	if pred.Rows != gt.Rows || pred.Cols != gt.Cols {
		return 0, fmt.Errorf("%w: prediction %dx%d, ground truth %dx%d",
			ErrShapeMismatch, pred.Rows, pred.Cols, gt.Rows, gt.Cols)
	}

	p := pred.float64s()
	g := gt.float64s()
	return (2*floats.Dot(p, g) + 1) / (floats.Sum(p) + floats.Sum(g) + 1), nil
}

// ScoreBatch binarizes each prediction at threshold and scores it against the
// ground truth at the same position. The result has one score per sample, in
// input order.
func ScoreBatch(pred, gt []Mask, threshold float32) ([]float64, error) {
	if len(pred) != len(gt) {
		return nil, fmt.Errorf("%w: %d predictions, %d ground truth masks", ErrShapeMismatch, len(pred), len(gt))
	}
	scores := make([]float64, len(pred))
	for i := range pred {
		d, err := Score(pred[i].Binarize(threshold), gt[i])
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		scores[i] = d
	}
	return scores, nil
}

// ClassMasks slices the (N, H, W, C) tensor t into N masks for class c.
func ClassMasks(t *tensor.Tensor, c int) ([]Mask, error) {
	if t.Rank() != 4 {
		return nil, fmt.Errorf("%w: expected (N, H, W, C) tensor, got shape %v", ErrShapeMismatch, t.Shape())
	}
	n, h, w, k := t.Dim(0), t.Dim(1), t.Dim(2), t.Dim(3)
	if c < 0 || c >= k {
		return nil, fmt.Errorf("%w: class %d, class axis has %d entries", ErrIndexOutOfRange, c, k)
	}

	data := t.Data()
	masks := make([]Mask, n)
	for i := range n {
		values := make([]float32, h*w)
		base := i * h * w * k
		for p := range values {
			values[p] = data[base+p*k+c]
		}
		masks[i] = Mask{Rows: h, Cols: w, Values: values}
	}
	return masks, nil
}
