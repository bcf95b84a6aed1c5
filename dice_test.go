package segeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mask(rows, cols int, values ...float32) Mask {
	return Mask{Rows: rows, Cols: cols, Values: values}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		pred Mask
		gt   Mask
		want float64
	}{
		{
			name: "identical",
			pred: mask(2, 2, 1, 0, 1, 1),
			gt:   mask(2, 2, 1, 0, 1, 1),
			want: 1.0,
		},
		{
			name: "both empty",
			pred: mask(2, 3, 0, 0, 0, 0, 0, 0),
			gt:   mask(2, 3, 0, 0, 0, 0, 0, 0),
			want: 1.0,
		},
		{
			name: "disjoint",
			pred: mask(1, 2, 1, 0),
			gt:   mask(1, 2, 0, 1),
			want: 1.0 / 3.0,
		},
		{
			name: "partial overlap",
			pred: mask(1, 4, 1, 1, 0, 0),
			gt:   mask(1, 4, 1, 0, 0, 0),
			want: 3.0 / 4.0,
		},
		{
			name: "empty prediction",
			pred: mask(1, 3, 0, 0, 0),
			gt:   mask(1, 3, 1, 1, 1),
			want: 1.0 / 4.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.pred, tt.gt)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestScore_Symmetric(t *testing.T) {
	a := mask(2, 3, 1, 0, 1, 1, 0, 0)
	b := mask(2, 3, 0, 0, 1, 1, 1, 1)

	ab, err := Score(a, b)
	require.NoError(t, err)
	ba, err := Score(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Less(t, ab, 1.0)
	assert.GreaterOrEqual(t, ab, 0.0)
}

func TestScore_ShapeMismatch(t *testing.T) {
	_, err := Score(mask(2, 2, 1, 1, 1, 1), mask(1, 4, 1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Score(mask(2, 2, 1, 1, 1), mask(2, 2, 1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScoreBatch(t *testing.T) {
	pred := []Mask{
		mask(1, 2, 0.5, 0.2),  // 0.5 is inclusive
		mask(1, 2, 0.49, 0.1), // all below threshold
		mask(1, 2, 0.9, 0.8),
	}
	gt := []Mask{
		mask(1, 2, 1, 0),
		mask(1, 2, 1, 0),
		mask(1, 2, 1, 1),
	}

	scores, err := ScoreBatch(pred, gt, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, scores, len(pred))
	assert.InDelta(t, 1.0, scores[0], 1e-12)
	assert.InDelta(t, 0.5, scores[1], 1e-12)
	assert.InDelta(t, 1.0, scores[2], 1e-12)

	// Inputs are left untouched.
	assert.Equal(t, []float32{0.5, 0.2}, pred[0].Values)
}

func TestScoreBatch_LengthMismatch(t *testing.T) {
	_, err := ScoreBatch([]Mask{mask(1, 1, 1)}, nil, DefaultThreshold)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMask_Binarize(t *testing.T) {
	m := mask(1, 4, 0.1, 0.5, 0.7, 0.3)
	assert.Equal(t, []float32{0, 1, 1, 0}, m.Binarize(0.5).Values)
	assert.Equal(t, []float32{0, 0, 1, 0}, m.Binarize(0.6).Values)
}
