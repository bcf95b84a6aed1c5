package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

func mask(values ...float32) segeval.Mask {
	return segeval.Mask{Rows: 1, Cols: len(values), Values: values}
}

func TestConfusion(t *testing.T) {
	tests := []struct {
		name   string
		pred   segeval.Mask
		gt     segeval.Mask
		wantTP int
		wantFP int
		wantFN int
	}{
		{
			name:   "perfect match",
			pred:   mask(0.9, 0.1, 0.8),
			gt:     mask(1, 0, 1),
			wantTP: 2,
		},
		{
			name:   "false positive",
			pred:   mask(0.9, 0.7, 0.1),
			gt:     mask(1, 0, 0),
			wantTP: 1,
			wantFP: 1,
		},
		{
			name:   "false negative",
			pred:   mask(0.9, 0.2, 0.1),
			gt:     mask(1, 1, 0),
			wantTP: 1,
			wantFN: 1,
		},
		{
			name:   "threshold inclusive",
			pred:   mask(0.5),
			gt:     mask(1),
			wantTP: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Confusion(tt.pred, tt.gt, 0.5)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTP, got.TruePositives)
			assert.Equal(t, tt.wantFP, got.FalsePositives)
			assert.Equal(t, tt.wantFN, got.FalseNegatives)
		})
	}
}

func TestConfusion_Scores(t *testing.T) {
	got, err := Confusion(mask(1, 1, 0, 0), mask(1, 0, 1, 0), 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Precision, 1e-12)
	assert.InDelta(t, 0.5, got.Recall, 1e-12)
	assert.InDelta(t, 0.5, got.F1, 1e-12)

	empty, err := Confusion(mask(0, 0), mask(0, 0), 0.5)
	require.NoError(t, err)
	assert.Zero(t, empty.F1)
}

func TestConfusion_ShapeMismatch(t *testing.T) {
	_, err := Confusion(mask(1, 0), mask(1, 0, 0), 0.5)
	assert.ErrorIs(t, err, segeval.ErrShapeMismatch)
}

func TestEvaluateClasses(t *testing.T) {
	// Two samples of 1x2 pixels, two classes.
	preds, err := tensor.New([]int{2, 1, 2, 2}, []float32{
		0.9, 0.1, 0.2, 0.8,
		0.6, 0.4, 0.7, 0.3,
	})
	require.NoError(t, err)
	labels, err := tensor.New([]int{2, 1, 2, 2}, []float32{
		1, 0, 0, 1,
		1, 0, 0, 1,
	})
	require.NoError(t, err)

	got, err := EvaluateClasses(preds, labels, nil, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Class)
	assert.Equal(t, 2, got[0].TruePositives)
	assert.Equal(t, 1, got[0].FalsePositives)
	assert.Equal(t, 0, got[0].FalseNegatives)

	assert.Equal(t, 1, got[1].Class)
	assert.Equal(t, 1, got[1].TruePositives)
	assert.Equal(t, 0, got[1].FalsePositives)
	assert.Equal(t, 1, got[1].FalseNegatives)
	assert.InDelta(t, 0.5, got[1].Recall, 1e-12)
}

func TestEvaluateClasses_Errors(t *testing.T) {
	a := tensor.Zeros(1, 2, 2, 3)

	_, err := EvaluateClasses(a, tensor.Zeros(1, 2, 2, 2), nil, 0.5)
	assert.ErrorIs(t, err, segeval.ErrShapeMismatch)

	_, err = EvaluateClasses(a, a, []int{3}, 0.5)
	assert.ErrorIs(t, err, segeval.ErrIndexOutOfRange)
}
