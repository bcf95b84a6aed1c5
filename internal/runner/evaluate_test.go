package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/history"
	"github.com/jamesainslie/go-segeval/internal/report"
	"github.com/jamesainslie/go-segeval/tensor"
)

// evalFixture returns predictions shaped (2, 1, 2, 2) and matching labels
// carrying an extra trailing singleton axis.
func evalFixture(t *testing.T) (preds, labels *tensor.Tensor) {
	t.Helper()
	preds, err := tensor.New([]int{2, 1, 2, 2}, []float32{
		0.9, 0.1, 0.3, 0.7,
		0.2, 0.8, 0.6, 0.4,
	})
	require.NoError(t, err)
	labels, err = tensor.New([]int{2, 1, 2, 2, 1}, []float32{
		1, 0, 0, 1,
		1, 0, 0, 1,
	})
	require.NoError(t, err)
	return preds, labels
}

type memRecorder struct {
	runs []history.Run
}

func (m *memRecorder) Record(_ context.Context, run history.Run) (history.Run, error) {
	m.runs = append(m.runs, run)
	return run, nil
}

func TestEvaluator_Run(t *testing.T) {
	preds, labels := evalFixture(t)
	dir := t.TempDir()
	rec := &memRecorder{}

	ev := &Evaluator{
		Predictor: fixedPredictor(preds),
		LogDir:    dir,
		ModelName: "unet",
		History:   rec,
	}
	src := &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels}

	res, err := ev.Run(context.Background(), "val", src)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, src.requests, "the whole source is drained as one batch")

	gt, err := labels.Squeeze(-1)
	require.NoError(t, err)
	want, err := segeval.NewEvaluator().Evaluate(preds, gt, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Means, res.Means)

	summary, err := os.ReadFile(filepath.Join(dir, "val_results.txt"))
	require.NoError(t, err)
	assert.Equal(t, res.Summary(), string(summary))
	assert.FileExists(t, filepath.Join(dir, report.JSONName("val")))

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "val", run.Source)
	assert.Equal(t, "unet", run.Model)
	assert.Equal(t, 2, run.Samples)
	assert.Equal(t, []history.ClassScore{{Class: 0, Mean: res.Means[0]}, {Class: 1, Mean: res.Means[1]}}, run.Classes)
}

func TestEvaluator_RunOverwrites(t *testing.T) {
	preds, labels := evalFixture(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test_results.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer than the summary\n"), 0o644))

	ev := &Evaluator{Predictor: fixedPredictor(preds), LogDir: dir}
	res, err := ev.Run(context.Background(), "test", &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Summary(), string(got))
}

func TestEvaluator_RunErrors(t *testing.T) {
	preds, labels := evalFixture(t)
	boom := errors.New("boom")

	tests := []struct {
		name    string
		pred    segeval.Predictor
		src     segeval.Source
		logDir  func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "empty source",
			pred:    fixedPredictor(preds),
			src:     &sliceSource{},
			wantErr: segeval.ErrEmptyDataSource,
		},
		{
			name:    "source yields nothing",
			pred:    fixedPredictor(preds),
			src:     eofSource{},
			wantErr: segeval.ErrEmptyDataSource,
		},
		{
			name:    "source yields nil batch",
			pred:    fixedPredictor(preds),
			src:     nilSource{size: 2},
			wantErr: segeval.ErrEmptyDataSource,
		},
		{
			name: "predict failure",
			pred: predictFunc(func(context.Context, *tensor.Tensor) (*tensor.Tensor, error) {
				return nil, boom
			}),
			src:     &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels},
			wantErr: boom,
		},
		{
			name:    "label shape",
			pred:    fixedPredictor(preds),
			src:     &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: tensor.Zeros(2, 1, 2, 3)},
			wantErr: segeval.ErrShapeMismatch,
		},
		{
			name:    "unlabeled source",
			pred:    fixedPredictor(preds),
			src:     &sliceSource{images: tensor.Zeros(2, 1, 2, 1)},
			wantErr: segeval.ErrShapeMismatch,
		},
		{
			name: "unwritable log dir",
			pred: fixedPredictor(preds),
			src:  &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels},
			logDir: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(file, nil, 0o644))
				return filepath.Join(file, "logs")
			},
			wantErr: segeval.ErrIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.logDir != nil {
				dir = tt.logDir(t)
			}
			ev := &Evaluator{Predictor: tt.pred, LogDir: dir}

			_, err := ev.Run(context.Background(), "val", tt.src)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEvaluator_RunConcurrentDefaultScorer(t *testing.T) {
	preds, labels := evalFixture(t)
	ev := &Evaluator{Predictor: fixedPredictor(preds), LogDir: t.TempDir()}

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := &sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels}
			_, err := ev.Run(context.Background(), fmt.Sprintf("part%d", i), src)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Nil(t, ev.Scorer, "the default scorer is not stored on the runner")
}

func TestEvaluator_RunAll(t *testing.T) {
	preds, labels := evalFixture(t)
	dir := t.TempDir()
	var out bytes.Buffer

	ev := &Evaluator{Predictor: fixedPredictor(preds), LogDir: dir, Out: &out}
	val, test, err := ev.RunAll(context.Background(),
		&sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels},
		&sliceSource{images: tensor.Zeros(2, 1, 2, 1), labels: labels},
	)
	require.NoError(t, err)

	assert.Equal(t, "Validation results: \n"+val.Summary()+"Test results: \n"+test.Summary(), out.String())
	assert.FileExists(t, filepath.Join(dir, "val_results.txt"))
	assert.FileExists(t, filepath.Join(dir, "test_results.txt"))
}

func TestGroundTruth(t *testing.T) {
	preds := tensor.Zeros(2, 3, 3, 4)

	tests := []struct {
		name      string
		labels    *tensor.Tensor
		wantShape []int
		wantErr   bool
	}{
		{name: "same shape", labels: tensor.Zeros(2, 3, 3, 4), wantShape: []int{2, 3, 3, 4}},
		{name: "trailing singleton", labels: tensor.Zeros(2, 3, 3, 4, 1), wantShape: []int{2, 3, 3, 4}},
		{name: "inner singleton", labels: tensor.Zeros(2, 3, 1, 3, 4), wantShape: []int{2, 3, 3, 4}},
		{name: "wrong classes", labels: tensor.Zeros(2, 3, 3, 5, 1), wantErr: true},
		{name: "no singleton", labels: tensor.Zeros(2, 3, 3, 4, 2), wantErr: true},
		{name: "two extra axes", labels: tensor.Zeros(2, 3, 3, 4, 1, 1), wantErr: true},
		{name: "lower rank", labels: tensor.Zeros(2, 3, 3), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GroundTruth(tt.labels, preds)
			if tt.wantErr {
				assert.ErrorIs(t, err, segeval.ErrShapeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, got.Shape())
		})
	}
}
