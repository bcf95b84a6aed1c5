package runner

import (
	"context"
	"fmt"
	"io"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

// sliceSource serves fixed tensors in order and records every request size.
type sliceSource struct {
	images    *tensor.Tensor
	labels    *tensor.Tensor
	filenames []string
	pos       int
	requests  []int
}

func (s *sliceSource) Size() int {
	if s.images == nil {
		return 0
	}
	return s.images.Dim(0)
}

func (s *sliceSource) Next(ctx context.Context, n int) (*segeval.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.requests = append(s.requests, n)
	if s.pos >= s.Size() {
		return nil, io.EOF
	}
	end := min(s.pos+n, s.Size())

	b := &segeval.Batch{}
	var err error
	if b.Images, err = s.images.Slice(s.pos, end); err != nil {
		return nil, err
	}
	if s.labels != nil {
		if b.Labels, err = s.labels.Slice(s.pos, end); err != nil {
			return nil, err
		}
	}
	if s.filenames != nil {
		b.Filenames = s.filenames[s.pos:end]
	}
	s.pos = end
	return b, nil
}

// eofSource claims samples but never yields any.
type eofSource struct{}

func (eofSource) Size() int { return 3 }

func (eofSource) Next(context.Context, int) (*segeval.Batch, error) { return nil, io.EOF }

type predictFunc func(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error)

func (f predictFunc) Predict(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error) {
	return f(ctx, images)
}

func fixedPredictor(preds *tensor.Tensor) predictFunc {
	return func(context.Context, *tensor.Tensor) (*tensor.Tensor, error) {
		return preds, nil
	}
}

func filenames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("img%02d.png", i)
	}
	return names
}

// nilSource claims samples but answers every request with (nil, nil).
type nilSource struct{ size int }

func (s nilSource) Size() int { return s.size }

func (nilSource) Next(context.Context, int) (*segeval.Batch, error) { return nil, nil }
