package inference

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-segeval/tensor"
)

// DefaultMicroBatch is the number of images sent to the runtime per call.
const DefaultMicroBatch = 4

type runFunc func(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error)

// Model predicts class probabilities for image batches. Each batch is split
// into micro-batches that run concurrently on a session pool; the output
// keeps input order.
type Model struct {
	run        runFunc
	microBatch int
	workers    int
	close      func() error
}

// NewModel creates a Model over pool. microBatch <= 0 uses DefaultMicroBatch.
func NewModel(pool *Pool, microBatch int) *Model {
	return newModel(pool.Run, microBatch, pool.Size(), pool.Close)
}

func newModel(run runFunc, microBatch, workers int, closeFn func() error) *Model {
	if microBatch <= 0 {
		microBatch = DefaultMicroBatch
	}
	if workers <= 0 {
		workers = 1
	}
	return &Model{run: run, microBatch: microBatch, workers: workers, close: closeFn}
}

// Predict returns per-class probabilities for images.
func (m *Model) Predict(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error) {
	if images.Rank() == 0 || images.Dim(0) == 0 {
		return nil, fmt.Errorf("%w: empty image batch", tensor.ErrShape)
	}

	n := images.Dim(0)
	chunks := (n + m.microBatch - 1) / m.microBatch
	outs := make([]*tensor.Tensor, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range chunks {
		start := i * m.microBatch
		end := min(start+m.microBatch, n)
		g.Go(func() error {
			part, err := images.Slice(start, end)
			if err != nil {
				return err
			}
			out, err := m.run(gctx, part)
			if err != nil {
				return fmt.Errorf("samples [%d:%d]: %w", start, end, err)
			}
			if out.Rank() == 0 || out.Dim(0) != end-start {
				return fmt.Errorf("%w: model returned %v for %d samples", tensor.ErrShape, out.Shape(), end-start)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tensor.Concat(outs...)
}

// Close releases the underlying sessions.
func (m *Model) Close() error {
	if m.close == nil {
		return nil
	}
	return m.close()
}
