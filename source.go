package segeval

import (
	"context"
	"image"

	"github.com/jamesainslie/go-segeval/tensor"
)

// Predictor runs a segmentation model. Given images shaped (N, H, W, 1) it
// returns per-class probabilities shaped (N, H, W, C).
type Predictor interface {
	Predict(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error)
}

// Batch is one chunk of samples from a Source. Labels is nil for unlabeled
// sources; Filenames is empty for sources without file names.
type Batch struct {
	Images    *tensor.Tensor
	Labels    *tensor.Tensor
	Filenames []string
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int {
	if b.Images == nil || b.Images.Rank() == 0 {
		return 0
	}
	return b.Images.Dim(0)
}

// Source yields batches of samples. Next returns io.EOF once every sample has
// been delivered. A Source is consumed once.
type Source interface {
	Size() int
	Next(ctx context.Context, n int) (*Batch, error)
}

// Renderer turns class-index maps and the matching images (intensities in
// [0, 255]) into one color overlay per sample.
type Renderer interface {
	Render(classMap *tensor.IndexMap, images *tensor.Tensor, numClasses int) ([]image.Image, error)
}
