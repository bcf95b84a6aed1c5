package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/imageio"
	"github.com/jamesainslie/go-segeval/tensor"
)

// LabeledDir pairs an image directory with a label directory holding one
// class-index image per input, under the same file name.
//
// Batches carry images scaled to [0, 1] shaped (n, H, W, 1) and one-hot labels
// shaped (n, H, W, C).
type LabeledDir struct {
	images     *ImageDir
	labelDir   string
	numClasses int
}

// NewLabeledDir checks that every image in imageDir has a label in labelDir.
func NewLabeledDir(imageDir, labelDir, ext string, numClasses int, size image.Point) (*LabeledDir, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", numClasses)
	}
	images, err := NewImageDir(imageDir, ext, size)
	if err != nil {
		return nil, err
	}
	for _, name := range images.files {
		if _, err := os.Stat(filepath.Join(labelDir, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("missing label for %s in %s", name, labelDir)
			}
			return nil, fmt.Errorf("checking label %s: %w", name, err)
		}
	}
	return &LabeledDir{images: images, labelDir: labelDir, numClasses: numClasses}, nil
}

// Size returns the number of labeled images.
func (d *LabeledDir) Size() int {
	return d.images.Size()
}

// Next loads up to n further image/label pairs, or returns io.EOF.
func (d *LabeledDir) Next(ctx context.Context, n int) (*segeval.Batch, error) {
	batch, err := d.images.Next(ctx, n)
	if err != nil {
		return nil, err
	}

	images, err := batch.Images.Scale(1.0/255).ExpandDims(-1)
	if err != nil {
		return nil, err
	}

	k, h, w := batch.Images.Dim(0), batch.Images.Dim(1), batch.Images.Dim(2)
	labels := tensor.Zeros(k, h, w, d.numClasses)
	onehot := labels.Data()
	for i, name := range batch.Filenames {
		p, err := imageio.LoadIndex(filepath.Join(d.labelDir, name), d.images.size)
		if err != nil {
			return nil, fmt.Errorf("loading label %s: %w", name, err)
		}
		if p.Width != w || p.Height != h {
			return nil, fmt.Errorf("%w: label %s is %dx%d, image is %dx%d",
				segeval.ErrShapeMismatch, name, p.Width, p.Height, w, h)
		}
		base := i * h * w
		for px, v := range p.Pix {
			c := int(v)
			if c >= d.numClasses {
				return nil, fmt.Errorf("%w: label %s holds class %d, model has %d classes",
					segeval.ErrIndexOutOfRange, name, c, d.numClasses)
			}
			onehot[(base+px)*d.numClasses+c] = 1
		}
	}

	return &segeval.Batch{Images: images, Labels: labels, Filenames: batch.Filenames}, nil
}
