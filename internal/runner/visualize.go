package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/imageio"
)

// MaxVisualizationBatch caps the default batch size.
const MaxVisualizationBatch = 16

// Visualizer renders class overlays for every image of an unlabeled source.
type Visualizer struct {
	Predictor  segeval.Predictor
	Renderer   segeval.Renderer
	NumClasses int
	OutDir     string
	BatchSize  int       // 0 means min(16, source size)
	Out        io.Writer // receives the completion marker; nil discards it
	Logger     *slog.Logger
}

// Run streams src in batches and writes one overlay per image to
// <OutDir>/v<filename>. Files written before a failure are kept.
func (v *Visualizer) Run(ctx context.Context, src segeval.Source) error {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := src.Size()
	if size == 0 {
		return fmt.Errorf("%w: no images to visualize", segeval.ErrEmptyDataSource)
	}
	bs := v.BatchSize
	if bs <= 0 {
		bs = min(MaxVisualizationBatch, size)
	}

	if err := os.MkdirAll(v.OutDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", segeval.ErrIO, err)
	}

	written := 0
	batches := (size + bs - 1) / bs
	for i := range batches {
		batch, err := src.Next(ctx, bs)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		if batch == nil {
			break // Same as io.EOF
		}
		n, err := v.renderBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		written += n
		logger.Debug("rendered batch", "batch", i, "images", n)
	}

	logger.Info("visualization finished", "images", written, "out", v.OutDir)
	if v.Out != nil {
		_, _ = fmt.Fprintln(v.Out, "Done")
	}
	return nil
}

func (v *Visualizer) renderBatch(ctx context.Context, batch *segeval.Batch) (int, error) {
	if len(batch.Filenames) != batch.Len() {
		return 0, fmt.Errorf("%w: %d images, %d file names",
			segeval.ErrShapeMismatch, batch.Len(), len(batch.Filenames))
	}

	images := batch.Images.Scale(1.0 / 255)
	if images.Rank() == 3 {
		var err error
		if images, err = images.ExpandDims(-1); err != nil {
			return 0, err
		}
	}

	probs, err := v.Predictor.Predict(ctx, images)
	if err != nil {
		return 0, fmt.Errorf("predicting: %w", err)
	}
	classMap, err := probs.ArgMax()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", segeval.ErrShapeMismatch, err)
	}

	numClasses := v.NumClasses
	if numClasses <= 0 {
		numClasses = probs.Dim(-1)
	}
	overlays, err := v.Renderer.Render(classMap, images.Scale(255), numClasses)
	if err != nil {
		return 0, fmt.Errorf("rendering: %w", err)
	}
	if len(overlays) != len(batch.Filenames) {
		return 0, fmt.Errorf("%w: renderer returned %d images for %d inputs",
			segeval.ErrShapeMismatch, len(overlays), len(batch.Filenames))
	}

	for i, img := range overlays {
		path := filepath.Join(v.OutDir, "v"+batch.Filenames[i])
		if err := imageio.Save(path, img); err != nil {
			return i, fmt.Errorf("%w: %w", segeval.ErrIO, err)
		}
	}
	return len(overlays), nil
}
