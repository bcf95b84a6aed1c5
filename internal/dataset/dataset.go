// Package dataset provides directory-backed image sources for evaluation and
// visualization.
package dataset

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/imageio"
	"github.com/jamesainslie/go-segeval/tensor"
)

// ListImages returns the sorted names of regular files in dir with extension ext.
func ListImages(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

// ImageDir streams the images of one directory in file-name order. Images are
// returned as raw intensities shaped (n, H, W) together with their file names.
type ImageDir struct {
	dir   string
	files []string
	size  image.Point
	pos   int
}

// NewImageDir lists dir for files ending in ext. A non-zero size resizes every
// image with nearest-neighbour interpolation.
func NewImageDir(dir, ext string, size image.Point) (*ImageDir, error) {
	files, err := ListImages(dir, ext)
	if err != nil {
		return nil, err
	}
	return &ImageDir{dir: dir, files: files, size: size}, nil
}

// Size returns the number of images.
func (d *ImageDir) Size() int {
	return len(d.files)
}

// Next loads up to n further images. It returns io.EOF once all images have
// been delivered.
func (d *ImageDir) Next(ctx context.Context, n int) (*segeval.Batch, error) {
	files, err := d.take(ctx, n)
	if err != nil {
		return nil, err
	}

	planes := make([]*imageio.Plane, len(files))
	for i, name := range files {
		p, err := imageio.LoadGray(filepath.Join(d.dir, name), d.size)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		planes[i] = p
	}

	images, err := stack(planes, files)
	if err != nil {
		return nil, err
	}
	return &segeval.Batch{Images: images, Filenames: files}, nil
}

func (d *ImageDir) take(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pos >= len(d.files) {
		return nil, io.EOF
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", n)
	}
	end := min(d.pos+n, len(d.files))
	files := d.files[d.pos:end]
	d.pos = end
	return files, nil
}

// stack packs equally sized planes into an (n, H, W) tensor.
func stack(planes []*imageio.Plane, names []string) (*tensor.Tensor, error) {
	w, h := planes[0].Width, planes[0].Height
	data := make([]float32, 0, len(planes)*w*h)
	for i, p := range planes {
		if p.Width != w || p.Height != h {
			return nil, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d",
				segeval.ErrShapeMismatch, names[i], p.Width, p.Height, names[0], w, h)
		}
		data = append(data, p.Pix...)
	}
	return tensor.New([]int{len(planes), h, w}, data)
}
