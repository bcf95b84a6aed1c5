// Package imageio decodes single-channel images into pixel planes and encodes
// rendered overlays to disk.
package imageio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/jamesainslie/go-segeval/internal/fsutil"
)

// Plane is a decoded single-channel image with values in [0, 255].
type Plane struct {
	Width  int
	Height int
	Pix    []float32
}

// Decode reads a PNG, JPEG or BMP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadGray loads path as 8-bit luminance. A non-zero size resizes the image
// with nearest-neighbour interpolation.
func LoadGray(path string, size image.Point) (*Plane, error) {
	img, err := open(path)
	if err != nil {
		return nil, err
	}

	gray, ok := img.(*image.Gray)
	if !ok {
		b := img.Bounds()
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	if size != (image.Point{}) && size != gray.Bounds().Size() {
		gray = resizeGray(gray, size)
	}
	return grayPlane(gray), nil
}

// LoadIndex loads a label image whose pixel values are class indices. Paletted
// images yield palette indices; anything else yields 8-bit luminance.
func LoadIndex(path string, size image.Point) (*Plane, error) {
	img, err := open(path)
	if err != nil {
		return nil, err
	}

	p, ok := img.(*image.Paletted)
	if !ok {
		return LoadGray(path, size)
	}

	b := p.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(gray.Pix[y*gray.Stride:y*gray.Stride+b.Dx()], p.Pix[y*p.Stride:y*p.Stride+b.Dx()])
	}
	if size != (image.Point{}) && size != gray.Bounds().Size() {
		gray = resizeGray(gray, size)
	}
	return grayPlane(gray), nil
}

// resizeGray uses nearest-neighbour so that label indices are never blended.
func resizeGray(src *image.Gray, size image.Point) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func grayPlane(g *image.Gray) *Plane {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			pix[y*w+x] = float32(v)
		}
	}
	return &Plane{Width: w, Height: h, Pix: pix}
}

// Save encodes img to path, choosing the codec from the file extension, and
// replaces the file atomically.
func Save(path string, img image.Image) error {
	var encode func(io.Writer, image.Image) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = png.Encode
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 95})
		}
	case ".bmp":
		encode = bmp.Encode
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}

	return fsutil.WriteWith(path, 0o644, func(w io.Writer) error {
		return encode(w, img)
	})
}
