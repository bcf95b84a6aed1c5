// Package overlay renders predicted class maps on top of their source images.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

// DefaultAlpha is the opacity of class colors over the image.
const DefaultAlpha = 0.5

// New returns the renderer registered under name: "palette" or "gocv".
func New(name string, alpha float64) (segeval.Renderer, error) {
	switch name {
	case "", "palette":
		return NewPalette(alpha), nil
	case "gocv":
		if !gocvEnabled {
			return nil, fmt.Errorf("renderer %q: gocv build tag is not enabled", name)
		}
		return NewGoCV(alpha), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}

// Colors returns one color per class. Class 0 is background and maps to
// black; the others are spread evenly around the hue circle. It returns nil
// for numClasses <= 0.
func Colors(numClasses int) []color.RGBA {
	if numClasses <= 0 {
		return nil
	}
	out := make([]color.RGBA, numClasses)
	out[0] = color.RGBA{A: 255}
	for k := 1; k < numClasses; k++ {
		hue := 360 * float64(k-1) / float64(numClasses-1)
		r, g, b := colorful.Hsv(hue, 0.9, 1.0).RGB255()
		out[k] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// Palette blends class colors over a grayscale rendering of the image in pure Go.
type Palette struct {
	alpha float64
}

// NewPalette creates a Palette renderer. alpha outside (0, 1] uses DefaultAlpha.
func NewPalette(alpha float64) *Palette {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Palette{alpha: alpha}
}

// Render implements segeval.Renderer.
func (p *Palette) Render(classMap *tensor.IndexMap, images *tensor.Tensor, numClasses int) ([]image.Image, error) {
	n, h, w, err := checkInputs(classMap, images, numClasses)
	if err != nil {
		return nil, err
	}
	colors := Colors(numClasses)
	pix := images.Data()

	out := make([]image.Image, n)
	for i := range n {
		idx := classMap.Sample(i)
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for px, c := range idx {
			if int(c) >= numClasses || c < 0 {
				return nil, fmt.Errorf("%w: class %d in sample %d, %d classes", segeval.ErrIndexOutOfRange, c, i, numClasses)
			}
			v := clamp8(float64(pix[i*h*w+px]))
			rgba := color.RGBA{R: v, G: v, B: v, A: 255}
			if c > 0 {
				rgba = blend(rgba, colors[c], p.alpha)
			}
			img.SetRGBA(px%w, px/w, rgba)
		}
		out[i] = img
	}
	return out, nil
}

// checkInputs validates a (N, H, W) class map against (N, H, W[, 1]) images.
func checkInputs(classMap *tensor.IndexMap, images *tensor.Tensor, numClasses int) (n, h, w int, err error) {
	if numClasses <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: %d classes", segeval.ErrIndexOutOfRange, numClasses)
	}
	shape := images.Shape()
	if len(shape) == 4 && shape[3] == 1 {
		shape = shape[:3]
	}
	if len(shape) != 3 || !slices.Equal(shape, classMap.Shape()) {
		return 0, 0, 0, fmt.Errorf("%w: class map %v, images %v", segeval.ErrShapeMismatch, classMap.Shape(), images.Shape())
	}
	return shape[0], shape[1], shape[2], nil
}

func blend(base, over color.RGBA, alpha float64) color.RGBA {
	mix := func(a, b uint8) uint8 {
		return clamp8((1-alpha)*float64(a) + alpha*float64(b))
	}
	return color.RGBA{R: mix(base.R, over.R), G: mix(base.G, over.G), B: mix(base.B, over.B), A: 255}
}

func clamp8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
