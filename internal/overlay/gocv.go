//go:build gocv
// +build gocv

package overlay

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

const gocvEnabled = true

// GoCV blends class colors over the image with OpenCV.
type GoCV struct {
	alpha float64
}

// NewGoCV creates an OpenCV-backed renderer.
func NewGoCV(alpha float64) *GoCV {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &GoCV{alpha: alpha}
}

// Render implements segeval.Renderer.
func (g *GoCV) Render(classMap *tensor.IndexMap, images *tensor.Tensor, numClasses int) ([]image.Image, error) {
	n, h, w, err := checkInputs(classMap, images, numClasses)
	if err != nil {
		return nil, err
	}
	colors := Colors(numClasses)
	pix := images.Data()

	out := make([]image.Image, n)
	for i := range n {
		idx := classMap.Sample(i)
		gray := make([]byte, h*w)
		// Background pixels repeat the gray value so blending leaves them unchanged.
		tint := make([]byte, 3*h*w)
		for px, c := range idx {
			if int(c) >= numClasses || c < 0 {
				return nil, fmt.Errorf("%w: class %d in sample %d, %d classes", segeval.ErrIndexOutOfRange, c, i, numClasses)
			}
			v := clamp8(float64(pix[i*h*w+px]))
			gray[px] = v
			if c == 0 {
				tint[3*px], tint[3*px+1], tint[3*px+2] = v, v, v
				continue
			}
			col := colors[c]
			tint[3*px], tint[3*px+1], tint[3*px+2] = col.B, col.G, col.R
		}

		img, err := g.blendSample(h, w, gray, tint)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = img
	}
	return out, nil
}

func (g *GoCV) blendSample(h, w int, gray, tint []byte) (image.Image, error) {
	grayMat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, gray)
	if err != nil {
		return nil, err
	}
	defer grayMat.Close()

	base := gocv.NewMat()
	defer base.Close()
	gocv.CvtColor(grayMat, &base, gocv.ColorGrayToBGR)

	tintMat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, tint)
	if err != nil {
		return nil, err
	}
	defer tintMat.Close()

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(base, 1-g.alpha, tintMat, g.alpha, 0, &blended)

	return blended.ToImage()
}
