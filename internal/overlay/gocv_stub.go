//go:build !gocv
// +build !gocv

package overlay

import (
	"errors"
	"image"

	"github.com/jamesainslie/go-segeval/tensor"
)

const gocvEnabled = false

// GoCV is unavailable without the gocv build tag.
type GoCV struct{}

// NewGoCV creates a renderer stub (without OpenCV).
func NewGoCV(float64) *GoCV {
	return &GoCV{}
}

// Render returns an error when built without the gocv tag.
func (g *GoCV) Render(*tensor.IndexMap, *tensor.Tensor, int) ([]image.Image, error) {
	return nil, errors.New("gocv build tag is not enabled")
}
