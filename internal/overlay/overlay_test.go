package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

func TestColors(t *testing.T) {
	colors := Colors(4)
	require.Len(t, colors, 4)
	assert.Equal(t, color.RGBA{A: 255}, colors[0])
	assert.NotEqual(t, colors[1], colors[2])
	assert.NotEqual(t, colors[2], colors[3])

	assert.Len(t, Colors(1), 1)
	assert.Empty(t, Colors(0))
	assert.Empty(t, Colors(-2))
}

func TestPalette_Render(t *testing.T) {
	classMap, err := tensor.NewIndexMap([]int{2, 1, 2}, []int32{0, 1, 0, 0})
	require.NoError(t, err)
	images, err := tensor.New([]int{2, 1, 2, 1}, []float32{100, 100, 255, 0})
	require.NoError(t, err)

	out, err := NewPalette(0.5).Render(classMap, images, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 1), out[0].Bounds())

	bg := out[0].(*image.RGBA).RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{R: 100, G: 100, B: 100, A: 255}, bg)

	fg := out[0].(*image.RGBA).RGBAAt(1, 0)
	assert.NotEqual(t, bg, fg, "class pixels are tinted")

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out[1].(*image.RGBA).RGBAAt(0, 0))
}

func TestPalette_RenderErrors(t *testing.T) {
	classMap, err := tensor.NewIndexMap([]int{1, 1, 2}, []int32{0, 3})
	require.NoError(t, err)

	_, err = NewPalette(0).Render(classMap, tensor.Zeros(1, 1, 2, 1), 2)
	assert.ErrorIs(t, err, segeval.ErrIndexOutOfRange)

	_, err = NewPalette(0).Render(classMap, tensor.Zeros(1, 2, 2, 1), 4)
	assert.ErrorIs(t, err, segeval.ErrShapeMismatch)
}

func TestNew(t *testing.T) {
	r, err := New("palette", 0.3)
	require.NoError(t, err)
	assert.IsType(t, &Palette{}, r)

	_, err = New("sepia", 0.3)
	assert.Error(t, err)

	if !gocvEnabled {
		_, err = New("gocv", 0.3)
		assert.ErrorContains(t, err, "build tag")
	}
}
