package imageio

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			g.SetGray(x, y, color.Gray{Y: uint8(10*y + x)})
		}
	}
	return g
}

func TestSaveLoadGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, Save(path, gradient(4, 3)))

	p, err := LoadGray(path, image.Point{})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Width)
	assert.Equal(t, 3, p.Height)
	assert.Equal(t, float32(0), p.Pix[0])
	assert.Equal(t, float32(23), p.Pix[2*4+3])
}

func TestLoadGray_ConvertsColor(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgba.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	rgba.Set(1, 0, color.RGBA{A: 255})
	path := filepath.Join(t.TempDir(), "rgb.png")
	require.NoError(t, Save(path, rgba))

	p, err := LoadGray(path, image.Point{})
	require.NoError(t, err)
	assert.Equal(t, []float32{255, 0}, p.Pix)
}

func TestLoadGray_ResizeNearest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, Save(path, gradient(4, 4)))

	p, err := LoadGray(path, image.Pt(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Len(t, p.Pix, 4)
	for _, v := range p.Pix {
		// every output pixel is one of the source values
		assert.Contains(t, []float32{0, 1, 2, 3, 10, 11, 12, 13, 20, 21, 22, 23, 30, 31, 32, 33}, v)
	}
}

func TestLoadIndex_Paletted(t *testing.T) {
	pal := color.Palette{color.Black, color.RGBA{R: 255, A: 255}, color.RGBA{G: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 3, 1), pal)
	img.SetColorIndex(1, 0, 1)
	img.SetColorIndex(2, 0, 2)
	path := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, Save(path, img))

	p, err := LoadIndex(path, image.Point{})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, p.Pix)
}

func TestSave_Codecs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "c.JPEG", "d.bmp"} {
		require.NoError(t, Save(filepath.Join(dir, name), gradient(2, 2)), name)
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}

	assert.Error(t, Save(filepath.Join(dir, "e.tiff"), gradient(2, 2)))
}
