//go:build ignore

// Generate a small synthetic segmentation dataset for trying seg-eval and seg-viz.
// Usage: go run ./scripts/make-synthetic.go [-out data] [-classes 3] [-size 64]
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// Split sizes
var splits = map[string]int{
	"val":       12,
	"test":      12,
	"unlabeled": 20,
}

func main() {
	out := flag.String("out", "data", "Output directory")
	classes := flag.Int("classes", 3, "Number of classes including background")
	size := flag.Int("size", 64, "Image width and height")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	if *classes < 2 || *classes > 255 {
		fmt.Fprintln(os.Stderr, "Error: -classes must be in [2, 255]")
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed+1))
	for split, n := range splits {
		imgDir := filepath.Join(*out, split, "images")
		labelDir := filepath.Join(*out, split, "labels")
		if split == "unlabeled" {
			imgDir = filepath.Join(*out, split)
			labelDir = ""
		}

		fmt.Printf("Generating %s (%d images)...\n", split, n)
		for i := range n {
			name := fmt.Sprintf("%s_%03d.png", split, i)
			img, label := sample(rng, *size, *classes)
			if err := write(filepath.Join(imgDir, name), img); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
				os.Exit(1)
			}
			if labelDir == "" {
				continue
			}
			if err := write(filepath.Join(labelDir, name), label); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing label %s: %v\n", name, err)
				os.Exit(1)
			}
		}
	}

	fmt.Printf("\nDone! Dataset created in %s/\n", *out)
}

// sample draws one rectangle per foreground class on a noisy background.
// The label is a paletted image whose indices are class numbers.
func sample(rng *rand.Rand, size, classes int) (*image.Gray, *image.Paletted) {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(40))
	}

	palette := make(color.Palette, classes)
	for c := range palette {
		v := uint8(c * 255 / (classes - 1))
		palette[c] = color.Gray{Y: v}
	}
	label := image.NewPaletted(img.Bounds(), palette)

	for c := 1; c < classes; c++ {
		w := size/4 + rng.IntN(size/4)
		h := size/4 + rng.IntN(size/4)
		x0 := rng.IntN(size - w)
		y0 := rng.IntN(size - h)
		shade := uint8(60 + c*(190/classes))
		for y := y0; y < y0+h; y++ {
			for x := x0; x < x0+w; x++ {
				img.SetGray(x, y, color.Gray{Y: shade})
				label.SetColorIndex(x, y, uint8(c))
			}
		}
	}
	return img, label
}

func write(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
