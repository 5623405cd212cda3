package postprocess

import (
	"image"
	"image/color"
	"testing"
)

func square(size int, r image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func TestDownsampleKeepsColorAtEdges(t *testing.T) {
	img := square(64, image.Rect(16, 16, 48, 48))
	out := Downsample(img, 16)
	if out.Bounds().Dx() != 16 {
		t.Fatalf("size = %v", out.Bounds())
	}
	c := out.NRGBAAt(8, 8)
	if c.A != 255 || c.R < 190 {
		t.Fatalf("center = %v", c)
	}
	// Partially covered edge pixels keep their hue instead of fading to black.
	e := out.NRGBAAt(4, 8)
	if e.A > 0 && e.R < 150 {
		t.Fatalf("edge = %v", e)
	}
	if out.NRGBAAt(0, 0).A != 0 {
		t.Fatal("corner should stay transparent")
	}
}

func TestDownsampleNoop(t *testing.T) {
	img := square(8, image.Rect(0, 0, 8, 8))
	if Downsample(img, 16) != img {
		t.Fatal("smaller image should be returned as is")
	}
}

func TestContentBounds(t *testing.T) {
	r, ok := ContentBounds(square(32, image.Rect(3, 5, 10, 20)))
	if !ok || r != image.Rect(3, 5, 10, 20) {
		t.Fatalf("bounds = %v %v", r, ok)
	}
	if _, ok := ContentBounds(image.NewNRGBA(image.Rect(0, 0, 4, 4))); ok {
		t.Fatal("empty image reported content")
	}
}

func TestCropAndCenter(t *testing.T) {
	out := CropAndCenter(square(100, image.Rect(0, 0, 20, 10)), 50, 0.8)
	r, ok := ContentBounds(out)
	if !ok {
		t.Fatal("no content")
	}
	if r.Dx() != 40 || r.Dy() != 20 {
		t.Fatalf("content = %v", r)
	}
	if r.Min.X != 5 || r.Min.Y != 15 {
		t.Fatalf("not centered: %v", r)
	}

	empty := CropAndCenter(image.NewNRGBA(image.Rect(0, 0, 10, 10)), 8, 0.8)
	if empty.Bounds().Dx() != 8 {
		t.Fatalf("empty canvas = %v", empty.Bounds())
	}
}
