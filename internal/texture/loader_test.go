package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"cxbin-converter/internal/mesh"
)

func checker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if (x+y)%2 == 1 {
				c = color.NRGBA{B: 255, A: 128}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDecodeRGBA(t *testing.T) {
	src := checker()
	img, err := Decode(mesh.Texture{Encoding: mesh.EncodingRGBA, Width: 4, Height: 4, Data: src.Pix})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.NRGBAAt(1, 0) != (color.NRGBA{B: 255, A: 128}) {
		t.Fatalf("pixel (1,0) = %v", img.NRGBAAt(1, 0))
	}

	_, err = Decode(mesh.Texture{Encoding: mesh.EncodingRGBA, Width: 4, Height: 4, Data: src.Pix[:10]})
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, checker()); err != nil {
		t.Fatal(err)
	}
	tex := mesh.Texture{Encoding: mesh.EncodingImage, Data: buf.Bytes()}
	if !tex.IsPNG() {
		t.Fatal("IsPNG = false")
	}
	img, err := Decode(tex)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.NRGBAAt(0, 0) != (color.NRGBA{R: 255, A: 255}) {
		t.Fatalf("unexpected image %v %v", img.Bounds(), img.NRGBAAt(0, 0))
	}
}

func TestDecodeImageEncodings(t *testing.T) {
	tests := []struct {
		name   string
		encode func(io.Writer, image.Image) error
		exact  bool // lossless, so pixel (0,0) survives
	}{
		{"png", png.Encode, true},
		{"jpeg", func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }, false},
		{"gif", func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }, false},
		{"bmp", bmp.Encode, true},
		{"webp", func(w io.Writer, img image.Image) error { return nativewebp.Encode(w, img, nil) }, true},
		{"tga", tga.Encode, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, checker()); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if name, _ := sniff(buf.Bytes()); name != tt.name {
				t.Fatalf("sniffed %s", name)
			}
			img, err := Decode(mesh.Texture{Encoding: mesh.EncodingImage, Data: buf.Bytes()})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
				t.Fatalf("bounds = %v", img.Bounds())
			}
			if tt.exact && img.NRGBAAt(0, 0) != (color.NRGBA{R: 255, A: 255}) {
				t.Fatalf("pixel (0,0) = %v", img.NRGBAAt(0, 0))
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{[]byte("not an image"), []byte("\x89PNG\r\n\x1a\ntruncated")} {
		if _, err := Decode(mesh.Texture{Encoding: mesh.EncodingImage, Data: data}); err == nil {
			t.Errorf("Decode(%q) succeeded", data)
		}
	}
}

func TestEncodeWebPIsLossless(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker(), WebP); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := webp.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("webp.Decode: %v", err)
	}
	r, g, b, _ := got.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Fatalf("pixel (0,0) = %v", got.At(0, 0))
	}
}

func TestDecodeAllReportsFailures(t *testing.T) {
	m := mesh.Cube(1)
	m.Material = &mesh.Material{Textures: []mesh.Texture{
		{Encoding: mesh.EncodingRGBA, Width: 1, Height: 1, Data: []byte{1, 2, 3, 4}},
		{Encoding: mesh.EncodingImage, Data: []byte("not an image")},
	}}
	imgs, errs := DecodeAll(m)
	if len(imgs) != 2 || imgs[0] == nil || imgs[1] != nil {
		t.Fatalf("imgs = %v", imgs)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": PNG, "PNG": PNG, "webp": WebP} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatal("expected error for gif")
	}
}
