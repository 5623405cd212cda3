package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"cxbin-converter/internal/mesh"
)

// Decode turns a container texture into an NRGBA image. Encoded buffers may
// be PNG, JPEG, GIF, BMP, WebP or TGA; raw buffers must hold exactly
// Width*Height*4 bytes.
func Decode(t mesh.Texture) (*image.NRGBA, error) {
	switch t.Encoding {
	case mesh.EncodingRGBA:
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("texture: invalid size %dx%d", t.Width, t.Height)
		}
		if len(t.Data) != t.Width*t.Height*4 {
			return nil, fmt.Errorf("texture: %dx%d RGBA needs %d bytes, have %d",
				t.Width, t.Height, t.Width*t.Height*4, len(t.Data))
		}
		img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
		copy(img.Pix, t.Data)
		return img, nil
	case mesh.EncodingImage:
		if len(t.Data) == 0 {
			return nil, fmt.Errorf("texture: empty buffer")
		}
		name, decode := sniff(t.Data)
		img, err := decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", name, err)
		}
		return toNRGBA(img), nil
	}
	return nil, fmt.Errorf("texture: unknown encoding %v", t.Encoding)
}

// sniff picks a decoder from the leading magic bytes. TGA has no magic, so
// it is the fallback. image.Decode is not used: the tga package registers an
// empty magic that matches every buffer.
func sniff(data []byte) (string, func(io.Reader) (image.Image, error)) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png", png.Decode
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return "jpeg", jpeg.Decode
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "gif", gif.Decode
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp", bmp.Decode
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp", webp.Decode
	}
	return "tga", tga.Decode
}

// DecodeAll decodes every texture of m. Textures that fail to decode are
// returned as nil entries with their error in errs.
func DecodeAll(m *mesh.Mesh) (imgs []*image.NRGBA, errs []error) {
	for i, t := range m.Textures() {
		img, err := Decode(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("texture %d: %w", i, err))
		}
		imgs = append(imgs, img)
	}
	return imgs, errs
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha: draw and force opaque.
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 255
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				i := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
				dst.Pix[i] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	}
	return dst
}
