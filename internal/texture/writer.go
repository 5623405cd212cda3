package texture

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an image encoding used for written textures and previews.
type Format int

const (
	PNG Format = iota
	WebP
)

// ParseFormat accepts "png" or "webp"; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return PNG, fmt.Errorf("texture: unknown image format %q (want png or webp)", s)
}

func (f Format) String() string {
	if f == WebP {
		return "webp"
	}
	return "png"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// MIME returns the media type of the encoding.
func (f Format) MIME() string {
	if f == WebP {
		return "image/webp"
	}
	return "image/png"
}

// Encode writes img in format f. WebP output is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case WebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("texture: webp encode: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("texture: png encode: %w", err)
		}
	}
	return nil
}

// WriteFile encodes img to path.
func WriteFile(path string, img image.Image, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("texture: create %s: %w", path, err)
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
