package convert

import (
	"fmt"
	"image"

	"cxbin-converter/internal/mathutil"
	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/postprocess"
	"cxbin-converter/internal/raster"
	"cxbin-converter/internal/texture"
)

// PreviewOptions controls thumbnail rendering.
type PreviewOptions struct {
	Size        int
	Supersample int
	FillRatio   float64
	View        mathutil.Mat3 // zero means the three-quarter preset
}

// DefaultPreviewOptions are used for zero fields.
var DefaultPreviewOptions = PreviewOptions{Size: 256, Supersample: 3, FillRatio: 0.9}

func (o PreviewOptions) withDefaults() PreviewOptions {
	if o.Size <= 0 {
		o.Size = DefaultPreviewOptions.Size
	}
	if o.Supersample <= 0 {
		o.Supersample = DefaultPreviewOptions.Supersample
	}
	if o.FillRatio <= 0 || o.FillRatio > 1 {
		o.FillRatio = DefaultPreviewOptions.FillRatio
	}
	return o
}

// RenderPreview draws a shaded, textured (when possible) view of m.
func RenderPreview(m *mesh.Mesh, opts PreviewOptions) *image.NRGBA {
	opts = opts.withDefaults()

	var tex *image.NRGBA
	if ts := m.Textures(); len(ts) > 0 && (len(m.FaceUVs) == len(m.Faces) || m.HasPerVertexUVs()) {
		if img, err := texture.Decode(ts[0]); err == nil {
			tex = img
		}
	}

	img := raster.RenderMesh(m, raster.Options{
		Size:        opts.Size,
		Supersample: opts.Supersample,
		View:        opts.View,
		Texture:     tex,
	})
	if opts.Supersample > 1 {
		img = postprocess.Downsample(img, opts.Size)
	}
	return postprocess.CropAndCenter(img, opts.Size, opts.FillRatio)
}

// WritePreview renders m and writes it to path as lossless WebP.
func WritePreview(path string, m *mesh.Mesh, opts PreviewOptions) error {
	if len(m.Faces) == 0 {
		return fmt.Errorf("preview: mesh has no faces")
	}
	return texture.WriteFile(path, RenderPreview(m, opts), texture.WebP)
}
