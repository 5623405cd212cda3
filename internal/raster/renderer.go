package raster

import (
	"image"
	"image/color"
	"math"

	"cxbin-converter/internal/mathutil"
	"cxbin-converter/internal/mesh"
)

// DefaultBase is the flat color of untextured meshes.
var DefaultBase = color.NRGBA{R: 196, G: 200, B: 208, A: 255}

// Options controls RenderMesh.
type Options struct {
	Size        int // output edge in pixels before downsampling
	Supersample int
	View        mathutil.Mat3
	Texture     *image.NRGBA // optional, sampled through the mesh UVs
	Margin      int          // pixels left free on each side, at output scale
}

// RenderMesh renders m to a square, transparent-background image of
// Size*Supersample pixels. The mesh is fitted to the frame.
func RenderMesh(m *mesh.Mesh, opts Options) *image.NRGBA {
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	renderSize := opts.Size * opts.Supersample
	img := image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	if len(m.Vertices) == 0 || len(m.Faces) == 0 || renderSize <= 0 {
		return img
	}

	R := opts.View
	if R == (mathutil.Mat3{}) {
		R = mathutil.PreviewView
	}

	// Bounding box of the transformed vertices
	allMin := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	allMax := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	tv := make([]mathutil.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		tv[i] = R.MulVec3(mathutil.FromFloat32(v))
		for k := 0; k < 3; k++ {
			allMin[k] = math.Min(allMin[k], tv[i][k])
			allMax[k] = math.Max(allMax[k], tv[i][k])
		}
	}

	center := allMin.Add(allMax).Scale(0.5)
	span := math.Max(allMax[0]-allMin[0], allMax[1]-allMin[1])
	if span < 0.001 {
		span = 0.001
	}
	margin := opts.Margin * opts.Supersample
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	px := make([]float64, len(tv))
	py := make([]float64, len(tv))
	pz := make([]float64, len(tv))
	for i, v := range tv {
		px[i] = (v[0]-center[0])*scale + half
		py[i] = half - (v[1]-center[1])*scale
		pz[i] = v[2] - center[2]
	}

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()
	s := &Surface{Texture: opts.Texture, Base: DefaultBase}
	faceUVs := len(m.FaceUVs) == len(m.Faces)
	if opts.Texture != nil {
		s.UVs = m.UVs
		s.Base = averageColor(opts.Texture)
	}

	for i, f := range m.Faces {
		vi := [3]int{int(f[0]), int(f[1]), int(f[2])}
		ti := vi
		if faceUVs {
			ti = [3]int{int(m.FaceUVs[i][0]), int(m.FaceUVs[i][1]), int(m.FaceUVs[i][2])}
		}
		RasterizeTriangle(fb, px, py, pz, vi, ti, s, &lc)
	}

	copy(img.Pix, fb.Color)
	return img
}

func averageColor(tex *image.NRGBA) color.NRGBA {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return DefaultBase
	}

	var sumR, sumG, sumB float64
	for y := 0; y < h; y++ {
		off := y * tex.Stride
		for x := 0; x < w; x++ {
			i := off + x*4
			sumR += float64(tex.Pix[i])
			sumG += float64(tex.Pix[i+1])
			sumB += float64(tex.Pix[i+2])
		}
	}
	n := float64(w * h)
	return color.NRGBA{R: uint8(sumR/n + 0.5), G: uint8(sumG/n + 0.5), B: uint8(sumB/n + 0.5), A: 255}
}
