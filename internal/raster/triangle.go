package raster

import (
	"image"
	"image/color"
	"math"

	"cxbin-converter/internal/mathutil"
)

// Surface is what a triangle is painted with: a texture sampled through
// uvs, or the flat Base color when no texture or UV applies.
type Surface struct {
	Texture *image.NRGBA
	UVs     [][2]float32
	Base    color.NRGBA
}

// RasterizeTriangle rasterizes a single triangle with texture mapping,
// z-buffer, sRGB color space, flat lighting and ACES tone mapping.
// vi indexes the projected vertex arrays, ti indexes s.UVs.
func RasterizeTriangle(
	fb *FrameBuffer,
	px, py, pz []float64,
	vi, ti [3]int,
	s *Surface,
	lc *LightConfig,
) {
	nv := len(px)
	for _, i := range vi {
		if i < 0 || i >= nv {
			return
		}
	}

	x0, y0, z0 := px[vi[0]], py[vi[0]], pz[vi[0]]
	x1, y1, z1 := px[vi[1]], py[vi[1]], pz[vi[1]]
	x2, y2, z2 := px[vi[2]], py[vi[2]], pz[vi[2]]

	hasUV := s.Texture != nil
	for _, i := range ti {
		if i < 0 || i >= len(s.UVs) {
			hasUV = false
			break
		}
	}

	var u0, v0, u1, v1, u2, v2 float64
	if hasUV {
		u0, v0 = float64(s.UVs[ti[0]][0]), float64(s.UVs[ti[0]][1])
		u1, v1 = float64(s.UVs[ti[1]][0]), float64(s.UVs[ti[1]][1])
		u2, v2 = float64(s.UVs[ti[2]][0]), float64(s.UVs[ti[2]][1])
	}

	// Face normal for flat shading
	e1 := mathutil.Vec3{x1 - x0, y1 - y0, z1 - z0}
	e2 := mathutil.Vec3{x2 - x0, y2 - y0, z2 - z0}
	n := e1.Cross(e2)
	if n.Len() < 1e-8 {
		return
	}
	shade := lc.ComputeShade(n.Normalize())

	// Bounding box
	size := fb.Width
	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1
	minX = mathutil.Clamp(minX, 0, size-1)
	maxX = mathutil.Clamp(maxX, 0, size-1)
	minY = mathutil.Clamp(minY, 0, fb.Height-1)
	maxY = mathutil.Clamp(maxY, 0, fb.Height-1)
	if minX >= maxX || minY >= maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	exposure := lc.Exposure
	invGamma := lc.InvGamma

	// Pixel loop, no allocations.
	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) - y2
		rowOff := sy * size
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			cr, cg, cb, ca := s.Base.R, s.Base.G, s.Base.B, s.Base.A
			if hasUV {
				u := w0*u0 + w1*u1 + w2*u2
				v := w0*v0 + w1*v1 + w2*v2
				cr, cg, cb, ca = SampleTexture(s.Texture, u, v)
			}

			// Skip transparent texels
			if ca < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			// sRGB decode → linear → shade → ACES → sRGB encode
			fr := math.Pow(ACESTonemap(srgbToLinear[cr]*shade*exposure), invGamma)
			fg := math.Pow(ACESTonemap(srgbToLinear[cg]*shade*exposure), invGamma)
			fbl := math.Pow(ACESTonemap(srgbToLinear[cb]*shade*exposure), invGamma)

			pxIdx := zIdx * 4
			fb.Color[pxIdx] = mathutil.ClampByte(fr * 255)
			fb.Color[pxIdx+1] = mathutil.ClampByte(fg * 255)
			fb.Color[pxIdx+2] = mathutil.ClampByte(fbl * 255)
			fb.Color[pxIdx+3] = ca
		}
	}
}
