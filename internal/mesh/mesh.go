package mesh

import (
	"fmt"
	"math"

	"cxbin-converter/internal/mathutil"
)

// Validate checks that every face index is within vertex bounds and every
// face-UV index within UV bounds.
func (m *Mesh) Validate() error {
	nv := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx >= nv {
				return fmt.Errorf("mesh: face %d references vertex %d of %d", i, idx, nv)
			}
		}
	}
	if len(m.FaceUVs) > 0 {
		if len(m.FaceUVs) != len(m.Faces) {
			return fmt.Errorf("mesh: %d face UVs for %d faces", len(m.FaceUVs), len(m.Faces))
		}
		nuv := uint32(len(m.UVs))
		for i, f := range m.FaceUVs {
			for _, idx := range f {
				if idx >= nuv {
					return fmt.Errorf("mesh: face %d references uv %d of %d", i, idx, nuv)
				}
			}
		}
	}
	if len(m.Normals) > 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("mesh: %d normals for %d vertices", len(m.Normals), len(m.Vertices))
	}
	return nil
}

// Bounds returns the axis-aligned bounding box. Empty meshes return zero boxes.
func (m *Mesh) Bounds() (min, max [3]float32) {
	if len(m.Vertices) == 0 {
		return
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			if v[k] < min[k] {
				min[k] = v[k]
			}
			if v[k] > max[k] {
				max[k] = v[k]
			}
		}
	}
	return min, max
}

// FaceNormal returns the unit normal of face i (right-hand winding).
// Degenerate faces return the zero vector.
func (m *Mesh) FaceNormal(i int) [3]float32 {
	return m.faceCross(i).Normalize().Float32()
}

func (m *Mesh) faceCross(i int) mathutil.Vec3 {
	f := m.Faces[i]
	v0 := mathutil.FromFloat32(m.Vertices[f[0]])
	v1 := mathutil.FromFloat32(m.Vertices[f[1]])
	v2 := mathutil.FromFloat32(m.Vertices[f[2]])
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// ComputeNormals fills Normals with area-weighted vertex normals.
func (m *Mesh) ComputeNormals() {
	acc := make([]mathutil.Vec3, len(m.Vertices))
	for i, f := range m.Faces {
		c := m.faceCross(i)
		for _, idx := range f {
			acc[idx] = acc[idx].Add(c)
		}
	}
	m.Normals = make([][3]float32, len(acc))
	for i, n := range acc {
		n = n.Normalize()
		if n == (mathutil.Vec3{}) {
			n = mathutil.Vec3{0, 0, 1}
		}
		m.Normals[i] = n.Float32()
	}
}

// SurfaceArea sums the area of all faces.
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for i := range m.Faces {
		area += 0.5 * m.faceCross(i).Len()
	}
	return area
}

// HasPerVertexUVs reports whether UVs can be used directly as a vertex attribute.
func (m *Mesh) HasPerVertexUVs() bool {
	return len(m.FaceUVs) == 0 && len(m.UVs) > 0 && len(m.UVs) == len(m.Vertices)
}

// Flatten returns a copy with one vertex per face corner. UVs are taken from
// FaceUVs when present, so the result always has per-vertex UVs if the source
// had any usable UVs. Material is shared with the receiver.
func (m *Mesh) Flatten() *Mesh {
	out := &Mesh{
		Vertices:   make([][3]float32, 0, len(m.Faces)*3),
		Faces:      make([][3]uint32, len(m.Faces)),
		TextureIDs: m.TextureIDs,
		Material:   m.Material,
	}
	withFaceUVs := len(m.FaceUVs) == len(m.Faces) && len(m.FaceUVs) > 0
	withVertexUVs := m.HasPerVertexUVs()
	if withFaceUVs || withVertexUVs {
		out.UVs = make([][2]float32, 0, len(m.Faces)*3)
	}
	for i, f := range m.Faces {
		base := uint32(len(out.Vertices))
		for k, idx := range f {
			out.Vertices = append(out.Vertices, m.Vertices[idx])
			switch {
			case withFaceUVs:
				out.UVs = append(out.UVs, m.UVs[m.FaceUVs[i][k]])
			case withVertexUVs:
				out.UVs = append(out.UVs, m.UVs[idx])
			}
		}
		out.Faces[i] = [3]uint32{base, base + 1, base + 2}
	}
	return out
}

// Extent returns the largest side of the bounding box.
func (m *Mesh) Extent() float64 {
	min, max := m.Bounds()
	var ext float64
	for k := 0; k < 3; k++ {
		ext = math.Max(ext, float64(max[k]-min[k]))
	}
	return ext
}
