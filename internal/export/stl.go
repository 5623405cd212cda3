package export

import (
	"io"

	"github.com/hschendel/stl"

	"cxbin-converter/internal/mesh"
)

func toSolid(m *mesh.Mesh, name string) *stl.Solid {
	s := &stl.Solid{
		Name:      name,
		Triangles: make([]stl.Triangle, len(m.Faces)),
	}
	for i, f := range m.Faces {
		t := &s.Triangles[i]
		t.Normal = stl.Vec3(m.FaceNormal(i))
		for k := 0; k < 3; k++ {
			t.Vertices[k] = stl.Vec3(m.Vertices[f[k]])
		}
	}
	return s
}

// writeSTL writes binary STL.
func writeSTL(w io.Writer, m *mesh.Mesh, name string) error {
	return toSolid(m, name).WriteAll(w)
}
