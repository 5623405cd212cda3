package export

import (
	"io"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"

	"cxbin-converter/internal/mesh"
)

func toModel(m *mesh.Mesh) modeling.Mesh {
	indices := make([]int, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		indices = append(indices, int(f[0]), int(f[1]), int(f[2]))
	}

	normals := m.Normals
	if len(normals) != len(m.Vertices) {
		c := *m
		c.ComputeNormals()
		normals = c.Normals
	}

	positions := make([]vector3.Float64, len(m.Vertices))
	norms := make([]vector3.Float64, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = vector3.New(float64(v[0]), float64(v[1]), float64(v[2]))
		n := normals[i]
		norms[i] = vector3.New(float64(n[0]), float64(n[1]), float64(n[2]))
	}

	return modeling.NewTriangleMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, positions).
		SetFloat3Attribute(modeling.NormalAttribute, norms)
}

// writePLY writes binary little-endian PLY with per-vertex normals.
func writePLY(w io.Writer, m *mesh.Mesh) error {
	return ply.WriteBinary(w, toModel(m))
}
