package export

import (
	"io"

	"cxbin-converter/internal/mesh"
)

// writeOBJ writes geometry with UVs and normals. mtl names the material
// library; empty means none.
func writeOBJ(w io.Writer, m *mesh.Mesh, mtl, material string) error {
	t := newTextWriter(w)
	if mtl != "" {
		t.str("mtllib ")
		t.str(mtl)
		t.str("\n")
	}
	for _, v := range m.Vertices {
		t.str("v ")
		t.floats(" ", v[0], v[1], v[2])
		t.str("\n")
	}

	faceUVs := len(m.FaceUVs) == len(m.Faces) && len(m.UVs) > 0
	vertexUVs := !faceUVs && m.HasPerVertexUVs()
	for _, uv := range m.UVs {
		if !faceUVs && !vertexUVs {
			break
		}
		t.str("vt ")
		t.floats(" ", uv[0], uv[1])
		t.str("\n")
	}

	normals := m.Normals
	if len(normals) != len(m.Vertices) {
		c := *m
		c.ComputeNormals()
		normals = c.Normals
	}
	for _, n := range normals {
		t.str("vn ")
		t.floats(" ", n[0], n[1], n[2])
		t.str("\n")
	}

	if mtl != "" {
		t.str("usemtl ")
		t.str(material)
		t.str("\n")
	}
	for i, f := range m.Faces {
		t.str("f")
		for k := 0; k < 3; k++ {
			v := f[k] + 1
			t.str(" ")
			t.uint(v)
			t.str("/")
			switch {
			case faceUVs:
				t.uint(m.FaceUVs[i][k] + 1)
			case vertexUVs:
				t.uint(v)
			}
			t.str("/")
			t.uint(v)
		}
		t.str("\n")
	}
	return t.flush()
}

// writeMTL writes one material. texture is the diffuse map file, if any.
func writeMTL(w io.Writer, material, texture string) error {
	t := newTextWriter(w)
	t.str("newmtl ")
	t.str(material)
	t.str("\nKa 1 1 1\nKd 0.8 0.8 0.8\nKs 0 0 0\nd 1\nillum 1\n")
	if texture != "" {
		t.str("map_Kd ")
		t.str(texture)
		t.str("\n")
	}
	return t.flush()
}

// materialName returns a name usable in MTL and glTF documents.
func materialName(m *mesh.Mesh) string {
	if m.Material != nil {
		name := make([]byte, 0, len(m.Material.Name))
		for i := 0; i < len(m.Material.Name); i++ {
			c := m.Material.Name[i]
			switch {
			case c == 0:
				continue
			case c <= ' ' || c == 0x7f:
				c = '_'
			}
			name = append(name, c)
		}
		if len(name) > 0 {
			return string(name)
		}
	}
	return "material_0"
}
