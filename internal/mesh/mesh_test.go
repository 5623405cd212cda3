package mesh

import (
	"math"
	"testing"
)

func TestCubeIsValid(t *testing.T) {
	m := Cube(2)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(m.Vertices) != 8 || len(m.Faces) != 12 {
		t.Fatalf("cube has %d vertices, %d faces", len(m.Vertices), len(m.Faces))
	}
	if got := m.SurfaceArea(); math.Abs(got-24) > 1e-6 {
		t.Fatalf("surface area = %v, want 24", got)
	}
	if got := m.Extent(); got != 2 {
		t.Fatalf("extent = %v, want 2", got)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		mod  func(m *Mesh)
	}{
		{"face index", func(m *Mesh) { m.Faces[3][1] = 8 }},
		{"face uv count", func(m *Mesh) {
			m.UVs = [][2]float32{{0, 0}}
			m.FaceUVs = [][3]uint32{{0, 0, 0}}
		}},
		{"face uv index", func(m *Mesh) {
			m.UVs = [][2]float32{{0, 0}}
			m.FaceUVs = make([][3]uint32, len(m.Faces))
			m.FaceUVs[5] = [3]uint32{0, 1, 0}
		}},
		{"normals", func(m *Mesh) { m.Normals = [][3]float32{{0, 0, 1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Cube(1)
			tt.mod(m)
			if err := m.Validate(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFaceNormalPointsOutward(t *testing.T) {
	m := Cube(1)
	if n := m.FaceNormal(0); n != [3]float32{0, 0, -1} {
		t.Fatalf("bottom normal = %v", n)
	}
	if n := m.FaceNormal(2); n != [3]float32{0, 0, 1} {
		t.Fatalf("top normal = %v", n)
	}
}

func TestComputeNormals(t *testing.T) {
	m := Cube(1)
	m.ComputeNormals()
	if len(m.Normals) != 8 {
		t.Fatalf("got %d normals", len(m.Normals))
	}
	// Vertex 6 is the (1,1,1) corner, its normal points away from the origin.
	n := m.Normals[6]
	if n[0] <= 0 || n[1] <= 0 || n[2] <= 0 {
		t.Fatalf("corner normal = %v", n)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestFlattenCarriesFaceUVs(t *testing.T) {
	m := Cube(1)
	m.UVs = [][2]float32{{0, 0}, {1, 0}, {1, 1}}
	m.FaceUVs = make([][3]uint32, len(m.Faces))
	for i := range m.FaceUVs {
		m.FaceUVs[i] = [3]uint32{0, 1, 2}
	}

	flat := m.Flatten()
	if len(flat.Vertices) != 36 || len(flat.Faces) != 12 {
		t.Fatalf("flat mesh has %d vertices, %d faces", len(flat.Vertices), len(flat.Faces))
	}
	if !flat.HasPerVertexUVs() {
		t.Fatal("flattened mesh should have per-vertex UVs")
	}
	if flat.UVs[4] != [2]float32{1, 0} {
		t.Fatalf("uv[4] = %v", flat.UVs[4])
	}
	if err := flat.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestBoundsEmpty(t *testing.T) {
	var m Mesh
	min, max := m.Bounds()
	if min != ([3]float32{}) || max != ([3]float32{}) {
		t.Fatalf("bounds of empty mesh = %v %v", min, max)
	}
}
