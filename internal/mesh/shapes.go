package mesh

// Cube returns an axis-aligned cube with one corner at the origin:
// 8 vertices and 12 outward-facing triangles.
func Cube(size float32) *Mesh {
	s := size
	return &Mesh{
		Vertices: [][3]float32{
			{0, 0, 0}, {s, 0, 0}, {s, s, 0}, {0, s, 0},
			{0, 0, s}, {s, 0, s}, {s, s, s}, {0, s, s},
		},
		Faces: [][3]uint32{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{2, 3, 7}, {2, 7, 6}, // back
			{1, 2, 6}, {1, 6, 5}, // right
			{3, 0, 4}, {3, 4, 7}, // left
		},
	}
}
