package export

import (
	"bufio"
	"io"
	"strconv"

	"cxbin-converter/internal/mesh"
)

// textWriter buffers a text format and keeps the first write error.
type textWriter struct {
	w   *bufio.Writer
	err error
	num []byte
}

func newTextWriter(w io.Writer) *textWriter {
	return &textWriter{w: bufio.NewWriter(w)}
}

func (t *textWriter) str(s string) {
	if t.err == nil {
		_, t.err = t.w.WriteString(s)
	}
}

func (t *textWriter) float(v float32) {
	t.num = strconv.AppendFloat(t.num[:0], float64(v), 'g', -1, 32)
	if t.err == nil {
		_, t.err = t.w.Write(t.num)
	}
}

func (t *textWriter) uint(v uint32) {
	t.num = strconv.AppendUint(t.num[:0], uint64(v), 10)
	if t.err == nil {
		_, t.err = t.w.Write(t.num)
	}
}

// floats writes vals separated by sep.
func (t *textWriter) floats(sep string, vals ...float32) {
	for i, v := range vals {
		if i > 0 {
			t.str(sep)
		}
		t.float(v)
	}
}

func (t *textWriter) flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}

// writeOFF writes the Object File Format.
func writeOFF(w io.Writer, m *mesh.Mesh) error {
	t := newTextWriter(w)
	t.str("OFF\n")
	t.uint(uint32(len(m.Vertices)))
	t.str(" ")
	t.uint(uint32(len(m.Faces)))
	t.str(" 0\n")
	for _, v := range m.Vertices {
		t.floats(" ", v[0], v[1], v[2])
		t.str("\n")
	}
	for _, f := range m.Faces {
		t.str("3 ")
		t.uint(f[0])
		t.str(" ")
		t.uint(f[1])
		t.str(" ")
		t.uint(f[2])
		t.str("\n")
	}
	return t.flush()
}

// writeVRML writes a VRML 2.0 world holding one IndexedFaceSet.
func writeVRML(w io.Writer, m *mesh.Mesh, name string) error {
	t := newTextWriter(w)
	t.str("#VRML V2.0 utf8\n\nDEF ")
	t.str(vrmlName(name))
	t.str(" Shape {\n  appearance Appearance {\n    material Material { diffuseColor 0.8 0.8 0.8 }\n  }\n")
	t.str("  geometry IndexedFaceSet {\n    solid FALSE\n    coord Coordinate {\n      point [\n")
	for _, v := range m.Vertices {
		t.str("        ")
		t.floats(" ", v[0], v[1], v[2])
		t.str(",\n")
	}
	t.str("      ]\n    }\n    coordIndex [\n")
	for _, f := range m.Faces {
		t.str("      ")
		t.uint(f[0])
		t.str(", ")
		t.uint(f[1])
		t.str(", ")
		t.uint(f[2])
		t.str(", -1,\n")
	}
	t.str("    ]\n  }\n}\n")
	return t.flush()
}

// vrmlName turns s into a valid VRML node name.
func vrmlName(s string) string {
	out := []byte("mesh_")
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= 0x20 || c == 0x7f || c == '"' || c == '#' || c == '\'' || c == ',' || c == '.' ||
			c == '[' || c == '\\' || c == ']' || c == '{' || c == '}' || c == '+' || c == '-' {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}
