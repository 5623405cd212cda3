package cxbin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"

	"cxbin-converter/internal/mesh"
)

// EncodeOptions selects the layout written by Encode.
type EncodeOptions struct {
	// Legacy writes the single-block layout (head code 1). Textures must then
	// be raw RGBA.
	Legacy bool
	// OmitVersion ends the file right after the geometry section when the
	// mesh has no material data.
	OmitVersion bool
}

// Encode writes m as a container. Meshes with UVs or a material get a
// version-1 material section.
func Encode(w io.Writer, m *mesh.Mesh, opts EncodeOptions) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("cxbin: encode: %w", err)
	}
	var buf bytes.Buffer
	head := int32(DefaultHeadCode)
	if opts.Legacy {
		head = LegacyHeadCode
	}
	putInts(&buf, head, 0, 0, 0)

	if opts.Legacy {
		if err := encodeLegacy(&buf, m); err != nil {
			return err
		}
	} else {
		if err := encodeGeometry(&buf, m); err != nil {
			return err
		}
		hasMaterial := m.Material != nil || len(m.UVs) > 0 || len(m.FaceUVs) > 0 || len(m.TextureIDs) > 0
		switch {
		case hasMaterial:
			putInts(&buf, VersionMaterials)
			if err := encodeMaterials(&buf, m); err != nil {
				return err
			}
		case !opts.OmitVersion:
			putInts(&buf, VersionPlain)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func putInts(buf *bytes.Buffer, vals ...int32) {
	var b [4]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
	}
}

func putFloats(buf *bytes.Buffer, vals ...float32) {
	var b [4]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}
}

func deflate(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("cxbin: deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("cxbin: deflate: %w", err)
	}
	return out.Bytes(), nil
}

func writeGeometry(buf *bytes.Buffer, m *mesh.Mesh) {
	for _, v := range m.Vertices {
		putFloats(buf, v[0], v[1], v[2])
	}
	for _, f := range m.Faces {
		putInts(buf, int32(f[0]), int32(f[1]), int32(f[2]))
	}
}

func encodeGeometry(buf *bytes.Buffer, m *mesh.Mesh) error {
	var raw bytes.Buffer
	writeGeometry(&raw, m)
	packed, err := deflate(raw.Bytes())
	if err != nil {
		return err
	}
	putInts(buf, int32(raw.Len()), int32(len(m.Vertices)), int32(len(m.Faces)), int32(len(packed)))
	buf.Write(packed)
	return nil
}

// writeAttributes writes the part of the payload shared by both layouts.
func writeAttributes(raw *bytes.Buffer, m *mesh.Mesh) {
	for _, uv := range m.UVs {
		putFloats(raw, uv[0], uv[1])
	}
	for _, f := range m.FaceUVs {
		putInts(raw, int32(f[0]), int32(f[1]), int32(f[2]))
	}
	putInts(raw, m.TextureIDs...)
	if m.Material != nil {
		for _, b := range m.Material.Blocks {
			raw.Write(b)
		}
		raw.WriteString(m.Material.Name)
	}
}

// attributeCounts returns uvNum..materialNum, sizes, nameLen, mapCount.
func attributeCounts(m *mesh.Mesh) []int32 {
	counts := []int32{int32(len(m.UVs)), int32(len(m.FaceUVs)), int32(len(m.TextureIDs))}
	var name string
	var blocks [][]byte
	var maps int
	if m.Material != nil {
		name, blocks, maps = m.Material.Name, m.Material.Blocks, len(m.Material.Textures)
	}
	counts = append(counts, int32(len(blocks)))
	for _, b := range blocks {
		counts = append(counts, int32(len(b)))
	}
	return append(counts, int32(len(name)), int32(maps))
}

func encodeMaterials(buf *bytes.Buffer, m *mesh.Mesh) error {
	var raw bytes.Buffer
	writeAttributes(&raw, m)
	for _, t := range m.Textures() {
		putInts(&raw, int32(len(t.Data)))
		raw.Write(t.Data)
	}
	packed, err := deflate(raw.Bytes())
	if err != nil {
		return err
	}
	putInts(buf, int32(raw.Len()))
	putInts(buf, attributeCounts(m)...)
	putInts(buf, int32(len(packed)))
	buf.Write(packed)
	return nil
}

func encodeLegacy(buf *bytes.Buffer, m *mesh.Mesh) error {
	var raw bytes.Buffer
	writeGeometry(&raw, m)
	writeAttributes(&raw, m)
	for i, t := range m.Textures() {
		if t.Encoding != mesh.EncodingRGBA {
			return fmt.Errorf("cxbin: encode: legacy texture %d is not raw RGBA", i)
		}
		putInts(&raw, int32(t.Width), int32(t.Height))
		raw.Write(t.Data)
	}
	packed, err := deflate(raw.Bytes())
	if err != nil {
		return err
	}
	putInts(buf, int32(raw.Len()), int32(len(m.Vertices)), int32(len(m.Faces)))
	putInts(buf, attributeCounts(m)...)
	putInts(buf, int32(len(packed)))
	buf.Write(packed)
	return nil
}
