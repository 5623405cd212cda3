package cxbin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"cxbin-converter/internal/mesh"
)

// ReadFile reads and decodes a container file.
func ReadFile(path string) (*mesh.Mesh, Info, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("cxbin: read %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode parses the raw bytes of a container. Every count and length in the
// file is checked against the bytes that actually remain before it is used.
func Decode(data []byte) (*mesh.Mesh, Info, error) {
	if len(data) < PreambleSize {
		return nil, Info{}, &DecodeError{
			Section: "header",
			Reason:  fmt.Sprintf("file is %d bytes, preamble needs %d", len(data), PreambleSize),
			Err:     ErrTruncated,
		}
	}
	head := int32(binary.LittleEndian.Uint32(data))
	if head < 0 || head > maxHeadCode {
		return nil, Info{}, &DecodeError{
			Section: "header",
			Reason:  fmt.Sprintf("head code %#x", uint32(head)),
			Err:     ErrBadMagic,
		}
	}

	r := &reader{data: data, off: PreambleSize, section: "header"}
	info := Info{HeadCode: head, Version: VersionNone}

	if head == LegacyHeadCode {
		info.Legacy = true
		info.Version = VersionMaterials
		m, err := r.legacy(&info)
		if err != nil {
			return nil, Info{}, err
		}
		return m, info, nil
	}

	m, err := r.geometry(&info)
	if err != nil {
		return nil, Info{}, err
	}

	if r.remaining() == 0 {
		return m, info, nil
	}
	r.section = "version"
	version, err := r.i32("version")
	if err != nil {
		return nil, Info{}, err
	}
	info.Version = version
	switch version {
	case VersionPlain:
	case VersionMaterials:
		if err := r.materials(m); err != nil {
			return nil, Info{}, err
		}
	default:
		return nil, Info{}, &DecodeError{
			Offset:  int64(r.off - 4),
			Section: "version",
			Reason:  fmt.Sprintf("version %d", version),
			Err:     ErrUnsupportedVersion,
		}
	}
	return m, info, nil
}

// reader is a bounds-checked little-endian cursor. For inflated payloads,
// origin is the file offset of the compressed bytes and offsets are reported
// relative to the payload.
type reader struct {
	data     []byte
	off      int
	section  string
	inflated bool
	origin   int64
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) errorf(at int, cause error, format string, args ...any) *DecodeError {
	reason := fmt.Sprintf(format, args...)
	if r.inflated {
		return &DecodeError{
			Offset:  r.origin,
			Section: r.section,
			Reason:  fmt.Sprintf("payload offset %d: %s", at, reason),
			Err:     cause,
		}
	}
	return &DecodeError{Offset: int64(at), Section: r.section, Reason: reason, Err: cause}
}

func (r *reader) i32(field string) (int, error) {
	if r.remaining() < 4 {
		return 0, r.errorf(r.off, ErrTruncated, "%s needs 4 bytes, %d left", field, r.remaining())
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return int(v), nil
}

// count reads a non-negative int32 field.
func (r *reader) count(field string) (int, error) {
	at := r.off
	v, err := r.i32(field)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, r.errorf(at, ErrBadLength, "%s is negative (%d)", field, v)
	}
	return v, nil
}

// take returns the next n bytes without copying.
func (r *reader) take(n int, what string) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.errorf(r.off, ErrTruncated, "%s needs %d bytes, %d left", what, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// elements guards n*size against the bytes left in the buffer.
func (r *reader) elements(n, size int, what string) ([]byte, error) {
	if n > r.remaining()/size {
		return nil, r.errorf(r.off, ErrTruncated, "%d %s need %d bytes, %d left", n, what, int64(n)*int64(size), r.remaining())
	}
	return r.take(n*size, what)
}

func (r *reader) vec3s(n int, what string) ([][3]float32, error) {
	b, err := r.elements(n, 12, what)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, n)
	for i := range out {
		for k := 0; k < 3; k++ {
			out[i][k] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*12+k*4:]))
		}
	}
	return out, nil
}

func (r *reader) vec2s(n int, what string) ([][2]float32, error) {
	b, err := r.elements(n, 8, what)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, n)
	for i := range out {
		out[i][0] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:]))
		out[i][1] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:]))
	}
	return out, nil
}

// triples reads n int32 index triples and checks each against limit.
func (r *reader) triples(n, limit int, what string) ([][3]uint32, error) {
	start := r.off
	b, err := r.elements(n, 12, what)
	if err != nil {
		return nil, err
	}
	out := make([][3]uint32, n)
	for i := range out {
		for k := 0; k < 3; k++ {
			idx := int32(binary.LittleEndian.Uint32(b[i*12+k*4:]))
			if idx < 0 || int(idx) >= limit {
				return nil, r.errorf(start+i*12+k*4, ErrIndexRange,
					"%s %d references %d, valid range [0,%d)", what, i, idx, limit)
			}
			out[i][k] = uint32(idx)
		}
	}
	return out, nil
}

func (r *reader) int32s(n int, what string) ([]int32, error) {
	b, err := r.elements(n, 4, what)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// inflate reads a compressed block of compressNum bytes that must expand to
// exactly want bytes, and returns a reader over the result.
func (r *reader) inflate(compressNum int, want int64) (*reader, error) {
	origin := r.off
	if want > int64(compressNum)*maxInflateRatio+64 {
		return nil, r.errorf(origin, ErrBadLength,
			"declared size %d cannot come from %d compressed bytes", want, compressNum)
	}
	block, err := r.take(compressNum, "compressed block")
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(block))
	if err != nil {
		return nil, r.errorf(origin, ErrCorrupt, "zlib header: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, want+1))
	if err != nil {
		return nil, r.errorf(origin, ErrCorrupt, "inflate: %v", err)
	}
	if int64(len(raw)) != want {
		return nil, r.errorf(origin, ErrBadLength, "inflated to %d bytes, expected %d", len(raw), want)
	}
	return &reader{data: raw, section: r.section, inflated: true, origin: int64(origin)}, nil
}

func (r *reader) geometry(info *Info) (*mesh.Mesh, error) {
	r.section = "geometry"
	if _, err := r.i32("total size"); err != nil {
		return nil, err
	}
	vertNum, err := r.count("vertex count")
	if err != nil {
		return nil, err
	}
	faceNum, err := r.count("face count")
	if err != nil {
		return nil, err
	}
	compressNum, err := r.count("compressed size")
	if err != nil {
		return nil, err
	}

	want := int64(vertNum)*12 + int64(faceNum)*12
	p, err := r.inflate(compressNum, want)
	if err != nil {
		return nil, err
	}
	info.CompressedBytes = int64(compressNum)
	info.UncompressedBytes = want

	m := &mesh.Mesh{}
	if m.Vertices, err = p.vec3s(vertNum, "vertices"); err != nil {
		return nil, err
	}
	if m.Faces, err = p.triples(faceNum, vertNum, "face"); err != nil {
		return nil, err
	}
	return m, nil
}

// materialHeader holds the counts shared by the material and legacy sections.
type materialHeader struct {
	total        int
	uvNum        int
	faceUVNum    int
	textureIDNum int
	sizes        []int
	nameLen      int
	mapCount     int
	compressNum  int
}

func (r *reader) materialCounts(h *materialHeader) error {
	var err error
	if h.uvNum, err = r.count("uv count"); err != nil {
		return err
	}
	if h.faceUVNum, err = r.count("face uv count"); err != nil {
		return err
	}
	if h.textureIDNum, err = r.count("texture id count"); err != nil {
		return err
	}
	at := r.off
	materialNum, err := r.count("material count")
	if err != nil {
		return err
	}
	if materialNum > r.remaining()/4 {
		return r.errorf(at, ErrTruncated, "%d material sizes do not fit in %d bytes", materialNum, r.remaining())
	}
	h.sizes = make([]int, materialNum)
	for i := range h.sizes {
		if h.sizes[i], err = r.count("material size"); err != nil {
			return err
		}
	}
	if h.nameLen, err = r.count("material name length"); err != nil {
		return err
	}
	if h.mapCount, err = r.count("map count"); err != nil {
		return err
	}
	h.compressNum, err = r.count("compressed size")
	return err
}

// attributes reads UVs, face UVs, texture ids, material blocks and the
// material name from an inflated payload.
func (r *reader) attributes(h *materialHeader, m *mesh.Mesh) error {
	var err error
	if m.UVs, err = r.vec2s(h.uvNum, "uvs"); err != nil {
		return err
	}
	if m.FaceUVs, err = r.triples(h.faceUVNum, h.uvNum, "face uv"); err != nil {
		return err
	}
	if m.TextureIDs, err = r.int32s(h.textureIDNum, "texture ids"); err != nil {
		return err
	}
	mat := &mesh.Material{Blocks: make([][]byte, len(h.sizes))}
	for i, size := range h.sizes {
		b, err := r.take(size, "material block")
		if err != nil {
			return err
		}
		mat.Blocks[i] = bytes.Clone(b)
	}
	name, err := r.take(h.nameLen, "material name")
	if err != nil {
		return err
	}
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	mat.Name = strings.ToValidUTF8(string(name), "�")
	m.Material = mat

	if len(m.UVs) == 0 {
		m.UVs = nil
	}
	if len(m.FaceUVs) == 0 {
		m.FaceUVs = nil
	}
	if len(m.TextureIDs) == 0 {
		m.TextureIDs = nil
	}
	return nil
}

func (r *reader) materials(m *mesh.Mesh) error {
	r.section = "material"
	var h materialHeader
	var err error
	if h.total, err = r.count("total size"); err != nil {
		return err
	}
	if err := r.materialCounts(&h); err != nil {
		return err
	}
	p, err := r.inflate(h.compressNum, int64(h.total))
	if err != nil {
		return err
	}
	if err := p.attributes(&h, m); err != nil {
		return err
	}
	if len(m.FaceUVs) > 0 && len(m.FaceUVs) != len(m.Faces) {
		return r.errorf(int(p.origin), ErrBadLength, "%d face uvs for %d faces", len(m.FaceUVs), len(m.Faces))
	}

	// Texture buffers: (size, bytes) pairs. Truncated buffers are clamped.
	for i := 0; i < h.mapCount && p.remaining() >= 4; i++ {
		size, _ := p.i32("map size")
		size = min(max(size, 0), p.remaining())
		b, _ := p.take(size, "map")
		m.Material.Textures = append(m.Material.Textures, mesh.Texture{
			Data:     bytes.Clone(b),
			Encoding: mesh.EncodingImage,
		})
	}
	return nil
}

func (r *reader) legacy(info *Info) (*mesh.Mesh, error) {
	r.section = "legacy"
	var h materialHeader
	var err error
	if h.total, err = r.count("total size"); err != nil {
		return nil, err
	}
	vertNum, err := r.count("vertex count")
	if err != nil {
		return nil, err
	}
	faceNum, err := r.count("face count")
	if err != nil {
		return nil, err
	}
	if err := r.materialCounts(&h); err != nil {
		return nil, err
	}
	p, err := r.inflate(h.compressNum, int64(h.total))
	if err != nil {
		return nil, err
	}
	info.CompressedBytes = int64(h.compressNum)
	info.UncompressedBytes = int64(h.total)

	m := &mesh.Mesh{}
	if m.Vertices, err = p.vec3s(vertNum, "vertices"); err != nil {
		return nil, err
	}
	if m.Faces, err = p.triples(faceNum, vertNum, "face"); err != nil {
		return nil, err
	}
	if err := p.attributes(&h, m); err != nil {
		return nil, err
	}
	if len(m.FaceUVs) > 0 && len(m.FaceUVs) != len(m.Faces) {
		return nil, r.errorf(int(p.origin), ErrBadLength, "%d face uvs for %d faces", len(m.FaceUVs), len(m.Faces))
	}

	// Texture maps: width, height, then raw RGBA. Truncated pixels are clamped.
	for i := 0; i < h.mapCount && p.remaining() >= 8; i++ {
		w, _ := p.i32("map width")
		hgt, _ := p.i32("map height")
		tex := mesh.Texture{Encoding: mesh.EncodingRGBA, Width: w, Height: hgt}
		if w > 0 && hgt > 0 {
			n := int64(w) * int64(hgt) * 4
			if n > int64(p.remaining()) {
				n = int64(p.remaining())
			}
			b, _ := p.take(int(n), "map pixels")
			tex.Data = bytes.Clone(b)
		}
		m.Material.Textures = append(m.Material.Textures, tex)
	}
	return m, nil
}
