package mesh

// Mesh is the canonical in-memory geometry shared by the container reader and
// every exporter. Faces are triangles indexing Vertices; FaceUVs, when present,
// has one entry per face indexing UVs.
type Mesh struct {
	Vertices   [][3]float32
	Faces      [][3]uint32
	UVs        [][2]float32
	FaceUVs    [][3]uint32
	Normals    [][3]float32 // per vertex, optional
	TextureIDs []int32
	Material   *Material
}

// Material holds what the container carries besides geometry.
// Blocks are opaque vendor records kept for inspection.
type Material struct {
	Name     string
	Blocks   [][]byte
	Textures []Texture
}

// Encoding describes how Texture.Data is stored.
type Encoding int

const (
	// EncodingImage is an encoded image file (PNG, JPEG, TGA, ...).
	EncodingImage Encoding = iota
	// EncodingRGBA is raw 8-bit RGBA pixels, Width*Height*4 bytes.
	EncodingRGBA
)

func (e Encoding) String() string {
	switch e {
	case EncodingImage:
		return "image"
	case EncodingRGBA:
		return "rgba"
	}
	return "unknown"
}

// Texture is one texture map as stored in the container.
type Texture struct {
	Data     []byte
	Encoding Encoding
	Width    int // known for EncodingRGBA only
	Height   int
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// IsPNG reports whether the texture is already a PNG file.
func (t Texture) IsPNG() bool {
	if t.Encoding != EncodingImage || len(t.Data) < len(pngSignature) {
		return false
	}
	return string(t.Data[:len(pngSignature)]) == string(pngSignature)
}

// Textures returns the material's textures, or nil.
func (m *Mesh) Textures() []Texture {
	if m.Material == nil {
		return nil
	}
	return m.Material.Textures
}
