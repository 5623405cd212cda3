package convert

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	"cxbin-converter/internal/cxbin"
	"cxbin-converter/internal/export"
	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

// Stage names where a job failed.
const (
	StageReading   = "reading"
	StageExporting = "exporting"
)

// Job is one container to convert.
type Job struct {
	Input           string
	Format          export.Spec
	OutputDir       string
	OutputName      string
	Zip             export.ZipMode
	IncludeGeometry bool // embed vertex and face arrays and texture bytes in the report
	Preview         bool

	// OnStage, when set, is called as the job enters StageReading and
	// StageExporting.
	OnStage func(stage string)
}

func (j *Job) enter(stage string) {
	if j.OnStage != nil {
		j.OnStage(stage)
	}
}

// Report is the outcome of one Job.
type Report struct {
	Input         string         `json:"input"`
	Format        string         `json:"format"`
	ZipMode       export.ZipMode `json:"zip_mode"`
	Success       bool           `json:"success"`
	FailedStage   string         `json:"failed_stage,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	Error         *string        `json:"error"`
	Outputs       []string       `json:"outputs"`
	BundleFiles   []string       `json:"bundle_files"`
	Preview       string         `json:"preview,omitempty"`
	Stats         Stats          `json:"stats"`
	Materials     MaterialInfo   `json:"materials"`
	Geometry      *Geometry      `json:"geometry,omitempty"`
	GeometryError string         `json:"geometry_error,omitempty"` // why requested geometry is missing
	ElapsedMS     int64          `json:"elapsed_ms"`

	err error
}

// Err returns the error that failed the job, or nil.
func (r *Report) Err() error { return r.err }

// Stats are container and output sizes. Byte counts are nil when the
// container could not be read.
type Stats struct {
	Vertices          int    `json:"vertices"`
	Faces             int    `json:"faces"`
	CompressedBytes   *int64 `json:"compressed_bytes"`
	UncompressedBytes *int64 `json:"uncompressed_bytes"`
	OutputBytes       int64  `json:"output_bytes"`
	HeadCode          int32  `json:"head_code"`
	Version           int    `json:"version"`
}

// MaterialInfo summarizes the material section.
type MaterialInfo struct {
	Name           *string       `json:"name"`
	TextureCount   int           `json:"texture_count"`
	TexturesBase64 []TextureData `json:"textures_base64"`
}

// TextureData is one texture buffer as embedded in JSON reports.
type TextureData struct {
	IsPNG       bool    `json:"is_png"`
	SizeHint    *[2]int `json:"size_hint"`
	BytesBase64 string  `json:"bytes_base64"`
}

// Geometry is the full mesh, present only when requested.
type Geometry struct {
	Vertices [][3]float32 `json:"vertices"`
	Faces    [][3]uint32  `json:"faces"`
	UVs      [][2]float32 `json:"uvs"`
	FaceUVs  [][3]uint32  `json:"face_uvs"`
}

func (r *Report) fail(stage string, err error) {
	msg := err.Error()
	r.Success = false
	r.FailedStage = stage
	r.ErrorKind = Kind(err)
	r.Error = &msg
	r.err = err
}

func (r *Report) describe(m *mesh.Mesh, info cxbin.Info, embed bool) {
	compressed, uncompressed := info.CompressedBytes, info.UncompressedBytes
	r.Stats = Stats{
		Vertices:          len(m.Vertices),
		Faces:             len(m.Faces),
		CompressedBytes:   &compressed,
		UncompressedBytes: &uncompressed,
		HeadCode:          info.HeadCode,
		Version:           info.Version,
	}

	r.Materials = MaterialInfo{TexturesBase64: []TextureData{}}
	if m.Material != nil {
		name := m.Material.Name
		r.Materials.Name = &name
		r.Materials.TextureCount = len(m.Material.Textures)
	}
	if !embed {
		return
	}
	for _, t := range m.Textures() {
		r.Materials.TexturesBase64 = append(r.Materials.TexturesBase64, embedTexture(t))
	}
	if err := checkFinite(m); err != nil {
		r.GeometryError = err.Error()
		return
	}
	r.Geometry = &Geometry{
		Vertices: m.Vertices,
		Faces:    m.Faces,
		UVs:      m.UVs,
		FaceUVs:  m.FaceUVs,
	}
}

// embedTexture encodes t for the report. Raw RGBA maps are stored as PNG,
// keeping their size as a hint; undecodable maps are stored as they are.
func embedTexture(t mesh.Texture) TextureData {
	td := TextureData{IsPNG: t.IsPNG()}
	data := t.Data
	if t.Encoding == mesh.EncodingRGBA {
		td.SizeHint = &[2]int{t.Width, t.Height}
		if img, err := texture.Decode(t); err == nil {
			var buf bytes.Buffer
			if err := texture.Encode(&buf, img, texture.PNG); err == nil {
				data, td.IsPNG = buf.Bytes(), true
			}
		}
	}
	td.BytesBase64 = base64.StdEncoding.EncodeToString(data)
	return td
}

// checkFinite rejects coordinates JSON cannot carry.
func checkFinite(m *mesh.Mesh) error {
	for i, v := range m.Vertices {
		for _, c := range v {
			if !isFinite(c) {
				return fmt.Errorf("vertex %d has a non-finite coordinate", i)
			}
		}
	}
	for i, uv := range m.UVs {
		if !isFinite(uv[0]) || !isFinite(uv[1]) {
			return fmt.Errorf("uv %d has a non-finite coordinate", i)
		}
	}
	return nil
}

func isFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
