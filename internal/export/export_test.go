package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/hschendel/stl"
	"github.com/klauspost/compress/zip"
	"github.com/qmuntal/gltf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"cxbin-converter/internal/mesh"
	"cxbin-converter/internal/texture"
)

func gradient() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

// imageEncoders produce the encoded texture buffers a container may carry.
var imageEncoders = map[string]func(io.Writer, image.Image) error{
	"png":  png.Encode,
	"jpeg": func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) },
	"bmp":  bmp.Encode,
	"tga":  tga.Encode,
	"webp": func(w io.Writer, img image.Image) error { return nativewebp.Encode(w, img, nil) },
}

func encodedTexture(t *testing.T, kind string) mesh.Texture {
	t.Helper()
	var buf bytes.Buffer
	if err := imageEncoders[kind](&buf, gradient()); err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	return mesh.Texture{Data: buf.Bytes(), Encoding: mesh.EncodingImage}
}

func pngTexture(t *testing.T) mesh.Texture {
	t.Helper()
	return encodedTexture(t, "png")
}

func texturedCube(t *testing.T) *mesh.Mesh {
	m := mesh.Cube(10)
	m.UVs = [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	m.FaceUVs = make([][3]uint32, len(m.Faces))
	for i := range m.FaceUVs {
		if i%2 == 0 {
			m.FaceUVs[i] = [3]uint32{0, 1, 2}
		} else {
			m.FaceUVs[i] = [3]uint32{0, 2, 3}
		}
	}
	m.Material = &mesh.Material{Name: "PLA white\x00\x00", Textures: []mesh.Texture{pngTexture(t)}}
	return m
}

func export(t *testing.T, m *mesh.Mesh, format string, zip ZipMode, opts Options) (Result, string) {
	t.Helper()
	table := DefaultTable()
	spec, err := table.Parse(format)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	res, err := NewDispatcher(table, opts).Export(context.Background(), m, Request{
		Input:     filepath.Join(dir, "part.cxbin"),
		Spec:      spec,
		OutputDir: dir,
		Zip:       zip,
	})
	if err != nil {
		t.Fatalf("Export(%s): %v", format, err)
	}
	return res, dir
}

func TestTableParse(t *testing.T) {
	table := DefaultTable()
	for name, want := range map[string]Format{
		"stl": STL, "STL": STL, ".glb": GLB, "wrl": VRML, "collada": DAE,
		"3MF": ThreeMF, " obj ": OBJ, "gltf": GLTF,
	} {
		s, err := table.Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if s.Format != want {
			t.Fatalf("Parse(%q) = %v, want %v", name, s.Format, want)
		}
	}

	_, err := table.Parse("fbx")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ufe.Name != "fbx" || len(ufe.Valid) != table.Len() {
		t.Fatalf("error = %+v", ufe)
	}
}

func TestTableMultiFileFormats(t *testing.T) {
	var multi []string
	for _, s := range DefaultTable().Specs() {
		if s.Multi {
			multi = append(multi, s.Name)
		}
	}
	if strings.Join(multi, ",") != "gltf,obj" {
		t.Fatalf("multi-file formats = %v", multi)
	}
}

func TestPlanOutputs(t *testing.T) {
	table := DefaultTable()
	stlSpec, _ := table.Parse("stl")
	objSpec, _ := table.Parse("obj")
	input := filepath.Join("in", "part.cxbin")

	tests := []struct {
		name string
		req  Request
		want Plan
	}{
		{
			name: "defaults",
			req:  Request{Input: input, Spec: stlSpec},
			want: Plan{BaseDir: "in", BaseName: "part", File: filepath.Join("in", "part.stl")},
		},
		{
			name: "template",
			req:  Request{Input: input, Spec: stlSpec, OutputDir: "out", OutputName: "{stem}_{fmt}"},
			want: Plan{BaseDir: "out", BaseName: "part_stl", File: filepath.Join("out", "part_stl.stl")},
		},
		{
			name: "template with extension",
			req:  Request{Input: input, Spec: stlSpec, OutputName: "{stem}.stl"},
			want: Plan{BaseDir: "in", BaseName: "part.stl", File: filepath.Join("in", "part.stl")},
		},
		{
			name: "bundle",
			req:  Request{Input: input, Spec: objSpec, OutputDir: "out"},
			want: Plan{BaseDir: "out", BaseName: "part", Bundle: filepath.Join("out", "part")},
		},
		{
			name: "zipped bundle",
			req:  Request{Input: input, Spec: objSpec, Zip: ZipOnly, OutputName: "{stem}-{fmt}"},
			want: Plan{
				BaseDir: "in", BaseName: "part-obj",
				Bundle: filepath.Join("in", "part-obj"), Zip: filepath.Join("in", "part-obj.zip"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlanOutputs(tt.req); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExportSTL(t *testing.T) {
	res, dir := export(t, mesh.Cube(10), "stl", ZipNone, Options{})
	if len(res.Outputs) != 1 || res.Outputs[0] != filepath.Join(dir, "part.stl") {
		t.Fatalf("outputs = %v", res.Outputs)
	}
	solid, err := stl.ReadFile(res.Outputs[0])
	if err != nil {
		t.Fatalf("stl.ReadFile: %v", err)
	}
	if len(solid.Triangles) != 12 {
		t.Fatalf("triangles = %d", len(solid.Triangles))
	}
	if res.Bytes != 84+12*50 {
		t.Fatalf("bytes = %d", res.Bytes)
	}
}

func TestExportPLY(t *testing.T) {
	res, _ := export(t, mesh.Cube(10), "ply", ZipNone, Options{})
	f, err := os.Open(res.Outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := ply.ReadMesh(f)
	if err != nil {
		t.Fatalf("ply.ReadMesh: %v", err)
	}
	if n := m.PrimitiveCount(); n != 12 {
		t.Fatalf("triangles = %d", n)
	}
	if n := len(m.View().Float3Data[modeling.PositionAttribute]); n != 8 {
		t.Fatalf("vertices = %d", n)
	}
}

func TestExportGLB(t *testing.T) {
	res, _ := export(t, texturedCube(t), "glb", ZipNone, Options{})
	doc, err := gltf.Open(res.Outputs[0])
	if err != nil {
		t.Fatalf("gltf.Open: %v", err)
	}
	prim := doc.Meshes[0].Primitives[0]
	// Face UVs flatten the mesh to one vertex per corner.
	if n := doc.Accessors[prim.Attributes[gltf.POSITION]].Count; n != 36 {
		t.Fatalf("positions = %d", n)
	}
	if _, ok := prim.Attributes[gltf.TEXCOORD_0]; !ok {
		t.Fatal("missing TEXCOORD_0")
	}
	if n := doc.Accessors[*prim.Indices].Count; n != 36 {
		t.Fatalf("indices = %d", n)
	}
	if len(doc.Images) != 1 || doc.Images[0].BufferView == nil {
		t.Fatalf("images = %+v", doc.Images)
	}
	if doc.Materials[0].Name != "PLA_white" {
		t.Fatalf("material = %q", doc.Materials[0].Name)
	}
}

func TestExportGLTFBundle(t *testing.T) {
	res, dir := export(t, texturedCube(t), "gltf", ZipNone, Options{TextureFormat: texture.WebP})
	bundle := filepath.Join(dir, "part")
	if len(res.Outputs) != 1 || res.Outputs[0] != bundle {
		t.Fatalf("outputs = %v", res.Outputs)
	}
	want := []string{
		filepath.Join(bundle, "part.gltf"),
		filepath.Join(bundle, "part.bin"),
		filepath.Join(bundle, "texture_0.png"),
	}
	if strings.Join(res.BundleFiles, "|") != strings.Join(want, "|") {
		t.Fatalf("bundle files = %v", res.BundleFiles)
	}
	doc, err := gltf.Open(want[0])
	if err != nil {
		t.Fatalf("gltf.Open: %v", err)
	}
	if doc.Images[0].URI != "texture_0.png" {
		t.Fatalf("image uri = %q", doc.Images[0].URI)
	}
}

func TestExportOBJBundle(t *testing.T) {
	res, dir := export(t, texturedCube(t), "obj", ZipNone, Options{TextureFormat: texture.WebP})
	bundle := filepath.Join(dir, "part")
	if len(res.BundleFiles) != 3 {
		t.Fatalf("bundle files = %v", res.BundleFiles)
	}

	obj, err := os.ReadFile(filepath.Join(bundle, "part.obj"))
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, line := range strings.Split(string(obj), "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			counts[f[0]]++
		}
	}
	if counts["v"] != 8 || counts["vt"] != 4 || counts["vn"] != 8 || counts["f"] != 12 || counts["mtllib"] != 1 {
		t.Fatalf("obj records = %v", counts)
	}
	if !strings.Contains(string(obj), "f 1/1/1 ") {
		t.Fatalf("unexpected face encoding:\n%s", obj)
	}

	mtl, err := os.ReadFile(filepath.Join(bundle, "part.mtl"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(mtl), "map_Kd texture_0.webp") {
		t.Fatalf("mtl:\n%s", mtl)
	}
	if _, err := os.Stat(filepath.Join(bundle, "texture_0.webp")); err != nil {
		t.Fatal(err)
	}
}

func TestExportBundleSkipsBadTextures(t *testing.T) {
	m := mesh.Cube(1)
	m.Material = &mesh.Material{Textures: []mesh.Texture{{Data: []byte("junk")}}}
	res, _ := export(t, m, "obj", ZipNone, Options{})
	if len(res.BundleFiles) != 2 {
		t.Fatalf("bundle files = %v", res.BundleFiles)
	}
}

func decodeFile(t *testing.T, path string, f texture.Format) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var img image.Image
	if f == texture.WebP {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		t.Fatalf("%s is not a %s file: %v", path, f, err)
	}
	return img
}

func TestExportTextureEncodings(t *testing.T) {
	for kind := range imageEncoders {
		t.Run(kind, func(t *testing.T) {
			m := texturedCube(t)
			m.Material.Textures = []mesh.Texture{encodedTexture(t, kind)}

			for _, tf := range []texture.Format{texture.PNG, texture.WebP} {
				_, dir := export(t, m, "obj", ZipNone, Options{TextureFormat: tf})
				img := decodeFile(t, filepath.Join(dir, "part", textureName(0, tf)), tf)
				if img.Bounds().Dx() != 4 {
					t.Fatalf("obj %s texture bounds = %v", tf, img.Bounds())
				}
			}

			_, dir := export(t, m, "gltf", ZipNone, Options{})
			decodeFile(t, filepath.Join(dir, "part", "texture_0.png"), texture.PNG)

			res, _ := export(t, m, "obj", ZipOnly, Options{TextureFormat: texture.WebP})
			names := strings.Join(zipNames(t, res.Outputs[0]), "|")
			if !strings.Contains(names, "part/texture_0.webp") {
				t.Fatalf("zip entries = %s", names)
			}

			res, _ = export(t, m, "glb", ZipNone, Options{})
			doc, err := gltf.Open(res.Outputs[0])
			if err != nil {
				t.Fatalf("gltf.Open: %v", err)
			}
			if len(doc.Images) != 1 || doc.Images[0].BufferView == nil {
				t.Fatalf("glb images = %+v", doc.Images)
			}
			bv := doc.BufferViews[*doc.Images[0].BufferView]
			data := doc.Buffers[bv.Buffer].Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
			if _, err := png.Decode(bytes.NewReader(data)); err != nil {
				t.Fatalf("glb image is not PNG: %v", err)
			}
		})
	}
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("zip.OpenReader: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestZipModes(t *testing.T) {
	for _, mode := range []ZipMode{ZipKeep, ZipOnly} {
		t.Run(mode.String(), func(t *testing.T) {
			res, dir := export(t, texturedCube(t), "obj", mode, Options{})
			zipPath := filepath.Join(dir, "part.zip")
			if len(res.Outputs) != 1 || res.Outputs[0] != zipPath {
				t.Fatalf("outputs = %v", res.Outputs)
			}
			names := zipNames(t, zipPath)
			if strings.Join(names, ",") != "part/part.mtl,part/part.obj,part/texture_0.png" {
				t.Fatalf("zip entries = %v", names)
			}
			if len(res.BundleFiles) != 3 {
				t.Fatalf("bundle files = %v", res.BundleFiles)
			}

			_, err := os.Stat(filepath.Join(dir, "part"))
			if mode == ZipKeep && err != nil {
				t.Fatalf("zip mode removed the bundle: %v", err)
			}
			if mode == ZipOnly && !os.IsNotExist(err) {
				t.Fatalf("zip-only kept the bundle: %v", err)
			}
		})
	}
}

func TestZipOnlyRemovesBundleOnFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the zip makes packaging fail.
	if err := os.Mkdir(filepath.Join(dir, "part.zip"), 0o755); err != nil {
		t.Fatal(err)
	}
	spec, _ := DefaultTable().Parse("gltf")
	_, err := NewDispatcher(DefaultTable(), Options{}).Export(context.Background(), mesh.Cube(1), Request{
		Input: filepath.Join(dir, "part.cxbin"),
		Spec:  spec,
		Zip:   ZipOnly,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(filepath.Join(dir, "part")); !os.IsNotExist(err) {
		t.Fatalf("bundle left behind: %v", err)
	}
}

func TestExport3MF(t *testing.T) {
	res, _ := export(t, mesh.Cube(10), "3mf", ZipNone, Options{})
	zr, err := zip.OpenReader(res.Outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var model *zip.File
	for _, f := range zr.File {
		if f.Name == threeMFModelPath {
			model = f
		}
	}
	if model == nil {
		t.Fatalf("no %s in package", threeMFModelPath)
	}
	rc, err := model.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	var doc struct {
		Vertices  []struct{} `xml:"resources>object>mesh>vertices>vertex"`
		Triangles []struct{} `xml:"resources>object>mesh>triangles>triangle"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Vertices) != 8 || len(doc.Triangles) != 12 {
		t.Fatalf("vertices=%d triangles=%d", len(doc.Vertices), len(doc.Triangles))
	}
}

func TestExportXMLFormatsAreWellFormed(t *testing.T) {
	for _, format := range []string{"amf", "x3d", "dae"} {
		t.Run(format, func(t *testing.T) {
			res, _ := export(t, texturedCube(t), format, ZipNone, Options{})
			f, err := os.Open(res.Outputs[0])
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			dec := xml.NewDecoder(f)
			for {
				if _, err := dec.Token(); err == io.EOF {
					break
				} else if err != nil {
					t.Fatalf("malformed %s: %v", format, err)
				}
			}
		})
	}
}

func TestExportTextFormats(t *testing.T) {
	res, _ := export(t, mesh.Cube(1), "off", ZipNone, Options{})
	off, _ := os.ReadFile(res.Outputs[0])
	lines := strings.Split(strings.TrimSpace(string(off)), "\n")
	if lines[0] != "OFF" || lines[1] != "8 12 0" || len(lines) != 2+8+12 {
		t.Fatalf("off header = %q, %d lines", lines[:2], len(lines))
	}

	res, _ = export(t, mesh.Cube(1), "wrl", ZipNone, Options{})
	if filepath.Ext(res.Outputs[0]) != ".wrl" {
		t.Fatalf("vrml output = %s", res.Outputs[0])
	}
	wrl, _ := os.ReadFile(res.Outputs[0])
	if !strings.HasPrefix(string(wrl), "#VRML V2.0 utf8") || strings.Count(string(wrl), "-1,") != 12 {
		t.Fatalf("vrml:\n%s", wrl)
	}
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec, _ := DefaultTable().Parse("stl")
	_, err := NewDispatcher(DefaultTable(), Options{}).Export(ctx, mesh.Cube(1), Request{Input: "x.cxbin", Spec: spec})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
