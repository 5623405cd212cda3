package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/export"
)

func sample() []convert.Report {
	size := int64(240)
	msg := "cxbin: geometry section at offset 16: truncated"
	name := "PLA"
	return []convert.Report{
		{
			Input: "a.cxbin", Format: "obj", Success: true,
			Outputs:     []string{"a"},
			BundleFiles: []string{"a/a.obj", "a/a.mtl"},
			Stats:       convert.Stats{Vertices: 8, Faces: 12, CompressedBytes: &size, UncompressedBytes: &size},
			Materials: convert.MaterialInfo{
				Name: &name, TextureCount: 1,
				TexturesBase64: []convert.TextureData{{IsPNG: true, BytesBase64: "iVBO"}},
			},
			Geometry: &convert.Geometry{Vertices: [][3]float32{{1, 2, 3}}},
		},
		{Input: "b.cxbin", Format: "obj", FailedStage: "reading", ErrorKind: "decode", Error: &msg},
	}
}

func TestTextMode(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{Out: &buf}
	for i, rep := range sample() {
		r.Progress(i+1, 2, rep.Input)
		r.Report(rep)
	}
	if _, err := r.End(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "|_____|") != 1 {
		t.Fatal("banner missing or repeated")
	}
	for _, want := range []string{"[1/2] Converting: a.cxbin", "Format:        OBJ", "Files:         a/a.obj, a/a.mtl",
		"Textures:      1", "Error: cxbin: geometry", "Done."} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestJSONModeHasNoBanner(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{Out: &buf, JSON: true}
	for i, rep := range sample() {
		r.Progress(i+1, 2, rep.Input)
		r.Report(rep)
	}
	env, err := r.End()
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		RunID   string           `json:"run_id"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not a single JSON document: %v\n%s", err, buf.String())
	}
	if got.RunID == "" || got.RunID != env.RunID || len(got.Results) != 2 {
		t.Fatalf("envelope = %+v", got)
	}
	if _, ok := got.Results[0]["geometry"]; ok {
		t.Fatal("geometry embedded without --json-geometry")
	}
	mats := got.Results[0]["materials"].(map[string]any)
	if tex := mats["textures_base64"].([]any); len(tex) != 0 {
		t.Fatalf("textures embedded without --json-geometry: %v", tex)
	}
	if got.Results[1]["success"] != false || got.Results[1]["error_kind"] != "decode" {
		t.Fatalf("failed report = %v", got.Results[1])
	}
}

func TestJSONGeometry(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{Out: &buf, JSON: true, Geometry: true}
	r.Report(sample()[0])
	if _, err := r.End(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"geometry":{"vertices":[[1,2,3]]`) {
		t.Fatalf("geometry missing: %s", buf.String())
	}
}

func TestFailJSON(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{Out: &buf, JSON: true}
	r.Fail("no .cxbin files found")
	if _, err := r.End(); err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Error != "no .cxbin files found" || len(env.Results) != 0 {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestListFormats(t *testing.T) {
	var text bytes.Buffer
	if err := ListFormats(&text, export.DefaultTable(), false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "multi-file:  gltf, obj") || !strings.Contains(text.String(), "aliases: wrl") {
		t.Fatalf("text:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := ListFormats(&js, export.DefaultTable(), true); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Formats []struct {
			Name      string `json:"name"`
			MultiFile bool   `json:"multi_file"`
		} `json:"formats"`
	}
	if err := json.Unmarshal(js.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Formats) != export.DefaultTable().Len() {
		t.Fatalf("formats = %+v", got.Formats)
	}
}

func TestJSONGeometryNonFinite(t *testing.T) {
	reps := sample()
	bad := reps[0]
	bad.Input = "nan.cxbin"
	bad.Geometry = &convert.Geometry{Vertices: [][3]float32{{float32(math.NaN()), 0, 0}}}

	var buf bytes.Buffer
	r := &Renderer{Out: &buf, JSON: true, Geometry: true}
	r.Report(bad)
	r.Report(reps[0])
	if _, err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, buf.String())
	}
	if len(env.Results) != 2 {
		t.Fatalf("results = %d", len(env.Results))
	}
	if env.Results[0].Geometry != nil || env.Results[0].GeometryError == "" {
		t.Fatalf("bad report = %+v", env.Results[0])
	}
	if env.Results[1].Geometry == nil || env.Results[1].GeometryError != "" {
		t.Fatalf("good report = %+v", env.Results[1])
	}
}

func TestBannerPrintedVerbatim(t *testing.T) {
	var buf bytes.Buffer
	(&Renderer{Out: &buf}).Begin()
	if !strings.HasSuffix(buf.String(), "|_|\n") {
		t.Fatalf("banner tail = %q", buf.String()[len(buf.String())-10:])
	}
}
