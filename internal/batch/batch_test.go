package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/cxbin"
	"cxbin-converter/internal/export"
	"cxbin-converter/internal/mesh"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func container(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := cxbin.Encode(&buf, mesh.Cube(2), cxbin.EncodeOptions{}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func config(t *testing.T, format string, workers int) Config {
	t.Helper()
	table := export.DefaultTable()
	spec, err := table.Parse(format)
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		Converter: convert.New(export.NewDispatcher(table, export.Options{}), convert.Options{}),
		Job:       convert.Job{Format: spec},
		Workers:   workers,
	}
}

func TestGather(t *testing.T) {
	dir := t.TempDir()
	good := container(t)
	writeFile(t, filepath.Join(dir, "b.cxbin"), good)
	writeFile(t, filepath.Join(dir, "A.CXBIN"), good)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))
	writeFile(t, filepath.Join(dir, "sub", "c.cxbin"), good)

	flat, err := Gather(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "A.CXBIN"), filepath.Join(dir, "b.cxbin")}
	if strings.Join(flat, "|") != strings.Join(want, "|") {
		t.Fatalf("flat = %v", flat)
	}

	deep, err := Gather(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deep) != 3 || deep[2] != filepath.Join(dir, "sub", "c.cxbin") {
		t.Fatalf("recursive = %v", deep)
	}

	// An explicit file is taken whatever its extension.
	single, err := Gather(filepath.Join(dir, "notes.txt"), false)
	if err != nil || len(single) != 1 {
		t.Fatalf("single = %v, %v", single, err)
	}

	_, err = Gather(filepath.Join(dir, "missing"), false)
	var ioe *convert.IOError
	if !errors.As(err, &ioe) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing root: %v", err)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	for _, workers := range []int{1, 4} {
		dir := t.TempDir()
		good := container(t)
		var inputs []string
		for i, name := range []string{"a", "b", "c", "d", "e"} {
			data := good
			if i == 1 || i == 3 {
				data = good[:len(good)/2]
			}
			path := filepath.Join(dir, name+".cxbin")
			writeFile(t, path, data)
			inputs = append(inputs, path)
		}

		var mu sync.Mutex
		seen := map[int]bool{}
		cfg := config(t, "stl", workers)
		cfg.OnReport = func(i int, r convert.Report) {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}

		reports, err := Run(context.Background(), cfg, inputs)
		var pbf *convert.PartialBatchFailure
		if !errors.As(err, &pbf) || pbf.Failed != 2 || pbf.Total != 5 {
			t.Fatalf("workers=%d: err = %v", workers, err)
		}
		if len(reports) != 5 || len(seen) != 5 {
			t.Fatalf("workers=%d: %d reports, %d callbacks", workers, len(reports), len(seen))
		}
		for i, r := range reports {
			if r.Input != inputs[i] {
				t.Fatalf("report %d is for %s", i, r.Input)
			}
			wantOK := i != 1 && i != 3
			if r.Success != wantOK {
				t.Fatalf("workers=%d: report %d success = %v (%v)", workers, i, r.Success, r.Err())
			}
			if !wantOK && r.ErrorKind != convert.KindDecode {
				t.Fatalf("report %d kind = %q", i, r.ErrorKind)
			}
		}
	}
}

func TestRunStages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cxbin")
	writeFile(t, path, container(t))

	var got []string
	cfg := config(t, "off", 1)
	cfg.OnStage = func(input string, s Stage) {
		got = append(got, s.String())
	}
	if _, err := Run(context.Background(), cfg, []string{path}); err != nil {
		t.Fatal(err)
	}
	want := "idle,enumerating,reading,exporting,reporting,done"
	if strings.Join(got, ",") != want {
		t.Fatalf("stages = %v", got)
	}
}

func TestRunEmpty(t *testing.T) {
	reports, err := Run(context.Background(), config(t, "stl", 1), nil)
	if err != nil || len(reports) != 0 {
		t.Fatalf("reports = %v, err = %v", reports, err)
	}
}

func TestRunMatrix(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.cxbin")
	bad := filepath.Join(dir, "bad.cxbin")
	writeFile(t, good, container(t))
	writeFile(t, bad, []byte{1, 2, 3})

	table := export.DefaultTable()
	var formats []export.Spec
	for _, name := range []string{"stl", "obj", "gltf"} {
		s, _ := table.Parse(name)
		formats = append(formats, s)
	}

	rep, err := RunMatrix(context.Background(), config(t, "stl", 1), []string{bad, good}, formats)
	var pbf *convert.PartialBatchFailure
	if !errors.As(err, &pbf) || pbf.Failed != 3 || pbf.Total != 6 {
		t.Fatalf("err = %v", err)
	}
	if rep.RunID == "" || strings.Join(rep.FormatsRun, ",") != "stl,obj,gltf" {
		t.Fatalf("report = %+v", rep)
	}
	for _, r := range rep.Items[good] {
		if !r.Success {
			t.Fatalf("%s failed: %v", r.Format, r.Err())
		}
	}
	for _, sub := range []string{"good_obj", "good_gltf"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Fatalf("bundle %s: %v", sub, err)
		}
	}

	out := filepath.Join(dir, "reports", "batch_results.json")
	if err := WriteMatrixReport(out, rep); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var back struct {
		Items map[string][]map[string]any `json:"items"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Items[bad]) != 3 || back.Items[bad][0]["error_kind"] != "decode" {
		t.Fatalf("items = %v", back.Items[bad])
	}
}
