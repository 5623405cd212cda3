package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/export"
)

// MatrixReport is the outcome of converting every input into every format.
type MatrixReport struct {
	RunID      string                      `json:"run_id"`
	ZipMode    export.ZipMode              `json:"zip_mode"`
	FormatsRun []string                    `json:"formats_run"`
	Items      map[string][]convert.Report `json:"items"`
	Total      int                         `json:"total"`
	Failed     int                         `json:"failed"`
}

// RunMatrix converts each input into each of formats. cfg.Job supplies
// everything but the input and the format. The error is a
// *convert.PartialBatchFailure when any conversion failed.
func RunMatrix(ctx context.Context, cfg Config, inputs []string, formats []export.Spec) (MatrixReport, error) {
	rep := MatrixReport{
		RunID:   uuid.NewString(),
		ZipMode: cfg.Job.Zip,
		Items:   make(map[string][]convert.Report, len(inputs)),
	}
	for _, f := range formats {
		rep.FormatsRun = append(rep.FormatsRun, f.Name)
	}

	for _, f := range formats {
		fc := cfg
		fc.Job.Format = f
		if f.Multi && fc.Job.OutputName == "" {
			// Bundles of different formats would share a directory name.
			fc.Job.OutputName = "{stem}_{fmt}"
		}
		reports, err := Run(ctx, fc, inputs)
		if err != nil && convert.Kind(err) != convert.KindPartialBatch {
			return rep, err
		}
		for i, r := range reports {
			rep.Items[inputs[i]] = append(rep.Items[inputs[i]], r)
			rep.Total++
			if !r.Success {
				rep.Failed++
			}
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
	}
	if rep.Failed > 0 {
		return rep, &convert.PartialBatchFailure{Failed: rep.Failed, Total: rep.Total}
	}
	return rep, nil
}

// WriteMatrixReport writes rep as indented JSON.
func WriteMatrixReport(path string, rep MatrixReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode matrix report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &convert.IOError{Op: "write", Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &convert.IOError{Op: "write", Path: path, Err: unwrapPath(err)}
	}
	return nil
}
