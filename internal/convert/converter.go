package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"cxbin-converter/internal/cxbin"
	"cxbin-converter/internal/export"
	"cxbin-converter/internal/logging"
	"cxbin-converter/internal/mesh"
)

// Options configures a Converter.
type Options struct {
	Preview PreviewOptions
	Logger  *log.Logger
}

// Converter reads containers and hands them to an export dispatcher.
type Converter struct {
	dispatcher *export.Dispatcher
	preview    PreviewOptions
	log        *log.Logger
}

// New returns a Converter writing through d.
func New(d *export.Dispatcher, opts Options) *Converter {
	l := opts.Logger
	if l == nil {
		l = logging.Discard()
	}
	return &Converter{dispatcher: d, preview: opts.Preview.withDefaults(), log: l}
}

// Dispatcher returns the dispatcher the converter writes through.
func (c *Converter) Dispatcher() *export.Dispatcher { return c.dispatcher }

// Convert runs one job. Failures are recorded in the report, never returned:
// check Report.Success or Report.Err.
func (c *Converter) Convert(ctx context.Context, job Job) (r Report) {
	start := time.Now()
	r = Report{
		Input:       job.Input,
		Format:      job.Format.Name,
		ZipMode:     job.Zip,
		Outputs:     []string{},
		BundleFiles: []string{},
		Materials:   MaterialInfo{TexturesBase64: []TextureData{}},
	}
	defer func() { r.ElapsedMS = time.Since(start).Milliseconds() }()

	l := c.log.With("input", job.Input, "format", job.Format.Name)

	if err := ctx.Err(); err != nil {
		r.fail(StageReading, err)
		return r
	}
	job.enter(StageReading)
	m, info, err := cxbin.ReadFile(job.Input)
	if err != nil {
		err = asIOError("read", err)
		l.Debug("read failed", "err", err)
		r.fail(StageReading, err)
		return r
	}
	r.describe(m, info, job.IncludeGeometry)
	l.Debug("decoded", "vertices", len(m.Vertices), "faces", len(m.Faces),
		"textures", len(m.Textures()), "legacy", info.Legacy, "version", info.Version)

	job.enter(StageExporting)
	res, err := c.dispatcher.Export(ctx, m, export.Request{
		Input:      job.Input,
		Spec:       job.Format,
		OutputDir:  job.OutputDir,
		OutputName: job.OutputName,
		Zip:        job.Zip,
	})
	r.BundleFiles = append(r.BundleFiles, res.BundleFiles...)
	if err != nil {
		err = asIOError("write", err)
		if Kind(err) == KindInternal {
			err = fmt.Errorf("export %s: %w", job.Format.Name, err)
		}
		l.Debug("export failed", "err", err)
		r.fail(StageExporting, err)
		return r
	}
	r.Outputs = append(r.Outputs, res.Outputs...)
	r.Stats.OutputBytes = res.Bytes
	r.Success = true

	if job.Preview {
		r.Preview = c.writePreview(m, res.Plan, l)
	}
	return r
}

// writePreview renders the thumbnail next to the outputs. A failed preview is
// logged and does not fail the job.
func (c *Converter) writePreview(m *mesh.Mesh, plan export.Plan, l *log.Logger) string {
	path := filepath.Join(plan.BaseDir, plan.BaseName+".preview.webp")
	if err := WritePreview(path, m, c.preview); err != nil {
		l.Warn("preview failed", "path", path, "err", err)
		return ""
	}
	return path
}
