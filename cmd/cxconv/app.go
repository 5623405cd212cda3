package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"cxbin-converter/internal/batch"
	"cxbin-converter/internal/config"
	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/export"
	"cxbin-converter/internal/logging"
	"cxbin-converter/internal/report"
	"cxbin-converter/internal/texture"
	"cxbin-converter/internal/viewmatrix"
)

type options struct {
	configPath    string
	format        string
	outputDir     string
	outputName    string
	zip           bool
	zipOnly       bool
	recursive     bool
	workers       int
	textureFormat string
	logLevel      string
	preview       bool
	previewView   string
	jsonOut       bool

	listFormats  bool
	jsonGeometry bool
	reportFile   string
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	opts   options
}

// session is everything a command needs once flags and config are resolved.
type session struct {
	cfg  config.Config
	log  *log.Logger
	conv *convert.Converter
	job  convert.Job
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cxconv [input]",
		Short: "Convert CXBIN slicer mesh containers to standard 3D formats",
		Long: `cxconv reads .cxbin mesh containers written by 3D printer slicers and exports
their geometry, UVs, materials and textures as STL, PLY, OBJ, glTF, GLB, OFF,
3MF, AMF, X3D, VRML or COLLADA.

The input is a single container or a directory of them. Multi-file formats
(obj, gltf) write a bundle directory that can be zipped with --zip or
--zip-only.

Exit status is 0 when every conversion succeeded, 1 when any conversion
failed or a file could not be read or written, and 2 for usage errors such as
an unknown format or an input without containers.`,
		Version:       "1.0.0",
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd, args)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "config file (.toml or .json); default: cxconv.toml next to the binary or in the working directory")
	pf.StringVarP(&a.opts.format, "format", "f", "", "output format, see --list-formats (default stl)")
	pf.StringVarP(&a.opts.outputDir, "output-dir", "o", "", "output directory (default: the input's directory)")
	pf.StringVar(&a.opts.outputName, "output-name", "", "output base name; supports {stem} and {fmt}")
	pf.BoolVar(&a.opts.zip, "zip", false, "zip multi-file outputs (obj, gltf) after export")
	pf.BoolVar(&a.opts.zipOnly, "zip-only", false, "zip multi-file outputs and remove the bundle directory")
	pf.BoolVarP(&a.opts.recursive, "recursive", "r", false, "search subdirectories when the input is a directory")
	pf.IntVar(&a.opts.workers, "workers", 0, "number of files converted in parallel (default 1)")
	pf.StringVar(&a.opts.textureFormat, "texture-format", "", "encoding of OBJ bundle textures: png or webp (default png)")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn or error (default info)")
	pf.BoolVar(&a.opts.preview, "preview", false, "also render a <name>.preview.webp thumbnail")
	pf.StringVar(&a.opts.previewView, "preview-view", "", "preview camera: iso, front, back, left, right, top, bottom or rx,ry,rz in degrees")
	pf.BoolVar(&a.opts.jsonOut, "json", false, "print a single JSON document to stdout instead of text")

	f := cmd.Flags()
	f.BoolVar(&a.opts.listFormats, "list-formats", false, "list supported export formats and exit")
	f.BoolVar(&a.opts.jsonGeometry, "json-geometry", false, "include vertices, faces, UVs and texture bytes in the JSON output")
	f.StringVar(&a.opts.reportFile, "report-file", "", "also write the JSON report to this file")

	cmd.AddCommand(a.matrixCommand(), a.watchCommand())
	return cmd
}

// setup resolves config and flags, then builds the logger and converter.
func (a *app) setup() (*session, error) {
	path := a.opts.configPath
	if path == "" {
		path = config.Discover()
	}
	var cfg config.Config
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, &usageError{err}
		}
	}

	zip := ""
	switch {
	case a.opts.zipOnly:
		zip = "zip-only"
	case a.opts.zip:
		zip = "zip"
	}
	cfg.Resolve(config.Flags{
		Format:        a.opts.format,
		OutputDir:     a.opts.outputDir,
		OutputName:    a.opts.outputName,
		Zip:           zip,
		Recursive:     a.opts.recursive,
		Workers:       a.opts.workers,
		TextureFormat: a.opts.textureFormat,
		LogLevel:      a.opts.logLevel,
		ReportFile:    a.opts.reportFile,
		Preview:       a.opts.preview,
		PreviewView:   a.opts.previewView,
	})

	l, err := logging.New(a.stderr, logging.Options{Level: cfg.LogLevel, JSON: a.opts.jsonOut})
	if err != nil {
		return nil, &usageError{err}
	}
	if path != "" {
		l.Debug("config loaded", "path", path)
	}

	zipMode, err := export.ParseZipMode(cfg.Zip)
	if err != nil {
		return nil, &usageError{err}
	}
	texFormat, err := texture.ParseFormat(cfg.TextureFormat)
	if err != nil {
		return nil, &usageError{err}
	}

	view, err := viewmatrix.Parse(cfg.Preview.View)
	if err != nil {
		return nil, &usageError{err}
	}

	d := export.NewDispatcher(export.DefaultTable(), export.Options{TextureFormat: texFormat, Logger: l})
	spec, err := d.Table().Parse(cfg.Format)
	if err != nil {
		return nil, err
	}
	conv := convert.New(d, convert.Options{
		Preview: convert.PreviewOptions{
			Size:        cfg.Preview.Size,
			Supersample: cfg.Preview.Supersample,
			FillRatio:   cfg.Preview.FillRatio,
			View:        view,
		},
		Logger: l,
	})
	return &session{
		cfg:  cfg,
		log:  l,
		conv: conv,
		job: convert.Job{
			Format:          spec,
			OutputDir:       cfg.OutputDir,
			OutputName:      cfg.OutputName,
			Zip:             zipMode,
			IncludeGeometry: a.opts.jsonGeometry,
			Preview:         cfg.Preview.Enabled,
		},
	}, nil
}

// abort shows err through r and marks it as reported.
func abort(r *report.Renderer, err error) error {
	r.Fail(err.Error())
	if _, eerr := r.End(); eerr != nil {
		return eerr
	}
	return &reportedError{err}
}

func (a *app) convert(cmd *cobra.Command, args []string) error {
	if a.opts.listFormats {
		return report.ListFormats(a.stdout, export.DefaultTable(), a.opts.jsonOut)
	}

	r := &report.Renderer{Out: a.stdout, JSON: a.opts.jsonOut, Geometry: a.opts.jsonGeometry}
	if len(args) == 0 {
		if !a.opts.jsonOut {
			fmt.Fprint(a.stderr, cmd.UsageString())
		}
		return abort(r, &usageError{fmt.Errorf("no input provided")})
	}

	s, err := a.setup()
	if err != nil {
		return abort(r, err)
	}
	inputs, err := batch.Gather(args[0], s.cfg.Recursive)
	if err != nil {
		return abort(r, err)
	}
	if len(inputs) == 0 {
		return abort(r, errNoInputs)
	}
	s.log.Debug("converting", "inputs", len(inputs), "format", s.job.Format.Name, "zip", s.job.Zip)

	done := 0
	cfg := batch.Config{
		Converter: s.conv,
		Job:       s.job,
		Workers:   s.cfg.Workers,
		Logger:    s.log,
	}
	if !a.opts.jsonOut {
		cfg.OnReport = func(_ int, rep convert.Report) {
			done++
			r.Progress(done, len(inputs), rep.Input)
			r.Report(rep)
		}
	}
	reports, runErr := batch.Run(commandContext(cmd), cfg, inputs)
	if a.opts.jsonOut {
		for _, rep := range reports {
			r.Report(rep)
		}
	}
	if _, err := r.End(); err != nil {
		return err
	}

	if s.cfg.ReportFile != "" {
		env := report.Envelope{RunID: r.RunID(), Results: make([]convert.Report, 0, len(reports))}
		for _, rep := range reports {
			if !a.opts.jsonGeometry {
				rep = report.Compact(rep)
			}
			env.Results = append(env.Results, rep)
		}
		if err := report.WriteFile(s.cfg.ReportFile, env); err != nil {
			return err
		}
		s.log.Info("report written", "path", s.cfg.ReportFile)
	}

	if runErr != nil {
		s.log.Warn("batch finished with failures", "err", runErr)
		return &reportedError{runErr}
	}
	return nil
}

// commandContext returns the command context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
