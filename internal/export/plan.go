package export

import (
	"path/filepath"
	"strings"
)

// Request is one export of one decoded container.
type Request struct {
	Input      string // container path, used for the default directory and stem
	Spec       Spec
	OutputDir  string // empty: the input's directory
	OutputName string // optional template with {stem} and {fmt}
	Zip        ZipMode
}

// Plan is where a Request writes.
type Plan struct {
	BaseDir  string
	BaseName string
	File     string // single-file formats
	Bundle   string // multi-file formats
	Zip      string // multi-file formats with a zip mode
}

// Stem returns the input file name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RenderName expands {stem} and {fmt} in template. An empty template yields stem.
func RenderName(template, stem, format string) string {
	if template == "" {
		return stem
	}
	return strings.NewReplacer("{stem}", stem, "{fmt}", format).Replace(template)
}

// PlanOutputs computes the output locations without touching the filesystem.
func PlanOutputs(req Request) Plan {
	baseDir := req.OutputDir
	if baseDir == "" {
		baseDir = filepath.Dir(req.Input)
	}
	p := Plan{
		BaseDir:  baseDir,
		BaseName: RenderName(req.OutputName, Stem(req.Input), req.Spec.Name),
	}

	if req.Spec.Multi {
		p.Bundle = filepath.Join(baseDir, p.BaseName)
		if req.Zip != ZipNone {
			p.Zip = filepath.Join(baseDir, p.BaseName+".zip")
		}
		return p
	}

	ext := strings.ToLower(filepath.Ext(p.BaseName))
	if req.OutputName != "" && (ext == "."+req.Spec.Name || ext == req.Spec.Ext) {
		p.File = filepath.Join(baseDir, p.BaseName)
	} else {
		p.File = filepath.Join(baseDir, p.BaseName+req.Spec.Ext)
	}
	return p
}
