package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/export"
)

// Banner is printed once at the start of text output.
const Banner = `
   ______  ______  _              ____                          _
  / ___\ \/ / __ )(_)_ __        / ___|___  _ ____   _____ _ __| |_ ___ _ __
 | |    \  /|  _ \| | '_ \ _____| |   / _ \| '_ \ \ / / _ \ '__| __/ _ \ '__|
 | |___ /  \| |_) | | | | |_____| |__| (_) | | | \ V /  __/ |  | ||  __/ |
  \____/_/\_\____/|_|_| |_|      \____\___/|_| |_|\_/ \___|_|   \__\___|_|
`

// Envelope is the JSON document written in JSON mode.
type Envelope struct {
	RunID   string           `json:"run_id"`
	Results []convert.Report `json:"results"`
	Error   string           `json:"error,omitempty"`
}

// Renderer prints reports as text blocks or collects them into one JSON
// envelope. It is not safe for concurrent use.
type Renderer struct {
	Out      io.Writer
	JSON     bool
	Geometry bool // keep embedded geometry and texture bytes in JSON output

	env     Envelope
	started bool
}

// Begin prints the banner in text mode. It is a no-op after the first call.
func (r *Renderer) Begin() {
	if r.started {
		return
	}
	r.started = true
	r.env = Envelope{RunID: uuid.NewString(), Results: []convert.Report{}}
	if !r.JSON {
		fmt.Fprint(r.Out, Banner)
	}
}

// RunID identifies the run in JSON output.
func (r *Renderer) RunID() string {
	r.Begin()
	return r.env.RunID
}

// Progress announces input i (1-based) of n in text mode.
func (r *Renderer) Progress(i, n int, input string) {
	r.Begin()
	if !r.JSON {
		fmt.Fprintf(r.Out, "\n[%d/%d] Converting: %s\n", i, n, input)
	}
}

// Report renders one conversion.
func (r *Renderer) Report(rep convert.Report) {
	r.Begin()
	if r.JSON {
		if !r.Geometry {
			rep = Compact(rep)
		} else if _, err := json.Marshal(rep); err != nil {
			// One unencodable report must not sink the envelope.
			rep.Geometry = nil
			rep.GeometryError = err.Error()
		}
		r.env.Results = append(r.env.Results, rep)
		return
	}
	writeText(r.Out, rep)
}

// Fail records a run-level error, such as no inputs.
func (r *Renderer) Fail(msg string) {
	r.Begin()
	r.env.Error = msg
	if !r.JSON {
		fmt.Fprintf(r.Out, "Error: %s\n", msg)
	}
}

// End finishes the output: the JSON envelope, or a closing line in text mode.
// It returns the envelope for callers that also store it.
func (r *Renderer) End() (Envelope, error) {
	r.Begin()
	if !r.JSON {
		if r.env.Error == "" {
			fmt.Fprintln(r.Out, "\nDone.")
		}
		return r.env, nil
	}
	enc := json.NewEncoder(r.Out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.env); err != nil {
		return r.env, fmt.Errorf("report: encode: %w", err)
	}
	return r.env, nil
}

// Compact drops the embedded geometry and texture bytes from rep.
func Compact(rep convert.Report) convert.Report {
	rep.Geometry = nil
	rep.Materials.TexturesBase64 = []convert.TextureData{}
	return rep
}

// WriteFile stores env as indented JSON at path.
func WriteFile(path string, env Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &convert.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func writeText(w io.Writer, rep convert.Report) {
	if !rep.Success {
		msg := ""
		if rep.Error != nil {
			msg = *rep.Error
		}
		fmt.Fprintf(w, "Error: %s\n", msg)
		if rep.FailedStage != "" {
			fmt.Fprintf(w, "   Stage:         %s (%s)\n", rep.FailedStage, rep.ErrorKind)
		}
		return
	}

	fmt.Fprintln(w, "Successfully exported:")
	fmt.Fprintf(w, "   Format:        %s\n", strings.ToUpper(rep.Format))
	fmt.Fprintf(w, "   Target:        %s\n", strings.Join(rep.Outputs, ", "))
	if len(rep.BundleFiles) > 0 {
		fmt.Fprintf(w, "   Files:         %s\n", strings.Join(rep.BundleFiles, ", "))
	}
	if rep.Preview != "" {
		fmt.Fprintf(w, "   Preview:       %s\n", rep.Preview)
	}
	fmt.Fprintf(w, "   Vertices:      %d\n", rep.Stats.Vertices)
	fmt.Fprintf(w, "   Faces:         %d\n", rep.Stats.Faces)
	if rep.Materials.Name != nil {
		fmt.Fprintf(w, "   Textures:      %d\n", rep.Materials.TextureCount)
	}
	if rep.Stats.CompressedBytes != nil {
		fmt.Fprintf(w, "   Compressed:    %d Bytes\n", *rep.Stats.CompressedBytes)
	}
	if rep.Stats.UncompressedBytes != nil {
		fmt.Fprintf(w, "   Decompressed:  %d Bytes\n", *rep.Stats.UncompressedBytes)
	}
}

// ListFormats prints the format table.
func ListFormats(w io.Writer, table export.Table, asJSON bool) error {
	specs := table.Specs()
	if asJSON {
		type entry struct {
			Name        string   `json:"name"`
			Extension   string   `json:"extension"`
			MultiFile   bool     `json:"multi_file"`
			Aliases     []string `json:"aliases,omitempty"`
			Description string   `json:"description"`
		}
		out := struct {
			Formats []entry `json:"formats"`
		}{Formats: make([]entry, 0, len(specs))}
		for _, s := range specs {
			out.Formats = append(out.Formats, entry{s.Name, s.Ext, s.Multi, s.Aliases, s.Description})
		}
		return json.NewEncoder(w).Encode(out)
	}

	var single, multi []string
	for _, s := range specs {
		if s.Multi {
			multi = append(multi, s.Name)
		} else {
			single = append(single, s.Name)
		}
	}
	if _, err := fmt.Fprintln(w, "Available export formats:"); err != nil {
		return err
	}
	fmt.Fprintf(w, "  single-file: %s\n", strings.Join(single, ", "))
	fmt.Fprintf(w, "  multi-file:  %s\n", strings.Join(multi, ", "))
	fmt.Fprintln(w)
	for _, s := range specs {
		line := fmt.Sprintf("  %-5s %-6s %s", s.Name, s.Ext, s.Description)
		if len(s.Aliases) > 0 {
			line += fmt.Sprintf(" (aliases: %s)", strings.Join(s.Aliases, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
