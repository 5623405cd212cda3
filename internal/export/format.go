package export

import (
	"fmt"
	"sort"
	"strings"
)

// Format is one of the supported export targets.
type Format int

const (
	STL Format = iota
	PLY
	OFF
	GLB
	ThreeMF
	AMF
	X3D
	VRML
	DAE
	OBJ
	GLTF
)

// Spec describes a format in the table.
type Spec struct {
	Format      Format
	Name        string
	Ext         string
	Multi       bool // output is a bundle directory rather than one file
	Aliases     []string
	Description string
}

// Table is the immutable set of formats a Dispatcher can write.
type Table struct {
	specs  []Spec
	byName map[string]int
}

// DefaultTable returns every format this package implements.
func DefaultTable() Table {
	return NewTable([]Spec{
		{Format: STL, Name: "stl", Ext: ".stl", Description: "binary STL"},
		{Format: PLY, Name: "ply", Ext: ".ply", Description: "binary little-endian PLY"},
		{Format: OFF, Name: "off", Ext: ".off", Description: "Object File Format"},
		{Format: GLB, Name: "glb", Ext: ".glb", Description: "binary glTF 2.0 with embedded texture"},
		{Format: ThreeMF, Name: "3mf", Ext: ".3mf", Description: "3D Manufacturing Format package"},
		{Format: AMF, Name: "amf", Ext: ".amf", Description: "Additive Manufacturing File"},
		{Format: X3D, Name: "x3d", Ext: ".x3d", Description: "X3D XML encoding"},
		{Format: VRML, Name: "vrml", Ext: ".wrl", Aliases: []string{"wrl"}, Description: "VRML 2.0"},
		{Format: DAE, Name: "dae", Ext: ".dae", Aliases: []string{"collada"}, Description: "COLLADA 1.4.1"},
		{Format: OBJ, Name: "obj", Ext: ".obj", Multi: true, Description: "Wavefront OBJ + MTL + textures"},
		{Format: GLTF, Name: "gltf", Ext: ".gltf", Multi: true, Description: "glTF 2.0 + .bin + textures"},
	})
}

// NewTable builds a table from specs. Later specs do not override earlier
// names or aliases.
func NewTable(specs []Spec) Table {
	t := Table{
		specs:  append([]Spec(nil), specs...),
		byName: make(map[string]int, len(specs)*2),
	}
	for i, s := range t.specs {
		for _, n := range append([]string{s.Name}, s.Aliases...) {
			n = strings.ToLower(n)
			if _, ok := t.byName[n]; !ok {
				t.byName[n] = i
			}
		}
	}
	return t
}

// Parse resolves a format name or alias, ignoring case and a leading dot.
func (t Table) Parse(name string) (Spec, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	if i, ok := t.byName[key]; ok {
		return t.specs[i], nil
	}
	return Spec{}, &UnsupportedFormatError{Name: name, Valid: t.Names()}
}

// Lookup returns the spec of f.
func (t Table) Lookup(f Format) (Spec, bool) {
	for _, s := range t.specs {
		if s.Format == f {
			return s, true
		}
	}
	return Spec{}, false
}

// Specs returns a copy of the table, ordered by name.
func (t Table) Specs() []Spec {
	out := append([]Spec(nil), t.specs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the canonical format names, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.specs))
	for _, s := range t.Specs() {
		names = append(names, s.Name)
	}
	return names
}

// Len returns the number of formats.
func (t Table) Len() int { return len(t.specs) }

var formatNames = [...]string{
	STL: "stl", PLY: "ply", OFF: "off", GLB: "glb", ThreeMF: "3mf", AMF: "amf",
	X3D: "x3d", VRML: "vrml", DAE: "dae", OBJ: "obj", GLTF: "gltf",
}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// UnsupportedFormatError reports a format name that is not in the table.
type UnsupportedFormatError struct {
	Name  string
	Valid []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (valid: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// ZipMode is the packaging policy for multi-file formats.
type ZipMode int

const (
	ZipNone ZipMode = iota
	ZipKeep         // write the zip and keep the bundle directory
	ZipOnly         // write the zip and remove the bundle directory
)

// ParseZipMode accepts "none", "zip" and "zip-only".
func ParseZipMode(s string) (ZipMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return ZipNone, nil
	case "zip":
		return ZipKeep, nil
	case "zip-only", "zip_only":
		return ZipOnly, nil
	}
	return ZipNone, fmt.Errorf("export: unknown zip mode %q", s)
}

func (z ZipMode) String() string {
	switch z {
	case ZipKeep:
		return "zip"
	case ZipOnly:
		return "zip-only"
	}
	return "none"
}

// MarshalText lets ZipMode appear as its name in JSON reports.
func (z ZipMode) MarshalText() ([]byte, error) { return []byte(z.String()), nil }

// UnmarshalText accepts the names ParseZipMode does.
func (z *ZipMode) UnmarshalText(b []byte) error {
	m, err := ParseZipMode(string(b))
	if err != nil {
		return err
	}
	*z = m
	return nil
}
