package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileNames are the config files Discover looks for, in order.
var FileNames = []string{"cxconv.toml", "cxconv.json"}

// Config holds conversion defaults. Every field can be overridden by a flag.
type Config struct {
	Format        string  `json:"format" toml:"format"`
	OutputDir     string  `json:"output_dir" toml:"output_dir"`
	OutputName    string  `json:"output_name" toml:"output_name"`
	Zip           string  `json:"zip" toml:"zip"` // none, zip or zip-only
	Recursive     bool    `json:"recursive" toml:"recursive"`
	Workers       int     `json:"workers" toml:"workers"`
	TextureFormat string  `json:"texture_format" toml:"texture_format"`
	LogLevel      string  `json:"log_level" toml:"log_level"`
	ReportFile    string  `json:"report_file" toml:"report_file"`
	Preview       Preview `json:"preview" toml:"preview"`
}

// Preview holds thumbnail settings.
type Preview struct {
	Enabled     bool    `json:"enabled" toml:"enabled"`
	Size        int     `json:"size" toml:"size"`
	Supersample int     `json:"supersample" toml:"supersample"`
	FillRatio   float64 `json:"fill_ratio" toml:"fill_ratio"`
	View        string  `json:"view" toml:"view"` // camera preset or "rx,ry,rz"
}

// Load reads a TOML or JSON config file, chosen by extension. Fields not set
// in the file keep their zero values. Relative paths in the file are taken
// relative to the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: %s: unknown config type %q (want .toml or .json)", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if cfg.OutputDir != "" && !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(dir, cfg.OutputDir)
	}
	if cfg.ReportFile != "" && !filepath.IsAbs(cfg.ReportFile) {
		cfg.ReportFile = filepath.Join(dir, cfg.ReportFile)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings. Empty
// strings, zero numbers and false booleans leave the file's value alone.
type Flags struct {
	Format        string
	OutputDir     string
	OutputName    string
	Zip           string
	Recursive     bool
	Workers       int
	TextureFormat string
	LogLevel      string
	ReportFile    string
	Preview       bool
	PreviewView   string
}

// Resolve applies flags over the file values, then fills in defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	override(&c.Format, flags.Format)
	override(&c.OutputDir, flags.OutputDir)
	override(&c.OutputName, flags.OutputName)
	override(&c.Zip, flags.Zip)
	override(&c.TextureFormat, flags.TextureFormat)
	override(&c.LogLevel, flags.LogLevel)
	override(&c.ReportFile, flags.ReportFile)
	override(&c.Preview.View, flags.PreviewView)
	if flags.Recursive {
		c.Recursive = true
	}
	if flags.Preview {
		c.Preview.Enabled = true
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Defaults
	if c.Format == "" {
		c.Format = "stl"
	}
	if c.Zip == "" {
		c.Zip = "none"
	}
	if c.TextureFormat == "" {
		c.TextureFormat = "png"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Preview.Size <= 0 {
		c.Preview.Size = 256
	}
	if c.Preview.Supersample <= 0 {
		c.Preview.Supersample = 3
	}
	if c.Preview.FillRatio <= 0 || c.Preview.FillRatio > 1 {
		c.Preview.FillRatio = 0.9
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Discover returns the first config file found next to the executable or in
// the working directory, or "" when there is none.
func Discover() string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	return discoverIn(dirs...)
}

func discoverIn(dirs ...string) string {
	for _, dir := range dirs {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}
	}
	return ""
}
