// Package config loads the pdfcmp YAML configuration file. Command-line
// flags override whatever the file sets.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benedoc-inc/pdfcmp/core/compare"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/core/visual"
)

type Config struct {
	Compare CompareConfig `yaml:"compare"`
	Report  ReportConfig  `yaml:"report"`
	Visual  VisualConfig  `yaml:"visual"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type CompareConfig struct {
	Limit        int      `yaml:"limit"`                   // differences kept before stopping
	ByteContext  int      `yaml:"byte_context"`            // bytes shown around a stream difference
	CharContext  int      `yaml:"char_context"`            // characters shown around a string difference
	ExcludedKeys []string `yaml:"excluded_keys,omitempty"` // e.g. ["ID", "CreationDate"]
	Metadata     bool     `yaml:"metadata"`
	Info         bool     `yaml:"info"`
}

type ReportConfig struct {
	// Format is one of text, json, xml, yaml.
	Format compare.Format `yaml:"format"`
}

type VisualConfig struct {
	Enabled    bool             `yaml:"enabled"`
	OutputDir  string           `yaml:"output_dir"`
	DiffPrefix string           `yaml:"diff_prefix"`
	Renderer   string           `yaml:"renderer"` // Ghostscript binary
	Resolution int              `yaml:"resolution"`
	Differ     string           `yaml:"differ"` // ImageMagick compare binary
	Fuzz       string           `yaml:"fuzz,omitempty"`
	Timeout    time.Duration    `yaml:"timeout"`
	Ignore     map[int][]Region `yaml:"ignore,omitempty"` // page -> regions masked before rendering
}

// Region is a rectangle in PDF points.
type Region struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in the node exporter
	// textfile format.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Compare: CompareConfig{
			Limit:       compare.DefaultLimit,
			ByteContext: compare.DefaultByteContext,
			CharContext: compare.DefaultCharContext,
			Info:        true,
		},
		Report: ReportConfig{Format: compare.FormatText},
		Visual: VisualConfig{
			OutputDir:  "pdfcmp-out",
			DiffPrefix: "diff_",
			Renderer:   "gs",
			Resolution: 72,
			Differ:     "compare",
			Timeout:    2 * time.Minute,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML, the starting point for a hand-edited file.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if c.Compare.Limit < 0 {
		return fmt.Errorf("compare.limit must not be negative, got %d", c.Compare.Limit)
	}
	if c.Compare.ByteContext < 0 || c.Compare.CharContext < 0 {
		return fmt.Errorf("context widths must not be negative")
	}
	if !slices.Contains(compare.Formats, c.Report.Format) {
		return fmt.Errorf("unknown report format %q", c.Report.Format)
	}
	if c.Visual.Resolution < 0 {
		return fmt.Errorf("visual.resolution must not be negative, got %d", c.Visual.Resolution)
	}
	for page, regions := range c.Visual.Ignore {
		if page < 1 {
			return fmt.Errorf("visual.ignore: page numbers start at 1, got %d", page)
		}
		for _, r := range regions {
			if r.Width <= 0 || r.Height <= 0 {
				return fmt.Errorf("visual.ignore: page %d has an empty region", page)
			}
		}
	}
	if c.Visual.Enabled && c.Visual.OutputDir == "" {
		return fmt.Errorf("visual.output_dir is required when the visual fallback is enabled")
	}
	return nil
}

// CompareOptions translates the compare section.
func (c Config) CompareOptions() compare.Options {
	opts := compare.Options{
		Limit:           c.Compare.Limit,
		ByteContext:     c.Compare.ByteContext,
		CharContext:     c.Compare.CharContext,
		CompareMetadata: c.Compare.Metadata,
		CompareInfo:     c.Compare.Info,
	}
	for _, k := range c.Compare.ExcludedKeys {
		opts.ExcludedKeys = append(opts.ExcludedKeys, object.Name(k))
	}
	return opts
}

// IgnoredRegions returns the masked regions keyed by page.
func (c Config) IgnoredRegions() map[int][]visual.Rect {
	if len(c.Visual.Ignore) == 0 {
		return nil
	}
	out := make(map[int][]visual.Rect, len(c.Visual.Ignore))
	for page, regions := range c.Visual.Ignore {
		for _, r := range regions {
			out[page] = append(out[page], visual.Rect{X: r.X, Y: r.Y, W: r.Width, H: r.Height})
		}
	}
	return out
}

// Orchestrator builds the visual fallback with the external tools.
func (c Config) Orchestrator() *visual.Orchestrator {
	return &visual.Orchestrator{
		Renderer:   visual.GhostscriptRenderer{Command: c.Visual.Renderer, Resolution: c.Visual.Resolution, Timeout: c.Visual.Timeout},
		Differ:     visual.ImageMagickDiffer{Command: c.Visual.Differ, Fuzz: c.Visual.Fuzz, Timeout: c.Visual.Timeout},
		OutputDir:  c.Visual.OutputDir,
		DiffPrefix: c.Visual.DiffPrefix,
	}
}
