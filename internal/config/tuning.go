// Package config holds the tunable parameters of the export pipeline.
//
// A tuning file is a JSON object whose keys mirror the struct tags below.
// Keys left out keep their defaults; unknown keys are rejected.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config controls detection, preview and export.
type Config struct {
	MorphIterations int `json:"morph_iterations"`
	Connectivity    int `json:"connectivity"`

	Debounce         string `json:"debounce"` // duration string like "300ms"
	PreviewDPI       int    `json:"preview_dpi"`
	PreviewMaxWidth  int    `json:"preview_max_width"`
	PreviewMaxHeight int    `json:"preview_max_height"`

	ExportDPI    int     `json:"export_dpi"`
	Format       string  `json:"format"`
	DataInches   float64 `json:"data_inches"`   // long side of the data panel
	LegendInches float64 `json:"legend_inches"` // width of the colour bar panel
}

// Default returns the built-in tuning.
func Default() *Config {
	return &Config{
		MorphIterations:  2,
		Connectivity:     4,
		Debounce:         "300ms",
		PreviewDPI:       100,
		PreviewMaxWidth:  950,
		PreviewMaxHeight: 500,
		ExportDPI:        300,
		Format:           "png",
		DataInches:       8,
		LegendInches:     1.2,
	}
}

// Formats lists the output encodings.
var Formats = []string{"png", "jpg", "tif", "bmp"}

// Load reads a tuning file on top of Default.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.MorphIterations < 0 {
		return fmt.Errorf("morph_iterations must be non-negative, got %d", c.MorphIterations)
	}
	if c.Connectivity != 4 && c.Connectivity != 8 {
		return fmt.Errorf("connectivity must be 4 or 8, got %d", c.Connectivity)
	}
	if d, err := time.ParseDuration(c.Debounce); err != nil {
		return fmt.Errorf("invalid debounce '%s': %w", c.Debounce, err)
	} else if d <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.PreviewDPI <= 0 || c.ExportDPI <= 0 {
		return fmt.Errorf("dpi must be positive, got preview %d export %d", c.PreviewDPI, c.ExportDPI)
	}
	if c.PreviewMaxWidth <= 0 || c.PreviewMaxHeight <= 0 {
		return fmt.Errorf("preview bounds must be positive, got %dx%d", c.PreviewMaxWidth, c.PreviewMaxHeight)
	}
	if c.DataInches <= 0 || c.LegendInches <= 0 {
		return fmt.Errorf("panel sizes must be positive, got data %g legend %g", c.DataInches, c.LegendInches)
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("format must be one of %s, got %q", strings.Join(Formats, ", "), c.Format)
	}
	return nil
}

// ValidFormat reports whether f is a supported output encoding.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// DebounceDuration returns the preview debounce, or 300ms if unparsable.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}
