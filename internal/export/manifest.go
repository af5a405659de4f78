package export

import (
	"encoding/json"
	"os"
	"time"

	"raster-export/internal/stats"
	"raster-export/pkg/geometry"

	"github.com/google/uuid"
)

// ManifestVersion is bumped when the sidecar layout changes.
const ManifestVersion = 1

// Manifest is the JSON sidecar written next to every export.
type Manifest struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Source   string    `json:"source,omitempty"`
	Boundary string    `json:"boundary,omitempty"`
	Output   string    `json:"output"`

	Format   string  `json:"format"`
	DPI      int     `json:"dpi"`
	Colormap string  `json:"colormap"`
	VMin     float64 `json:"vmin"`
	VMax     float64 `json:"vmax"`

	Stats  stats.Summary    `json:"stats"`
	Region *geometry.Bounds `json:"region,omitempty"` // set when the ROI was auto-detected
}

// NewManifest stamps a fresh export id.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		ID:      uuid.New().String(),
		Created: time.Now(),
	}
}

// ManifestPath returns the sidecar path for an output file.
func ManifestPath(output string) string {
	return output + ".json"
}

// LoadManifest reads a sidecar.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the sidecar.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
