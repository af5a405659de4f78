package render

import (
	"fmt"
	"math"

	"raster-export/internal/apperr"
	"raster-export/internal/colormap"
)

// Mode selects how a frame is composed.
type Mode int

const (
	// Preview frames sit on white and are shrunk to fit the preview pane.
	Preview Mode = iota
	// Export frames have a transparent background at full resolution.
	Export
)

func (m Mode) String() string {
	if m == Export {
		return "export"
	}
	return "preview"
}

// Params are the user-controlled inputs to one render.
type Params struct {
	Colormap string  `json:"colormap"`
	VMin     float64 `json:"vmin"`
	VMax     float64 `json:"vmax"`
	DPI      int     `json:"dpi"`
	Format   string  `json:"format"`
	Mode     Mode    `json:"-"`
}

// Validate checks the value range, palette name and resolution.
func (p Params) Validate() error {
	if math.IsNaN(p.VMin) || math.IsNaN(p.VMax) || math.IsInf(p.VMin, 0) || math.IsInf(p.VMax, 0) {
		return fmt.Errorf("range %g..%g is not finite: %w", p.VMin, p.VMax, apperr.ErrValidation)
	}
	if p.VMin >= p.VMax {
		return fmt.Errorf("min %g must be below max %g: %w", p.VMin, p.VMax, apperr.ErrValidation)
	}
	if !colormap.Known(p.Colormap) {
		return fmt.Errorf("colormap %q: %w", p.Colormap, apperr.ErrValidation)
	}
	if p.DPI <= 0 {
		return fmt.Errorf("dpi %d: %w", p.DPI, apperr.ErrValidation)
	}
	return nil
}
