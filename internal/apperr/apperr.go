// Package apperr defines the error taxonomy shared by the export pipeline.
//
// Packages wrap these sentinels with fmt.Errorf("...: %w", ...) so that the
// UI and CLI can classify a failure with errors.Is while still showing the
// underlying cause.
package apperr

import "errors"

var (
	// ErrInputRead means a raster or vector input could not be read.
	ErrInputRead = errors.New("input read failed")

	// ErrGeometryMismatch means the vector boundary could not be aligned
	// with the raster coordinate reference system.
	ErrGeometryMismatch = errors.New("geometry does not match raster CRS")

	// ErrEmptyClip means clipping to the boundary left no covered cells.
	ErrEmptyClip = errors.New("clip produced no covered cells")

	// ErrNoRegionDetected means ROI detection found no connected region.
	ErrNoRegionDetected = errors.New("unable to detect ROI")

	// ErrAllInvalid means statistics were requested over zero valid cells.
	ErrAllInvalid = errors.New("no valid cells")

	// ErrRender means image generation or encoding failed.
	ErrRender = errors.New("render failed")

	// ErrValidation means a user-entered value was rejected.
	ErrValidation = errors.New("invalid value")
)

// Title returns a short dialog title describing the class of err.
func Title(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputRead):
		return "Read Error"
	case errors.Is(err, ErrGeometryMismatch):
		return "Boundary Error"
	case errors.Is(err, ErrEmptyClip), errors.Is(err, ErrNoRegionDetected):
		return "No Data"
	case errors.Is(err, ErrAllInvalid):
		return "No Valid Cells"
	case errors.Is(err, ErrRender):
		return "Render Error"
	case errors.Is(err, ErrValidation):
		return "Invalid Value"
	default:
		return "Export Failed"
	}
}
