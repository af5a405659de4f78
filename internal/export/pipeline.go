// Package export runs the extraction flow from raster (and optional
// boundary) to a committed, colour-mapped image file.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"raster-export/internal/apperr"
	"raster-export/internal/clip"
	"raster-export/internal/colormap"
	"raster-export/internal/config"
	"raster-export/internal/monitoring"
	"raster-export/internal/raster"
	"raster-export/internal/render"
	"raster-export/internal/roi"
	"raster-export/internal/stats"
	"raster-export/internal/vector"
)

// Request names the inputs and the output file of one export.
type Request struct {
	Raster raster.Source
	// Vector is optional; without it the region is detected automatically.
	Vector vector.Source
	Output string
}

// Pipeline prepares export jobs.
type Pipeline struct {
	cfg    *config.Config
	engine *render.Engine
}

// New returns a pipeline using cfg for detection and rendering.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, engine: render.NewEngine(cfg)}
}

// Engine returns the render engine the pipeline commits with.
func (p *Pipeline) Engine() *render.Engine { return p.engine }

// Job is a prepared export: the extracted grid, its statistics and the
// seed parameters for the preview.
type Job struct {
	Grid     *raster.Grid
	Stats    stats.Summary
	Region   *roi.Region
	Defaults render.Params
	Output   string

	source   string
	boundary string
	engine   *render.Engine
}

// Prepare reads the inputs and extracts the region to export.
func (p *Pipeline) Prepare(req Request) (*Job, error) {
	band, err := req.Raster.ReadBand()
	if err != nil {
		return nil, err
	}
	grid := band.Grid
	if band.HasNoData {
		n := grid.MaskNoData(band.NoData)
		monitoring.Logf("export: masked %d nodata cells (nodata=%g)", n, band.NoData)
	}

	job := &Job{Output: req.Output, source: describe(req.Raster), engine: p.engine}

	if req.Vector != nil {
		layer, err := req.Vector.ReadLayer()
		if err != nil {
			return nil, err
		}
		if grid, err = clip.Clip(grid, layer); err != nil {
			return nil, err
		}
		job.boundary = describe(req.Vector)
	} else {
		res, err := roi.Detect(grid, roi.Options{
			Iterations:   p.cfg.MorphIterations,
			Connectivity: p.cfg.Connectivity,
		})
		if err != nil {
			return nil, err
		}
		grid = res.Grid
		job.Region = &res.Region
	}

	sum, err := stats.Compute(grid)
	if err != nil {
		return nil, err
	}

	job.Grid = grid
	job.Stats = sum
	job.Defaults = render.Params{
		Colormap: colormap.Auto(sum.P5, sum.P95),
		VMin:     sum.P5,
		VMax:     sum.P95,
		DPI:      p.cfg.ExportDPI,
		Format:   p.cfg.Format,
		Mode:     render.Export,
	}

	monitoring.Logf("export: %dx%d grid, %d valid, p5=%.4f p95=%.4f, colormap %s",
		grid.Rows, grid.Cols, sum.Count, sum.P5, sum.P95, job.Defaults.Colormap)
	return job, nil
}

func describe(src any) string {
	switch s := src.(type) {
	case *raster.FileSource:
		return s.Path
	case *vector.ShapefileSource:
		return s.Path
	}
	return ""
}

type rendered struct {
	res *render.Result
	err error
}

// Commit renders the job at export resolution with p and writes the image
// and its manifest. The written image path is returned; its extension
// follows p.Format. If ctx ends first the render is left to finish in the
// background and its result discarded.
func (j *Job) Commit(ctx context.Context, p render.Params) (string, error) {
	p.Mode = render.Export
	if !config.ValidFormat(p.Format) {
		return "", fmt.Errorf("format %q: %w", p.Format, apperr.ErrValidation)
	}

	done := make(chan rendered, 1)
	go func() {
		res, err := j.engine.Render(j.Grid, p)
		done <- rendered{res, err}
	}()

	var r rendered
	select {
	case r = <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if r.err != nil {
		return "", r.err
	}

	out := OutputPath(j.Output, p.Format)
	if err := writeImage(out, r.res, p.Format); err != nil {
		return "", err
	}

	m := NewManifest()
	m.Source = j.source
	m.Boundary = j.boundary
	m.Output = filepath.Base(out)
	m.Format = p.Format
	m.DPI = p.DPI
	m.Colormap = r.res.Legend.Colormap
	m.VMin = r.res.Legend.Min
	m.VMax = r.res.Legend.Max
	m.Stats = j.Stats
	if j.Region != nil {
		b := j.Region.Bounds
		m.Region = &b
	}
	if err := m.Save(ManifestPath(out)); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	monitoring.Logf("export: wrote %s (%s, %d dpi, %s) id %s", out, p.Format, p.DPI, m.Colormap, m.ID)
	return out, nil
}

// OutputPath swaps the extension of path for the one matching format.
func OutputPath(path, format string) string {
	want := render.Extension(format)
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, want) || (want == ".jpg" && strings.EqualFold(ext, ".jpeg")) ||
		(want == ".tif" && strings.EqualFold(ext, ".tiff")) {
		return path
	}
	return strings.TrimSuffix(path, ext) + want
}

func writeImage(path string, res *render.Result, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.Encode(f, res.Image, format); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %v: %w", filepath.Base(path), err, apperr.ErrRender)
	}
	return f.Close()
}
