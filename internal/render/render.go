// Package render turns a grid into a colour-mapped bitmap with a legend.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"raster-export/internal/apperr"
	"raster-export/internal/colormap"
	"raster-export/internal/config"
	"raster-export/internal/monitoring"
	"raster-export/internal/raster"
	"raster-export/pkg/colorutil"

	xdraw "golang.org/x/image/draw"
)

// minPanelInches keeps the colour bar readable for very wide rasters.
const minPanelInches = 2.0

// Result is one rendered frame.
type Result struct {
	Image  image.Image
	Legend Legend
	Params Params
}

// Engine renders grids. It holds no per-render state and is safe for
// concurrent use.
type Engine struct {
	DataInches       float64
	LegendInches     float64
	PreviewMaxWidth  int
	PreviewMaxHeight int
}

// NewEngine sizes the engine from cfg.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		DataInches:       cfg.DataInches,
		LegendInches:     cfg.LegendInches,
		PreviewMaxWidth:  cfg.PreviewMaxWidth,
		PreviewMaxHeight: cfg.PreviewMaxHeight,
	}
}

// Render draws g with p. The grid is only read.
func (e *Engine) Render(g *raster.Grid, p Params) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: panic: %v", apperr.ErrRender, r)
		}
	}()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrRender, err)
	}
	if g.Rows == 0 || g.Cols == 0 {
		return nil, fmt.Errorf("%w: empty grid", apperr.ErrRender)
	}

	cm, err := colormap.New(p.Colormap, p.VMin, p.VMax)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrRender, err)
	}

	bg := color.Color(colorutil.Transparent)
	if p.Mode == Preview {
		bg = colorutil.White
	}

	wIn, hIn := e.DataInches, e.DataInches
	if g.Cols >= g.Rows {
		hIn = e.DataInches * float64(g.Rows) / float64(g.Cols)
	} else {
		wIn = e.DataInches * float64(g.Cols) / float64(g.Rows)
	}
	dataW := max(1, int(math.Round(wIn*float64(p.DPI))))
	dataH := max(1, int(math.Round(hIn*float64(p.DPI))))
	legendW := max(1, int(math.Round(e.LegendInches*float64(p.DPI))))
	height := max(dataH, int(math.Round(minPanelInches*float64(p.DPI))))

	canvas := image.NewNRGBA(image.Rect(0, 0, dataW+legendW, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	top := (height - dataH) / 2
	xdraw.NearestNeighbor.Scale(canvas, image.Rect(0, top, dataW, top+dataH),
		DataImage(g, cm), image.Rect(0, 0, g.Cols, g.Rows), xdraw.Over, nil)

	legend := legendImage(cm, legendW, height, p.DPI, bg)
	draw.Draw(canvas, image.Rect(dataW, 0, dataW+legendW, height), legend, legend.Bounds().Min, draw.Over)

	var out image.Image = canvas
	if p.Mode == Preview {
		out = e.fit(canvas)
	}

	monitoring.Logf("render: %s %s %.4g..%.4g at %d dpi -> %dx%d",
		p.Mode, p.Colormap, p.VMin, p.VMax, p.DPI, out.Bounds().Dx(), out.Bounds().Dy())

	return &Result{
		Image:  out,
		Legend: Legend{Min: cm.Min(), Max: cm.Max(), Colormap: cm.Name()},
		Params: p,
	}, nil
}

// DataImage maps each cell of g to one pixel. NaN cells are transparent.
func DataImage(g *raster.Grid, cm *colormap.Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			img.SetNRGBA(c, r, cm.Clamped(g.At(r, c)))
		}
	}
	return img
}

// fit shrinks img to the preview pane. It never enlarges.
func (e *Engine) fit(img *image.NRGBA) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if e.PreviewMaxWidth <= 0 || e.PreviewMaxHeight <= 0 {
		return img
	}
	scale := math.Min(float64(e.PreviewMaxWidth)/float64(w), float64(e.PreviewMaxHeight)/float64(h))
	if scale >= 1 {
		return img
	}
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
