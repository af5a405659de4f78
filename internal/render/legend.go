package render

import (
	"image"
	"image/color"

	"raster-export/internal/colormap"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Legend describes the colour bar drawn next to the data.
type Legend struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Colormap string  `json:"colormap"`
}

func legendPlot(cm *colormap.Colormap) *plot.Plot {
	p := plot.New()
	p.HideX()
	p.BackgroundColor = color.Transparent
	p.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	return p
}

// legendImage rasterises the colour bar into a w x h pixel image.
func legendImage(cm *colormap.Colormap, w, h, dpi int, bg color.Color) image.Image {
	p := legendPlot(cm)
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(w)/vg.Length(dpi)*vg.Inch, vg.Length(h)/vg.Length(dpi)*vg.Inch),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(bg),
	)
	p.Draw(vgdraw.New(c))
	return c.Image()
}
