// Command rasterexport extracts a region from a single-band raster and
// writes it as a colour-mapped image with a legend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"raster-export/internal/apperr"
	"raster-export/internal/colormap"
	"raster-export/internal/config"
	"raster-export/internal/export"
	"raster-export/internal/preview"
	"raster-export/internal/raster"
	"raster-export/internal/render"
	"raster-export/internal/vector"
	"raster-export/internal/version"
)

type options struct {
	raster     string
	vector     string
	out        string
	preview    string
	configPath string
	cmap       string
	dpi        int
	format     string
	vmin, vmax float64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var o options
	flag.StringVar(&o.raster, "raster", "", "Input raster (GeoTIFF, PNG or JPEG)")
	flag.StringVar(&o.vector, "vector", "", "Optional boundary shapefile; without it the region is detected")
	flag.StringVar(&o.out, "out", "", "Output image path")
	flag.StringVar(&o.preview, "preview", "", "Also write the preview frame to this PNG")
	flag.StringVar(&o.configPath, "config", "", "Tuning file (.json)")
	flag.StringVar(&o.cmap, "cmap", colormap.AutoName, "Colormap name or Auto")
	flag.IntVar(&o.dpi, "dpi", 0, "Export resolution (default from config)")
	flag.StringVar(&o.format, "format", "", "png, jpg, tif or bmp (default from config)")
	flag.Float64Var(&o.vmin, "vmin", math.NaN(), "Lower end of the colour scale (default p5)")
	flag.Float64Var(&o.vmax, "vmax", math.NaN(), "Upper end of the colour scale (default p95)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("rasterexport", version.String())
		return
	}
	if o.raster == "" || o.out == "" {
		fmt.Println("Usage: rasterexport -raster <in.tif> -out <out.png> [-vector boundary.shp] [-dpi 300] [-format png] [-cmap Auto] [-vmin x -vmax y] [-config tuning.json]")
		os.Exit(1)
	}

	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	path, params, err := run(context.Background(), cfg, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperr.Title(err), err)
		os.Exit(1)
	}

	fmt.Printf("Image exported successfully!\n\nResolution: %d DPI\nFormat: %s\nColormap: %s\nSaved to: %s\n",
		params.DPI, params.Format, params.Colormap, path)
}

// run prepares the export, renders one preview through a session and
// commits it.
func run(ctx context.Context, cfg *config.Config, o options) (string, render.Params, error) {
	if o.dpi > 0 {
		cfg.ExportDPI = o.dpi
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if err := cfg.Validate(); err != nil {
		return "", render.Params{}, fmt.Errorf("%v: %w", err, apperr.ErrValidation)
	}

	req := export.Request{Raster: &raster.FileSource{Path: o.raster}, Output: o.out}
	if o.vector != "" {
		req.Vector = &vector.ShapefileSource{Path: o.vector}
	}

	pipeline := export.New(cfg)
	job, err := pipeline.Prepare(req)
	if err != nil {
		return "", render.Params{}, err
	}
	log.Printf("%s", job.Stats)

	frames := make(chan *render.Result, 4)
	errs := make(chan error, 4)
	sess, err := preview.NewSession(job.Grid, job.Stats, pipeline.Engine(), cfg, o.cmap, job, preview.Callbacks{
		OnFrame: func(r *render.Result) { frames <- r },
		OnError: func(err error) { errs <- err },
	})
	if err != nil {
		return "", render.Params{}, err
	}
	defer sess.Cancel()

	if !math.IsNaN(o.vmin) || !math.IsNaN(o.vmax) {
		p := sess.Params()
		lo, hi := p.VMin, p.VMax
		if !math.IsNaN(o.vmin) {
			lo = o.vmin
		}
		if !math.IsNaN(o.vmax) {
			hi = o.vmax
		}
		if err := sess.ApplyRange(lo, hi); err != nil {
			return "", render.Params{}, err
		}
		// -cmap Auto is resolved once, against the range asked for.
		if o.cmap == colormap.AutoName {
			if err := sess.SetColormap(colormap.AutoName); err != nil {
				return "", render.Params{}, err
			}
		}
	}

	want := sess.Params()
	for {
		select {
		case f := <-frames:
			if f.Params != want {
				continue
			}
			if o.preview != "" {
				if err := writePreview(o.preview, f); err != nil {
					return "", render.Params{}, err
				}
			}
			path, err := sess.Confirm(ctx)
			if err != nil {
				return "", render.Params{}, err
			}
			want.DPI, want.Format = cfg.ExportDPI, cfg.Format
			return path, want, nil
		case err := <-errs:
			return "", render.Params{}, err
		case <-ctx.Done():
			return "", render.Params{}, ctx.Err()
		}
	}
}

func writePreview(path string, f *render.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.Encode(out, f.Image, "png"); err != nil {
		out.Close()
		return errors.Join(err, os.Remove(path))
	}
	return out.Close()
}
