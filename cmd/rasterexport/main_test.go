package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"raster-export/internal/apperr"
	"raster-export/internal/config"
	"raster-export/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGrayPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 12, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(10 + x*10 + y)})
		}
	}
	path := filepath.Join(dir, "dem.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Debounce = "5ms"
	cfg.PreviewDPI = 10
	return cfg
}

func TestRunExports(t *testing.T) {
	dir := t.TempDir()
	o := options{
		raster:  writeGrayPNG(t, dir),
		out:     filepath.Join(dir, "out.png"),
		preview: filepath.Join(dir, "preview.png"),
		cmap:    "Auto",
		dpi:     20,
		vmin:    math.NaN(),
		vmax:    math.NaN(),
	}

	path, p, err := run(context.Background(), fastConfig(), o)
	require.NoError(t, err)
	assert.Equal(t, o.out, path)
	assert.Equal(t, "viridis", p.Colormap)
	assert.Equal(t, 20, p.DPI)
	assert.FileExists(t, o.preview)

	m, err := export.LoadManifest(export.ManifestPath(path))
	require.NoError(t, err)
	assert.Equal(t, p.VMin, m.VMin)
	assert.Equal(t, p.VMax, m.VMax)
	assert.Equal(t, "viridis", m.Colormap)
}

func TestRunExplicitRange(t *testing.T) {
	dir := t.TempDir()
	o := options{
		raster: writeGrayPNG(t, dir),
		out:    filepath.Join(dir, "out.png"),
		cmap:   "Auto",
		format: "bmp",
		vmin:   0,
		vmax:   1000,
	}

	path, p, err := run(context.Background(), fastConfig(), o)
	require.NoError(t, err)
	assert.Equal(t, ".bmp", filepath.Ext(path))
	assert.Equal(t, "terrain", p.Colormap)
	assert.Equal(t, 1000.0, p.VMax)

	o.cmap = "magma"
	o.out = filepath.Join(dir, "named.png")
	_, p, err = run(context.Background(), fastConfig(), o)
	require.NoError(t, err)
	assert.Equal(t, "magma", p.Colormap, "a named palette is not replaced by the range")
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	raster := writeGrayPNG(t, dir)

	_, _, err := run(context.Background(), fastConfig(), options{
		raster: raster, out: filepath.Join(dir, "o.png"), cmap: "Auto", vmin: 5, vmax: 1,
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = run(context.Background(), fastConfig(), options{
		raster: raster, out: filepath.Join(dir, "o.png"), cmap: "Auto", format: "gif",
		vmin: math.NaN(), vmax: math.NaN(),
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = run(context.Background(), fastConfig(), options{
		raster: filepath.Join(dir, "missing.tif"), out: filepath.Join(dir, "o.png"), cmap: "Auto",
		vmin: math.NaN(), vmax: math.NaN(),
	})
	assert.True(t, errors.Is(err, apperr.ErrInputRead))
}
