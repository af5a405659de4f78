package export

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"raster-export/internal/apperr"
	"raster-export/internal/config"
	"raster-export/internal/raster"
	"raster-export/internal/render"
	"raster-export/internal/vector"
	"raster-export/pkg/geometry"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodata = -9999

// blockSource returns a rows x cols band filled with nodata except for the
// inclusive block b, whose cells hold (r+c)/100.
func blockSource(rows, cols int, b geometry.Bounds) *raster.MemSource {
	g := raster.NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := float64(nodata)
			if r >= b.RowMin && r <= b.RowMax && c >= b.ColMin && c <= b.ColMax {
				v = float64(r+c) / 100
			}
			g.Set(r, c, v)
		}
	}
	return &raster.MemSource{Band: raster.Band{Grid: g, NoData: nodata, HasNoData: true}}
}

func testPipeline() *Pipeline {
	cfg := config.Default()
	cfg.ExportDPI = 20
	return New(cfg)
}

func TestPrepareDetectsRegion(t *testing.T) {
	block := geometry.Bounds{RowMin: 4, RowMax: 15, ColMin: 3, ColMax: 20}
	job, err := testPipeline().Prepare(Request{Raster: blockSource(20, 24, block)})
	require.NoError(t, err)

	require.NotNil(t, job.Region)
	assert.Equal(t, block, job.Region.Bounds)
	assert.Equal(t, block.Rows(), job.Grid.Rows)
	assert.Equal(t, block.Cols(), job.Grid.Cols)
	assert.Equal(t, job.Grid.ValidCount(), job.Stats.Count)

	assert.Equal(t, "YlGn", job.Defaults.Colormap)
	assert.Equal(t, job.Stats.P5, job.Defaults.VMin)
	assert.Equal(t, job.Stats.P95, job.Defaults.VMax)
	assert.Equal(t, 20, job.Defaults.DPI)
}

func TestPrepareClipsToBoundary(t *testing.T) {
	src := blockSource(10, 10, geometry.Bounds{RowMin: 0, RowMax: 9, ColMin: 0, ColMax: 9})
	sq := geom.Polygon{{{X: 2, Y: 2}, {X: 7, Y: 2}, {X: 7, Y: 6}, {X: 2, Y: 6}}}
	vec := &vector.MemSource{Layer: vector.Layer{Polygons: []geom.Polygonal{sq}}}

	job, err := testPipeline().Prepare(Request{Raster: src, Vector: vec})
	require.NoError(t, err)
	assert.Nil(t, job.Region)
	assert.Equal(t, 4, job.Grid.Rows)
	assert.Equal(t, 5, job.Grid.Cols)
	assert.Equal(t, 20, job.Stats.Count)
}

func TestPrepareErrors(t *testing.T) {
	empty := blockSource(8, 8, geometry.Bounds{RowMin: 1, RowMax: 0, ColMin: 1, ColMax: 0})
	_, err := testPipeline().Prepare(Request{Raster: empty})
	assert.True(t, errors.Is(err, apperr.ErrNoRegionDetected))

	_, err = testPipeline().Prepare(Request{Raster: &raster.FileSource{Path: filepath.Join(t.TempDir(), "none.tif")}})
	assert.True(t, errors.Is(err, apperr.ErrInputRead))

	full := blockSource(8, 8, geometry.Bounds{RowMin: 0, RowMax: 7, ColMin: 0, ColMax: 7})
	far := geom.Polygon{{{X: 50, Y: 50}, {X: 60, Y: 50}, {X: 60, Y: 60}, {X: 50, Y: 60}}}
	_, err = testPipeline().Prepare(Request{Raster: full, Vector: &vector.MemSource{Layer: vector.Layer{Polygons: []geom.Polygonal{far}}}})
	assert.True(t, errors.Is(err, apperr.ErrEmptyClip))
}

func TestCommitWritesImageAndManifest(t *testing.T) {
	block := geometry.Bounds{RowMin: 2, RowMax: 11, ColMin: 2, ColMax: 11}
	job, err := testPipeline().Prepare(Request{
		Raster: blockSource(14, 14, block),
		Output: filepath.Join(t.TempDir(), "ndvi.png"),
	})
	require.NoError(t, err)

	p := job.Defaults
	p.Colormap = "Spectral"
	p.VMin, p.VMax = 0.05, 0.2
	out, err := job.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, job.Output, out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8*20, img.Bounds().Dy())

	m, err := LoadManifest(ManifestPath(out))
	require.NoError(t, err)
	_, err = uuid.Parse(m.ID)
	assert.NoError(t, err)

	want := Manifest{
		Version:  ManifestVersion,
		Output:   "ndvi.png",
		Format:   "png",
		DPI:      20,
		Colormap: "Spectral",
		VMin:     0.05,
		VMax:     0.2,
		Stats:    job.Stats,
		Region:   &block,
	}
	ignore := cmp.FilterPath(func(p cmp.Path) bool {
		n := p.Last().String()
		return n == ".ID" || n == ".Created"
	}, cmp.Ignore())
	if diff := cmp.Diff(want, *m, ignore); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitSwapsExtension(t *testing.T) {
	job, err := testPipeline().Prepare(Request{
		Raster: blockSource(10, 10, geometry.Bounds{RowMin: 0, RowMax: 9, ColMin: 0, ColMax: 9}),
		Output: filepath.Join(t.TempDir(), "out.png"),
	})
	require.NoError(t, err)

	p := job.Defaults
	p.Format = "jpg"
	out, err := job.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(out))
	assert.FileExists(t, ManifestPath(out))
}

func TestCommitRejects(t *testing.T) {
	job, err := testPipeline().Prepare(Request{
		Raster: blockSource(10, 10, geometry.Bounds{RowMin: 0, RowMax: 9, ColMin: 0, ColMax: 9}),
		Output: filepath.Join(t.TempDir(), "out.png"),
	})
	require.NoError(t, err)

	p := job.Defaults
	p.Format = "gif"
	_, err = job.Commit(context.Background(), p)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	p = job.Defaults
	p.VMin, p.VMax = 1, 0
	_, err = job.Commit(context.Background(), p)
	assert.True(t, errors.Is(err, apperr.ErrRender))
	assert.NoFileExists(t, job.Output)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		path, format, want string
	}{
		{"a/b.png", "png", "a/b.png"},
		{"a/b.png", "jpg", "a/b.jpg"},
		{"a/b.JPEG", "jpg", "a/b.JPEG"},
		{"a/b.tiff", "tif", "a/b.tiff"},
		{"a/b", "bmp", "a/b.bmp"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputPath(tt.path, tt.format), tt.path)
	}
}

func TestCommitHonoursRenderParams(t *testing.T) {
	job, err := testPipeline().Prepare(Request{
		Raster: blockSource(6, 6, geometry.Bounds{RowMin: 0, RowMax: 5, ColMin: 0, ColMax: 5}),
		Output: filepath.Join(t.TempDir(), "x.tif"),
	})
	require.NoError(t, err)
	p := render.Params{Colormap: "turbo", VMin: 0, VMax: 0.1, DPI: 10, Format: "tif"}
	out, err := job.Commit(context.Background(), p)
	require.NoError(t, err)

	m, err := LoadManifest(ManifestPath(out))
	require.NoError(t, err)
	assert.Equal(t, "turbo", m.Colormap)
	assert.Equal(t, 10, m.DPI)
	assert.Equal(t, "tif", m.Format)
}

func TestWriteImageEncodeFailureIsRenderError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	res := &render.Result{Image: image.NewNRGBA(image.Rect(0, 0, 0, 0))}

	err := writeImage(path, res, "png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRender))
	assert.Equal(t, "Render Error", apperr.Title(err))
	assert.NoFileExists(t, path)
}
