// Package vector reads polygon boundaries used to clip rasters.
package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"raster-export/internal/apperr"
	"raster-export/internal/monitoring"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// Layer holds the polygonal geometries of a boundary and their CRS.
type Layer struct {
	Polygons []geom.Polygonal
	// SR is nil when the source carries no projection information.
	SR *proj.SR
	// EPSG is the authority code named by the projection file, 0 when absent.
	EPSG int
}

// Source reads a boundary layer.
type Source interface {
	ReadLayer() (*Layer, error)
}

// MemSource serves a layer held in memory.
type MemSource struct {
	Layer Layer
}

// ReadLayer implements Source.
func (s *MemSource) ReadLayer() (*Layer, error) {
	l := s.Layer
	return &l, nil
}

// ShapefileSource reads polygons from an ESRI shapefile and its .prj.
type ShapefileSource struct {
	Path string
}

// ReadLayer implements Source. Non-polygon records are skipped.
func (s *ShapefileSource) ReadLayer() (*Layer, error) {
	dec, err := shp.NewDecoder(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %v: %w", filepath.Base(s.Path), err, apperr.ErrInputRead)
	}
	defer dec.Close()

	layer := &Layer{}
	prj := strings.TrimSuffix(s.Path, filepath.Ext(s.Path)) + ".prj"
	if wkt, err := os.ReadFile(prj); err == nil {
		layer.EPSG = EPSGFromWKT(string(wkt))
	}
	if sr, err := dec.SR(); err == nil {
		layer.SR = sr
	} else if layer.EPSG != 0 {
		monitoring.Logf("vector: %s names EPSG:%d but cannot be parsed: %v", filepath.Base(prj), layer.EPSG, err)
	}

	skipped := 0
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if p, ok := g.(geom.Polygonal); ok {
			layer.Polygons = append(layer.Polygons, p)
		} else {
			skipped++
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("failed to decode shapefile %s: %v: %w", filepath.Base(s.Path), err, apperr.ErrInputRead)
	}
	if len(layer.Polygons) == 0 {
		return nil, fmt.Errorf("shapefile %s has no polygons (%d other records): %w",
			filepath.Base(s.Path), skipped, apperr.ErrInputRead)
	}
	return layer, nil
}

var authorityRE = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)

// EPSGFromWKT returns the EPSG code of the outermost coordinate system in
// a WKT definition, or 0. The outermost AUTHORITY is the last one.
func EPSGFromWKT(wkt string) int {
	m := authorityRE.FindAllStringSubmatch(wkt, -1)
	if len(m) == 0 {
		return 0
	}
	code, err := strconv.Atoi(m[len(m)-1][1])
	if err != nil {
		return 0
	}
	return code
}

// IsSupportedFormat checks if the given path looks like a shapefile.
func IsSupportedFormat(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".shp")
}
