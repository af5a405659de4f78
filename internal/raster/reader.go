package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"raster-export/internal/apperr"
	"raster-export/internal/monitoring"
	"raster-export/pkg/geometry"

	"golang.org/x/image/tiff"
)

// TIFF and GeoTIFF tag numbers read from the first IFD.
const (
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113

	geoKeyGeographicType = 2048
	geoKeyProjectedType  = 3072
)

// FileSource reads the first band of a GeoTIFF (or a grayscale PNG/JPEG).
type FileSource struct {
	Path string
}

// ReadBand implements Source.
func (s *FileSource) ReadBand() (*Band, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %v: %w", err, apperr.ErrInputRead)
	}

	ext := strings.ToLower(filepath.Ext(s.Path))
	isTIFF := ext == ".tif" || ext == ".tiff"

	var grid *Grid
	if isTIFF {
		grid, err = decodeTIFF(data)
	} else {
		var img image.Image
		if img, _, err = image.Decode(bytes.NewReader(data)); err == nil {
			grid = gridFromImage(img)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster %s: %v: %w", filepath.Base(s.Path), err, apperr.ErrInputRead)
	}

	band := &Band{Grid: grid}

	if isTIFF {
		tags, err := readGeoTags(data)
		if err != nil {
			// Plain TIFFs are still usable; they just carry no georeferencing.
			monitoring.Logf("raster: no GeoTIFF tags in %s: %v", filepath.Base(s.Path), err)
		} else {
			band.NoData, band.HasNoData = tags.noData, tags.hasNoData
			if tags.hasTransform {
				band.Grid.Transform = tags.transform
			}
			band.Grid.CRS = tags.crs
			band.Grid.EPSG = tags.epsg
		}
	}

	return band, nil
}

// decodeTIFF decodes with x/image/tiff and falls back to the sample
// decoder for signed, 32/64-bit and floating point bands.
func decodeTIFF(data []byte) (*Grid, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err == nil {
		return gridFromImage(img), nil
	}
	var unsupported tiff.UnsupportedError
	if !errors.As(err, &unsupported) {
		return nil, err
	}
	monitoring.Logf("raster: %v, decoding samples directly", err)
	return decodeSamples(data)
}

// gridFromImage converts decoded pixels to float samples.
func gridFromImage(img image.Image) *Grid {
	bounds := img.Bounds()
	g := NewGrid(bounds.Dy(), bounds.Dx())
	switch src := img.(type) {
	case *image.Gray:
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				g.Set(r, c, float64(src.GrayAt(bounds.Min.X+c, bounds.Min.Y+r).Y))
			}
		}
	case *image.Gray16:
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				g.Set(r, c, float64(src.Gray16At(bounds.Min.X+c, bounds.Min.Y+r).Y))
			}
		}
	default:
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				gray := color.Gray16Model.Convert(img.At(bounds.Min.X+c, bounds.Min.Y+r)).(color.Gray16)
				g.Set(r, c, float64(gray.Y))
			}
		}
	}
	return g
}

type geoTags struct {
	noData       float64
	hasNoData    bool
	transform    geometry.AffineTransform
	hasTransform bool
	crs          string
	epsg         int
}

// readGeoTags walks the first IFD of a TIFF held in data and extracts the
// nodata value, the pixel-to-world transform and the CRS. Tags stored with
// an unexpected field type are ignored.
func readGeoTags(data []byte) (*geoTags, error) {
	d, err := readIFD(data)
	if err != nil {
		return nil, err
	}

	tags := &geoTags{}
	if s, ok := d.ascii(tagGDALNoData); ok {
		s = strings.TrimSpace(s)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("bad GDAL_NODATA %q: %w", s, err)
		}
		tags.noData, tags.hasNoData = v, true
	}

	scale, err := d.doubles(tagModelPixelScale)
	if err != nil {
		monitoring.Logf("raster: ignoring pixel scale: %v", err)
	}
	tiepoint, err := d.doubles(tagModelTiepoint)
	if err != nil {
		monitoring.Logf("raster: ignoring tiepoint: %v", err)
	}
	if len(scale) >= 2 && len(tiepoint) >= 6 {
		// Tiepoint (I, J, K, X, Y, Z) pins pixel (I, J) to world (X, Y).
		tags.transform = geometry.AffineTransform{
			A: scale[0], TX: tiepoint[3] - tiepoint[0]*scale[0],
			D: -scale[1], TY: tiepoint[4] + tiepoint[1]*scale[1],
		}
		tags.hasTransform = true
	}

	if e, ok := d.entries[tagGeoKeyDirectory]; ok {
		if e.typ == typeShort {
			keys := make([]uint16, e.count)
			for j := range keys {
				keys[j] = d.order.Uint16(e.raw[j*2:])
			}
			if code := epsgFromGeoKeys(keys); code != 0 {
				tags.epsg = code
				tags.crs = ProjFromEPSG(code)
			}
		} else {
			monitoring.Logf("raster: ignoring GeoKeyDirectory with field type %d", e.typ)
		}
	}

	if !tags.hasNoData && !tags.hasTransform && tags.epsg == 0 {
		return nil, fmt.Errorf("no GeoTIFF tags found")
	}
	return tags, nil
}

// epsgFromGeoKeys returns the projected or geographic EPSG code stored
// directly in the GeoKey directory, or 0.
func epsgFromGeoKeys(keys []uint16) int {
	if len(keys) < 4 {
		return 0
	}
	numKeys := int(keys[3])
	var geographic, projected int
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+4 > len(keys) {
			break
		}
		keyID, location, value := keys[base], keys[base+1], keys[base+3]
		if location != 0 {
			continue
		}
		switch keyID {
		case geoKeyGeographicType:
			geographic = int(value)
		case geoKeyProjectedType:
			projected = int(value)
		}
	}
	if projected != 0 && projected != 32767 {
		return projected
	}
	if geographic != 32767 {
		return geographic
	}
	return 0
}

// ProjFromEPSG returns a proj4 definition for the EPSG codes commonly found
// in exported rasters. Unknown codes come back as "EPSG:<code>"; clipping
// still works against a boundary whose .prj names the same code.
func ProjFromEPSG(code int) string {
	const etrs89 = "+ellps=GRS80 +towgs84=0,0,0,0,0,0,0"
	switch {
	case code == 4326:
		return "+proj=longlat +datum=WGS84 +no_defs"
	case code == 4269:
		return "+proj=longlat +datum=nad83 +no_defs"
	case code == 4258:
		return "+proj=longlat " + etrs89 + " +no_defs"
	case code == 3857:
		return "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	case code == 2154:
		return "+proj=lcc +lat_1=49 +lat_2=44 +lat_0=46.5 +lon_0=3 +x_0=700000 +y_0=6600000 " + etrs89 + " +units=m +no_defs"
	case code == 27700:
		return "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy " +
			"+towgs84=446.448,-125.157,542.06,0.15,0.247,0.842,-20.489 +units=m +no_defs"
	case code == 5070:
		return "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 +datum=nad83 +units=m +no_defs"
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600)
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700)
	case code >= 25828 && code <= 25838:
		return fmt.Sprintf("+proj=utm +zone=%d %s +units=m +no_defs", code-25800, etrs89)
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=nad83 +units=m +no_defs", code-26900)
	default:
		return fmt.Sprintf("EPSG:%d", code)
	}
}

// SupportedFormats returns the list of supported raster formats.
func SupportedFormats() []string {
	return []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported raster format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
