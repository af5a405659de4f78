package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/tiff/lzw"
)

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3

	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionOldDeflate = 32946

	predictorNone       = 1
	predictorHorizontal = 2

	maxSamples = 1 << 28
)

// sampleLayout describes how the first band is stored.
type sampleLayout struct {
	width, height   int
	bits, format    int
	spp, planar     int
	compression     int
	predictor       int
	chunkW, chunkH  int
	offsets, counts []uint64
}

// decodeSamples reads the first band of a striped or tiled TIFF straight
// from its sample bytes. It covers what x/image/tiff rejects: signed
// integers, 32/64-bit unsigned integers and IEEE floats.
func decodeSamples(data []byte) (*Grid, error) {
	d, err := readIFD(data)
	if err != nil {
		return nil, err
	}
	l, err := layoutOf(d)
	if err != nil {
		return nil, err
	}

	size := l.bits / 8
	stride := size
	if l.planar == 1 {
		stride *= l.spp
	}
	rowBytes := l.chunkW * stride
	across := (l.width + l.chunkW - 1) / l.chunkW
	down := (l.height + l.chunkH - 1) / l.chunkH

	g := NewGrid(l.height, l.width)
	for i := 0; i < across*down; i++ {
		buf, err := chunkBytes(data, l.offsets[i], l.counts[i], l.compression)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		if l.predictor == predictorHorizontal {
			undoHorizontal(buf, rowBytes, size, stride/size, d.order)
		}

		x0, y0 := (i%across)*l.chunkW, (i/across)*l.chunkH
		for r := 0; r < l.chunkH && y0+r < l.height; r++ {
			for c := 0; c < l.chunkW && x0+c < l.width; c++ {
				at := r*rowBytes + c*stride
				if at+size > len(buf) {
					break
				}
				g.Set(y0+r, x0+c, sampleValue(buf[at:], l.bits, l.format, d.order))
			}
		}
	}
	return g, nil
}

func layoutOf(d *ifd) (*sampleLayout, error) {
	l := &sampleLayout{
		width:       int(d.uint(tagImageWidth, 0)),
		height:      int(d.uint(tagImageLength, 0)),
		bits:        int(d.uint(tagBitsPerSample, 1)),
		format:      int(d.uint(tagSampleFormat, sampleUint)),
		spp:         int(d.uint(tagSamplesPerPixel, 1)),
		planar:      int(d.uint(tagPlanarConfig, 1)),
		compression: int(d.uint(tagCompression, compressionNone)),
		predictor:   int(d.uint(tagPredictor, predictorNone)),
	}
	if l.width <= 0 || l.height <= 0 || l.width*l.height > maxSamples {
		return nil, fmt.Errorf("unsupported image size %dx%d", l.width, l.height)
	}
	if l.spp < 1 {
		return nil, fmt.Errorf("bad samples per pixel %d", l.spp)
	}

	switch l.format {
	case sampleUint, sampleInt:
		if l.bits != 8 && l.bits != 16 && l.bits != 32 && l.bits != 64 {
			return nil, fmt.Errorf("unsupported %d-bit integer samples", l.bits)
		}
	case sampleFloat:
		if l.bits != 32 && l.bits != 64 {
			return nil, fmt.Errorf("unsupported %d-bit float samples", l.bits)
		}
	default:
		return nil, fmt.Errorf("unsupported sample format %d", l.format)
	}
	switch l.predictor {
	case predictorNone:
	case predictorHorizontal:
		if l.format == sampleFloat {
			return nil, fmt.Errorf("horizontal predictor on float samples")
		}
	default:
		return nil, fmt.Errorf("unsupported predictor %d", l.predictor)
	}

	var ok1, ok2 bool
	if _, tiled := d.entries[tagTileOffsets]; tiled {
		l.chunkW = int(d.uint(tagTileWidth, 0))
		l.chunkH = int(d.uint(tagTileLength, 0))
		l.offsets, ok1 = d.uints(tagTileOffsets)
		l.counts, ok2 = d.uints(tagTileByteCounts)
	} else {
		l.chunkW = l.width
		l.chunkH = int(d.uint(tagRowsPerStrip, uint64(l.height)))
		if l.chunkH > l.height {
			l.chunkH = l.height
		}
		l.offsets, ok1 = d.uints(tagStripOffsets)
		l.counts, ok2 = d.uints(tagStripByteCounts)
	}
	if !ok1 || !ok2 || l.chunkW <= 0 || l.chunkH <= 0 {
		return nil, fmt.Errorf("missing strip or tile layout")
	}
	need := ((l.width + l.chunkW - 1) / l.chunkW) * ((l.height + l.chunkH - 1) / l.chunkH)
	if len(l.offsets) < need || len(l.counts) < need {
		return nil, fmt.Errorf("have %d chunks, need %d", min(len(l.offsets), len(l.counts)), need)
	}
	return l, nil
}

// chunkBytes returns the decompressed bytes of one strip or tile.
func chunkBytes(data []byte, off, n uint64, compression int) ([]byte, error) {
	if off > uint64(len(data)) || n > uint64(len(data))-off {
		return nil, fmt.Errorf("data at %d+%d overruns file", off, n)
	}
	raw := data[off : off+n]

	switch compression {
	case compressionNone:
		return append([]byte(nil), raw...), nil
	case compressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer r.Close()
		return io.ReadAll(r)
	case compressionDeflate, compressionOldDeflate:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}
}

// undoHorizontal reverses TIFF predictor 2 in place. Each sample was
// stored as the difference from the same sample of the previous pixel.
func undoHorizontal(buf []byte, rowBytes, size, spp int, order binary.ByteOrder) {
	step := spp * size
	for row := 0; row+rowBytes <= len(buf); row += rowBytes {
		line := buf[row : row+rowBytes]
		for i := step; i+size <= len(line); i += size {
			p := i - step
			switch size {
			case 1:
				line[i] += line[p]
			case 2:
				order.PutUint16(line[i:], order.Uint16(line[i:])+order.Uint16(line[p:]))
			case 4:
				order.PutUint32(line[i:], order.Uint32(line[i:])+order.Uint32(line[p:]))
			case 8:
				order.PutUint64(line[i:], order.Uint64(line[i:])+order.Uint64(line[p:]))
			}
		}
	}
}

func sampleValue(b []byte, bits, format int, order binary.ByteOrder) float64 {
	switch format {
	case sampleFloat:
		if bits == 32 {
			return float64(math.Float32frombits(order.Uint32(b)))
		}
		return math.Float64frombits(order.Uint64(b))
	case sampleInt:
		switch bits {
		case 8:
			return float64(int8(b[0]))
		case 16:
			return float64(int16(order.Uint16(b)))
		case 32:
			return float64(int32(order.Uint32(b)))
		default:
			return float64(int64(order.Uint64(b)))
		}
	default:
		switch bits {
		case 8:
			return float64(b[0])
		case 16:
			return float64(order.Uint16(b))
		case 32:
			return float64(order.Uint32(b))
		default:
			return float64(order.Uint64(b))
		}
	}
}
