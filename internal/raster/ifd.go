package raster

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TIFF field types the walker understands.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var fieldSizes = map[uint16]int{
	typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	typeSByte: 1, typeUndefined: 1, typeSShort: 2, typeSLong: 4,
	typeSRational: 8, typeFloat: 4, typeDouble: 8,
}

type ifdEntry struct {
	typ   uint16
	count int
	raw   []byte
}

// ifd is the first image file directory of a TIFF with every value
// already resolved to its bytes.
type ifd struct {
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

// readIFD walks the first IFD of the TIFF held in data. Entries with an
// unknown field type are skipped.
func readIFD(data []byte) (*ifd, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("not a valid TIFF file")
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a valid TIFF file")
	}

	offset := int(order.Uint32(data[4:8]))
	if offset < 8 || offset+2 > len(data) {
		return nil, fmt.Errorf("IFD offset %d beyond end of file", offset)
	}
	n := int(order.Uint16(data[offset:]))

	d := &ifd{order: order, entries: make(map[uint16]ifdEntry, n)}
	for i := 0; i < n; i++ {
		start := offset + 2 + i*12
		if start+12 > len(data) {
			return nil, fmt.Errorf("truncated IFD entry %d", i)
		}
		entry := data[start : start+12]

		tag := order.Uint16(entry[0:2])
		typ := order.Uint16(entry[2:4])
		count := int(order.Uint32(entry[4:8]))

		size, ok := fieldSizes[typ]
		if !ok {
			continue
		}
		if count < 0 || count > len(data) {
			return nil, fmt.Errorf("tag %d: count %d out of range", tag, count)
		}
		total := size * count
		var raw []byte
		if total <= 4 {
			raw = entry[8 : 8+total]
		} else {
			at := int(order.Uint32(entry[8:12]))
			if at < 0 || at+total > len(data) {
				return nil, fmt.Errorf("tag %d: value at %d overruns file", tag, at)
			}
			raw = data[at : at+total]
		}
		d.entries[tag] = ifdEntry{typ: typ, count: count, raw: raw}
	}
	return d, nil
}

// uints returns an unsigned integer tag of BYTE, SHORT or LONG type.
func (d *ifd) uints(tag uint16) ([]uint64, bool) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, false
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case typeByte:
			out[i] = uint64(e.raw[i])
		case typeShort:
			out[i] = uint64(d.order.Uint16(e.raw[i*2:]))
		case typeLong:
			out[i] = uint64(d.order.Uint32(e.raw[i*4:]))
		default:
			return nil, false
		}
	}
	return out, true
}

// uint returns the first value of an integer tag, or def.
func (d *ifd) uint(tag uint16, def uint64) uint64 {
	if v, ok := d.uints(tag); ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// doubles returns a DOUBLE tag. Any other field type is an error.
func (d *ifd) doubles(tag uint16) ([]float64, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, nil
	}
	if e.typ != typeDouble {
		return nil, fmt.Errorf("tag %d has field type %d, want DOUBLE", tag, e.typ)
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(d.order.Uint64(e.raw[i*8:]))
	}
	return out, nil
}

// ascii returns an ASCII tag without its trailing NULs.
func (d *ifd) ascii(tag uint16) (string, bool) {
	e, ok := d.entries[tag]
	if !ok || e.typ != typeASCII {
		return "", false
	}
	end := len(e.raw)
	for end > 0 && e.raw[end-1] == 0 {
		end--
	}
	return string(e.raw[:end]), true
}
