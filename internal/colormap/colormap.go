// Package colormap maps scalar values to colours and picks a default
// palette for a value range.
package colormap

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"raster-export/internal/apperr"
	"raster-export/pkg/colorutil"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
)

// AutoName selects the palette from the value range.
const AutoName = "Auto"

// Auto returns the default palette for values in [vmin, vmax].
func Auto(vmin, vmax float64) string {
	switch {
	case vmax <= 1.5 && vmin >= -1:
		return "YlGn"
	case vmax-vmin > 500:
		return "terrain"
	default:
		return "viridis"
	}
}

// Names returns the palette names in menu order.
func Names() []string {
	return append([]string(nil), names...)
}

// Choices returns AutoName followed by every palette name.
func Choices() []string {
	return append([]string{AutoName}, names...)
}

// Label returns the human readable name of a palette.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// Known reports whether name is a palette in the catalogue.
func Known(name string) bool {
	_, ok := labels[name]
	return ok
}

// Resolve turns a user choice into a palette name, running Auto when asked.
func Resolve(choice string, vmin, vmax float64) (string, error) {
	if choice == AutoName {
		return Auto(vmin, vmax), nil
	}
	if !Known(choice) {
		return "", fmt.Errorf("colormap %q: %w", choice, apperr.ErrValidation)
	}
	return choice, nil
}

// Colormap is a continuous palette over [Min, Max]. It satisfies
// palette.ColorMap so it can drive a plotter.ColorBar.
type Colormap struct {
	name  string
	stops []stop
	min   float64
	max   float64
	alpha float64
}

var _ palette.ColorMap = (*Colormap)(nil)

// New returns the named palette spanning [vmin, vmax].
func New(name string, vmin, vmax float64) (*Colormap, error) {
	stops, err := stopsFor(name)
	if err != nil {
		return nil, err
	}
	return &Colormap{name: name, stops: stops, min: vmin, max: vmax, alpha: 1}, nil
}

func stopsFor(name string) ([]stop, error) {
	if s, ok := tables[name]; ok {
		return s, nil
	}
	n, ok := brewerSizes[name]
	if !ok {
		return nil, fmt.Errorf("colormap %q: %w", name, apperr.ErrValidation)
	}
	p, err := brewer.GetPalette(brewer.TypeAny, name, n)
	if err != nil {
		return nil, fmt.Errorf("colormap %q: %w", name, err)
	}
	cols := p.Colors()
	out := make([]stop, len(cols))
	for i, c := range cols {
		out[i] = stop{pos: float64(i) / float64(len(cols)-1), c: colorutil.ToNRGBA(c)}
	}
	return out, nil
}

// Name returns the palette name.
func (m *Colormap) Name() string { return m.name }

// At implements palette.ColorMap. Values outside [Min, Max] are errors.
func (m *Colormap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < m.min:
		return nil, palette.ErrUnderflow
	case v > m.max:
		return nil, palette.ErrOverflow
	}
	return m.Clamped(v), nil
}

// Clamped maps v to a colour, pinning out-of-range values to the end colours.
// NaN maps to fully transparent.
func (m *Colormap) Clamped(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return colorutil.Transparent
	}
	t := 0.0
	if m.max > m.min {
		t = (v - m.min) / (m.max - m.min)
	}
	c := m.colorAt(t)
	c.A = uint8(math.Round(float64(c.A) * m.alpha))
	return c
}

func (m *Colormap) colorAt(t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	s := m.stops
	i := sort.Search(len(s), func(i int) bool { return s[i].pos >= t })
	switch {
	case i == 0:
		return s[0].c
	case i >= len(s):
		return s[len(s)-1].c
	}
	lo, hi := s[i-1], s[i]
	if hi.pos == lo.pos {
		return hi.c
	}
	return colorutil.Lerp(lo.c, hi.c, (t-lo.pos)/(hi.pos-lo.pos))
}

// Max implements palette.ColorMap.
func (m *Colormap) Max() float64 { return m.max }

// Min implements palette.ColorMap.
func (m *Colormap) Min() float64 { return m.min }

// SetMax implements palette.ColorMap.
func (m *Colormap) SetMax(v float64) { m.max = v }

// SetMin implements palette.ColorMap.
func (m *Colormap) SetMin(v float64) { m.min = v }

// Alpha implements palette.ColorMap.
func (m *Colormap) Alpha() float64 { return m.alpha }

// SetAlpha implements palette.ColorMap.
func (m *Colormap) SetAlpha(a float64) { m.alpha = math.Max(0, math.Min(1, a)) }

// Palette implements palette.ColorMap by sampling n evenly spaced colours.
func (m *Colormap) Palette(n int) palette.Palette {
	cols := make([]color.Color, n)
	for i := range cols {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		c := m.colorAt(t)
		c.A = uint8(math.Round(float64(c.A) * m.alpha))
		cols[i] = c
	}
	return samples(cols)
}

type samples []color.Color

func (s samples) Colors() []color.Color { return s }
