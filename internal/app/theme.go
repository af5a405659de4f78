package app

import (
	"image/color"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Appearance is the light or dark look of the whole application.
type Appearance int32

const (
	Dark Appearance = iota
	Light
)

func (a Appearance) String() string {
	if a == Light {
		return "light"
	}
	return "dark"
}

// ParseAppearance maps "light" to Light and anything else to Dark.
func ParseAppearance(s string) Appearance {
	if s == "light" {
		return Light
	}
	return Dark
}

var appearance atomic.Int32

// CurrentAppearance returns the process-wide appearance.
func CurrentAppearance() Appearance { return Appearance(appearance.Load()) }

// SetAppearance switches the process-wide appearance and notifies s.
func (s *State) SetAppearance(a Appearance) {
	appearance.Store(int32(a))
	s.Emit(EventAppearanceChanged, a)
}

// ExporterTheme follows CurrentAppearance regardless of the OS variant.
type ExporterTheme struct{}

var _ fyne.Theme = (*ExporterTheme)(nil)

func (t *ExporterTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	variant := theme.VariantDark
	if CurrentAppearance() == Light {
		variant = theme.VariantLight
	}
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x1F, G: 0x6F, B: 0xEB, A: 0xFF}
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *ExporterTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ExporterTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ExporterTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
