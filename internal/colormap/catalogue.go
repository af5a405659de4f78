package colormap

import (
	"image/color"

	"raster-export/pkg/colorutil"
)

type stop struct {
	pos float64
	c   color.NRGBA
}

// even spreads hex colours evenly over [0, 1].
func even(hex ...string) []stop {
	out := make([]stop, len(hex))
	for i, h := range hex {
		out[i] = stop{pos: float64(i) / float64(len(hex)-1), c: colorutil.MustHex(h)}
	}
	return out
}

// brewerSizes lists the ColorBrewer schemes and how many classes to sample.
var brewerSizes = map[string]int{
	"YlGn":     9,
	"RdYlGn":   11,
	"Spectral": 11,
}

var tables = map[string][]stop{
	"viridis": even("#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"),
	"terrain": {
		{0, colorutil.MustHex("#333399")},
		{0.15, colorutil.MustHex("#0099ff")},
		{0.25, colorutil.MustHex("#00cc66")},
		{0.5, colorutil.MustHex("#ffff99")},
		{0.75, colorutil.MustHex("#805c54")},
		{1, colorutil.MustHex("#ffffff")},
	},
	"jet": {
		{0, colorutil.MustHex("#00007f")},
		{0.11, colorutil.MustHex("#0000ff")},
		{0.125, colorutil.MustHex("#0000ff")},
		{0.34, colorutil.MustHex("#00ffff")},
		{0.35, colorutil.MustHex("#00ffff")},
		{0.65, colorutil.MustHex("#ffff00")},
		{0.66, colorutil.MustHex("#ffff00")},
		{0.89, colorutil.MustHex("#ff0000")},
		{1, colorutil.MustHex("#7f0000")},
	},
	"hot": {
		{0, colorutil.MustHex("#0b0000")},
		{0.365, colorutil.MustHex("#ff0000")},
		{0.746, colorutil.MustHex("#ffff00")},
		{1, colorutil.MustHex("#ffffff")},
	},
	"cool":    even("#00ffff", "#ff00ff"),
	"rainbow": even("#8000ff", "#2c7ef7", "#2adddd", "#80ffb4", "#d4dd80", "#ff7e41", "#ff0000"),
	"turbo": even("#30123b", "#4145ab", "#4675ed", "#39a2fc", "#1bcfd4", "#24eca6",
		"#61fc6c", "#a4fc3b", "#d1e834", "#f3c63a", "#fe9b2d", "#f36315", "#d93806",
		"#b11901", "#7a0403"),
	"plasma": even("#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786",
		"#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"),
	"inferno": even("#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60",
		"#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"),
	"magma": even("#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f",
		"#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"),
	"cividis": even("#00224e", "#123570", "#3b496c", "#575d6d", "#707173",
		"#8a8779", "#a69d75", "#c4b56c", "#e4cf5b", "#fee838"),
}

// names is the menu order.
var names = []string{
	"viridis", "terrain", "YlGn", "RdYlGn", "Spectral", "jet", "hot",
	"cool", "rainbow", "turbo", "plasma", "inferno", "magma", "cividis",
}

var labels = map[string]string{
	"viridis":  "Viridis",
	"terrain":  "Terrain",
	"YlGn":     "YlGn (Vegetation)",
	"RdYlGn":   "RdYlGn",
	"Spectral": "Spectral",
	"jet":      "Jet",
	"hot":      "Hot",
	"cool":     "Cool",
	"rainbow":  "Rainbow",
	"turbo":    "Turbo",
	"plasma":   "Plasma",
	"inferno":  "Inferno",
	"magma":    "Magma",
	"cividis":  "Cividis",
}
