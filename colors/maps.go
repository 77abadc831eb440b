package colors

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

type stop struct {
	at float64
	c  colorful.Color
}

// ColorMap maps a value in [0, 1] to a colour by interpolating between stops.
type ColorMap struct {
	Name  string
	stops []stop
}

// At returns the colour for v. Values outside [0, 1] are clamped and NaN maps
// to the start of the map.
func (m *ColorMap) At(v float64) color.Color {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	i := sort.Search(len(m.stops), func(i int) bool { return m.stops[i].at >= v })
	if i == 0 {
		return toNRGBA(m.stops[0].c)
	}
	if i == len(m.stops) {
		return toNRGBA(m.stops[len(m.stops)-1].c)
	}
	lo, hi := m.stops[i-1], m.stops[i]
	t := (v - lo.at) / (hi.at - lo.at)
	return toNRGBA(lo.c.BlendRgb(hi.c, t))
}

func (m *ColorMap) reversed(name string) *ColorMap {
	r := &ColorMap{Name: name, stops: make([]stop, len(m.stops))}
	for i, s := range m.stops {
		r.stops[len(m.stops)-1-i] = stop{at: 1 - s.at, c: s.c}
	}
	return r
}

func uniform(hexes ...string) []stop {
	stops := make([]stop, len(hexes))
	for i, h := range hexes {
		stops[i] = stop{at: float64(i) / float64(len(hexes)-1), c: mustHex(h)}
	}
	return stops
}

func at(pairs ...interface{}) []stop {
	stops := make([]stop, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		stops = append(stops, stop{at: pairs[i].(float64), c: mustHex(pairs[i+1].(string))})
	}
	return stops
}

func mustHex(h string) colorful.Color {
	c, err := colorful.Hex(h)
	if err != nil {
		panic("colors: bad stop " + h)
	}
	return c
}

var colorMaps = map[string][]stop{
	"viridis":  uniform("#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"),
	"plasma":   uniform("#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"),
	"inferno":  uniform("#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"),
	"magma":    uniform("#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"),
	"cividis":  uniform("#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8779", "#a69d75", "#c4b56c", "#e4cf5b", "#fee838"),
	"jet":      at(0.0, "#000080", 0.11, "#0000ff", 0.125, "#0000ff", 0.34, "#00ffff", 0.35, "#00ffff", 0.65, "#ffff00", 0.66, "#ffff00", 0.89, "#ff0000", 1.0, "#800000"),
	"hot":      at(0.0, "#0b0000", 0.365, "#ff0000", 0.746, "#ffff00", 1.0, "#ffffff"),
	"cool":     uniform("#00ffff", "#ff00ff"),
	"spring":   uniform("#ff00ff", "#ffff00"),
	"summer":   uniform("#008066", "#ffff66"),
	"autumn":   uniform("#ff0000", "#ffff00"),
	"winter":   uniform("#0000ff", "#00ff80"),
	"gray":     uniform("#000000", "#ffffff"),
	"bone":     at(0.0, "#000000", 0.375, "#545474", 0.75, "#a7c7c7", 1.0, "#ffffff"),
	"copper":   uniform("#000000", "#ffc77f"),
	"terrain":  at(0.0, "#333399", 0.15, "#0099ff", 0.25, "#00cc66", 0.5, "#ffff99", 0.75, "#805c54", 1.0, "#ffffff"),
	"coolwarm": uniform("#3b4cc0", "#7092f3", "#aac7fd", "#dddcdc", "#f7b89c", "#e7745b", "#b40426"),
	"rainbow":  uniform("#8000ff", "#2c7ef7", "#2adddd", "#80ffb4", "#d4dd80", "#ff7e41", "#ff0000"),
	"ocean":    uniform("#008000", "#000055", "#0080aa", "#ffffff"),
}

// LookupMap returns the named colour map. A "_r" suffix reverses it.
func LookupMap(name string) (*ColorMap, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	base, reverse := strings.CutSuffix(key, "_r")
	if base == "grey" {
		base = "gray"
	}
	stops, ok := colorMaps[base]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColorMap, "%q", name)
	}
	m := &ColorMap{Name: base, stops: stops}
	if reverse {
		return m.reversed(key), nil
	}
	return m, nil
}

// MapNames lists the known colour maps without their reversed variants.
func MapNames() []string {
	names := make([]string, 0, len(colorMaps))
	for n := range colorMaps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
