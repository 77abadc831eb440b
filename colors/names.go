package colors

import (
	"bufio"
	_ "embed"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

//go:embed xkcd.txt
var xkcdTable string

var (
	xkcdOnce   sync.Once
	xkcdColors map[string]color.NRGBA
)

// Single letter shorthands as matplotlib accepts them.
var shorthands = map[string]string{
	"b": "blue",
	"g": "green",
	"r": "red",
	"c": "cyan",
	"m": "magenta",
	"y": "yellow",
	"k": "black",
	"w": "white",
}

func loadXKCD() {
	xkcdColors = make(map[string]color.NRGBA)
	sc := bufio.NewScanner(strings.NewReader(xkcdTable))
	for sc.Scan() {
		name, hex, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}
		c, err := parseHex(hex)
		if err != nil {
			panic("colors: bad xkcd entry " + sc.Text())
		}
		xkcdColors[name] = c
	}
}

// XKCD looks up a colour of the xkcd colour survey by name. Names are case
// insensitive and "gray" is accepted for "grey".
func XKCD(name string) (color.NRGBA, bool) {
	xkcdOnce.Do(loadXKCD)
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if c, ok := xkcdColors[key]; ok {
		return c, true
	}
	c, ok := xkcdColors[strings.ReplaceAll(key, "gray", "grey")]
	return c, ok
}

// Named resolves a plain colour: a CSS/SVG colour name, a single letter
// shorthand, an xkcd:<name> reference or a #rgb, #rrggbb or #rrggbbaa hex value.
func Named(s string) (color.NRGBA, error) {
	name := strings.TrimSpace(s)
	switch {
	case name == "":
		return color.NRGBA{}, errors.Wrap(ErrUnknownColor, "empty colour")
	case strings.HasPrefix(name, "#"):
		c, err := parseHex(name)
		if err != nil {
			return color.NRGBA{}, errors.Wrapf(ErrUnknownColor, "%q", s)
		}
		return c, nil
	case strings.HasPrefix(strings.ToLower(name), "xkcd:"):
		if c, ok := XKCD(name[len("xkcd:"):]); ok {
			return c, nil
		}
		return color.NRGBA{}, errors.Wrapf(ErrUnknownColor, "%q", s)
	}

	key := strings.ToLower(name)
	if long, ok := shorthands[key]; ok {
		key = long
	}
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	if c, ok := colornames.Map[key]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	return color.NRGBA{}, errors.Wrapf(ErrUnknownColor, "%q", s)
}

// parseHex reads #rgb, #rrggbb and #rrggbbaa.
func parseHex(s string) (color.NRGBA, error) {
	if !strings.HasPrefix(s, "#") || strings.TrimLeft(s[1:], "0123456789abcdefABCDEF") != "" {
		return color.NRGBA{}, errors.Errorf("colors: malformed hex colour %q", s)
	}
	alpha := uint8(255)
	switch len(s) {
	case 4, 7:
	case 9:
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, errors.Wrapf(err, "colors: malformed hex colour %q", s)
		}
		alpha, s = uint8(a), s[:7]
	default:
		return color.NRGBA{}, errors.Errorf("colors: malformed hex colour %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	n := toNRGBA(c)
	n.A = alpha
	return n, nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
