// Package colors resolves line colour specifications. A specification is a
// plain colour (name, hex or xkcd:<name>) or a colour map keyed by elevation,
// cmap:<name> normalised over all tracks or lcmap:<name> normalised per track.
package colors

import (
	"image/color"
	"math"
	"strings"

	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/pkg/errors"
)

var (
	ErrUnknownColor    = errors.New("colors: unknown colour")
	ErrUnknownColorMap = errors.New("colors: unknown colour map")
	ErrNoElevation     = errors.New("colors: track has no elevation data")
)

const (
	mapPrefix      = "cmap:"
	localMapPrefix = "lcmap:"
)

type Kind int

const (
	KindPlain Kind = iota
	KindMap
	KindLocalMap
)

type Spec struct {
	raw   string
	kind  Kind
	color color.NRGBA
	cmap  *ColorMap
}

// ParseSpec parses a colour specification.
func ParseSpec(s string) (Spec, error) {
	spec := Spec{raw: s}
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(lower, mapPrefix):
		m, err := LookupMap(lower[len(mapPrefix):])
		if err != nil {
			return Spec{}, err
		}
		spec.kind, spec.cmap = KindMap, m
	case strings.HasPrefix(lower, localMapPrefix):
		m, err := LookupMap(lower[len(localMapPrefix):])
		if err != nil {
			return Spec{}, err
		}
		spec.kind, spec.cmap = KindLocalMap, m
	default:
		c, err := Named(s)
		if err != nil {
			return Spec{}, err
		}
		spec.color = c
	}
	return spec, nil
}

func (s Spec) Kind() Kind { return s.kind }

// IsMap is true for cmap: and lcmap: specifications.
func (s Spec) IsMap() bool { return s.kind != KindPlain }

// Local is true when the map is normalised per track.
func (s Spec) Local() bool { return s.kind == KindLocalMap }

// Color is the colour of a plain specification.
func (s Spec) Color() color.NRGBA { return s.color }

func (s Spec) Map() *ColorMap { return s.cmap }

func (s Spec) String() string { return s.raw }

// ElevationRange returns the lowest and highest elevation over all tracks that
// carry elevation data.
func ElevationRange(tracks []*track.Track) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, t := range tracks {
		lo, hi, has := t.ElevationRange()
		if !has {
			continue
		}
		min = math.Min(min, lo)
		max = math.Max(max, hi)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// TrackColorer gives the colour of a point of one track by its elevation.
type TrackColorer interface {
	At(ele float64) color.Color
}

type constant struct {
	c color.Color
}

func (c constant) At(float64) color.Color { return c.c }

type scaled struct {
	m        *ColorMap
	min, max float64
}

func (s scaled) At(ele float64) color.Color {
	if s.max <= s.min {
		return s.m.At(0)
	}
	return s.m.At((ele - s.min) / (s.max - s.min))
}

// Resolver hands out a TrackColorer per track for one specification.
type Resolver struct {
	spec     Spec
	min, max float64
}

// NewResolver prepares a resolver for the tracks that will be drawn. A map
// specification fails with ErrNoElevation when any track lacks elevation.
func NewResolver(spec Spec, tracks []*track.Track) (*Resolver, error) {
	r := &Resolver{spec: spec}
	if !spec.IsMap() {
		return r, nil
	}
	for _, t := range tracks {
		if !t.HasElevation() {
			return nil, errors.Wrapf(ErrNoElevation, "%s: %s %q", spec, t.Source, t.Name)
		}
	}
	r.min, r.max, _ = ElevationRange(tracks)
	return r, nil
}

func (r *Resolver) Spec() Spec { return r.spec }

// Range is the normalisation range of a cmap: specification.
func (r *Resolver) Range() (min, max float64) {
	return r.min, r.max
}

func (r *Resolver) ForTrack(t *track.Track) (TrackColorer, error) {
	switch r.spec.kind {
	case KindMap:
		if !t.HasElevation() {
			return nil, errors.Wrapf(ErrNoElevation, "%s: %s %q", r.spec, t.Source, t.Name)
		}
		return scaled{m: r.spec.cmap, min: r.min, max: r.max}, nil
	case KindLocalMap:
		min, max, ok := t.ElevationRange()
		if !ok {
			return nil, errors.Wrapf(ErrNoElevation, "%s: %s %q", r.spec, t.Source, t.Name)
		}
		return scaled{m: r.spec.cmap, min: min, max: max}, nil
	default:
		return constant{c: r.spec.color}, nil
	}
}
