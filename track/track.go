// Package track holds parsed GPS tracks and reads and writes them as GPX.
package track

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

type Point struct {
	Lat    float64
	Lon    float64
	Ele    float64
	HasEle bool
	Time   time.Time
}

// Orb returns the point as an orb.Point, which is (lon, lat).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Track is one <trk> of a GPX file. Each segment keeps its recorded order.
type Track struct {
	Source   string
	Name     string
	Type     int
	Time     time.Time
	Segments [][]Point
}

func (t *Track) NumPoints() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s)
	}
	return n
}

// Points returns every point of every segment in path order.
func (t *Track) Points() []Point {
	points := make([]Point, 0, t.NumPoints())
	for _, s := range t.Segments {
		points = append(points, s...)
	}
	return points
}

func (t *Track) First() (Point, bool) {
	for _, s := range t.Segments {
		if len(s) > 0 {
			return s[0], true
		}
	}
	return Point{}, false
}

func (t *Track) Last() (Point, bool) {
	for i := len(t.Segments) - 1; i >= 0; i-- {
		if s := t.Segments[i]; len(s) > 0 {
			return s[len(s)-1], true
		}
	}
	return Point{}, false
}

// HasElevation is true when the track has points and every one carries an
// elevation.
func (t *Track) HasElevation() bool {
	if t.NumPoints() == 0 {
		return false
	}
	for _, s := range t.Segments {
		for _, p := range s {
			if !p.HasEle {
				return false
			}
		}
	}
	return true
}

// ElevationRange returns the lowest and highest elevation of the track. ok is
// false when the track has no elevation data.
func (t *Track) ElevationRange() (min, max float64, ok bool) {
	if !t.HasElevation() {
		return 0, 0, false
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, s := range t.Segments {
		for _, p := range s {
			min = math.Min(min, p.Ele)
			max = math.Max(max, p.Ele)
		}
	}
	return min, max, true
}

// Bound is the lon/lat bounding box of the track.
func (t *Track) Bound() orb.Bound {
	mp := make(orb.MultiPoint, 0, t.NumPoints())
	for _, s := range t.Segments {
		for _, p := range s {
			mp = append(mp, p.Orb())
		}
	}
	return mp.Bound()
}

// Bound is the bounding box of all the given tracks.
func Bound(tracks []*Track) orb.Bound {
	var b orb.Bound
	first := true
	for _, t := range tracks {
		if t.NumPoints() == 0 {
			continue
		}
		if first {
			b = t.Bound()
			first = false
			continue
		}
		b = b.Union(t.Bound())
	}
	return b
}

// FilterType keeps the tracks with the given type code.
func FilterType(tracks []*Track, code int) []*Track {
	var out []*Track
	for _, t := range tracks {
		if t.Type == code {
			out = append(out, t)
		}
	}
	return out
}
