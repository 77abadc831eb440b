// Package cluster groups tracks by location. Each track is reduced to a single
// lon/lat point and distances are plain degrees.
package cluster

import (
	"sort"

	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
)

type Reduction string

const (
	Average          Reduction = "average"
	Start            Reduction = "start"
	StartStopAverage Reduction = "start_stop_average"
)

var Reductions = []Reduction{Average, Start, StartStopAverage}

func ParseReduction(s string) (Reduction, error) {
	for _, r := range Reductions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", errors.Errorf("cluster: unknown reduction %q", s)
}

// Reduce returns the single point standing in for the track. ok is false for
// a track without points.
func (r Reduction) Reduce(t *track.Track) (orb.Point, bool) {
	first, ok := t.First()
	if !ok {
		return orb.Point{}, false
	}
	switch r {
	case Start:
		return first.Orb(), true
	case StartStopAverage:
		last, _ := t.Last()
		return orb.Point{(first.Lon + last.Lon) / 2, (first.Lat + last.Lat) / 2}, true
	default:
		var lon, lat float64
		n := 0
		for _, s := range t.Segments {
			for _, p := range s {
				lon += p.Lon
				lat += p.Lat
				n++
			}
		}
		return orb.Point{lon / float64(n), lat / float64(n)}, true
	}
}

type Cluster struct {
	Label    int
	Tracks   []*track.Track
	Centroid orb.Point
}

type indexed struct {
	p orb.Point
	i int
}

func (x indexed) Point() orb.Point { return x.p }

// DBSCAN clusters the tracks by density. A track is a core track when at least
// minSize reduced points, itself included, lie within radius of its own.
// Clusters are labelled from 0 in the order their first core track appears in
// tracks. Tracks that belong to no cluster are returned as noise.
func DBSCAN(tracks []*track.Track, r Reduction, radius float64, minSize int) ([]Cluster, []*track.Track) {
	points := make([]orb.Point, len(tracks))
	valid := make([]bool, len(tracks))
	var bound orb.Bound
	first := true
	for i, t := range tracks {
		p, ok := r.Reduce(t)
		if !ok {
			continue
		}
		points[i], valid[i] = p, true
		if first {
			bound = p.Bound()
			first = false
		} else {
			bound = bound.Extend(p)
		}
	}

	qt := quadtree.New(bound.Pad(radius))
	for i, ok := range valid {
		if ok {
			qt.Add(indexed{p: points[i], i: i})
		}
	}

	var buf []orb.Pointer
	neighbours := func(i int) []int {
		buf = qt.InBound(buf[:0], points[i].Bound().Pad(radius))
		out := make([]int, 0, len(buf))
		for _, n := range buf {
			x := n.(indexed)
			if planar.Distance(points[i], x.p) <= radius {
				out = append(out, x.i)
			}
		}
		sort.Ints(out)
		return out
	}

	const unvisited = -1
	labels := make([]int, len(tracks))
	for i := range labels {
		labels[i] = unvisited
	}
	label := 0
	for i := range tracks {
		if !valid[i] || labels[i] != unvisited {
			continue
		}
		n := neighbours(i)
		if len(n) < minSize {
			continue
		}
		labels[i] = label
		stack := n
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if labels[j] != unvisited {
				continue
			}
			labels[j] = label
			if nj := neighbours(j); len(nj) >= minSize {
				for _, k := range nj {
					if labels[k] == unvisited {
						stack = append(stack, k)
					}
				}
			}
		}
		label++
	}

	clusters := make([]Cluster, label)
	members := make([]orb.MultiPoint, label)
	var noise []*track.Track
	for i, t := range tracks {
		l := labels[i]
		if l == unvisited {
			noise = append(noise, t)
			continue
		}
		clusters[l].Label = l
		clusters[l].Tracks = append(clusters[l].Tracks, t)
		members[l] = append(members[l], points[i])
	}
	for l := range clusters {
		clusters[l].Centroid, _ = planar.CentroidArea(members[l])
	}
	return clusters, noise
}

// Within returns the tracks whose reduced point lies within radius of center.
func Within(tracks []*track.Track, r Reduction, center orb.Point, radius float64) []*track.Track {
	var out []*track.Track
	for _, t := range tracks {
		p, ok := r.Reduce(t)
		if ok && planar.Distance(p, center) <= radius {
			out = append(out, t)
		}
	}
	return out
}
