package track

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kwoodhouse93/strava-heatmap/strava"
	"github.com/pkg/errors"
	"github.com/tkrajina/gpxgo/gpx"
)

// Parse reads one GPX document. Every <trk> becomes a Track and every non-empty
// <trkseg> one of its segments.
func Parse(r io.Reader, source string) ([]*Track, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "track: failed to read %s", source)
	}
	return ParseBytes(buf, source)
}

func ParseBytes(buf []byte, source string) ([]*Track, error) {
	g, err := gpx.ParseBytes(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "track: failed to parse %s", source)
	}

	tracks := make([]*Track, 0, len(g.Tracks))
	for _, trk := range g.Tracks {
		code, _ := strava.TypeCode(trk.Type)
		t := &Track{
			Source: source,
			Name:   trk.Name,
			Type:   code,
		}
		if g.Time != nil {
			t.Time = *g.Time
		}
		for _, seg := range trk.Segments {
			if len(seg.Points) == 0 {
				continue
			}
			points := make([]Point, 0, len(seg.Points))
			for _, p := range seg.Points {
				points = append(points, Point{
					Lat:    p.Latitude,
					Lon:    p.Longitude,
					Ele:    p.Elevation.Value(),
					HasEle: p.Elevation.NotNull(),
					Time:   p.Timestamp,
				})
			}
			t.Segments = append(t.Segments, points)
		}
		if t.Time.IsZero() {
			if first, ok := t.First(); ok {
				t.Time = first.Time
			}
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Creator is written into the <gpx creator> attribute of encoded files.
const Creator = "StravaGPX"

// Encode writes the tracks as a GPX 1.1 document. The track type is written
// as its numeric code, as Strava's own export does.
func Encode(w io.Writer, tracks ...*Track) error {
	g := &gpx.GPX{
		Version: "1.1",
		Creator: Creator,
	}
	for _, t := range tracks {
		if g.Time == nil && !t.Time.IsZero() {
			ts := t.Time.UTC()
			g.Time = &ts
		}
		trk := gpx.GPXTrack{
			Name: t.Name,
			Type: strconv.Itoa(t.Type),
		}
		for _, s := range t.Segments {
			seg := gpx.GPXTrackSegment{}
			for _, p := range s {
				point := gpx.GPXPoint{
					Point:     gpx.Point{Latitude: p.Lat, Longitude: p.Lon},
					Timestamp: p.Time.UTC(),
				}
				if p.HasEle {
					point.Elevation = *gpx.NewNullableFloat64(p.Ele)
				}
				seg.Points = append(seg.Points, point)
			}
			trk.Segments = append(trk.Segments, seg)
		}
		g.Tracks = append(g.Tracks, trk)
	}

	xmlBytes, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return errors.Wrap(err, "track: failed to encode gpx")
	}
	_, err = w.Write(xmlBytes)
	return err
}

// WriteFile encodes the tracks into path. The document is written to a
// temporary file first so an interrupted run never leaves a partial file.
func WriteFile(path string, tracks ...*Track) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "track: failed to create temp file")
	}
	defer os.Remove(f.Name())
	if err := Encode(f, tracks...); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return errors.Wrap(err, "track: failed to set file mode")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "track: failed to close temp file")
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return errors.Wrapf(err, "track: failed to write %s", path)
	}
	return nil
}
