package track

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const twoSegmentGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="StravaGPX" xmlns="http://www.topografix.com/GPX/1/1">
 <metadata><time>2021-05-01T08:00:00Z</time></metadata>
 <trk>
  <name>Morning Run</name>
  <type>9</type>
  <trkseg>
   <trkpt lat="51.5000" lon="-0.1000"><ele>10.0</ele><time>2021-05-01T08:00:00Z</time></trkpt>
   <trkpt lat="51.5010" lon="-0.1010"><ele>12.5</ele><time>2021-05-01T08:00:05Z</time></trkpt>
   <trkpt lat="51.5020" lon="-0.1005"><ele>11.0</ele><time>2021-05-01T08:00:10Z</time></trkpt>
  </trkseg>
  <trkseg>
   <trkpt lat="51.6000" lon="-0.2000"><ele>20.0</ele></trkpt>
   <trkpt lat="51.6010" lon="-0.2010"><ele>21.0</ele></trkpt>
  </trkseg>
  <trkseg></trkseg>
 </trk>
</gpx>`

func TestParsePreservesOrderAndCount(t *testing.T) {
	tracks, err := Parse(strings.NewReader(twoSegmentGPX), "run.gpx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	tr := tracks[0]
	if tr.Name != "Morning Run" || tr.Type != 9 || tr.Source != "run.gpx" {
		t.Errorf("unexpected track header %+v", tr)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("got %d segments, want 2 (empty segment dropped)", len(tr.Segments))
	}
	if tr.NumPoints() != 5 {
		t.Errorf("NumPoints = %d, want 5", tr.NumPoints())
	}
	wantLats := []float64{51.5, 51.501, 51.502, 51.6, 51.601}
	for i, p := range tr.Points() {
		if p.Lat != wantLats[i] {
			t.Errorf("point %d lat = %v, want %v", i, p.Lat, wantLats[i])
		}
	}
	if !tr.HasElevation() {
		t.Errorf("HasElevation = false, want true")
	}
	min, max, ok := tr.ElevationRange()
	if !ok || min != 10 || max != 21 {
		t.Errorf("ElevationRange = %v, %v, %v", min, max, ok)
	}
	if !tr.Time.Equal(time.Date(2021, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v", tr.Time)
	}
}

func TestParseWithoutElevation(t *testing.T) {
	doc := `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
 <trk><type>running</type><trkseg>
  <trkpt lat="1" lon="2"></trkpt>
  <trkpt lat="1.1" lon="2.1"><ele>5</ele></trkpt>
 </trkseg></trk>
</gpx>`
	tracks, err := Parse(strings.NewReader(doc), "x.gpx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tracks[0].Type != 9 {
		t.Errorf("Type = %d, want 9", tracks[0].Type)
	}
	if tracks[0].HasElevation() {
		t.Errorf("HasElevation = true for a track with a missing <ele>")
	}
	if _, _, ok := tracks[0].ElevationRange(); ok {
		t.Errorf("ElevationRange ok = true, want false")
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(strings.NewReader("<gpx><trk>"), "bad.gpx"); err == nil {
		t.Fatal("expected an error for malformed gpx")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	start := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &Track{
		Name: "Lunch Ride",
		Type: 1,
		Time: start,
		Segments: [][]Point{{
			{Lat: 10, Lon: 20, Ele: 100, HasEle: true, Time: start},
			{Lat: 10.5, Lon: 20.5, Ele: 110, HasEle: true, Time: start.Add(time.Second)},
			{Lat: 11, Lon: 21, Ele: 105, HasEle: true, Time: start.Add(2 * time.Second)},
		}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `creator="StravaGPX"`) {
		t.Errorf("creator missing from %s", buf.String())
	}
	out, err := ParseBytes(buf.Bytes(), "ride.gpx")
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(out) != 1 || out[0].Type != 1 || out[0].Name != "Lunch Ride" {
		t.Fatalf("unexpected tracks %+v", out)
	}
	got := out[0].Points()
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if got[1].Lat != 10.5 || got[1].Lon != 20.5 || got[1].Ele != 110 || !got[1].Time.Equal(start.Add(time.Second)) {
		t.Errorf("point 1 = %+v", got[1])
	}
}

type mapCache map[string][]*Track

func (m mapCache) Get(key string) ([]*Track, bool, error) {
	t, ok := m[key]
	return t, ok, nil
}

func (m mapCache) Put(key string, tracks []*Track) error {
	m[key] = tracks
	return nil
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.gpx", twoSegmentGPX)
	write("a.gpx", twoSegmentGPX)
	write("broken.gpx", "not xml at all")
	write("notes.txt", "ignored")

	cache := mapCache{}
	tracks, stats, err := LoadDir(dir, LoadOptions{Cache: cache})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(tracks) != 2 || stats.Files != 3 || stats.Failed != 1 {
		t.Fatalf("tracks=%d stats=%+v", len(tracks), stats)
	}
	if filepath.Base(tracks[0].Source) != "a.gpx" {
		t.Errorf("tracks not in file name order: %s", tracks[0].Source)
	}
	if len(cache) != 1 {
		t.Errorf("cache has %d entries, want 1 (identical files share a key)", len(cache))
	}

	_, stats, err = LoadDir(dir, LoadOptions{Cache: cache})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if stats.Cached != 2 {
		t.Errorf("Cached = %d, want 2", stats.Cached)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), LoadOptions{}); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestFilterType(t *testing.T) {
	tracks := []*Track{{Type: 9}, {Type: 9}, {Type: 3}}
	if got := FilterType(tracks, 9); len(got) != 2 {
		t.Errorf("FilterType(9) kept %d tracks, want 2", len(got))
	}
	if got := FilterType(tracks, 1); len(got) != 0 {
		t.Errorf("FilterType(1) kept %d tracks, want 0", len(got))
	}
}

type failingCache struct{}

func (failingCache) Get(key string) ([]*Track, bool, error) {
	return nil, false, errors.New("cache: unavailable")
}

func (failingCache) Put(key string, tracks []*Track) error {
	return errors.New("cache: unavailable")
}

func TestLoadDirCacheErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.gpx"), []byte(twoSegmentGPX), 0644); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.WarnLevel)
	tracks, stats, err := LoadDir(dir, LoadOptions{Cache: failingCache{}, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(tracks) != 1 || stats.Failed != 0 || stats.Cached != 0 {
		t.Fatalf("tracks=%d stats=%+v", len(tracks), stats)
	}
	if n := logs.FilterMessage("failed to read parse cache").Len(); n != 1 {
		t.Errorf("got %d cache read warnings, want 1", n)
	}
	if n := logs.FilterMessage("failed to write parse cache").Len(); n != 1 {
		t.Errorf("got %d cache write warnings, want 1", n)
	}
}
