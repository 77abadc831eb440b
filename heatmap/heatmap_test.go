package heatmap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kwoodhouse93/strava-heatmap/colors"
	"github.com/kwoodhouse93/strava-heatmap/geoip"
	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// writeTrack writes a short west to east track starting at lat, lon.
func writeTrack(t *testing.T, dir string, id, typ int, lat, lon float64, withEle bool) {
	t.Helper()
	start := time.Date(2023, 5, 1, 7, 0, 0, 0, time.UTC)
	var seg []track.Point
	for i := 0; i < 5; i++ {
		seg = append(seg, track.Point{
			Lat:    lat,
			Lon:    lon + float64(i)*0.002,
			Ele:    100 + float64(i*10),
			HasEle: withEle,
			Time:   start.Add(time.Duration(i) * time.Minute),
		})
	}
	tr := &track.Track{Name: fmt.Sprintf("activity %d", id), Type: typ, Time: start, Segments: [][]track.Point{seg}}
	if err := track.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.gpx", id)), tr); err != nil {
		t.Fatal(err)
	}
}

// fixture holds two runs in London and a ski tour in the Alps.
func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTrack(t, dir, 1, 9, 51.50, -0.12, true)
	writeTrack(t, dir, 2, 9, 51.51, -0.13, true)
	writeTrack(t, dir, 3, 3, 46.0, 7.7, false)
	return dir
}

func testOptions(t *testing.T, gpxDir string) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.GPXDir = gpxDir
	opts.NoCache = true
	opts.Output = filepath.Join(t.TempDir(), "heatmap.png")
	opts.Render.Width = 200
	return opts
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunFiltersActivityType(t *testing.T) {
	opts := testOptions(t, fixture(t))
	run := 9
	opts.ActivityType = &run
	opts.Thumbnail = 50

	res, err := New(opts, nil, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 3 || res.Selected != 2 {
		t.Errorf("result = %+v, want 3 loaded and 2 selected", res)
	}
	if len(res.Images) != 2 || !exists(opts.Output) || !exists(stem(opts.Output)+"_thumb.png") {
		t.Errorf("images = %v", res.Images)
	}
}

func TestRunMapWithoutElevation(t *testing.T) {
	opts := testOptions(t, fixture(t))
	spec, err := colors.ParseSpec("cmap:viridis")
	if err != nil {
		t.Fatal(err)
	}
	opts.Render.Line = spec

	_, err = New(opts, nil, zap.NewNop()).Run(context.Background())
	if !errors.Is(err, colors.ErrNoElevation) {
		t.Fatalf("err = %v, want ErrNoElevation", err)
	}
	if exists(opts.Output) {
		t.Error("image written despite missing elevation")
	}

	run := 9
	opts.ActivityType = &run
	if _, err := New(opts, nil, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatalf("tracks with elevation: %v", err)
	}
}

func TestRunClusterMapWithoutElevation(t *testing.T) {
	opts := testOptions(t, fixture(t))
	opts.Mode = ModeCluster
	opts.MinClusterSize = 1
	spec, err := colors.ParseSpec("cmap:viridis")
	if err != nil {
		t.Fatal(err)
	}
	opts.Render.Line = spec

	d := New(opts, nil, zap.NewNop())
	_, err = d.Run(context.Background())
	if !errors.Is(err, colors.ErrNoElevation) {
		t.Fatalf("err = %v, want ErrNoElevation", err)
	}
	for _, label := range []int{0, 1} {
		if path := d.clusterPath(label); exists(path) {
			t.Errorf("%s written despite missing elevation", path)
		}
	}
}

func TestRunCoords(t *testing.T) {
	dir := fixture(t)
	opts := testOptions(t, dir)
	opts.Mode = ModeCoords
	lat, lon := 46.0, 7.7
	opts.Lat, opts.Lon = &lat, &lon

	res, err := New(opts, nil, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Selected != 1 {
		t.Errorf("selected %d tracks, want 1", res.Selected)
	}

	opts.Lon = nil
	res, err = New(opts, nil, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run without lon: %v", err)
	}
	if res.Selected != 3 {
		t.Errorf("selected %d tracks without a centre, want 3", res.Selected)
	}

	lat = 0
	opts.Lon = &lat
	if _, err := New(opts, nil, zap.NewNop()).Run(context.Background()); err == nil {
		t.Error("expected an error when nothing is near the centre")
	}
}

type fakeLocator struct {
	loc *geoip.Location
	ip  string
}

func (f *fakeLocator) Lookup(ctx context.Context, ip string) (*geoip.Location, error) {
	f.ip = ip
	return f.loc, nil
}

func TestRunIP(t *testing.T) {
	opts := testOptions(t, fixture(t))
	opts.Mode = ModeIP
	opts.IP = "203.0.113.9"
	loc := &fakeLocator{loc: &geoip.Location{Lat: 51.5, Lon: -0.12}}

	res, err := New(opts, loc, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Selected != 2 || loc.ip != "203.0.113.9" {
		t.Errorf("selected %d tracks, looked up %q", res.Selected, loc.ip)
	}

	if _, err := New(opts, nil, zap.NewNop()).Run(context.Background()); err == nil {
		t.Error("expected an error without a locator")
	}
}

func TestRunClusters(t *testing.T) {
	dir := fixture(t)
	writeTrack(t, dir, 4, 3, 46.01, 7.71, false)
	opts := testOptions(t, dir)
	opts.Mode = ModeCluster
	opts.MinClusterSize = 2

	res, err := New(opts, nil, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Clusters != 2 || res.Noise != 0 || res.Selected != 4 {
		t.Errorf("result = %+v", res)
	}
	for _, label := range []int{0, 1} {
		path := fmt.Sprintf("%s_cluster_%d.png", stem(opts.Output), label)
		if !exists(path) {
			t.Errorf("missing %s", path)
		}
	}

	opts.MinClusterSize = 5
	if _, err := New(opts, nil, zap.NewNop()).Run(context.Background()); err == nil {
		t.Error("expected an error when no cluster is found")
	}
}

func TestRunUsesParseCache(t *testing.T) {
	dir := fixture(t)
	opts := testOptions(t, dir)
	opts.NoCache = false

	for i := 0; i < 2; i++ {
		res, err := New(opts, nil, zap.NewNop()).Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Loaded != 3 {
			t.Errorf("run %d loaded %d tracks, want 3", i, res.Loaded)
		}
	}
	if !exists(filepath.Join(dir, CacheFile)) {
		t.Error("parse cache not created")
	}
}

func TestRunMissingDir(t *testing.T) {
	opts := testOptions(t, filepath.Join(t.TempDir(), "nope"))
	if _, err := New(opts, nil, zap.NewNop()).Run(context.Background()); err == nil {
		t.Error("expected an error for a missing gpx directory")
	}
}
