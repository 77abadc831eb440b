package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kwoodhouse93/strava-heatmap/track"
)

func TestCachePutGet(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get("missing")
	if err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	in := []*track.Track{{
		Name: "Evening Walk",
		Type: 10,
		Time: time.Date(2020, 2, 2, 18, 0, 0, 0, time.UTC),
		Segments: [][]track.Point{{
			{Lat: 1, Lon: 2, Ele: 3, HasEle: true},
			{Lat: 1.5, Lon: 2.5},
		}},
	}}
	if err := c.Put("abc", in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Overwriting the same key keeps one row.
	if err := c.Put("abc", in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n, err := c.Len(); err != nil || n != 1 {
		t.Fatalf("Len = %d, %v; want 1", n, err)
	}

	out, ok, err := c.Get("abc")
	if err != nil || !ok {
		t.Fatalf("Get(abc) = %v, %v", ok, err)
	}
	if len(out) != 1 || out[0].Name != "Evening Walk" || out[0].Type != 10 {
		t.Fatalf("unexpected tracks %+v", out)
	}
	pts := out[0].Points()
	if len(pts) != 2 || pts[1].Lat != 1.5 || pts[1].HasEle {
		t.Errorf("unexpected points %+v", pts)
	}
}
