// Package heatmap runs a draw: it loads a directory of GPX files, selects
// tracks by mode and writes the images.
package heatmap

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kwoodhouse93/strava-heatmap/cache"
	"github.com/kwoodhouse93/strava-heatmap/cluster"
	"github.com/kwoodhouse93/strava-heatmap/colors"
	"github.com/kwoodhouse93/strava-heatmap/geoip"
	"github.com/kwoodhouse93/strava-heatmap/metrics"
	"github.com/kwoodhouse93/strava-heatmap/render"
	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeCluster Mode = "cluster"
	ModeCoords  Mode = "coords"
	ModeIP      Mode = "ip"
	ModeAll     Mode = "all"
)

// CacheFile is the parse cache kept next to the GPX files.
const CacheFile = "cache.db"

// Locator resolves an IP address, or the caller's own when empty, to a location.
type Locator interface {
	Lookup(ctx context.Context, ip string) (*geoip.Location, error)
}

type Options struct {
	Mode   Mode
	GPXDir string
	// ActivityType keeps only tracks of this type code when set.
	ActivityType   *int
	Reduction      cluster.Reduction
	Radius         float64
	MinClusterSize int
	// Lat and Lon are the centre of coords mode. All tracks are drawn when
	// either is missing.
	Lat, Lon  *float64
	IP        string
	Output    string
	Thumbnail int
	NoCache   bool
	Progress  io.Writer
	Render    render.Options
}

func DefaultOptions() Options {
	return Options{
		Mode:           ModeAll,
		GPXDir:         "strava",
		Reduction:      cluster.Average,
		Radius:         0.05,
		MinClusterSize: 10,
		Output:         "heatmap.png",
		Render:         render.DefaultOptions(),
	}
}

type Result struct {
	Loaded   int
	Selected int
	Clusters int
	Noise    int
	Images   []string
}

type Drawer struct {
	opts    Options
	locator Locator
	logger  *zap.Logger
}

// New returns a Drawer. locator is only used in ip mode and may be nil
// otherwise.
func New(opts Options, locator Locator, logger *zap.Logger) *Drawer {
	if opts.Reduction == "" {
		opts.Reduction = cluster.Average
	}
	if opts.Output == "" {
		opts.Output = DefaultOptions().Output
	}
	return &Drawer{opts: opts, locator: locator, logger: logger.Named("heatmap")}
}

func (d *Drawer) Run(ctx context.Context) (*Result, error) {
	tracks, err := d.load()
	if err != nil {
		return nil, err
	}
	res := &Result{Loaded: len(tracks)}

	if d.opts.ActivityType != nil {
		tracks = track.FilterType(tracks, *d.opts.ActivityType)
		d.logger.Info("filtered by activity type",
			zap.Int("type", *d.opts.ActivityType),
			zap.Int("tracks", len(tracks)))
	}

	renderer := render.New(d.opts.Render, d.logger)
	switch d.opts.Mode {
	case ModeCluster:
		return d.drawClusters(renderer, tracks, res)
	case ModeCoords:
		if d.opts.Lat == nil || d.opts.Lon == nil {
			d.logger.Info("no centre given, drawing all tracks")
			break
		}
		tracks = d.within(tracks, *d.opts.Lat, *d.opts.Lon)
	case ModeIP:
		if d.locator == nil {
			return nil, errors.New("heatmap: no locator for ip mode")
		}
		loc, err := d.locator.Lookup(ctx, d.opts.IP)
		if err != nil {
			return nil, err
		}
		tracks = d.within(tracks, loc.Lat, loc.Lon)
	case ModeAll, "":
	default:
		return nil, errors.Errorf("heatmap: unknown mode %q", d.opts.Mode)
	}

	res.Selected = len(tracks)
	d.logger.Info("drawing tracks", zap.Int("tracks", len(tracks)))
	images, err := d.write(renderer, d.opts.Output, tracks)
	if err != nil {
		return nil, err
	}
	res.Images = images
	return res, nil
}

func (d *Drawer) load() ([]*track.Track, error) {
	opts := track.LoadOptions{Logger: d.logger, Progress: d.opts.Progress}
	if !d.opts.NoCache {
		c, err := cache.Open(filepath.Join(d.opts.GPXDir, CacheFile))
		if err != nil {
			d.logger.Warn("parse cache unavailable", zap.Error(err))
		} else {
			defer c.Close()
			opts.Cache = c
		}
	}

	tracks, stats, err := track.LoadDir(d.opts.GPXDir, opts)
	if err != nil {
		return nil, err
	}
	metrics.GPXFilesLoaded.WithLabelValues("cached").Add(float64(stats.Cached))
	metrics.GPXFilesLoaded.WithLabelValues("failed").Add(float64(stats.Failed))
	metrics.GPXFilesLoaded.WithLabelValues("parsed").Add(float64(stats.Files - stats.Cached - stats.Failed))
	return tracks, nil
}

func (d *Drawer) within(tracks []*track.Track, lat, lon float64) []*track.Track {
	out := cluster.Within(tracks, d.opts.Reduction, orb.Point{lon, lat}, d.opts.Radius)
	d.logger.Info("selected tracks around centre",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("radius", d.opts.Radius),
		zap.Int("tracks", len(out)))
	return out
}

func (d *Drawer) drawClusters(renderer *render.Renderer, tracks []*track.Track, res *Result) (*Result, error) {
	clusters, noise := cluster.DBSCAN(tracks, d.opts.Reduction, d.opts.Radius, d.opts.MinClusterSize)
	res.Clusters, res.Noise = len(clusters), len(noise)
	d.logger.Info("clustered tracks", zap.Int("clusters", len(clusters)), zap.Int("unclassified", len(noise)))
	if len(clusters) == 0 {
		return nil, errors.Wrap(render.ErrNoTracks, "heatmap: no clusters found")
	}

	// Check every cluster before the first image is written.
	var drawn []*track.Track
	for _, c := range clusters {
		drawn = append(drawn, c.Tracks...)
	}
	if _, err := colors.NewResolver(d.opts.Render.Line, drawn); err != nil {
		return nil, err
	}

	for _, c := range clusters {
		path := d.clusterPath(c.Label)
		d.logger.Info("drawing cluster",
			zap.Int("label", c.Label),
			zap.Int("of", len(clusters)),
			zap.Int("tracks", len(c.Tracks)),
			zap.Float64("lat", c.Centroid.Lat()),
			zap.Float64("lon", c.Centroid.Lon()))
		images, err := d.write(renderer, path, c.Tracks)
		if err != nil {
			return nil, err
		}
		res.Selected += len(c.Tracks)
		res.Images = append(res.Images, images...)
	}
	return res, nil
}

// write draws one image and its thumbnail, returning the written paths.
func (d *Drawer) write(renderer *render.Renderer, path string, tracks []*track.Track) ([]string, error) {
	img, err := renderer.WriteFile(path, tracks)
	if err != nil {
		return nil, err
	}
	if d.opts.Thumbnail <= 0 {
		return []string{path}, nil
	}
	thumb := stem(path) + "_thumb.png"
	if err := render.SavePNG(thumb, render.Thumbnail(img, d.opts.Thumbnail)); err != nil {
		return nil, err
	}
	return []string{path, thumb}, nil
}

func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func (d *Drawer) clusterPath(label int) string {
	return fmt.Sprintf("%s_cluster_%d.png", stem(d.opts.Output), label)
}
