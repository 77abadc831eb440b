package track

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Cache stores parsed tracks keyed by the content hash of their GPX file.
type Cache interface {
	Get(key string) ([]*Track, bool, error)
	Put(key string, tracks []*Track) error
}

type LoadOptions struct {
	Logger *zap.Logger
	// Cache is optional.
	Cache Cache
	// Progress receives a progress bar when set.
	Progress io.Writer
}

type LoadStats struct {
	Files  int
	Tracks int
	Cached int
	Failed int
}

// LoadDir parses every *.gpx file of dir in file name order. Files that cannot
// be read or parsed, or hold no track points, are logged and skipped.
func LoadDir(dir string, opts LoadOptions) ([]*Track, LoadStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("track")

	var stats LoadStats
	if _, err := os.Stat(dir); err != nil {
		return nil, stats, errors.Wrap(err, "track: failed to read gpx directory")
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.gpx"))
	if err != nil {
		return nil, stats, errors.Wrapf(err, "track: failed to list %s", dir)
	}
	sort.Strings(files)
	stats.Files = len(files)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("loading"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var tracks []*Track
	for _, path := range files {
		if bar != nil {
			bar.Add(1)
		}
		loaded, cached, err := loadFile(path, opts.Cache, logger)
		if err != nil {
			stats.Failed++
			logger.Warn("skipping unreadable gpx file", zap.String("file", path), zap.Error(err))
			continue
		}
		if cached {
			stats.Cached++
		}
		for _, t := range loaded {
			if t.NumPoints() == 0 {
				logger.Debug("skipping track without points", zap.String("file", path), zap.String("name", t.Name))
				continue
			}
			tracks = append(tracks, t)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	stats.Tracks = len(tracks)

	logger.Info("loaded gpx files",
		zap.Int("files", stats.Files),
		zap.Int("tracks", stats.Tracks),
		zap.Int("cached", stats.Cached),
		zap.Int("failed", stats.Failed))
	return tracks, stats, nil
}

func loadFile(path string, cache Cache, logger *zap.Logger) ([]*Track, bool, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	key := ""
	if cache != nil {
		sha := sha256.Sum256(buf)
		key = hex.EncodeToString(sha[:])
		tracks, ok, err := cache.Get(key)
		if err != nil {
			logger.Warn("failed to read parse cache", zap.String("file", path), zap.Error(err))
		}
		if err == nil && ok {
			out := make([]*Track, len(tracks))
			for i, t := range tracks {
				c := *t
				c.Source = path
				out[i] = &c
			}
			return out, true, nil
		}
	}

	tracks, err := ParseBytes(buf, path)
	if err != nil {
		return nil, false, err
	}
	if cache != nil {
		if err := cache.Put(key, tracks); err != nil {
			logger.Warn("failed to write parse cache", zap.String("file", path), zap.Error(err))
		}
	}
	return tracks, false, nil
}
