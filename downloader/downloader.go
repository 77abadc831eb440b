package downloader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kwoodhouse93/strava-heatmap/metrics"
	"github.com/kwoodhouse93/strava-heatmap/store"
	"github.com/kwoodhouse93/strava-heatmap/strava"
	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type API interface {
	RefreshToken(ctx context.Context, req strava.RefreshTokenRequest) (*strava.RefreshTokenResponse, error)
	ListActivities(ctx context.Context, req strava.ListActivitiesRequest) ([]strava.SummaryActivity, error)
	GetActivityStreams(ctx context.Context, req strava.GetActivityStreamsRequest) (*strava.StreamSet, error)
}

type Store interface {
	ActivityList(ctx context.Context) ([]store.Activity, error)
	StoreActivityList(ctx context.Context, activities []store.Activity) error
	StoreSkipped(ctx context.Context, ids []int64) error
	GetTokens(ctx context.Context) (*store.Tokens, error)
	StoreTokens(ctx context.Context, tokens store.Tokens) error
}

type Options struct {
	OutputDir string
	// RefreshToken is used when the store holds no newer token.
	RefreshToken string
	// ActivityType limits downloads to one type code when set.
	ActivityType *int
	// Quick stops at the first activity whose GPX file already exists.
	Quick         bool
	Concurrency   int
	PerPage       int
	MaxRetries    int
	RetryCooldown time.Duration
	RetryExponent float64
}

func DefaultOptions() Options {
	return Options{
		OutputDir:     "strava",
		Concurrency:   1,
		PerPage:       50,
		MaxRetries:    3,
		RetryCooldown: 500 * time.Millisecond,
		RetryExponent: 4,
	}
}

type Summary struct {
	Listed     int
	New        int
	Selected   int
	Downloaded int
	Existing   int
	Skipped    int
	Failed     int
}

type Downloader struct {
	api    API
	store  Store
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	summary Summary
	skipped []int64
}

func New(api API, store Store, opts Options, logger *zap.Logger) *Downloader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PerPage < 1 || opts.PerPage > strava.MaxPerPage {
		opts.PerPage = DefaultOptions().PerPage
	}
	if opts.RetryExponent < 1 {
		opts.RetryExponent = 1
	}
	return &Downloader{
		api:    api,
		store:  store,
		opts:   opts,
		logger: logger.Named("downloader"),
	}
}

// Path returns where the GPX file of an activity is written.
func (d *Downloader) Path(id int64) string {
	return filepath.Join(d.opts.OutputDir, strconv.FormatInt(id, 10)+".gpx")
}

// Run lists the athlete's activities and downloads every one that has no GPX
// file yet. Failures of single activities are logged and recorded in the
// skipped list; only authentication, listing and store errors end the run.
func (d *Downloader) Run(ctx context.Context) (*Summary, error) {
	if err := os.MkdirAll(d.opts.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "downloader: failed to create output directory")
	}

	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := d.listActivities(ctx, token)
	if err != nil {
		return nil, err
	}
	err = d.store.StoreActivityList(ctx, activities)
	if err != nil {
		return nil, errors.Wrap(err, "downloader: failed to store activity list")
	}

	selected := activities
	if d.opts.ActivityType != nil {
		selected = selected[:0:0]
		for _, a := range activities {
			if a.TypeCode == *d.opts.ActivityType {
				selected = append(selected, a)
			}
		}
	}
	d.summary.Selected = len(selected)
	d.logger.Info("activities selected for download",
		zap.Int("selected", len(selected)),
		zap.Int("listed", len(activities)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, a := range selected {
		if (i+1)%20 == 0 {
			d.logger.Info("progress", zap.Int("done", i+1), zap.Int("total", len(selected)))
		}
		if gctx.Err() != nil {
			break
		}
		path := d.Path(a.ID)
		if _, err := os.Stat(path); err == nil {
			d.addExisting()
			d.logger.Debug("gpx file already exists", zap.String("file", path))
			if d.opts.Quick {
				d.logger.Info("found an existing gpx file, stopping", zap.String("file", path))
				break
			}
			continue
		}
		a := a
		g.Go(func() error {
			d.download(gctx, token, a, path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return d.finish(context.Background(), err)
	}
	return d.finish(ctx, nil)
}

func (d *Downloader) finish(ctx context.Context, runErr error) (*Summary, error) {
	d.mu.Lock()
	skipped := append([]int64(nil), d.skipped...)
	summary := d.summary
	d.mu.Unlock()

	sort.Slice(skipped, func(i, j int) bool { return skipped[i] > skipped[j] })
	if err := d.store.StoreSkipped(ctx, skipped); err != nil {
		d.logger.Error("failed to store skipped activities", zap.Error(err))
		if runErr == nil {
			runErr = errors.Wrap(err, "downloader: failed to store skipped list")
		}
	}

	d.logger.Info("download finished",
		zap.Int("listed", summary.Listed),
		zap.Int("new", summary.New),
		zap.Int("selected", summary.Selected),
		zap.Int("downloaded", summary.Downloaded),
		zap.Int("existing", summary.Existing),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return &summary, runErr
}

// accessToken reuses a stored, unexpired access token or refreshes one. The
// stored refresh token is preferred because Strava rotates it.
func (d *Downloader) accessToken(ctx context.Context) (string, error) {
	stored, err := d.store.GetTokens(ctx)
	if err != nil {
		return "", errors.Wrap(err, "downloader: failed to load tokens")
	}
	if stored != nil && !stored.IsExpired() {
		d.logger.Debug("using stored access token", zap.Time("expires_at", stored.ExpiresAt))
		return stored.AccessToken, nil
	}

	candidates := []string{}
	if stored != nil && stored.RefreshToken != "" {
		candidates = append(candidates, stored.RefreshToken)
	}
	if d.opts.RefreshToken != "" && (len(candidates) == 0 || candidates[0] != d.opts.RefreshToken) {
		candidates = append(candidates, d.opts.RefreshToken)
	}
	if len(candidates) == 0 {
		return "", errors.New("downloader: no refresh token available")
	}

	for i, refresh := range candidates {
		var resp *strava.RefreshTokenResponse
		err = d.retry(ctx, "refresh token", func() error {
			var err error
			resp, err = d.api.RefreshToken(ctx, strava.RefreshTokenRequest{RefreshToken: refresh})
			return err
		})
		if err != nil {
			if errors.Is(err, strava.ErrUnauthorized) && i < len(candidates)-1 {
				d.logger.Warn("stored refresh token rejected, trying configured token")
				continue
			}
			return "", errors.Wrap(err, "downloader: failed to authenticate")
		}
		tokens := store.Tokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    resp.Expiry(),
		}
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = refresh
		}
		if err := d.store.StoreTokens(ctx, tokens); err != nil {
			d.logger.Warn("failed to store tokens", zap.Error(err))
		}
		return resp.AccessToken, nil
	}
	return "", errors.Wrap(err, "downloader: failed to authenticate")
}

// listActivities returns the full activity list, newest first. Paging stops at
// the newest already known activity, unless the known list lacks type codes
// needed for type filtering.
func (d *Downloader) listActivities(ctx context.Context, token string) ([]store.Activity, error) {
	known, err := d.store.ActivityList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "downloader: failed to load activity list")
	}
	incremental := len(known) > 0
	if d.opts.ActivityType != nil {
		for _, a := range known {
			if !a.HasType() {
				d.logger.Info("known activity list has no type codes, listing everything")
				incremental = false
				break
			}
		}
	}

	var fresh []store.Activity
	overlap := false
	for page := 1; !overlap; page++ {
		var acts []strava.SummaryActivity
		err := d.retry(ctx, "list activities", func() error {
			var err error
			acts, err = d.api.ListActivities(ctx, strava.ListActivitiesRequest{
				AccessToken: token,
				Page:        page,
				PerPage:     d.opts.PerPage,
			})
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "downloader: failed to list activities page %d", page)
		}
		if len(acts) == 0 {
			break
		}
		metrics.ActivitiesListed.Add(float64(len(acts)))
		for _, a := range acts {
			if incremental && a.ID == known[0].ID {
				d.logger.Info("found overlap with previous list", zap.Int64("id", a.ID))
				overlap = true
				break
			}
			fresh = append(fresh, store.Activity{
				ID:        a.ID,
				TypeCode:  a.TypeCode(),
				StartDate: a.StartDate,
				Name:      a.Name,
			})
		}
		d.logger.Debug("listed page", zap.Int("page", page), zap.Int("activities", len(fresh)))
	}

	all := fresh
	if overlap {
		all = append(fresh, known...)
	}
	d.summary.New = countNew(fresh, known)
	d.summary.Listed = len(all)
	return all, nil
}

func countNew(fresh, known []store.Activity) int {
	seen := make(map[int64]bool, len(known))
	for _, a := range known {
		seen[a.ID] = true
	}
	n := 0
	for _, a := range fresh {
		if !seen[a.ID] {
			n++
		}
	}
	return n
}

func (d *Downloader) download(ctx context.Context, token string, a store.Activity, path string) {
	started := time.Now()
	logger := d.logger.With(zap.Int64("activity", a.ID))
	logger.Info("downloading activity", zap.String("file", path))

	var streams *strava.StreamSet
	err := d.retry(ctx, "get activity streams", func() error {
		var err error
		streams, err = d.api.GetActivityStreams(ctx, strava.GetActivityStreamsRequest{
			AccessToken: token,
			ID:          a.ID,
		})
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var statusErr *strava.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			logger.Warn("activity has no streams, skipping")
			d.addSkipped(a.ID, "no_gps", false)
			return
		}
		logger.Error("failed to download activity", zap.Error(err))
		d.addSkipped(a.ID, "error", true)
		return
	}
	if !streams.HasGPS() {
		logger.Warn("activity has no gps data, skipping")
		d.addSkipped(a.ID, "no_gps", false)
		return
	}

	if err := track.WriteFile(path, BuildTrack(a, streams)); err != nil {
		logger.Error("failed to write gpx file", zap.Error(err))
		d.addSkipped(a.ID, "write", true)
		return
	}
	metrics.DownloadDuration.Observe(time.Since(started).Seconds())
	metrics.ActivitiesDownloaded.Inc()
	d.mu.Lock()
	d.summary.Downloaded++
	d.mu.Unlock()
}

// BuildTrack turns activity streams into a single segment track.
func BuildTrack(a store.Activity, s *strava.StreamSet) *track.Track {
	t := &track.Track{
		Name: a.Name,
		Type: a.TypeCode,
		Time: a.StartDate,
	}
	if t.Type < 0 {
		t.Type = 0
	}
	points := make([]track.Point, 0, len(s.LatLng.Data))
	for i, ll := range s.LatLng.Data {
		p := track.Point{Lat: ll[0], Lon: ll[1]}
		if s.Altitude != nil && i < len(s.Altitude.Data) {
			p.Ele = s.Altitude.Data[i]
			p.HasEle = true
		}
		if s.Time != nil && i < len(s.Time.Data) && !a.StartDate.IsZero() {
			p.Time = a.StartDate.Add(time.Duration(s.Time.Data[i]) * time.Second)
		}
		points = append(points, p)
	}
	t.Segments = [][]track.Point{points}
	return t
}

func (d *Downloader) addExisting() {
	metrics.ActivitiesExisting.Inc()
	d.mu.Lock()
	d.summary.Existing++
	d.mu.Unlock()
}

func (d *Downloader) addSkipped(id int64, reason string, failed bool) {
	metrics.ActivitiesSkipped.WithLabelValues(reason).Inc()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skipped = append(d.skipped, id)
	if failed {
		d.summary.Failed++
	} else {
		d.summary.Skipped++
	}
}

func (d *Downloader) retry(ctx context.Context, op string, fn func() error) error {
	for tries := 0; ; tries++ {
		err := fn()
		if err == nil || tries >= d.opts.MaxRetries || !retryable(ctx, err) {
			return err
		}
		metrics.RequestRetries.Inc()
		d.logger.Warn("request failed, retrying",
			zap.String("op", op),
			zap.Int("try", tries+1),
			zap.Int("max_retries", d.opts.MaxRetries),
			zap.Error(err))
		if !d.waitForRetry(ctx, tries) {
			return err
		}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *strava.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, strava.ErrUnauthorized)
}

func (d *Downloader) waitForRetry(ctx context.Context, tries int) bool {
	cooldown := float64(d.opts.RetryCooldown) * math.Pow(d.opts.RetryExponent, float64(tries))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(cooldown)):
		return true
	}
}
