package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every heatmap metric. It is written out once per run in the
// node_exporter textfile format, there is no scrape endpoint.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Download metrics
	ActivitiesListed = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_activities_listed_total",
		Help: "Number of activities returned by the activity listing",
	})

	ActivitiesDownloaded = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_activities_downloaded_total",
		Help: "Number of GPX files written",
	})

	ActivitiesExisting = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_activities_existing_total",
		Help: "Number of activities skipped because their GPX file already exists",
	})

	ActivitiesSkipped = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "heatmap_activities_skipped_total",
		Help: "Number of activities that could not be downloaded",
	}, []string{"reason"})

	RequestRetries = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_request_retries_total",
		Help: "Number of retried Strava requests",
	})

	DownloadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatmap_download_duration_seconds",
		Help:    "Time taken to fetch and write one activity",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	// Render metrics
	GPXFilesLoaded = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "heatmap_gpx_files_total",
		Help: "Number of GPX files read by outcome",
	}, []string{"outcome"})

	TracksDrawn = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_tracks_drawn_total",
		Help: "Number of tracks drawn into images",
	})

	ImagesWritten = factory.NewCounter(prometheus.CounterOpts{
		Name: "heatmap_images_written_total",
		Help: "Number of image files written",
	})

	RenderDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatmap_render_duration_seconds",
		Help:    "Time taken to draw and encode one image",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// WriteTextfile writes the current values of all metrics to path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
