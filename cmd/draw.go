package cmd

import (
	"os"

	"github.com/kwoodhouse93/strava-heatmap/cluster"
	"github.com/kwoodhouse93/strava-heatmap/colors"
	"github.com/kwoodhouse93/strava-heatmap/config"
	"github.com/kwoodhouse93/strava-heatmap/geoip"
	"github.com/kwoodhouse93/strava-heatmap/heatmap"
	"github.com/kwoodhouse93/strava-heatmap/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var drawFlags struct {
	gpxDir          string
	lineColor       string
	lineAlpha       float64
	lineWidth       float64
	backgroundColor string
	radius          float64
	reduction       string
	width           int
	padding         float64
	projection      string
	output          string
	thumbnail       int
	noCache         bool
	minClusterSize  int
	lat             float64
	lon             float64
	ip              string
}

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw downloaded GPX files as a heatmap",
	Long: `Draw the tracks of a directory of GPX files as overlaid lines.

Line colours are a colour name, a hex value, xkcd:<name>, or a colour map keyed
by elevation: cmap:<name> is normalised over all drawn tracks and lcmap:<name>
over each track on its own.`,
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Draw one image per cluster of nearby activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDraw(cmd, heatmap.ModeCluster)
	},
}

var coordsCmd = &cobra.Command{
	Use:   "coords",
	Short: "Draw the activities around a latitude and longitude",
	Long:  "Draw the activities around --lat and --lon. All activities are drawn when either is missing.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDraw(cmd, heatmap.ModeCoords)
	},
}

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Draw the activities around the location of an IP address",
	Long:  "Draw the activities around the location of --ip, or of your own public address when it is not set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDraw(cmd, heatmap.ModeIP)
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Draw every activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDraw(cmd, heatmap.ModeAll)
	},
}

func drawOptions(cmd *cobra.Command, mode heatmap.Mode) (heatmap.Options, error) {
	opts := heatmap.DefaultOptions()
	opts.Mode = mode
	opts.GPXDir = drawFlags.gpxDir
	opts.Radius = drawFlags.radius
	opts.MinClusterSize = drawFlags.minClusterSize
	opts.IP = drawFlags.ip
	opts.Output = drawFlags.output
	opts.Thumbnail = drawFlags.thumbnail
	opts.NoCache = drawFlags.noCache
	opts.Progress = os.Stderr

	var err error
	if opts.Reduction, err = cluster.ParseReduction(drawFlags.reduction); err != nil {
		return opts, err
	}
	if cmd.Flags().Changed("activity-type") {
		code, err := cmd.Flags().GetInt("activity-type")
		if err != nil {
			return opts, err
		}
		opts.ActivityType = &code
	}
	if cmd.Flags().Changed("lat") {
		opts.Lat = &drawFlags.lat
	}
	if cmd.Flags().Changed("lon") {
		opts.Lon = &drawFlags.lon
	}

	r := &opts.Render
	r.Width = drawFlags.width
	r.Padding = drawFlags.padding
	r.LineWidth = drawFlags.lineWidth
	r.LineAlpha = drawFlags.lineAlpha
	if r.Line, err = colors.ParseSpec(drawFlags.lineColor); err != nil {
		return opts, err
	}
	if r.Background, err = colors.Named(drawFlags.backgroundColor); err != nil {
		return opts, err
	}
	if r.Projection, err = render.ParseProjection(drawFlags.projection); err != nil {
		return opts, err
	}
	return opts, nil
}

func runDraw(cmd *cobra.Command, mode heatmap.Mode) error {
	opts, err := drawOptions(cmd, mode)
	if err != nil {
		return err
	}

	var locator heatmap.Locator
	if mode == heatmap.ModeIP {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		locator = geoip.NewClient(cfg.GeoIPURL, cfg.HTTPTimeout, logger)
	}

	res, err := heatmap.New(opts, locator, logger).Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("draw finished",
		zap.Int("loaded", res.Loaded),
		zap.Int("drawn", res.Selected),
		zap.Strings("images", res.Images))
	return nil
}

func init() {
	f := drawCmd.PersistentFlags()
	f.StringVar(&drawFlags.gpxDir, "gpx-dir", "strava", "directory with GPX files")
	f.Int("activity-type", 0, "only draw activities of this numeric type code")
	f.StringVar(&drawFlags.lineColor, "line-color", "xkcd:sky blue", "line colour, xkcd:<name>, cmap:<map> or lcmap:<map>")
	f.Float64Var(&drawFlags.lineAlpha, "line-alpha", 0.2, "line alpha (transparency)")
	f.Float64Var(&drawFlags.lineWidth, "line-width", 1, "line width in pixels")
	f.StringVar(&drawFlags.backgroundColor, "background-color", "black", "background colour")
	f.Float64Var(&drawFlags.radius, "radius", 0.05, "radius in degrees for clustering and filtering")
	f.StringVar(&drawFlags.reduction, "reduction", string(cluster.Average), "how a track is reduced to one point: average, start or start_stop_average")
	f.IntVar(&drawFlags.width, "width", 3000, "size of the longer image side in pixels")
	f.Float64Var(&drawFlags.padding, "padding", 0.02, "margin around the tracks as a fraction of the width")
	f.StringVar(&drawFlags.projection, "projection", string(render.Equirectangular), "equirectangular or plate-carree")
	f.StringVarP(&drawFlags.output, "output", "o", "heatmap.png", "output PNG file")
	f.IntVar(&drawFlags.thumbnail, "thumbnail", 0, "also write a thumbnail fitting into this many pixels")
	f.BoolVar(&drawFlags.noCache, "no-cache", false, "do not read or write the parse cache")

	clusterCmd.Flags().IntVar(&drawFlags.minClusterSize, "min-cluster-size", 10, "minimum number of activities to form a cluster")
	coordsCmd.Flags().Float64Var(&drawFlags.lat, "lat", 0, "centre latitude")
	coordsCmd.Flags().Float64Var(&drawFlags.lon, "lon", 0, "centre longitude")
	ipCmd.Flags().StringVar(&drawFlags.ip, "ip", "", "IP address to locate (default your public address)")

	drawCmd.AddCommand(clusterCmd, coordsCmd, ipCmd, allCmd)
	rootCmd.AddCommand(drawCmd)
}
