package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/kwoodhouse93/strava-heatmap/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose     bool
	metricsFile string
	logger      = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Download Strava activities and draw them as heatmaps",
	Long: `heatmap downloads the GPS tracks of your Strava activities as GPX files and
draws them as overlaid lines, optionally grouped by location or coloured by
elevation.

Credentials are read from STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET and
STRAVA_REFRESH_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l.With(zap.String("run_id", uuid.NewString()))
		return nil
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return config.Build()
}

// Execute runs the command line and exits with status 1 on failure. This is
// called by main.main().
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			logger.Error("failed to write metrics", zap.String("file", metricsFile), zap.Error(err))
		}
	}
	logger.Sync()
	if err != nil {
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write run metrics to this file in the Prometheus text format")
}
