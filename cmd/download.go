package cmd

import (
	"context"

	"github.com/kwoodhouse93/strava-heatmap/config"
	"github.com/kwoodhouse93/strava-heatmap/downloader"
	"github.com/kwoodhouse93/strava-heatmap/store"
	"github.com/kwoodhouse93/strava-heatmap/strava"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputDir    string
	activityList string
	quick        bool
	concurrency  int
	retries      int
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download activities as GPX files",
	Long: `Download every activity of the authenticated athlete as <id>.gpx into the
output directory. Activities that already have a file are skipped, so the
command can be run again to fetch only new activities.

The activity list and tokens are kept in Postgres when POSTGRES_CONNECTION_URL
is set, otherwise next to the GPX files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := downloader.DefaultOptions()
		opts.OutputDir = outputDir
		opts.Quick = quick
		opts.Concurrency = concurrency
		opts.MaxRetries = retries
		if cmd.Flags().Changed("activity-type") {
			code, err := cmd.Flags().GetInt("activity-type")
			if err != nil {
				return err
			}
			opts.ActivityType = &code
		}
		return runDownload(cmd.Context(), opts)
	},
}

type activityStore interface {
	downloader.Store
	Close() error
}

func runDownload(ctx context.Context, opts downloader.Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStrava(); err != nil {
		return err
	}
	opts.RefreshToken = cfg.StravaRefreshToken

	var st activityStore
	if cfg.PostgresConnectionURL != "" {
		st, err = store.New(ctx, cfg.PostgresConnectionURL, cfg.StravaClientID, logger)
		if err != nil {
			return err
		}
	} else {
		st = store.NewFileStore(opts.OutputDir, activityList)
	}
	defer st.Close()

	if opts.RefreshToken == "" {
		tokens, err := st.GetTokens(ctx)
		if err != nil {
			return err
		}
		if tokens == nil {
			return errors.Wrap(config.ErrMissingCredentials, "set STRAVA_REFRESH_TOKEN")
		}
	}

	api := strava.NewAPI(cfg.StravaBaseURL, cfg.StravaClientID, cfg.StravaClientSecret, cfg.HTTPTimeout, logger)
	summary, err := downloader.New(api, st, opts, logger).Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("download summary", zap.Any("summary", summary))
	return nil
}

func init() {
	downloadCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "strava", "directory to write GPX files to")
	downloadCmd.Flags().StringVar(&activityList, "activity-list", "", "file holding the known activity list (default <output-dir>/"+store.ActivityListFile+")")
	downloadCmd.Flags().BoolVar(&quick, "quick", false, "stop at the first activity that was downloaded before")
	downloadCmd.Flags().Int("activity-type", 0, "only download activities of this numeric type code")
	downloadCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of activities downloaded in parallel")
	downloadCmd.Flags().IntVar(&retries, "retries", 3, "number of retries for failed requests")

	rootCmd.AddCommand(downloadCmd)
}
