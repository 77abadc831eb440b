package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/kwoodhouse93/strava-heatmap/geoip"
	"github.com/kwoodhouse93/strava-heatmap/strava"
	"github.com/pkg/errors"
)

var ErrMissingCredentials = errors.New("config: missing Strava credentials")

type Config struct {
	StravaClientID        int           `envconfig:"STRAVA_CLIENT_ID"`
	StravaClientSecret    string        `envconfig:"STRAVA_CLIENT_SECRET"`
	StravaRefreshToken    string        `envconfig:"STRAVA_REFRESH_TOKEN"`
	StravaBaseURL         string        `envconfig:"STRAVA_BASE_URL"`
	PostgresConnectionURL string        `envconfig:"POSTGRES_CONNECTION_URL"`
	GeoIPURL              string        `envconfig:"GEOIP_URL"`
	HTTPTimeout           time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	config := Config{}
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, errors.Wrap(err, "config: failed to read environment")
	}
	if config.StravaBaseURL == "" {
		config.StravaBaseURL = strava.DefaultBaseURL
	}
	if config.GeoIPURL == "" {
		config.GeoIPURL = geoip.DefaultURL
	}
	return &config, nil
}

// ValidateStrava checks the credentials needed to download activities. The
// refresh token may be missing when the store already holds a newer one, so
// only the client credentials are required.
func (c *Config) ValidateStrava() error {
	var missing []string
	if c.StravaClientID == 0 {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if c.StravaClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return errors.Wrap(ErrMissingCredentials, "set "+strings.Join(missing, ", "))
	}
	return nil
}
