// Package geoip looks up the approximate location of an IP address.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultURL = "http://ip-api.com/json"

var ErrLookupFailed = errors.New("geoip: lookup failed")

type Client struct {
	client  http.Client
	baseURL string
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		client:  http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("geoip"),
	}
}

type Location struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Query   string  `json:"query"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Lookup returns the location of ip, or of the caller's public address when
// ip is empty.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	u := c.baseURL
	if ip != "" {
		u += "/" + url.PathEscape(ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "geoip: failed to create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geoip: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "geoip: failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrLookupFailed, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var loc Location
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, errors.Wrap(err, "geoip: failed to decode response")
	}
	if loc.Status != "success" {
		return nil, errors.Wrapf(ErrLookupFailed, "%s: %s", loc.Query, loc.Message)
	}
	c.logger.Info("resolved location",
		zap.String("ip", loc.Query),
		zap.String("city", loc.City),
		zap.String("country", loc.Country),
		zap.Float64("lat", loc.Lat),
		zap.Float64("lon", loc.Lon))
	return &loc, nil
}
