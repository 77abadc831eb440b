package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://www.strava.com/api/v3"

type API struct {
	client       *http.Client
	baseURL      string
	clientID     int
	clientSecret string
	logger       *zap.Logger
}

func NewAPI(baseURL string, clientID int, clientSecret string, timeout time.Duration, logger *zap.Logger) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &API{
		client:       &http.Client{Timeout: timeout},
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger.Named("strava"),
	}
}

// StatusError is returned when Strava answers with an unexpected status code.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava: failed to %s: %d %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func (s *API) do(ctx context.Context, op string, request *http.Request, expected int, out interface{}) error {
	request = request.WithContext(ctx)
	started := time.Now()
	resp, err := s.client.Do(request)
	if err != nil {
		return errors.Wrapf(err, "strava: failed to %s", op)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "strava: failed to read %s response", op)
	}
	s.logger.Debug("request done",
		zap.String("op", op),
		zap.String("url", request.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)))
	if resp.StatusCode != expected {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	err = json.Unmarshal(respBody, out)
	if err != nil {
		return errors.Wrapf(err, "strava: failed to decode %s response", op)
	}
	return nil
}
