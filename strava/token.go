package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const tokenPath = "/oauth/token"

// ErrUnauthorized means Strava rejected the client credentials or refresh token.
var ErrUnauthorized = errors.New("strava: unauthorized")

type RefreshTokenRequest struct {
	RefreshToken string
}

type refreshTokenRequest struct {
	ClientID     int    `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshTokenResponse) Expiry() time.Time {
	return time.Unix(r.ExpiresAt, 0)
}

func (s *API) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*RefreshTokenResponse, error) {
	r := refreshTokenRequest{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RefreshToken: req.RefreshToken,
		GrantType:    "refresh_token",
	}
	reqBody, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequest(http.MethodPost, s.baseURL+tokenPath, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	var response RefreshTokenResponse
	err = s.do(ctx, "refresh token", request, http.StatusOK, &response)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusBadRequest) {
			return nil, errors.Wrap(ErrUnauthorized, statusErr.Body)
		}
		return nil, err
	}
	if response.AccessToken == "" {
		return nil, errors.New("strava: token response had no access token")
	}
	s.logger.Info("access token refreshed")
	return &response, nil
}
