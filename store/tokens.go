package store

import (
	"time"
)

// Tokens are the OAuth tokens of the athlete. Strava rotates the refresh token,
// so the latest one has to be kept for the next run.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired also treats tokens that expire within a minute as expired.
func (t Tokens) IsExpired() bool {
	return t.AccessToken == "" || t.ExpiresAt.Before(time.Now().Add(time.Minute))
}
