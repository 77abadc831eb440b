package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func newTestAPI(t *testing.T, h http.Handler) *API {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPI(srv.URL, 42, "secret", 5*time.Second, zap.NewNop())
}

func TestRefreshToken(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body refreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.ClientID != 42 || body.GrantType != "refresh_token" || body.RefreshToken != "refresh" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte(`{"access_token":"access","expires_at":1700000000,"refresh_token":"refresh2"}`))
	}))

	resp, err := api.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: "refresh"})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if resp.AccessToken != "access" {
		t.Errorf("AccessToken = %q, want %q", resp.AccessToken, "access")
	}
	if !resp.Expiry().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expiry = %v", resp.Expiry())
	}
}

func TestRefreshTokenUnauthorized(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authorization Error"}`))
	}))

	_, err := api.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: "bad"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestListActivities(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token")
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("per_page") != "50" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":3,"name":"Morning Run","type":"Run","sport_type":"TrailRun"},{"id":2,"type":"Ride"}]`))
	}))

	acts, err := api.ListActivities(context.Background(), ListActivitiesRequest{AccessToken: "token", Page: 2, PerPage: 50})
	if err != nil {
		t.Fatalf("ListActivities: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("got %d activities, want 2", len(acts))
	}
	if acts[0].ID != 3 || acts[0].TypeCode() != 9 {
		t.Errorf("acts[0] = %+v", acts[0])
	}
	if acts[1].TypeCode() != 1 {
		t.Errorf("acts[1].TypeCode() = %d, want 1", acts[1].TypeCode())
	}
}

func TestGetActivityStreams(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/7/streams" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key_by_type") != "true" {
			t.Errorf("key_by_type not set")
		}
		w.Write([]byte(`{
			"latlng":{"data":[[51.5,-0.1],[51.6,-0.2]],"resolution":"high"},
			"altitude":{"data":[10.5,11],"resolution":"high"},
			"time":{"data":[0,5],"resolution":"high"}
		}`))
	}))

	streams, err := api.GetActivityStreams(context.Background(), GetActivityStreamsRequest{AccessToken: "token", ID: 7})
	if err != nil {
		t.Fatalf("GetActivityStreams: %v", err)
	}
	if !streams.HasGPS() || len(streams.LatLng.Data) != 2 {
		t.Fatalf("unexpected latlng stream %+v", streams.LatLng)
	}
	if streams.Altitude.Data[0] != 10.5 || streams.Time.Data[1] != 5 {
		t.Errorf("unexpected streams %+v %+v", streams.Altitude, streams.Time)
	}
}

func TestStatusErrorTemporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		err := &StatusError{Op: "test", StatusCode: tt.code}
		if got := err.Temporary(); got != tt.want {
			t.Errorf("Temporary(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestTypeCode(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"9", 9, true},
		{" 3 ", 3, true},
		{"Run", 9, true},
		{"running", 9, true},
		{"TrailRun", 9, true},
		{"cycling", 1, true},
		{"backcountry_skiing", 3, true},
		{"underwater basket weaving", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := TypeCode(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("TypeCode(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
