package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/8.8.8.8":
			w.Write([]byte(`{"status":"success","country":"United States","city":"Ashburn","lat":39.03,"lon":-77.5,"query":"8.8.8.8"}`))
		case "/json":
			w.Write([]byte(`{"status":"success","city":"Here","lat":1.5,"lon":2.5,"query":"203.0.113.7"}`))
		default:
			w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL+"/json/", time.Second, zap.NewNop())

	loc, err := c.Lookup(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loc.Lat != 39.03 || loc.Lon != -77.5 || loc.City != "Ashburn" {
		t.Errorf("Lookup = %+v", loc)
	}

	loc, err = c.Lookup(context.Background(), "")
	if err != nil {
		t.Fatalf("Lookup own address: %v", err)
	}
	if loc.Query != "203.0.113.7" || loc.Lat != 1.5 {
		t.Errorf("Lookup own address = %+v", loc)
	}

	if _, err := c.Lookup(context.Background(), "10.0.0.1"); !errors.Is(err, ErrLookupFailed) {
		t.Errorf("private address err = %v, want ErrLookupFailed", err)
	}
}

func TestLookupHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).Lookup(context.Background(), "1.1.1.1")
	if !errors.Is(err, ErrLookupFailed) {
		t.Errorf("err = %v, want ErrLookupFailed", err)
	}
}
