package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const owmFixture = `{
	"name": "Bilbao",
	"weather": [{"description": "light rain", "icon": "10d"}],
	"main": {"temp": 16.4, "feels_like": 15.9, "humidity": 82},
	"wind": {"speed": 4.1}
}`

func TestCurrentParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("units") != "metric" {
			t.Errorf("expected metric units, got %q", q.Get("units"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("expected api key forwarded, got %q", q.Get("appid"))
		}
		w.Write([]byte(owmFixture))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key", 5*time.Second)
	snap, err := client.Current(context.Background(), 43.26, -2.93)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Name != "Bilbao" {
		t.Errorf("expected Bilbao, got %q", snap.Name)
	}
	if snap.TempC != 16.4 || snap.FeelsLikeC != 15.9 {
		t.Errorf("unexpected temps: %+v", snap)
	}
	if snap.Description != "light rain" || snap.Icon != "10d" {
		t.Errorf("unexpected conditions: %+v", snap)
	}
	if snap.Humidity != 82 || snap.WindSpeed != 4.1 {
		t.Errorf("unexpected humidity/wind: %+v", snap)
	}
}

func TestCurrentEmptyWeatherArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Nowhere","weather":[],"main":{"temp":1},"wind":{}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "k", 5*time.Second)
	snap, err := client.Current(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Description != "" {
		t.Errorf("expected empty description, got %q", snap.Description)
	}
}

func TestCurrentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "bad-key", 5*time.Second)
	if _, err := client.Current(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}
