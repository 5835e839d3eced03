package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

func fixedClock() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, time.Second, nil, 0)
	c.Now = fixedClock
	return c
}

func TestTodayWeather(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"03-13","weather":"Rainy"},{"date":"03-14","weather":"Sunny"}]`))
	})

	got, err := c.TodayWeather(context.Background())
	if err != nil {
		t.Fatalf("TodayWeather: %v", err)
	}
	if got != "Sunny" {
		t.Errorf("got %q, want Sunny", got)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one request, got %d", hits)
	}
}

func TestTodayWeatherFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"no entry for today": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"date":"01-01","weather":"Snowy"}]`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			if _, err := c.TodayWeather(context.Background()); !errors.Is(err, apperrors.ErrWeatherUnavailable) {
				t.Fatalf("expected ErrWeatherUnavailable, got %v", err)
			}
		})
	}
}

func TestTodayWeatherHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.TodayWeather(ctx); !errors.Is(err, apperrors.ErrWeatherUnavailable) {
		t.Fatalf("expected ErrWeatherUnavailable, got %v", err)
	}
}
