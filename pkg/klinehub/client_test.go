package klinehub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/klines/BTCUSDT/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","interval":"1","bars":[{"time":1700000000,"open":1,"high":2,"low":0.5,"close":1.5}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	series, err := c.Series(context.Background(), "BTCUSDT", "1")
	if err != nil {
		t.Fatalf("Series() error: %v", err)
	}
	if len(series.Bars) != 1 || series.Bars[0].Close != 1.5 {
		t.Errorf("unexpected bars: %+v", series.Bars)
	}
}

func TestWindowQueryAndPlaceholders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("offset"); got != "-1" {
			t.Errorf("offset = %q, want -1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"BTCUSDT","interval":"1","offset":-1,"start":60,"end":180,"points":[{"time":60,"open":1,"high":1,"low":1,"close":1},{"time":120}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	win, err := c.Window(context.Background(), "BTCUSDT", "1", -1)
	if err != nil {
		t.Fatalf("Window() error: %v", err)
	}
	if len(win.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(win.Points))
	}
	if win.Points[0].Close == nil || *win.Points[0].Close != 1 {
		t.Errorf("first point should carry OHLC")
	}
	if win.Points[1].Close != nil {
		t.Errorf("placeholder point should have nil OHLC")
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown symbol"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Series(context.Background(), "NOPE", "1"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
