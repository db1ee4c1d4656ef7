package rowsource

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/suspectuso/surebet-router/internal/ingest"
)

var discard = slog.New(slog.DiscardHandler)

const batchJSON = `{"rows":[
	{"profit":"2.5%","event":"A vs B","league":"La Liga","start_time":"Hoy 21:00",
	 "markets":["1","2"],"bookmakers":[{"name":"bet365","odds":"2.1"},{"name":"Winamax","odds":"2.0"}]},
	{"profit":"1%","event":"C vs D","markets":["Over"],"bookmakers":[{"name":"Betfair","odds":"1.9"}]}
]}`

func post(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rows", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostRowsThenFetch(t *testing.T) {
	r := NewReceiver(0, discard)
	h := r.Handler()

	rec := post(t, h, "application/json", batchJSON)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /rows = %d: %s", rec.Code, rec.Body.String())
	}

	rows, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 || rows[0].StartTime != "Hoy 21:00" || rows[0].Bookmakers[1].Name != "Winamax" {
		t.Fatalf("rows = %+v", rows)
	}

	rows, _ = r.Fetch(context.Background())
	if len(rows) != 0 {
		t.Fatalf("second Fetch returned %d rows, want drained buffer", len(rows))
	}
}

func TestPostRowsRejects(t *testing.T) {
	h := NewReceiver(0, discard).Handler()

	if rec := post(t, h, "application/json", `{"rows":`); rec.Code != http.StatusBadRequest {
		t.Errorf("truncated JSON = %d, want 400", rec.Code)
	}
	if rec := post(t, h, "text/plain", batchJSON); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain = %d, want 415", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewReceiver(0, discard).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestFetchStale(t *testing.T) {
	r := NewReceiver(time.Minute, discard)
	now := time.Now()
	r.now = func() time.Time { return now }

	if _, err := r.Fetch(context.Background()); err != nil {
		t.Fatalf("fresh receiver: %v", err)
	}

	post(t, r.Handler(), "application/json", batchJSON)
	now = now.Add(30 * time.Second)
	if _, err := r.Fetch(context.Background()); err != nil {
		t.Fatalf("recent push: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Fetch(context.Background()); !errors.Is(err, ingest.ErrFatalUpstream) {
		t.Fatalf("stale Fetch err = %v, want ErrFatalUpstream", err)
	}
}

func TestListenFailureIsFatal(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	r := NewReceiver(0, discard)
	if err := r.Start(context.Background(), port); err == nil {
		t.Fatal("Start on a busy port should fail")
	}
	if _, err := r.Fetch(context.Background()); !errors.Is(err, ingest.ErrFatalUpstream) {
		t.Fatalf("Fetch err = %v, want ErrFatalUpstream", err)
	}
}
