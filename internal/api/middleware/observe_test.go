package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/internal/api/middleware"
)

// captureLog swaps the global logger for a buffer-backed one for the
// duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestObserveLogsRequestFields(t *testing.T) {
	buf := captureLog(t)

	h := chimw.RequestID(middleware.Observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 passed through", rec.Code)
	}
	if rec.Body.String() != "nope" {
		t.Errorf("body = %q, want handler body passed through", rec.Body.String())
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if line["method"] != "GET" {
		t.Errorf("method = %v, want GET", line["method"])
	}
	if line["path"] != "/api/v1/missing" {
		t.Errorf("path = %v, want /api/v1/missing", line["path"])
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", line["status"])
	}
	if line["bytes"] != float64(4) {
		t.Errorf("bytes = %v, want 4", line["bytes"])
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Error("request_id missing from log line")
	}
	// 4xx responses are logged at warn level.
	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn", line["level"])
	}
}

func TestObserveLogsErrorsAtErrorLevel(t *testing.T) {
	buf := captureLog(t)

	h := middleware.Observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if line["level"] != "error" {
		t.Errorf("level = %v, want error", line["level"])
	}
	if line["status"] != float64(http.StatusInternalServerError) {
		t.Errorf("status = %v, want 500", line["status"])
	}
}
