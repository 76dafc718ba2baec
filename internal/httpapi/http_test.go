package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/events"
	"gprs_formatter/internal/jobs"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/store"
)

func testMux(t *testing.T) (*http.ServeMux, *store.Store, config.Config) {
	t.Helper()
	cfg := config.Config{
		ExportsDir:    t.TempDir(),
		WorkerCount:   1,
		QueueSize:     4,
		JobTimeoutSec: 5,
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	runner := jobs.NewRunner(cfg, st, metrics.New(), events.NewBus(),
		func(ctx context.Context, run *store.Run) error { return nil })
	mux := http.NewServeMux()
	NewRouter(cfg, st, runner, metrics.New()).Register(mux)
	return mux, st, cfg
}

func TestHealth(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["workers"] != float64(1) {
		t.Fatalf("workers = %v", body["workers"])
	}
}

func TestReportNotFound(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReportServesLatest(t *testing.T) {
	mux, st, _ := testMux(t)
	payload := []byte(`{"main":[]}`)
	if err := st.SaveReport(context.Background(), "run-9", payload, time.Now()); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Run-ID") != "run-9" {
		t.Fatalf("run id header = %q", rec.Header().Get("X-Run-ID"))
	}
	if rec.Body.String() != string(payload) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestTriggerDefaultsToLatestExport(t *testing.T) {
	mux, _, cfg := testMux(t)
	src := filepath.Join(cfg.ExportsDir, "tickets.csv")
	if err := os.WriteFile(src, []byte("phone\n790123456\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/run", strings.NewReader("{}")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var run store.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.SourceFile != src || run.Status != store.StatusQueued {
		t.Fatalf("run = %+v", run)
	}
}

func TestTriggerNoExports(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/run", strings.NewReader("{}")))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTriggerRejectsGet(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/run", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunDetailNotFound(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
