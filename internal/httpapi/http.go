package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/ingest"
	"gprs_formatter/internal/jobs"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/store"
)

// Router builds the ops HTTP handlers.
type Router struct {
	cfg     config.Config
	store   *store.Store
	runner  *jobs.Runner
	metrics *metrics.Metrics
}

func NewRouter(cfg config.Config, st *store.Store, runner *jobs.Runner, m *metrics.Metrics) *Router {
	return &Router{cfg: cfg, store: st, runner: runner, metrics: m}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/runs", r.runs)
	mux.HandleFunc("/ops/runs/", r.runDetail)
	mux.HandleFunc("/ops/run", r.trigger)
	mux.HandleFunc("/api/report", r.report)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	runs, _ := r.store.ListRuns(req.Context(), 10)
	respondJSON(w, map[string]any{
		"metrics": r.metrics.Snapshot(),
		"workers": r.cfg.WorkerCount,
		"runs":    runs,
	})
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListRuns(req.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (r *Router) runDetail(w http.ResponseWriter, req *http.Request) {
	runID := strings.TrimPrefix(req.URL.Path, "/ops/runs/")
	run, err := r.store.GetRun(req.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, run)
}

// trigger enqueues a run, defaulting to the newest export on disk when
// no source is named. Duplicate triggers coalesce onto the recorded run.
func (r *Router) trigger(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Source string `json:"source"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	source := strings.TrimSpace(body.Source)
	if source == "" {
		latest, err := ingest.LatestExport(r.cfg.ExportsDir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		source = latest
	}
	run, err := r.runner.Enqueue(req.Context(), source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, run)
}

// report serves the latest assembled report document as-is.
func (r *Router) report(w http.ResponseWriter, req *http.Request) {
	runID, payload, err := r.store.LatestReport(req.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if payload == nil {
		http.Error(w, "no report yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Run-ID", runID)
	_, _ = w.Write(payload)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
