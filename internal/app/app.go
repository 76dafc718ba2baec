package app

import (
	"context"
	"log"
	"net/http"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/events"
	"gprs_formatter/internal/httpapi"
	"gprs_formatter/internal/jobs"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/pipeline"
	"gprs_formatter/internal/store"
	"gprs_formatter/internal/watch"
)

// App wires the pipeline components together.
type App struct {
	cfg     config.Config
	store   *store.Store
	runner  *jobs.Runner
	watcher *watch.Watcher
	bus     *events.Bus
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	bus := events.NewBus()
	pipe := pipeline.New(cfg, st, m)
	runner := jobs.NewRunner(cfg, st, m, bus, pipe.Execute)
	watcher := watch.New(cfg, runner)
	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, runner, m).Register(mux)
	return &App{cfg: cfg, store: st, runner: runner, watcher: watcher, bus: bus, mux: mux}, nil
}

// Run starts workers, the export watcher, and the HTTP server, and
// blocks until the context is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.runner.Start(ctx)
	go a.logCompletions(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Backfill(ctx); err != nil {
		log.Printf("backfill: %v", err)
	}
	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
		a.runner.Stop()
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

func (a *App) logCompletions(ctx context.Context) {
	sub := a.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			if ev.Err != "" {
				log.Printf("run %s failed for %s: %s", ev.RunID, ev.SourceFile, ev.Err)
				continue
			}
			log.Printf("run %s completed for %s: main=%d feedback=%d",
				ev.RunID, ev.SourceFile, ev.MainRows, ev.FeedbackRows)
		}
	}
}

func (a *App) Runner() *jobs.Runner { return a.runner }
func (a *App) Store() *store.Store  { return a.store }
func (a *App) Mux() *http.ServeMux  { return a.mux }
