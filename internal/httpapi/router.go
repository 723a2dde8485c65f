package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"internhub-engine/internal/logging"
)

// NewMux registers every route on a fresh mux.
func NewMux(d Deps) *http.ServeMux {
	log := logging.OrNop(d.Logger).Named("http")
	if d.Now == nil {
		d.Now = time.Now
	}
	mux := http.NewServeMux()

	sch := ScrapeHandler{
		Runner: d.Runner,
		Store:  d.Store,
		Cfg:    d.Cfg,
		Secret: d.Secret,
		Log:    log,
		Now:    d.Now,
	}
	mux.HandleFunc("/api/scrape", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  sch.Run,
		http.MethodPost: sch.Run,
	}))
	mux.HandleFunc("/api/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))

	ih := InternshipsHandler{Store: d.Store, Log: log}
	mux.HandleFunc("/api/internships", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.List,
	}))
	mux.HandleFunc("/api/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.Runs,
	}))

	ch := ConfigHandler{Cfg: d.Cfg}
	mux.HandleFunc("/api/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	hh := HealthHandler{Runner: d.Runner}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Handler is NewMux wrapped in the standard middleware chain.
func Handler(d Deps) http.Handler {
	log := logging.OrNop(d.Logger).Named("http")
	return Chain(NewMux(d), RequestID, Recover(log), AccessLog(log), Cors)
}
