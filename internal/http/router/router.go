// Package router assembles the dispatch HTTP API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch/internal/http/handlers"
)

// Config tunes the router.
type Config struct {
	// RequestTimeout bounds every route except the synchronous cycle, which
	// lasts as long as the bidding window.
	RequestTimeout time.Duration
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Deps groups the handlers and extra middleware.
type Deps struct {
	Base          *handlers.Handlers
	Announcements *handlers.AnnouncementHandler
	Notifications *handlers.NotificationHandler
	Middlewares   []func(http.Handler) http.Handler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(cfg Config, d Deps) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	for _, mw := range d.Middlewares {
		r.Use(mw)
	}

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/announcements", d.Announcements.Publish)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Post("/announcements/batch", d.Announcements.PublishBatch)
		r.Get("/announcements", d.Announcements.List)
		r.Get("/announcements/{id}", d.Announcements.Get)
		r.Post("/announcements/{id}/assign", d.Announcements.Assign)
		r.Get("/couriers/{id}/notifications", d.Notifications.List)
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
