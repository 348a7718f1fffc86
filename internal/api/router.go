package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", s.handleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/crawler", func(r chi.Router) {
			r.Post("/start", s.handleCrawlerStart)
			r.Post("/stop", s.handleCrawlerStop)
			r.Get("/status", s.handleCrawlerStatus)
			r.Get("/results", s.handleCrawlerResults)

			r.Get("/links", s.handleGetLinks)
			r.Get("/links/stats", s.handleGetLinkStats)
			r.Get("/links/publisher/{publisher}", s.handleGetLinksByPublisher)
			r.Get("/links/category/{category}", s.handleGetLinksByCategory)
		})

		r.Route("/unused-links", func(r chi.Router) {
			r.Get("/", s.handleGetUnusedLinks)
			r.Delete("/", s.handlePurgeUnusedLinks)
			r.Post("/recover", s.handleRecoverUnusedLink)
		})

		r.Route("/crawler-settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Post("/", s.handleAddPublisher)
			r.Delete("/{category}/{publisher}", s.handleRemovePublisher)
			r.Get("/tags/{category}", s.handleGetTags)
			r.Put("/tags/{category}", s.handleSetTags)
		})
	})

	return r
}
