package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/user/linkscout/internal/crawl"
	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) handleCrawlerStart(w http.ResponseWriter, r *http.Request) {
	// The body is optional: an empty request crawls everything.
	var req domain.CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.orchestrator.Start(req); err != nil {
		if errors.Is(err, crawl.ErrJobRunning) {
			s.respondWithError(w, http.StatusConflict, "Crawler is already running")
			return
		}
		s.logger.Error("failed to start crawl job", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not start crawler")
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleCrawlerStop(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.RequestStop(); err != nil {
		if errors.Is(err, crawl.ErrJobNotRunning) {
			s.respondWithError(w, http.StatusConflict, "Crawler is not running")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "Could not stop crawler")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "stopping",
		"message": "Stop signal sent to crawler",
	})
}

func (s *Server) handleCrawlerStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"crawler": s.orchestrator.Status(),
	})
}

func (s *Server) handleCrawlerResults(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"results": s.orchestrator.Results(),
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	healthStatus := map[string]string{"service": "healthy"}
	healthy := true

	if s.seenCache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.seenCache.Ping(ctx); err != nil {
			healthStatus["redis"] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed for redis", zap.Error(err))
		} else {
			healthStatus["redis"] = "healthy"
		}
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"status": "error", "error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
