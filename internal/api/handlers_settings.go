package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load()
	if err != nil {
		s.logger.Error("failed to load crawler settings", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not load settings")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"settings": settings,
	})
}

type addPublisherRequest struct {
	Category      string `json:"category"`
	PublisherName string `json:"publisher_name"`
	URL           string `json:"url"`
}

func (s *Server) handleAddPublisher(w http.ResponseWriter, r *http.Request) {
	var req addPublisherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Category == "" || req.PublisherName == "" || req.URL == "" {
		s.respondWithError(w, http.StatusBadRequest, "Category, publisher name, and URL are required")
		return
	}

	if err := s.settings.AddPublisher(req.Category, req.PublisherName, req.URL); err != nil {
		s.logger.Error("failed to add publisher", zap.Error(err))
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Publisher added successfully",
	})
}

func (s *Server) handleRemovePublisher(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	publisher := chi.URLParam(r, "publisher")

	removed, err := s.settings.RemovePublisher(category, publisher)
	if err != nil {
		s.logger.Error("failed to remove publisher", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not update settings")
		return
	}
	if !removed {
		s.respondWithError(w, http.StatusNotFound, "Publisher not found")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Publisher removed successfully",
	})
}

func (s *Server) handleGetTags(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	tags, found, err := s.settings.Tags(category)
	if err != nil {
		s.logger.Error("failed to load tags", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not load settings")
		return
	}
	if !found {
		s.respondWithError(w, http.StatusNotFound, fmt.Sprintf("Category '%s' not found", category))
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"tags":   tags,
	})
}

type setTagsRequest struct {
	Tags []string `json:"tags"`
}

func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var req setTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Tags must be a list of strings")
		return
	}

	if err := s.settings.SetTags(category, req.Tags); err != nil {
		s.logger.Error("failed to update tags", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not update settings")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Tags for category '%s' updated successfully", category),
	})
}
