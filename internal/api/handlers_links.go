package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/linkscout/internal/domain"
	"github.com/user/linkscout/internal/store"
	"go.uber.org/zap"
)

func (s *Server) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	links := s.links.List(store.PartitionAccepted, store.ListFilter{})
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"links":  links,
	})
}

func (s *Server) handleGetLinksByPublisher(w http.ResponseWriter, r *http.Request) {
	publisher := chi.URLParam(r, "publisher")
	links := s.links.List(store.PartitionAccepted, store.ListFilter{Publisher: publisher})
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"publisher": publisher,
		"links":     links,
	})
}

func (s *Server) handleGetLinksByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	links := s.links.List(store.PartitionAccepted, store.ListFilter{Category: category})
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"category": category,
		"links":    links,
	})
}

func (s *Server) handleGetLinkStats(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats":  s.links.Stats(store.PartitionAccepted),
	})
}

func (s *Server) handleGetUnusedLinks(w http.ResponseWriter, r *http.Request) {
	links := s.links.List(store.PartitionUnused, store.ListFilter{})
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"links":  links,
		"stats":  s.links.Stats(store.PartitionUnused),
	})
}

type purgeRequest struct {
	Category   string `json:"category"`
	Publisher  string `json:"publisher"`
	BeforeDate string `json:"before_date"`
	All        bool   `json:"all"`
}

func (s *Server) handlePurgeUnusedLinks(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	filter := store.PurgeFilter{
		Category:  req.Category,
		Publisher: req.Publisher,
		All:       req.All,
	}
	if req.BeforeDate != "" {
		t, err := time.Parse(time.RFC3339, req.BeforeDate)
		if err != nil {
			// Accept a bare datetime without zone as well.
			t, err = time.Parse("2006-01-02T15:04:05", req.BeforeDate)
		}
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid date format. Use ISO format (YYYY-MM-DDTHH:MM:SS)")
			return
		}
		filter.Before = &t
	}

	deleted, remaining, err := s.links.Purge(store.PartitionUnused, filter)
	if err != nil {
		if errors.Is(err, store.ErrNoPurgeFilter) {
			s.respondWithError(w, http.StatusBadRequest, "No filter specified")
			return
		}
		s.logger.Error("failed to purge unused links", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not delete unused links")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"deleted":   deleted,
		"remaining": remaining,
	})
}

type recoverRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	ForceAdd bool   `json:"force_add"`
}

// handleRecoverUnusedLink promotes a previously rejected link into the
// accepted partition and the downstream sheet. When the sheet append fails
// the unused record is restored so the link is not lost.
func (s *Server) handleRecoverUnusedLink(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" || req.Category == "" {
		s.respondWithError(w, http.StatusBadRequest, "URL and category are required")
		return
	}

	if !req.ForceAdd {
		if rec, ok := s.links.Get(req.URL, store.PartitionAccepted); ok {
			category := rec.Category
			if category == "" {
				category = "unknown"
			}
			s.respondWithError(w, http.StatusConflict,
				fmt.Sprintf("This article already exists in the sheet (added under %s category)", category))
			return
		}
	}

	rec, ok := s.links.Get(req.URL, store.PartitionUnused)
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "Link not found in unused links")
		return
	}

	title := req.Title
	if title == "" {
		if t, ok := rec.Metadata["title"].(string); ok {
			title = t
		}
	}

	summary := req.Summary
	if summary == "" {
		// Re-extract the article to rebuild the summary. Failures here are
		// tolerated: the link is still recovered, just without a summary.
		article, err := s.extractor.Extract(r.Context(), req.URL)
		if err != nil {
			s.logger.Warn("failed to re-extract article during recovery",
				zap.String("url", req.URL), zap.Error(err))
		} else {
			summary = s.summarizer.Summarize(article.Text, 300)
			if title == "" {
				title = article.Title
			}
		}
	}

	if _, err := s.links.Remove(req.URL, store.PartitionUnused); err != nil {
		s.logger.Error("failed to remove unused link", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not update unused links")
		return
	}

	if err := s.sheets.EnsureWorksheet(r.Context(), req.Category); err != nil {
		s.logger.Warn("failed to ensure worksheet during recovery",
			zap.String("category", req.Category), zap.Error(err))
	}

	row := domain.SheetRow{
		Category:  req.Category,
		Link:      req.URL,
		Title:     title,
		Summary:   summary,
		Publisher: rec.Publisher,
		Date:      time.Now().Format("01/02/2006"),
	}
	if err := s.sheets.AppendRow(r.Context(), row); err != nil {
		// Put the record back so the link can be recovered again later.
		if _, restoreErr := s.links.Reject(rec.URL, rec.Category, rec.Publisher, rec.Reason, rec.Metadata); restoreErr != nil {
			s.logger.Error("failed to restore unused link after sheet error", zap.Error(restoreErr))
		}
		s.logger.Error("failed to append recovered link to sheet", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Error adding to sheet: "+err.Error())
		return
	}

	if _, err := s.links.Accept(req.URL, rec.Publisher, req.Category, rec.Metadata); err != nil {
		s.logger.Error("failed to record recovered link", zap.Error(err))
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Link recovered and added to %s worksheet", req.Category),
	})
}
