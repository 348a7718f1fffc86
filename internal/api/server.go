package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/user/linkscout/internal/config"
	"github.com/user/linkscout/internal/crawl"
	"github.com/user/linkscout/internal/store"
	"github.com/user/linkscout/internal/storage"
	"github.com/user/linkscout/internal/summarize"
	"go.uber.org/zap"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config       *config.Config
	router       http.Handler
	httpServer   *http.Server
	orchestrator *crawl.Orchestrator
	links        *store.LinkStore
	settings     *store.SettingsStore
	extractor    crawl.ContentExtractor
	summarizer   *summarize.Summarizer
	sheets       crawl.SheetWriter
	seenCache    *storage.SeenCache // nil when the cache is disabled
	logger       *zap.Logger
}

func NewServer(cfg *config.Config, orc *crawl.Orchestrator, ls *store.LinkStore, ss *store.SettingsStore, ex crawl.ContentExtractor, sm *summarize.Summarizer, sw crawl.SheetWriter, sc *storage.SeenCache, l *zap.Logger) *Server {
	s := &Server{
		config:       cfg,
		orchestrator: orc,
		links:        ls,
		settings:     ss,
		extractor:    ex,
		summarizer:   sm,
		sheets:       sw,
		seenCache:    sc,
		logger:       l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
