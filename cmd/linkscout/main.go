package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/linkscout/internal/api"
	"github.com/user/linkscout/internal/classify"
	"github.com/user/linkscout/internal/config"
	"github.com/user/linkscout/internal/crawl"
	"github.com/user/linkscout/internal/discover"
	"github.com/user/linkscout/internal/extract"
	"github.com/user/linkscout/internal/monitoring"
	"github.com/user/linkscout/internal/sheets"
	"github.com/user/linkscout/internal/storage"
	"github.com/user/linkscout/internal/store"
	"github.com/user/linkscout/internal/summarize"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	linkStore := store.NewLinkStore(cfg.DataDir, logger)
	settingsStore := store.NewSettingsStore(cfg.DataDir, logger)

	var seenCache *storage.SeenCache
	var crawlCache crawl.SeenCache
	if cfg.RedisAddr != "" {
		seenCache = storage.NewSeenCache(cfg.RedisAddr, time.Duration(cfg.SeenCacheDays)*24*time.Hour, logger)
		crawlCache = seenCache
	}

	// Initialize Monitoring
	metrics := monitoring.NewMetrics()

	// Initialize Pipeline Components
	classifier := classify.NewClassifier(settingsStore, logger)
	summarizer := summarize.NewSummarizer(nil)
	discoverer := discover.NewDiscoverer(discover.BingHost, logger)
	extractor := extract.NewArticleExtractor(time.Duration(cfg.ExtractTimeout)*time.Second, logger)
	sheetClient := sheets.NewClient(cfg.SheetsAPIURL, logger)

	newDriver := func() (discover.SearchDriver, error) {
		return discover.NewBingDriver(cfg.Headless, time.Duration(cfg.PageLoadTimeout)*time.Second, logger)
	}

	orchestrator := crawl.NewOrchestrator(crawl.Options{
		Links:           linkStore,
		Settings:        settingsStore,
		Classifier:      classifier,
		Summarizer:      summarizer,
		Discoverer:      discoverer,
		Extractor:       extractor,
		Sheets:          sheetClient,
		NewDriver:       newDriver,
		Cache:           crawlCache,
		Metrics:         metrics,
		Logger:          logger,
		DefaultMaxPages: cfg.MaxPages,
	})

	// Initialize API Server
	server := api.NewServer(cfg, orchestrator, linkStore, settingsStore, extractor, summarizer, sheetClient, seenCache, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ask a running crawl job to stop at its next suspension point.
	if err := orchestrator.RequestStop(); err == nil {
		logger.Info("stop signal sent to running crawl job")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
