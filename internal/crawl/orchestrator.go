package crawl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/linkscout/internal/classify"
	"github.com/user/linkscout/internal/discover"
	"github.com/user/linkscout/internal/domain"
	"github.com/user/linkscout/internal/monitoring"
	"github.com/user/linkscout/internal/store"
	"github.com/user/linkscout/internal/summarize"
	"go.uber.org/zap"
)

// ErrJobRunning is returned by Start while a crawl job is active.
var ErrJobRunning = errors.New("crawl job is already running")

// ErrJobNotRunning is returned by RequestStop when no job is active.
var ErrJobNotRunning = errors.New("no crawl job is running")

// summaryMaxChars is the strict character budget for article summaries.
const summaryMaxChars = 300

// ContentExtractor retrieves and parses a single page.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*domain.Article, error)
}

// SheetWriter persists accepted article rows downstream.
type SheetWriter interface {
	AppendRow(ctx context.Context, row domain.SheetRow) error
	EnsureWorksheet(ctx context.Context, category string) error
}

// SeenCache is an optional fast path in front of the link store dedup check.
type SeenCache interface {
	Seen(ctx context.Context, url string) bool
	Mark(ctx context.Context, url string)
}

// DriverFactory acquires a search driver for one job. The orchestrator closes
// it in a guaranteed cleanup path regardless of how the job ends.
type DriverFactory func() (discover.SearchDriver, error)

// Orchestrator drives the full crawl job: it iterates categories and
// publishers, discovers candidate links, deduplicates them against the link
// store, classifies and summarizes each new link, tracks progress and ETA,
// and supports cooperative cancellation. It is the only component holding
// cross-cutting job state, guarded by a single mutex.
type Orchestrator struct {
	links           *store.LinkStore
	settings        *store.SettingsStore
	classifier      *classify.Classifier
	summarizer      *summarize.Summarizer
	discoverer      *discover.Discoverer
	extractor       ContentExtractor
	sheets          SheetWriter
	newDriver       DriverFactory
	cache           SeenCache // nil disables the fast path
	metrics         *monitoring.Metrics
	logger          *zap.Logger
	defaultMaxPages int
	now             func() time.Time

	mu      sync.Mutex
	job     domain.CrawlJob
	results []domain.ArticleResult
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Links           *store.LinkStore
	Settings        *store.SettingsStore
	Classifier      *classify.Classifier
	Summarizer      *summarize.Summarizer
	Discoverer      *discover.Discoverer
	Extractor       ContentExtractor
	Sheets          SheetWriter
	NewDriver       DriverFactory
	Cache           SeenCache
	Metrics         *monitoring.Metrics
	Logger          *zap.Logger
	DefaultMaxPages int
}

// NewOrchestrator wires up an orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.DefaultMaxPages <= 0 {
		opts.DefaultMaxPages = 5
	}
	return &Orchestrator{
		links:           opts.Links,
		settings:        opts.Settings,
		classifier:      opts.Classifier,
		summarizer:      opts.Summarizer,
		discoverer:      opts.Discoverer,
		extractor:       opts.Extractor,
		sheets:          opts.Sheets,
		newDriver:       opts.NewDriver,
		cache:           opts.Cache,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		defaultMaxPages: opts.DefaultMaxPages,
		now:             time.Now,
	}
}

// Start launches a crawl job asynchronously. It fails fast with ErrJobRunning
// when a job is already active; the running job is left untouched.
func (o *Orchestrator) Start(req domain.CrawlRequest) error {
	o.mu.Lock()
	if o.job.Running {
		o.mu.Unlock()
		return ErrJobRunning
	}
	o.job = domain.CrawlJob{
		Running:   true,
		StartTime: o.now(),
	}
	o.results = nil
	o.mu.Unlock()

	o.metrics.JobRunning.Set(1)
	go o.run(req)
	return nil
}

// RequestStop sets the cooperative stop flag. The job ends at its next
// suspension point.
func (o *Orchestrator) RequestStop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.job.Running {
		return ErrJobNotRunning
	}
	o.job.StopRequested = true
	return nil
}

// Status returns a snapshot of the current job state. It never blocks on the
// crawl itself.
func (o *Orchestrator) Status() domain.CrawlJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := o.job
	if o.job.ETASeconds != nil {
		eta := *o.job.ETASeconds
		snapshot.ETASeconds = &eta
	}
	return snapshot
}

// Results returns the per-URL outcomes gathered by the current or last job.
func (o *Orchestrator) Results() []domain.ArticleResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.ArticleResult, len(o.results))
	copy(out, o.results)
	return out
}

// unit is one (category, publisher) pair the job visits.
type unit struct {
	category  string
	publisher string
	baseURL   string
	tags      []string
}

func (o *Orchestrator) run(req domain.CrawlRequest) {
	ctx := context.Background()
	var driver discover.SearchDriver
	terminal := "completed"

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("crawl job panicked", zap.Any("panic", r))
			terminal = fmt.Sprintf("error: %v", r)
		}
		if driver != nil {
			if err := driver.Close(); err != nil {
				o.logger.Warn("failed to close search driver", zap.Error(err))
			}
		}
		o.mu.Lock()
		o.job.Current = terminal
		o.job.Running = false
		o.job.StopRequested = false
		o.job.ElapsedSeconds = int(o.now().Sub(o.job.StartTime).Seconds())
		zero := 0
		o.job.ETASeconds = &zero
		o.mu.Unlock()
		o.metrics.JobRunning.Set(0)
		o.logger.Info("crawl job finished", zap.String("outcome", terminal))
	}()

	units, err := o.plan(req)
	if err != nil {
		terminal = "error: " + err.Error()
		return
	}

	o.mu.Lock()
	o.job.Total = len(units)
	o.mu.Unlock()

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = o.defaultMaxPages
	}

	driver, err = o.newDriver()
	if err != nil {
		terminal = "error: " + err.Error()
		return
	}

	stopped := false
	var lastCategory string
	for _, u := range units {
		// Stop checks before each category and before each publisher.
		if u.category != lastCategory {
			lastCategory = u.category
			if o.stopRequested() {
				stopped = true
				break
			}
		}
		if o.stopRequested() {
			stopped = true
			break
		}

		o.processPublisher(ctx, driver, u, maxPages)

		// Progress counts publishers, success or failure.
		o.advanceProgress()

		if o.stopRequested() {
			stopped = true
			break
		}
	}

	if stopped {
		terminal = "stopped by user"
	}
}

// plan resolves the request filters against the settings into an ordered list
// of publisher units.
func (o *Orchestrator) plan(req domain.CrawlRequest) ([]unit, error) {
	settings, err := o.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	categoryFilter := toSet(req.Categories)
	publisherFilter := make(map[domain.PublisherRef]struct{}, len(req.Publishers))
	for _, ref := range req.Publishers {
		publisherFilter[ref] = struct{}{}
	}

	categories := make([]string, 0, len(settings.Categories))
	for name := range settings.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var units []unit
	for _, category := range categories {
		if len(categoryFilter) > 0 {
			if _, ok := categoryFilter[category]; !ok {
				continue
			}
		}
		cfg := settings.Categories[category]
		if len(cfg.Publishers) == 0 {
			continue
		}

		publishers := make([]string, 0, len(cfg.Publishers))
		for name := range cfg.Publishers {
			publishers = append(publishers, name)
		}
		sort.Strings(publishers)

		for _, name := range publishers {
			if len(publisherFilter) > 0 {
				ref := domain.PublisherRef{Category: category, Name: name}
				if _, ok := publisherFilter[ref]; !ok {
					continue
				}
			}
			units = append(units, unit{
				category:  category,
				publisher: name,
				baseURL:   cfg.Publishers[name],
				tags:      cfg.Tags,
			})
		}
	}
	return units, nil
}

// processPublisher runs the discovery and classification pipeline for one
// publisher. Failures are logged and swallowed so a single bad publisher
// never aborts the batch.
func (o *Orchestrator) processPublisher(ctx context.Context, driver discover.SearchDriver, u unit, maxPages int) {
	o.setCurrent(fmt.Sprintf("Crawling %s (%s)", u.publisher, u.category))
	log := o.logger.With(zap.String("publisher", u.publisher), zap.String("category", u.category))

	stopPoll := o.stopRequested

	candidates, pages, err := o.discoverer.Discover(driver, u.tags, u.baseURL, maxPages, stopPoll)
	if err != nil {
		log.Error("link discovery failed, skipping publisher", zap.Error(err))
		o.metrics.IncErrors("discovery_failed")
		return
	}
	o.metrics.PagesScraped.Add(float64(pages))
	o.metrics.LinksDiscovered.Add(float64(len(candidates)))
	if stopPoll() {
		return
	}

	valid := discover.FilterByDomain(candidates, u.baseURL, stopPoll)
	if stopPoll() {
		return
	}

	var newLinks []string
	for _, link := range valid {
		if stopPoll() {
			return
		}
		if o.alreadyProcessed(ctx, link) {
			log.Debug("skipping already processed link", zap.String("url", link))
			continue
		}
		newLinks = append(newLinks, link)
	}
	log.Info("discovery complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("valid", len(valid)),
		zap.Int("new", len(newLinks)))

	for _, link := range newLinks {
		if stopPoll() {
			return
		}
		o.processLink(ctx, u, link)
		o.refreshTiming()
	}
}

// alreadyProcessed checks the seen cache first and falls back to the durable
// store's two partitions.
func (o *Orchestrator) alreadyProcessed(ctx context.Context, link string) bool {
	if o.cache != nil && o.cache.Seen(ctx, link) {
		return true
	}
	return o.links.ContainsAny(link)
}

// processLink runs extraction, classification, summarization and persistence
// for one new URL. Extraction runs to completion or failure; cancellation is
// only polled between links.
func (o *Orchestrator) processLink(ctx context.Context, u unit, link string) {
	log := o.logger.With(zap.String("url", link))

	article, err := o.extractor.Extract(ctx, link)
	if err != nil {
		// Not recorded anywhere: the URL stays eligible for a later run.
		log.Warn("article extraction failed", zap.Error(err))
		o.metrics.IncErrors("extraction_failed")
		o.metrics.IncArticles(string(domain.StatusError))
		o.addResult(domain.ArticleResult{
			Status:    domain.StatusError,
			URL:       link,
			Publisher: u.publisher,
			Category:  u.category,
			Error:     err.Error(),
		})
		return
	}

	relevant, matched, reason := o.classifier.IsRelevant(u.category, article.Text)
	if !relevant {
		if _, err := o.links.Reject(link, u.category, u.publisher, reason, map[string]any{
			"title": article.Title,
		}); err != nil {
			log.Error("failed to record unused link", zap.Error(err))
		}
		o.markSeen(ctx, link)
		o.metrics.IncArticles(string(domain.StatusIrrelevant))
		o.addResult(domain.ArticleResult{
			Status:    domain.StatusIrrelevant,
			URL:       link,
			Title:     article.Title,
			Publisher: u.publisher,
			Category:  u.category,
			Reason:    reason,
		})
		log.Info("irrelevant article recorded", zap.String("reason", reason))
		return
	}

	summary := o.summarizer.Summarize(article.Text, summaryMaxChars)

	if err := o.sheets.EnsureWorksheet(ctx, u.category); err != nil {
		// The bridge creates missing worksheets on demand too; log and proceed.
		log.Warn("failed to ensure worksheet", zap.String("category", u.category), zap.Error(err))
	}

	row := domain.SheetRow{
		Category:  u.category,
		Link:      link,
		Title:     article.Title,
		Summary:   summary,
		Publisher: u.publisher,
		Date:      formatSheetDate(article.Metadata.PublishDate, o.now()),
	}
	if err := o.sheets.AppendRow(ctx, row); err != nil {
		// Left unwritten on purpose: the URL is not recorded in any partition
		// and will be retried on a later run.
		log.Error("failed to append row, skipping store save", zap.Error(err))
		o.metrics.IncErrors("sheet_append_failed")
		o.metrics.IncArticles(string(domain.StatusError))
		o.addResult(domain.ArticleResult{
			Status:    domain.StatusError,
			URL:       link,
			Title:     article.Title,
			Publisher: u.publisher,
			Category:  u.category,
			Error:     err.Error(),
		})
		return
	}

	if _, err := o.links.Accept(link, u.publisher, u.category, metadataMap(article)); err != nil {
		log.Error("failed to record accepted link", zap.Error(err))
	}
	o.markSeen(ctx, link)
	o.metrics.IncArticles(string(domain.StatusSuccess))
	o.addResult(domain.ArticleResult{
		Status:      domain.StatusSuccess,
		URL:         link,
		Title:       article.Title,
		Summary:     summary,
		MatchedTags: matched,
		Publisher:   u.publisher,
		Category:    u.category,
		Metadata:    &article.Metadata,
	})
	log.Info("relevant article accepted", zap.String("title", article.Title), zap.Strings("matched_tags", matched))
}

func (o *Orchestrator) markSeen(ctx context.Context, link string) {
	if o.cache != nil {
		o.cache.Mark(ctx, link)
	}
}

func metadataMap(article *domain.Article) map[string]any {
	meta := map[string]any{}
	if len(article.Metadata.Authors) > 0 {
		meta["authors"] = article.Metadata.Authors
	}
	if article.Metadata.PublishDate != "" {
		meta["publish_date"] = article.Metadata.PublishDate
	}
	if article.Metadata.TopImage != "" {
		meta["top_image"] = article.Metadata.TopImage
	}
	if len(article.Metadata.Keywords) > 0 {
		meta["keywords"] = article.Metadata.Keywords
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// formatSheetDate renders the article publish date as MM/DD/YYYY, falling
// back to today when the date is missing or unparseable.
func formatSheetDate(publishDate string, now time.Time) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, publishDate); err == nil {
			return t.Format("01/02/2006")
		}
	}
	return now.Format("01/02/2006")
}

func (o *Orchestrator) stopRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job.StopRequested
}

func (o *Orchestrator) setCurrent(label string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.job.Current = label
}

func (o *Orchestrator) addResult(res domain.ArticleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

// advanceProgress increments the publisher progress counter and recomputes
// the timing estimate.
func (o *Orchestrator) advanceProgress() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.job.Progress++
	o.recomputeTimingLocked()
}

// refreshTiming recomputes elapsed time and ETA after each processed link.
func (o *Orchestrator) refreshTiming() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recomputeTimingLocked()
}

func (o *Orchestrator) recomputeTimingLocked() {
	elapsed := o.now().Sub(o.job.StartTime)
	o.job.ElapsedSeconds = int(elapsed.Seconds())
	if o.job.Progress > 0 {
		perUnit := elapsed.Seconds() / float64(o.job.Progress)
		remaining := o.job.Total - o.job.Progress
		eta := int(perUnit * float64(remaining))
		o.job.ETASeconds = &eta
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
