package domain

import "time"

// LinkRecord is one entry in a link store partition. Legacy persisted entries
// that are bare URL strings are normalized into this shape on read and
// rewritten as records on the next write.
type LinkRecord struct {
	URL       string         `json:"url"`
	Timestamp *time.Time     `json:"timestamp"`
	Publisher string         `json:"publisher,omitempty"`
	Category  string         `json:"category,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CategoryConfig holds the relevance tags and publisher map for one category.
type CategoryConfig struct {
	Tags       []string          `json:"tags"`
	Publishers map[string]string `json:"publishers"`
}

// Settings is the persisted crawler configuration document.
type Settings struct {
	Categories map[string]CategoryConfig `json:"categories"`
}

// PublisherRef names a single publisher within a category, used to filter
// which publishers a crawl job visits.
type PublisherRef struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// CrawlRequest carries the start parameters for a crawl job.
type CrawlRequest struct {
	Categories []string       `json:"categories,omitempty"`
	Publishers []PublisherRef `json:"publishers,omitempty"`
	MaxPages   int            `json:"max_pages,omitempty"`
}

// CrawlJob is a point-in-time snapshot of the running (or last) crawl job.
type CrawlJob struct {
	Running        bool      `json:"running"`
	StopRequested  bool      `json:"stop_requested"`
	Progress       int       `json:"progress"`
	Total          int       `json:"total"`
	Current        string    `json:"current"`
	StartTime      time.Time `json:"start_time"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	// ETASeconds is nil until at least one unit of progress has completed.
	ETASeconds *int `json:"eta_seconds"`
}

// ArticleStatus is the terminal outcome of processing one URL.
type ArticleStatus string

const (
	StatusSuccess    ArticleStatus = "success"
	StatusIrrelevant ArticleStatus = "irrelevant"
	StatusError      ArticleStatus = "error"
)

// ArticleMetadata carries the page metadata returned by the content extractor.
type ArticleMetadata struct {
	Authors     []string `json:"authors,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	TopImage    string   `json:"top_image,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Article is the content extracted from a single page.
type Article struct {
	Title    string
	Text     string
	Metadata ArticleMetadata
}

// ArticleResult is the per-URL outcome of the classification pipeline.
type ArticleResult struct {
	Status      ArticleStatus    `json:"status"`
	URL         string           `json:"url"`
	Title       string           `json:"title,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	MatchedTags []string         `json:"matched_tags,omitempty"`
	Publisher   string           `json:"publisher,omitempty"`
	Category    string           `json:"category,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Error       string           `json:"error,omitempty"`
	Metadata    *ArticleMetadata `json:"metadata,omitempty"`
}

// SheetRow is one row appended to the downstream spreadsheet.
type SheetRow struct {
	Category  string `json:"category"`
	Link      string `json:"link"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Publisher string `json:"publisher"`
	Date      string `json:"date"`
}
