package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

// ErrExtractionFailed marks pages whose content could not be retrieved or was
// implausibly short.
var ErrExtractionFailed = errors.New("extraction failed")

// minContentLength rejects pages that yielded no real article text.
const minContentLength = 20

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// ArticleExtractor fetches a page and extracts its title, body text and
// metadata with goquery.
type ArticleExtractor struct {
	client *http.Client
	logger *zap.Logger
}

// NewArticleExtractor creates an extractor with the given request timeout.
func NewArticleExtractor(timeout time.Duration, logger *zap.Logger) *ArticleExtractor {
	return &ArticleExtractor{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Extract fetches the URL and parses its article content. It fails with
// ErrExtractionFailed when the page cannot be retrieved or the extracted text
// is shorter than minContentLength.
func (e *ArticleExtractor) Extract(ctx context.Context, pageURL string) (*domain.Article, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrExtractionFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrExtractionFailed, pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrExtractionFailed, err)
	}

	article := &domain.Article{
		Title:    extractTitle(doc),
		Text:     extractBodyText(doc),
		Metadata: extractMetadata(doc),
	}
	if len(strings.TrimSpace(article.Text)) < minContentLength {
		return nil, fmt.Errorf("%w: not enough content extracted from %s", ErrExtractionFailed, pageURL)
	}

	e.logger.Info("extracted article", zap.String("url", pageURL), zap.String("title", article.Title))
	return article, nil
}

// extractTitle prefers the <title> tag with an og:title fallback.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find(`meta[property="og:title"]`).Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}
	return ""
}

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer"

// extractBodyText prefers <article> content and falls back to <body> with
// non-content elements removed.
func extractBodyText(doc *goquery.Document) string {
	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(article.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(body.Text())
	}
	return ""
}

func extractMetadata(doc *goquery.Document) domain.ArticleMetadata {
	meta := domain.ArticleMetadata{}

	if author, exists := doc.Find(`meta[name="author"]`).Attr("content"); exists {
		if author = strings.TrimSpace(author); author != "" {
			meta.Authors = []string{author}
		}
	}
	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[property="og:article:published_time"]`,
		`meta[name="date"]`,
	} {
		if date, exists := doc.Find(sel).Attr("content"); exists && strings.TrimSpace(date) != "" {
			meta.PublishDate = strings.TrimSpace(date)
			break
		}
	}
	if img, exists := doc.Find(`meta[property="og:image"]`).Attr("content"); exists {
		meta.TopImage = strings.TrimSpace(img)
	}
	if kw, exists := doc.Find(`meta[name="keywords"]`).Attr("content"); exists {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				meta.Keywords = append(meta.Keywords, k)
			}
		}
	}
	return meta
}
