package discover

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// SearchDriver is the browser-automation collaborator the discoverer steps
// through a search engine's result pages.
type SearchDriver interface {
	Navigate(query string) error
	ScrollAndWait() error
	ExtractVisibleLinks() ([]string, error)
	ClickNextPage() (bool, error)
	Close() error
}

// Discoverer collects candidate article URLs for one publisher by paging
// through search results and filtering to the publisher's domain.
type Discoverer struct {
	searchHost string
	logger     *zap.Logger
}

// NewDiscoverer creates a discoverer that excludes result links pointing back
// at searchHost (the engine's own domain).
func NewDiscoverer(searchHost string, logger *zap.Logger) *Discoverer {
	return &Discoverer{searchHost: searchHost, logger: logger}
}

// BuildQuery constructs the search query: one quoted site-scoped clause per
// tag, OR-joined. The publisher base URL is reduced to its bare domain.
func BuildQuery(tags []string, baseURL string) string {
	domain := stripScheme(baseURL)
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%q site:%s", tag, domain))
	}
	return strings.Join(parts, " OR ")
}

// Discover drives the search through up to maxPages pagination steps,
// accumulating absolute result URLs into a set. stopPoll is checked before
// each page; when it reports true the links gathered so far are returned.
// The second return value is the number of result pages actually visited.
func (d *Discoverer) Discover(drv SearchDriver, tags []string, baseURL string, maxPages int, stopPoll func() bool) ([]string, int, error) {
	query := BuildQuery(tags, baseURL)
	d.logger.Info("searching", zap.String("query", query), zap.Int("max_pages", maxPages))

	if err := drv.Navigate(query); err != nil {
		return nil, 0, fmt.Errorf("navigate search: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	pages := 0
	for page := 1; page <= maxPages; page++ {
		if stopPoll != nil && stopPoll() {
			d.logger.Info("stop requested, ending search early", zap.Int("page", page))
			break
		}
		pages++

		if err := drv.ScrollAndWait(); err != nil {
			d.logger.Warn("error while scrolling", zap.Error(err))
		}

		hrefs, err := drv.ExtractVisibleLinks()
		if err != nil {
			d.logger.Warn("error extracting links", zap.Int("page", page), zap.Error(err))
		}
		for _, href := range hrefs {
			if !d.isCandidate(href) {
				continue
			}
			if _, dup := seen[href]; dup {
				continue
			}
			seen[href] = struct{}{}
			links = append(links, href)
		}

		if page == maxPages {
			break
		}
		clicked, err := drv.ClickNextPage()
		if err != nil {
			d.logger.Warn("error clicking next page", zap.Error(err))
			break
		}
		if !clicked {
			d.logger.Info("no more result pages", zap.Int("page", page))
			break
		}
	}

	d.logger.Info("search finished", zap.Int("links_found", len(links)), zap.Int("pages", pages))
	return links, pages, nil
}

// isCandidate keeps absolute URLs that do not point back at the search
// engine's own domain.
func (d *Discoverer) isCandidate(href string) bool {
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false
	}
	host := normalizeHost(u.Host)
	return host != d.searchHost && !strings.HasSuffix(host, "."+d.searchHost)
}

// FilterByDomain keeps only URLs whose host equals or is a sub-domain of the
// publisher's base-URL host. Dropped URLs are search-engine noise (redirects,
// ads, unrelated results), not errors.
func FilterByDomain(links []string, baseURL string, stopPoll func() bool) []string {
	pubHost := normalizeHost(stripScheme(baseURL))
	if pubHost == "" {
		return nil
	}

	var valid []string
	for _, link := range links {
		if stopPoll != nil && stopPoll() {
			break
		}
		u, err := url.Parse(link)
		if err != nil || u.Host == "" {
			continue
		}
		host := normalizeHost(u.Host)
		if host == pubHost || strings.HasSuffix(host, "."+pubHost) {
			valid = append(valid, link)
		}
	}
	return valid
}

func stripScheme(rawURL string) string {
	s := strings.TrimPrefix(rawURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}
