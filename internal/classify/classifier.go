package classify

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/user/linkscout/internal/domain"
	"github.com/user/linkscout/internal/store"
	"go.uber.org/zap"
)

// Classifier decides topical relevance of extracted text against a category's
// tag rules and identifies publishers by URL host.
type Classifier struct {
	settings *store.SettingsStore
	logger   *zap.Logger
}

// NewClassifier creates a classifier backed by the settings store.
func NewClassifier(settings *store.SettingsStore, logger *zap.Logger) *Classifier {
	return &Classifier{settings: settings, logger: logger}
}

// IsRelevant reports whether the text matches any of the category's tags with
// a case-insensitive substring test. A category with no configured tags is a
// permissive pass. On a match the matched tags are returned; otherwise a
// human-readable reason explains the rejection.
func (c *Classifier) IsRelevant(category, text string) (bool, []string, string) {
	if category == "" || text == "" {
		return false, nil, "missing category or text"
	}

	settings, err := c.settings.Load()
	if err != nil {
		return false, nil, fmt.Sprintf("failed to load settings: %v", err)
	}
	cfg, ok := settings.Categories[category]
	if !ok {
		return false, nil, fmt.Sprintf("category %q not found in settings", category)
	}
	return MatchTags(cfg.Tags, text)
}

// MatchTags runs the tag-substring relevance test directly against a tag list.
func MatchTags(tags []string, text string) (bool, []string, string) {
	if len(tags) == 0 {
		// Absence of rules is a permissive pass.
		return true, nil, ""
	}

	textLower := strings.ToLower(text)
	var matched []string
	for _, tag := range tags {
		if strings.Contains(textLower, strings.ToLower(tag)) {
			matched = append(matched, tag)
		}
	}
	if len(matched) > 0 {
		return true, matched, ""
	}
	return false, nil, fmt.Sprintf("none of the tags %v found in the article", tags)
}

// IdentifyPublisher tries to resolve a URL to a configured publisher and its
// category. A strict host pass (exact or dot-suffix match) runs first; when
// nothing matches, a lenient pass accepts any publisher whose name (or a
// whitespace-delimited token of it) appears as a substring of the host.
// Categories and publishers are visited in sorted-name order, which is the
// documented tie-break.
func (c *Classifier) IdentifyPublisher(rawURL string) (publisher, category string, ok bool) {
	if rawURL == "" {
		return "", "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := normalizeHost(u.Host)

	settings, err := c.settings.Load()
	if err != nil {
		c.logger.Warn("failed to load settings for publisher identification", zap.Error(err))
		return "", "", false
	}

	// Strict pass: equal hosts or one a dot-suffix of the other.
	found := visitPublishers(settings, func(name, pubURL string) bool {
		pubHost := publisherHost(pubURL)
		if pubHost == "" {
			return false
		}
		return host == pubHost ||
			strings.HasSuffix(host, "."+pubHost) ||
			strings.HasSuffix(pubHost, "."+host)
	})
	if found != nil {
		return found.name, found.category, true
	}

	// Lenient pass: publisher name tokens appearing in the host.
	found = visitPublishers(settings, func(name, pubURL string) bool {
		nameLower := strings.ToLower(name)
		if strings.Contains(host, nameLower) {
			return true
		}
		for _, part := range strings.Fields(nameLower) {
			if strings.Contains(host, part) {
				return true
			}
		}
		return false
	})
	if found != nil {
		return found.name, found.category, true
	}
	return "", "", false
}

type publisherHit struct {
	name     string
	category string
}

// visitPublishers walks categories and publishers in sorted order, returning
// the first entry the predicate accepts.
func visitPublishers(settings domain.Settings, match func(name, pubURL string) bool) *publisherHit {
	categories := make([]string, 0, len(settings.Categories))
	for name := range settings.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		cfg := settings.Categories[cat]
		names := make([]string, 0, len(cfg.Publishers))
		for name := range cfg.Publishers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if match(name, cfg.Publishers[name]) {
				return &publisherHit{name: name, category: cat}
			}
		}
	}
	return nil
}

func publisherHost(pubURL string) string {
	u, err := url.Parse(pubURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return normalizeHost(u.Host)
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
