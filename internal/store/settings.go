package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

const settingsFile = "crawler_settings.json"

// DefaultTags seeds the tag list of categories created or migrated without one.
var DefaultTags = []string{"ai governance", "ai policy"}

// SettingsStore persists the category/publisher configuration as a single
// JSON document. Like the link partitions, every mutation rewrites the whole
// file under an exclusive lock, and unreadable content self-heals to an empty
// valid structure.
type SettingsStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewSettingsStore creates a settings store under dataDir.
func NewSettingsStore(dataDir string, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{
		path:   filepath.Join(dataDir, settingsFile),
		logger: logger,
	}
}

// Load returns the current settings. On first use it creates and persists an
// empty document; a legacy flat {category: {publisher: url}} document is
// migrated in place (with default tags) and persisted immediately so the
// migration runs at most once.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *SettingsStore) loadLocked() (domain.Settings, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		settings := emptySettings()
		if werr := s.writeLocked(settings); werr != nil {
			return settings, werr
		}
		return settings, nil
	}
	if err != nil {
		return emptySettings(), fmt.Errorf("read settings: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("settings file is corrupted, resetting to empty", zap.Error(err))
		settings := emptySettings()
		if werr := s.writeLocked(settings); werr != nil {
			return settings, werr
		}
		return settings, nil
	}

	if _, ok := doc["categories"]; !ok {
		settings := s.migrateLegacy(doc)
		if werr := s.writeLocked(settings); werr != nil {
			return settings, werr
		}
		return settings, nil
	}

	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("settings file is corrupted, resetting to empty", zap.Error(err))
		settings = emptySettings()
		if werr := s.writeLocked(settings); werr != nil {
			return settings, werr
		}
		return settings, nil
	}
	if settings.Categories == nil {
		settings.Categories = map[string]domain.CategoryConfig{}
	}
	return settings, nil
}

// migrateLegacy converts the old flat shape (category name mapped straight to
// a publisher map) into the current document, seeding each category with the
// default tag list.
func (s *SettingsStore) migrateLegacy(doc map[string]json.RawMessage) domain.Settings {
	settings := emptySettings()
	for category, raw := range doc {
		var publishers map[string]string
		if err := json.Unmarshal(raw, &publishers); err != nil {
			s.logger.Warn("skipping unreadable legacy category", zap.String("category", category), zap.Error(err))
			continue
		}
		settings.Categories[category] = domain.CategoryConfig{
			Tags:       append([]string(nil), DefaultTags...),
			Publishers: publishers,
		}
	}
	s.logger.Info("migrated legacy settings format", zap.Int("categories", len(settings.Categories)))
	return settings
}

func emptySettings() domain.Settings {
	return domain.Settings{Categories: map[string]domain.CategoryConfig{}}
}

// Save persists the given settings document.
func (s *SettingsStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(settings)
}

func (s *SettingsStore) writeLocked(settings domain.Settings) error {
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// AddPublisher stores a publisher under a category, creating the category
// with default tags when absent. The supplied URL is normalized down to its
// scheme+host base before storing.
func (s *SettingsStore) AddPublisher(category, name, rawURL string) error {
	base, err := BaseURL(rawURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked()
	if err != nil {
		return err
	}
	cfg, ok := settings.Categories[category]
	if !ok {
		cfg = domain.CategoryConfig{
			Tags:       append([]string(nil), DefaultTags...),
			Publishers: map[string]string{},
		}
	}
	if cfg.Publishers == nil {
		cfg.Publishers = map[string]string{}
	}
	cfg.Publishers[name] = base
	settings.Categories[category] = cfg
	return s.writeLocked(settings)
}

// RemovePublisher deletes a publisher; when the category's publisher map
// empties, the category entry is removed entirely. Returns whether the
// publisher existed.
func (s *SettingsStore) RemovePublisher(category, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	cfg, ok := settings.Categories[category]
	if !ok {
		return false, nil
	}
	if _, ok := cfg.Publishers[name]; !ok {
		return false, nil
	}
	delete(cfg.Publishers, name)
	if len(cfg.Publishers) == 0 {
		delete(settings.Categories, category)
	} else {
		settings.Categories[category] = cfg
	}
	if err := s.writeLocked(settings); err != nil {
		return false, err
	}
	return true, nil
}

// SetTags replaces the tag list of a category, creating it if needed.
func (s *SettingsStore) SetTags(category string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked()
	if err != nil {
		return err
	}
	cfg, ok := settings.Categories[category]
	if !ok {
		cfg = domain.CategoryConfig{Publishers: map[string]string{}}
	}
	cfg.Tags = tags
	settings.Categories[category] = cfg
	return s.writeLocked(settings)
}

// Tags returns the configured tag list for a category.
func (s *SettingsStore) Tags(category string) ([]string, bool, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	cfg, ok := settings.Categories[category]
	if !ok {
		return nil, false, nil
	}
	return cfg.Tags, true, nil
}

// BaseURL reduces an article or page URL to its scheme+host base.
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
