package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSettingsStore(t *testing.T) (*SettingsStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSettingsStore(dir, zap.NewNop()), dir
}

func TestLoadCreatesEmptyDocument(t *testing.T) {
	s, dir := newTestSettingsStore(t)

	settings, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, settings.Categories)

	// The empty document is persisted on first load.
	raw, err := os.ReadFile(filepath.Join(dir, "crawler_settings.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories": {}}`, string(raw))
}

func TestLoadMigratesLegacyFlatFormat(t *testing.T) {
	s, dir := newTestSettingsStore(t)
	path := filepath.Join(dir, "crawler_settings.json")

	legacy := `{"tech": {"Example": "https://example.com"}, "science": {"Lab": "https://lab.org"}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	settings, err := s.Load()
	require.NoError(t, err)
	require.Len(t, settings.Categories, 2)

	tech := settings.Categories["tech"]
	assert.Equal(t, DefaultTags, tech.Tags, "migrated categories get the default tag list")
	assert.Equal(t, "https://example.com", tech.Publishers["Example"])

	// The migration is persisted so it only ever runs once.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "categories")
}

func TestLoadResetsCorruptFile(t *testing.T) {
	s, dir := newTestSettingsStore(t)
	path := filepath.Join(dir, "crawler_settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	settings, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, settings.Categories)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories": {}}`, string(raw))
}

func TestAddPublisherNormalizesURL(t *testing.T) {
	s, _ := newTestSettingsStore(t)

	err := s.AddPublisher("tech", "Example", "https://example.com/some/article?id=42")
	require.NoError(t, err)

	settings, err := s.Load()
	require.NoError(t, err)
	cfg := settings.Categories["tech"]
	assert.Equal(t, "https://example.com", cfg.Publishers["Example"])
	assert.Equal(t, DefaultTags, cfg.Tags, "new categories start with the default tags")
}

func TestAddPublisherRejectsBareHost(t *testing.T) {
	s, _ := newTestSettingsStore(t)

	err := s.AddPublisher("tech", "Example", "example.com")
	assert.Error(t, err, "a URL without a scheme cannot be normalized")
}

func TestRemovePublisherDropsEmptyCategory(t *testing.T) {
	s, _ := newTestSettingsStore(t)

	require.NoError(t, s.AddPublisher("tech", "Alpha", "https://alpha.example.com"))
	require.NoError(t, s.AddPublisher("tech", "Beta", "https://beta.example.com"))

	removed, err := s.RemovePublisher("tech", "Alpha")
	require.NoError(t, err)
	assert.True(t, removed)

	settings, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, settings.Categories, "tech")

	removed, err = s.RemovePublisher("tech", "Beta")
	require.NoError(t, err)
	assert.True(t, removed)

	settings, err = s.Load()
	require.NoError(t, err)
	assert.NotContains(t, settings.Categories, "tech", "category disappears with its last publisher")

	removed, err = s.RemovePublisher("tech", "Beta")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetTagsAndTags(t *testing.T) {
	s, _ := newTestSettingsStore(t)

	require.NoError(t, s.SetTags("tech", []string{"machine learning", "robotics"}))

	tags, found, err := s.Tags("tech")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"machine learning", "robotics"}, tags)

	_, found, err = s.Tags("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://example.com/path/to/article", want: "https://example.com"},
		{in: "http://www.example.com", want: "http://www.example.com"},
		{in: "https://example.com:8443/x", want: "https://example.com:8443"},
		{in: "example.com/path", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := BaseURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
