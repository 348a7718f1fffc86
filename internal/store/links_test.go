package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLinkStore(t *testing.T) (*LinkStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLinkStore(dir, zap.NewNop()), dir
}

func TestAcceptIsIdempotent(t *testing.T) {
	s, _ := newTestLinkStore(t)

	added, err := s.Accept("https://example.com/a", "Example", "tech", nil)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Accept("https://example.com/a", "Other", "other", nil)
	require.NoError(t, err)
	assert.False(t, added, "second accept of the same URL must be a no-op")

	rec, ok := s.Get("https://example.com/a", PartitionAccepted)
	require.True(t, ok)
	assert.Equal(t, "Example", rec.Publisher, "original record must be untouched")
	assert.Equal(t, "tech", rec.Category)
	require.NotNil(t, rec.Timestamp)
}

func TestRejectRecordsReason(t *testing.T) {
	s, _ := newTestLinkStore(t)

	added, err := s.Reject("https://example.com/b", "tech", "Example", "none of the tags matched", map[string]any{"title": "A Page"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Reject("https://example.com/b", "tech", "Example", "different reason", nil)
	require.NoError(t, err)
	assert.False(t, added)

	rec, ok := s.Get("https://example.com/b", PartitionUnused)
	require.True(t, ok)
	assert.Equal(t, "none of the tags matched", rec.Reason)
	assert.Equal(t, "A Page", rec.Metadata["title"])
}

func TestPartitionsAreIndependent(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, err := s.Accept("https://example.com/x", "Example", "tech", nil)
	require.NoError(t, err)
	_, err = s.Reject("https://example.com/y", "tech", "Example", "irrelevant", nil)
	require.NoError(t, err)

	assert.True(t, s.Contains("https://example.com/x", PartitionAccepted))
	assert.False(t, s.Contains("https://example.com/x", PartitionUnused))
	assert.True(t, s.Contains("https://example.com/y", PartitionUnused))
	assert.False(t, s.Contains("https://example.com/y", PartitionAccepted))

	assert.True(t, s.ContainsAny("https://example.com/x"))
	assert.True(t, s.ContainsAny("https://example.com/y"))
	assert.False(t, s.ContainsAny("https://example.com/z"))
}

func TestLoadNormalizesLegacyStringEntries(t *testing.T) {
	s, dir := newTestLinkStore(t)

	legacy := `["https://old.example.com/1", {"url": "https://new.example.com/2", "timestamp": "2024-01-02T03:04:05Z", "publisher": "New", "category": "tech"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawled_links.json"), []byte(legacy), 0o644))

	records := s.List(PartitionAccepted, ListFilter{})
	require.Len(t, records, 2)

	assert.Equal(t, "https://old.example.com/1", records[0].URL)
	assert.Nil(t, records[0].Timestamp)
	assert.Empty(t, records[0].Publisher)

	assert.Equal(t, "https://new.example.com/2", records[1].URL)
	assert.Equal(t, "New", records[1].Publisher)

	assert.True(t, s.Contains("https://old.example.com/1", PartitionAccepted))
}

func TestLegacyEntriesUpgradedOnNextWrite(t *testing.T) {
	s, dir := newTestLinkStore(t)
	path := filepath.Join(dir, "crawled_links.json")
	require.NoError(t, os.WriteFile(path, []byte(`["https://old.example.com/1"]`), 0o644))

	_, err := s.Accept("https://example.com/new", "Example", "tech", nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries), "every persisted entry must be a record object")
	require.Len(t, entries, 2)
	assert.Equal(t, "https://old.example.com/1", entries[0]["url"])
}

func TestCorruptPartitionTreatedAsEmpty(t *testing.T) {
	s, dir := newTestLinkStore(t)
	path := filepath.Join(dir, "unused_links.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	assert.Empty(t, s.List(PartitionUnused, ListFilter{}))

	// The next successful write restores a valid file.
	added, err := s.Reject("https://example.com/c", "tech", "Example", "irrelevant", nil)
	require.NoError(t, err)
	assert.True(t, added)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	assert.Len(t, entries, 1)
}

func TestAcceptManyDeduplicates(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, err := s.Accept("https://example.com/1", "Example", "tech", nil)
	require.NoError(t, err)

	added, err := s.AcceptMany([]string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/2",
		"https://example.com/3",
	}, "Example", "tech")
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, s.List(PartitionAccepted, ListFilter{}), 3)
}

func TestRemove(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, err := s.Reject("https://example.com/r", "tech", "Example", "irrelevant", nil)
	require.NoError(t, err)

	removed, err := s.Remove("https://example.com/r", PartitionUnused)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, s.Contains("https://example.com/r", PartitionUnused))

	removed, err = s.Remove("https://example.com/r", PartitionUnused)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListFilters(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, err := s.Accept("https://a.example.com/1", "Alpha", "tech", nil)
	require.NoError(t, err)
	_, err = s.Accept("https://b.example.com/1", "Beta", "science", nil)
	require.NoError(t, err)
	_, err = s.Accept("https://a.example.com/2", "Alpha", "science", nil)
	require.NoError(t, err)

	assert.Len(t, s.List(PartitionAccepted, ListFilter{}), 3)
	assert.Len(t, s.List(PartitionAccepted, ListFilter{Publisher: "Alpha"}), 2)
	assert.Len(t, s.List(PartitionAccepted, ListFilter{Category: "science"}), 2)
	assert.Len(t, s.List(PartitionAccepted, ListFilter{Publisher: "Alpha", Category: "science"}), 1)
}

func TestPurgeRequiresFilter(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, _, err := s.Purge(PartitionUnused, PurgeFilter{})
	assert.ErrorIs(t, err, ErrNoPurgeFilter)
}

func TestPurgeFiltersAreORCombined(t *testing.T) {
	s, _ := newTestLinkStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err := s.Reject("https://example.com/old", "tech", "Alpha", "irrelevant", nil)
	require.NoError(t, err)

	s.now = func() time.Time { return base.AddDate(0, 1, 0) }
	_, err = s.Reject("https://example.com/beta", "science", "Beta", "irrelevant", nil)
	require.NoError(t, err)
	_, err = s.Reject("https://example.com/keep", "science", "Gamma", "irrelevant", nil)
	require.NoError(t, err)

	cutoff := base.AddDate(0, 0, 15)
	deleted, remaining, err := s.Purge(PartitionUnused, PurgeFilter{
		Publisher: "Beta",
		Before:    &cutoff,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted, "both the Beta record and the pre-cutoff record match")
	assert.Equal(t, 1, remaining)
	assert.True(t, s.Contains("https://example.com/keep", PartitionUnused))
}

func TestPurgeAll(t *testing.T) {
	s, _ := newTestLinkStore(t)

	_, err := s.Reject("https://example.com/1", "tech", "Alpha", "irrelevant", nil)
	require.NoError(t, err)
	_, err = s.Reject("https://example.com/2", "tech", "Alpha", "irrelevant", nil)
	require.NoError(t, err)

	deleted, remaining, err := s.Purge(PartitionUnused, PurgeFilter{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 0, remaining)
}

func TestStats(t *testing.T) {
	s, _ := newTestLinkStore(t)

	longReason := "none of the tags [ai governance ai policy regulation oversight] found in the article"
	_, err := s.Reject("https://example.com/1", "tech", "Alpha", longReason, nil)
	require.NoError(t, err)
	_, err = s.Reject("https://example.com/2", "tech", "Alpha", "short reason", nil)
	require.NoError(t, err)
	_, err = s.Reject("https://example.com/3", "science", "Beta", "short reason", nil)
	require.NoError(t, err)

	st := s.Stats(PartitionUnused)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByPublisher["Alpha"])
	assert.Equal(t, 1, st.ByPublisher["Beta"])
	assert.Equal(t, 2, st.ByCategory["tech"])
	assert.Equal(t, 2, st.ByReason["short reason"])

	// Long reasons are truncated to 50 chars plus an ellipsis for the stats key.
	assert.Equal(t, 1, st.ByReason[longReason[:50]+"..."])
}
