package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

// Partition selects one of the two on-disk link collections.
type Partition string

const (
	// PartitionAccepted holds links that were classified relevant and
	// successfully persisted downstream.
	PartitionAccepted Partition = "accepted"
	// PartitionUnused holds links classified irrelevant, recorded with a reason.
	PartitionUnused Partition = "unused"
)

const (
	acceptedFile = "crawled_links.json"
	unusedFile   = "unused_links.json"
)

// ErrNoPurgeFilter is returned when Purge is called with no filter and all=false.
var ErrNoPurgeFilter = errors.New("no purge filter specified")

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Category  string
	Publisher string
}

// PurgeFilter selects records to delete. Filters are OR-combined; All wipes
// the partition regardless of the other fields.
type PurgeFilter struct {
	Category  string
	Publisher string
	Before    *time.Time
	All       bool
}

// Stats summarizes one partition.
type Stats struct {
	Total       int            `json:"total"`
	ByPublisher map[string]int `json:"by_publisher"`
	ByCategory  map[string]int `json:"by_category"`
	ByReason    map[string]int `json:"by_reason,omitempty"`
}

// LinkStore is a durable, deduplicated record store over two JSON-array
// partition files. Every mutation runs a full read-modify-write cycle under
// a single exclusive lock and rewrites the whole partition, so readers only
// ever observe complete states. Corrupt partition contents are treated as
// empty; the next successful write restores a valid file.
type LinkStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewLinkStore creates a store with partition files under dataDir.
func NewLinkStore(dataDir string, logger *zap.Logger) *LinkStore {
	return &LinkStore{
		dir:    dataDir,
		logger: logger,
		now:    time.Now,
	}
}

func (s *LinkStore) path(p Partition) string {
	if p == PartitionUnused {
		return filepath.Join(s.dir, unusedFile)
	}
	return filepath.Join(s.dir, acceptedFile)
}

// load reads one partition, normalizing legacy bare-string entries into
// records with null timestamps. Unparseable content is logged and treated
// as an empty collection.
func (s *LinkStore) load(p Partition) []domain.LinkRecord {
	raw, err := os.ReadFile(s.path(p))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read link partition", zap.String("partition", string(p)), zap.Error(err))
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("link partition is corrupted, treating as empty",
			zap.String("partition", string(p)), zap.Error(err))
		return nil
	}

	records := make([]domain.LinkRecord, 0, len(items))
	for _, item := range items {
		var rec domain.LinkRecord
		if err := json.Unmarshal(item, &rec); err == nil && rec.URL != "" {
			records = append(records, rec)
			continue
		}
		// Legacy format: a bare URL string.
		var legacy string
		if err := json.Unmarshal(item, &legacy); err == nil && legacy != "" {
			records = append(records, domain.LinkRecord{URL: legacy})
			continue
		}
		s.logger.Warn("skipping malformed link entry", zap.String("partition", string(p)))
	}
	return records
}

func (s *LinkStore) write(p Partition, records []domain.LinkRecord) error {
	if records == nil {
		records = []domain.LinkRecord{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s partition: %w", p, err)
	}
	if err := os.WriteFile(s.path(p), data, 0o644); err != nil {
		return fmt.Errorf("write %s partition: %w", p, err)
	}
	return nil
}

func indexOf(records []domain.LinkRecord, url string) int {
	for i, rec := range records {
		if rec.URL == url {
			return i
		}
	}
	return -1
}

// Contains reports whether the URL is recorded in the given partition.
func (s *LinkStore) Contains(url string, p Partition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.load(p), url) >= 0
}

// ContainsAny reports whether the URL is recorded in either partition.
func (s *LinkStore) ContainsAny(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.load(PartitionAccepted), url) >= 0 ||
		indexOf(s.load(PartitionUnused), url) >= 0
}

// Get returns the record for a URL within a partition.
func (s *LinkStore) Get(url string, p Partition) (domain.LinkRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load(p)
	if i := indexOf(records, url); i >= 0 {
		return records[i], true
	}
	return domain.LinkRecord{}, false
}

// Accept records a URL in the accepted partition. It returns false without
// rewriting when the URL is already present.
func (s *LinkStore) Accept(url, publisher, category string, metadata map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(PartitionAccepted)
	if indexOf(records, url) >= 0 {
		return false, nil
	}
	ts := s.now()
	records = append(records, domain.LinkRecord{
		URL:       url,
		Timestamp: &ts,
		Publisher: publisher,
		Category:  category,
		Metadata:  metadata,
	})
	if err := s.write(PartitionAccepted, records); err != nil {
		return false, err
	}
	return true, nil
}

// AcceptMany records a batch of URLs in the accepted partition with a single
// rewrite, de-duplicating against the current snapshot. It returns the number
// of records added.
func (s *LinkStore) AcceptMany(urls []string, publisher, category string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(PartitionAccepted)
	existing := make(map[string]struct{}, len(records))
	for _, rec := range records {
		existing[rec.URL] = struct{}{}
	}

	added := 0
	for _, u := range urls {
		if _, ok := existing[u]; ok {
			continue
		}
		ts := s.now()
		records = append(records, domain.LinkRecord{
			URL:       u,
			Timestamp: &ts,
			Publisher: publisher,
			Category:  category,
		})
		existing[u] = struct{}{}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.write(PartitionAccepted, records); err != nil {
		return 0, err
	}
	return added, nil
}

// Reject records a URL in the unused partition with the classification reason.
func (s *LinkStore) Reject(url, category, publisher, reason string, metadata map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(PartitionUnused)
	if indexOf(records, url) >= 0 {
		return false, nil
	}
	ts := s.now()
	records = append(records, domain.LinkRecord{
		URL:       url,
		Timestamp: &ts,
		Publisher: publisher,
		Category:  category,
		Reason:    reason,
		Metadata:  metadata,
	})
	if err := s.write(PartitionUnused, records); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a single URL from a partition, returning whether it existed.
// Used when an unused link is recovered into the accepted flow.
func (s *LinkStore) Remove(url string, p Partition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(p)
	i := indexOf(records, url)
	if i < 0 {
		return false, nil
	}
	records = append(records[:i], records[i+1:]...)
	if err := s.write(p, records); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the records of a partition matching the filter.
func (s *LinkStore) List(p Partition, f ListFilter) []domain.LinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(p)
	out := make([]domain.LinkRecord, 0, len(records))
	for _, rec := range records {
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Publisher != "" && rec.Publisher != f.Publisher {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Purge deletes records matching the filter (OR-combined) and returns the
// deleted and remaining counts.
func (s *LinkStore) Purge(p Partition, f PurgeFilter) (int, int, error) {
	if !f.All && f.Category == "" && f.Publisher == "" && f.Before == nil {
		return 0, 0, ErrNoPurgeFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(p)
	keep := make([]domain.LinkRecord, 0, len(records))
	for _, rec := range records {
		if !f.All && !purgeMatch(rec, f) {
			keep = append(keep, rec)
		}
	}
	deleted := len(records) - len(keep)
	if deleted > 0 {
		if err := s.write(p, keep); err != nil {
			return 0, 0, err
		}
	}
	return deleted, len(keep), nil
}

func purgeMatch(rec domain.LinkRecord, f PurgeFilter) bool {
	if f.Category != "" && rec.Category == f.Category {
		return true
	}
	if f.Publisher != "" && rec.Publisher == f.Publisher {
		return true
	}
	if f.Before != nil && rec.Timestamp != nil && rec.Timestamp.Before(*f.Before) {
		return true
	}
	return false
}

// Stats aggregates partition counts by publisher, category and reason.
func (s *LinkStore) Stats(p Partition) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(p)
	st := Stats{
		Total:       len(records),
		ByPublisher: make(map[string]int),
		ByCategory:  make(map[string]int),
		ByReason:    make(map[string]int),
	}
	for _, rec := range records {
		if rec.Publisher != "" {
			st.ByPublisher[rec.Publisher]++
		}
		if rec.Category != "" {
			st.ByCategory[rec.Category]++
		}
		if rec.Reason != "" {
			st.ByReason[truncateReason(rec.Reason)]++
		}
	}
	return st
}

// truncateReason shortens long reason strings so the stats map stays readable.
func truncateReason(reason string) string {
	const max = 50
	if len(reason) <= max {
		return reason
	}
	return reason[:max] + "..."
}
