package aggregate

import (
	"sort"
	"sync"

	"ArticlesHarvester/internal/domain"
)

// Aggregator accumulates discovered refs and enrichment records for one run.
// Writers may call concurrently; readers observe it after a stage has drained.
type Aggregator struct {
	mu      sync.Mutex
	refs    map[string]domain.ArticleRef
	records map[string]domain.EnrichedRecord
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		refs:    map[string]domain.ArticleRef{},
		records: map[string]domain.EnrichedRecord{},
	}
}

// Add merges items keyed by link and returns how many were new.
// When the same link appears twice, the ref seen earliest in scan order
// (lowest page, then lowest position) wins, regardless of arrival order.
func (a *Aggregator) Add(items []domain.ArticleRef) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		existing, ok := a.refs[item.Link]
		if !ok {
			a.refs[item.Link] = item
			added++
			continue
		}
		if scanBefore(item, existing) {
			a.refs[item.Link] = item
		}
	}
	return added
}

// AddRecord stores the record for its link. It returns false when a record
// for the same link was already recorded; the first one is kept.
func (a *Aggregator) AddRecord(record domain.EnrichedRecord) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.records[record.Ref.Link]; ok {
		return false
	}
	a.records[record.Ref.Link] = record
	return true
}

// Len is the number of distinct discovered links.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.refs)
}

// Items returns the discovered set ordered by publish date descending.
// Equal dates fall back to scan order (page, then position) so output is deterministic.
func (a *Aggregator) Items() []domain.ArticleRef {
	a.mu.Lock()
	items := make([]domain.ArticleRef, 0, len(a.refs))
	for _, ref := range a.refs {
		items = append(items, ref)
	}
	a.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		di, dj := domain.Day(items[i].PublishedDate), domain.Day(items[j].PublishedDate)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return scanBefore(items[i], items[j])
	})
	return items
}

// Records returns one record per ref in order, matched by link. Refs without
// a record are skipped.
func (a *Aggregator) Records(order []domain.ArticleRef) []domain.EnrichedRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.EnrichedRecord, 0, len(a.records))
	seen := make(map[string]struct{}, len(order))
	for _, ref := range order {
		if _, dup := seen[ref.Link]; dup {
			continue
		}
		seen[ref.Link] = struct{}{}
		if rec, ok := a.records[ref.Link]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func scanBefore(a, b domain.ArticleRef) bool {
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	return a.Position < b.Position
}
