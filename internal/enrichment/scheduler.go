package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ArticlesHarvester/internal/aggregate"
	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
)

// Keys added to every successful extraction.
const (
	SourceURLKey   = "source_url"
	PublishDateKey = "publish_date"
)

// ItemFetcher downloads a detail page.
type ItemFetcher interface {
	FetchItem(ctx context.Context, link string) ([]byte, error)
}

// Deps wires the collaborators of the enrichment stage.
type Deps struct {
	Fetcher   ItemFetcher
	Extractor ports.Extractor
	// Cleaner and Snapshots are optional.
	Cleaner   ports.ContentCleaner
	Snapshots ports.SnapshotWriter
	Logger    *slog.Logger
	Now       func() time.Time
}

// Scheduler maps discovered refs through fetch and extraction on a bounded pool.
type Scheduler struct {
	fetcher   ItemFetcher
	extractor ports.Extractor
	cleaner   ports.ContentCleaner
	snapshots ports.SnapshotWriter
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an enrichment scheduler.
func New(deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		cleaner:   deps.Cleaner,
		snapshots: deps.Snapshots,
		logger:    logger,
		now:       now,
	}
}

// Enrich produces exactly one record per distinct ref, in the order of items.
// Per-item failures become failed records; the returned error is reserved for
// configuration problems and context cancellation before the pool starts.
func (s *Scheduler) Enrich(ctx context.Context, items []domain.ArticleRef, concurrency int, progress domain.Progress) ([]domain.EnrichedRecord, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: enrichment concurrency must be positive, got %d", domain.ErrConfiguration, concurrency)
	}
	if s.fetcher == nil || s.extractor == nil {
		return nil, fmt.Errorf("%w: enrichment needs a fetcher and an extractor", domain.ErrConfiguration)
	}
	if len(items) == 0 {
		return []domain.EnrichedRecord{}, nil
	}

	results := aggregate.New()
	unique := make([]domain.ArticleRef, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.Link]; ok {
			continue
		}
		seen[item.Link] = struct{}{}
		unique = append(unique, item)
	}

	total := len(unique)
	var completed atomic.Int64

	s.logger.Info("enrichment started", "items", total, "concurrency", concurrency)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, ref := range unique {
		g.Go(func() error {
			s.logger.Debug("enriching", "index", i+1, "total", total, "link", ref.Link)
			record := s.enrichOne(ctx, ref)
			if !results.AddRecord(record) {
				s.logger.Warn("duplicate enrichment record dropped", "link", ref.Link)
			}

			done := int(completed.Add(1))
			if record.Succeeded {
				s.logger.Info("item enriched", "done", done, "total", total, "title", ref.Title)
			} else {
				s.logger.Warn("item enrichment failed", "done", done, "total", total, "link", ref.Link, "error", record.Error)
			}
			if progress != nil {
				progress(done, total)
			}
			return nil
		})
	}
	_ = g.Wait()

	records := results.Records(unique)
	succeeded, failed := domain.Tally(records)
	s.logger.Info("enrichment finished", "total", total, "succeeded", succeeded, "failed", failed)
	return records, nil
}

func (s *Scheduler) enrichOne(ctx context.Context, ref domain.ArticleRef) (record domain.EnrichedRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("enrichment worker panicked", "link", ref.Link, "panic", r)
			record = domain.Failed(ref, fmt.Errorf("%w: worker panicked: %v", domain.ErrExtraction, r), s.now())
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.Failed(ref, fmt.Errorf("%w: %v", domain.ErrTransientFetch, err), s.now())
	}

	raw, err := s.fetcher.FetchItem(ctx, ref.Link)
	if err != nil {
		return domain.Failed(ref, fmt.Errorf("fetch item: %w", err), s.now())
	}
	if len(raw) == 0 {
		return domain.Failed(ref, fmt.Errorf("fetch item: %w: empty body", domain.ErrTransientFetch), s.now())
	}

	if s.snapshots != nil {
		if _, err := s.snapshots.SaveSnapshot(ctx, ref, raw); err != nil {
			s.logger.Warn("snapshot not saved", "link", ref.Link, "error", err)
		}
	}

	content := raw
	if s.cleaner != nil {
		cleaned, err := s.cleaner.Clean(raw, ref.Link)
		if err != nil {
			s.logger.Debug("cleaner failed, using raw content", "link", ref.Link, "error", err)
		} else if len(cleaned) > 0 {
			content = cleaned
		}
	}

	data, err := s.extractor.Extract(ctx, ref, content)
	if err != nil {
		return domain.Failed(ref, fmt.Errorf("extract: %w", err), s.now())
	}
	if len(data) == 0 {
		return domain.Failed(ref, fmt.Errorf("extract: %w: no structured data returned", domain.ErrExtraction), s.now())
	}

	tagged := make(map[string]any, len(data)+2)
	for k, v := range data {
		tagged[k] = v
	}
	tagged[SourceURLKey] = ref.Link
	tagged[PublishDateKey] = ref.PublishDate()

	return domain.Succeeded(ref, tagged, s.now())
}
