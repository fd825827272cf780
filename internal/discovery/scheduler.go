package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ArticlesHarvester/internal/aggregate"
	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/logging"
)

// Source is the part of a site the discovery stage needs.
type Source interface {
	FetchListing(ctx context.Context, page int) ([]byte, error)
	ParseListing(raw []byte) ([]domain.ArticleRef, error)
}

// PageReport records what one listing page contributed.
type PageReport struct {
	Page     int
	Listed   int
	Recent   int
	Boundary bool
	Err      error
}

// Report is the full result of a discovery run.
type Report struct {
	Items []domain.ArticleRef
	Pages []PageReport
	// Stopped is true when a boundary page ended the scan before maxPages.
	Stopped bool
}

// Fetched is the number of listing pages requested.
func (r Report) Fetched() int {
	return len(r.Pages)
}

// Scheduler scans listing pages in batches until it finds the recency boundary.
type Scheduler struct {
	source   Source
	logger   *slog.Logger
	progress domain.Progress
}

// New wires a discovery scheduler over source.
func New(source Source, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{source: source, logger: logger}
}

// OnProgress registers a callback receiving (completed pages, submitted pages).
func (s *Scheduler) OnProgress(p domain.Progress) {
	s.progress = p
}

// Discover returns every recent ref reachable before the boundary, deduplicated by link.
func (s *Scheduler) Discover(ctx context.Context, cutoff domain.Cutoff, maxPages, concurrency int) ([]domain.ArticleRef, error) {
	report, err := s.Scan(ctx, cutoff, maxPages, concurrency)
	if err != nil {
		return nil, err
	}
	return report.Items, nil
}

// Scan runs discovery and returns the per-page report alongside the items.
//
// Pages are submitted in batches of concurrency. A batch always drains before
// the stop flag is consulted, so at most one batch past the boundary is fetched.
func (s *Scheduler) Scan(ctx context.Context, cutoff domain.Cutoff, maxPages, concurrency int) (Report, error) {
	if s.source == nil {
		return Report{}, fmt.Errorf("%w: discovery source is not configured", domain.ErrConfiguration)
	}
	if maxPages <= 0 {
		return Report{}, fmt.Errorf("%w: max pages must be positive, got %d", domain.ErrConfiguration, maxPages)
	}
	if concurrency <= 0 {
		return Report{}, fmt.Errorf("%w: discovery concurrency must be positive, got %d", domain.ErrConfiguration, concurrency)
	}

	var (
		results   = aggregate.New()
		stop      atomic.Bool
		completed atomic.Int64
		pagesMu   sync.Mutex
		pages     []PageReport
	)

	s.logger.Info("discovery started", "cutoff", cutoff.String(), "max_pages", maxPages, "concurrency", concurrency)

	for first := 1; first <= maxPages; first += concurrency {
		if err := ctx.Err(); err != nil {
			return Report{}, fmt.Errorf("discovery interrupted before page %d: %w", first, err)
		}

		last := min(first+concurrency-1, maxPages)
		submitted := last

		var g errgroup.Group
		for page := first; page <= last; page++ {
			g.Go(func() error {
				outcome := s.scanPage(ctx, page, cutoff)
				results.Add(outcome.Items)
				if outcome.Boundary() {
					stop.Store(true)
				}

				pagesMu.Lock()
				pages = append(pages, PageReport{
					Page:     outcome.Page,
					Recent:   len(outcome.Items),
					Listed:   outcome.Listed,
					Boundary: outcome.Boundary(),
					Err:      outcome.Err,
				})
				pagesMu.Unlock()

				done := int(completed.Add(1))
				if s.progress != nil {
					s.progress(done, submitted)
				}
				return nil
			})
		}
		_ = g.Wait()

		if stop.Load() {
			s.logger.Info("boundary page reached, no further batches", "last_page", last)
			break
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	items := results.Items()
	s.logger.Info("discovery finished", "pages", len(pages), "items", len(items), "stopped", stop.Load())

	return Report{Items: items, Pages: pages, Stopped: stop.Load()}, nil
}

// scanPage fetches and classifies one page. Failures yield an empty, inconclusive outcome.
func (s *Scheduler) scanPage(ctx context.Context, page int, cutoff domain.Cutoff) (outcome domain.DiscoveryOutcome) {
	outcome.Page = page
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("page worker panicked", "page", page, "panic", r)
			outcome = domain.DiscoveryOutcome{
				Page: page,
				Err:  fmt.Errorf("%w: page %d worker panicked: %v", domain.ErrTransientFetch, page, r),
			}
		}
	}()

	raw, err := s.source.FetchListing(ctx, page)
	if err != nil {
		s.logger.Warn("listing page fetch failed", "page", page, "error", err)
		outcome.Err = err
		return outcome
	}

	refs, err := s.source.ParseListing(raw)
	if err != nil {
		s.logger.Warn("listing page parse failed", "page", page, "error", err)
		outcome.Err = err
		return outcome
	}

	outcome.Listed = len(refs)
	outcome.HadItems = len(refs) > 0
	undated := 0
	for i, ref := range refs {
		ref.Page = page
		ref.Position = i
		if ref.Recent(cutoff) {
			outcome.Items = append(outcome.Items, ref)
			outcome.HasRecent = true
			continue
		}
		if !ref.Dated() {
			undated++
		}
	}
	if undated > 0 {
		s.logger.Debug("undated listing entries treated as old", "page", page, "count", undated, "reason", domain.ErrParseAmbiguity)
	}
	s.logger.Debug("page scanned", "page", page, "listed", len(refs), "recent", len(outcome.Items))
	return outcome
}
