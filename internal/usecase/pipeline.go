package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ArticlesHarvester/internal/discovery"
	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/enrichment"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
	"ArticlesHarvester/internal/scanner"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Site      scanner.Site
	Extractor ports.Extractor
	Cleaner   ports.ContentCleaner
	Snapshots ports.SnapshotWriter
	Store     ports.RecordStore
	Runs      ports.RunRecorder
	Archiver  ports.Archiver
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
	// Progress receives per-stage progress; stage is "discovery" or "enrichment".
	Progress func(stage string, completed, total int)
}

// Pipeline sequences discovery and enrichment for one listing source.
type Pipeline struct {
	site      scanner.Site
	extractor ports.Extractor
	cleaner   ports.ContentCleaner
	snapshots ports.SnapshotWriter
	store     ports.RecordStore
	runs      ports.RunRecorder
	archiver  ports.Archiver
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
	progress  func(stage string, completed, total int)
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		site:      deps.Site,
		extractor: deps.Extractor,
		cleaner:   deps.Cleaner,
		snapshots: deps.Snapshots,
		store:     deps.Store,
		runs:      deps.Runs,
		archiver:  deps.Archiver,
		notifier:  deps.Notifier,
		logger:    logger,
		now:       now,
		progress:  deps.Progress,
	}
}

// Run discovers recent articles, enriches every one of them, and hands each
// record to the store. Only configuration errors and cancellation fail the run;
// item failures are reported in the summary.
func (p *Pipeline) Run(ctx context.Context, params domain.RunParams) (domain.Summary, error) {
	if err := params.Validate(); err != nil {
		return domain.Summary{}, err
	}
	if p.site == nil {
		return domain.Summary{}, fmt.Errorf("%w: pipeline has no listing source", domain.ErrConfiguration)
	}
	if p.extractor == nil {
		return domain.Summary{}, fmt.Errorf("%w: pipeline has no extractor", domain.ErrConfiguration)
	}

	started := p.now()
	cutoff, err := domain.NewCutoff(started, params.CutoffDays)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := domain.Summary{
		RunID:     uuid.NewString(),
		Source:    p.site.Name(),
		Cutoff:    cutoff,
		StartedAt: started,
	}
	log := p.logger.With("run_id", summary.RunID)
	log.Info("pipeline started",
		"source", summary.Source,
		"cutoff", cutoff.String(),
		"max_pages", params.MaxPages,
		"discovery_workers", params.DiscoveryConcurrency,
		"enrichment_workers", params.EnrichmentConcurrency)

	if p.archiver != nil {
		dir, moved, err := p.archiver.Archive(started)
		if err != nil {
			log.Warn("archive previous output failed", "error", err)
		} else if moved > 0 {
			log.Info("previous output archived", "dir", dir, "files", moved)
		}
	}

	scan := discovery.New(p.site, log.With("stage", "discovery"))
	scan.OnProgress(p.stageProgress("discovery"))
	items, err := scan.Discover(ctx, cutoff, params.MaxPages, params.DiscoveryConcurrency)
	if err != nil {
		return summary, fmt.Errorf("discover: %w", err)
	}
	summary.Discovered = len(items)

	if len(items) == 0 {
		log.Info("no recent articles found")
		return p.finish(ctx, log, summary, nil), nil
	}

	enrich := enrichment.New(enrichment.Deps{
		Fetcher:   p.site,
		Extractor: p.extractor,
		Cleaner:   p.cleaner,
		Snapshots: p.snapshots,
		Logger:    log.With("stage", "enrichment"),
		Now:       p.now,
	})
	records, err := enrich.Enrich(ctx, items, params.EnrichmentConcurrency, p.stageProgress("enrichment"))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return summary, fmt.Errorf("enrich: %w", err)
	}

	summary.Total = len(records)
	summary.Succeeded, summary.Failed = domain.Tally(records)
	summary.StoreFailures = p.persist(ctx, log, records)

	return p.finish(ctx, log, summary, records), nil
}

func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, records []domain.EnrichedRecord) int {
	if p.store == nil {
		return 0
	}
	failures := 0
	for _, rec := range records {
		path, err := p.store.Store(ctx, rec)
		if err != nil {
			failures++
			log.Warn("persist record failed", "link", rec.Ref.Link, "error", err)
			continue
		}
		log.Debug("record persisted", "link", rec.Ref.Link, "path", path)
	}
	return failures
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, summary domain.Summary, records []domain.EnrichedRecord) domain.Summary {
	summary.FinishedAt = p.now()

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, summary); err != nil {
			log.Warn("save run summary failed", "error", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.PublishSummary(ctx, summary, records); err != nil {
			log.Warn("publish summary failed", "error", err)
		}
	}

	log.Info("pipeline finished",
		"discovered", summary.Discovered,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"store_failures", summary.StoreFailures,
		"duration", summary.Duration())
	return summary
}

func (p *Pipeline) stageProgress(stage string) domain.Progress {
	return func(completed, total int) {
		if p.progress != nil {
			p.progress(stage, completed, total)
		}
	}
}
