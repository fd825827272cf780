package ports

import (
	"context"
	"time"

	"ArticlesHarvester/internal/domain"
)

// PageFetcher retrieves raw content for a URL. Timeouts and politeness belong here.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ItemLister turns a listing page into ordered refs. Unparseable dates are
// reported as undated refs, never as errors.
type ItemLister interface {
	ParseListing(raw []byte) ([]domain.ArticleRef, error)
}

// Extractor maps detail content to structured data (LLM or extraction service).
type Extractor interface {
	Extract(ctx context.Context, ref domain.ArticleRef, content []byte) (map[string]any, error)
}

// ContentCleaner reduces a raw detail page to what the extractor should see.
type ContentCleaner interface {
	Clean(raw []byte, pageURL string) ([]byte, error)
}

// SnapshotWriter keeps a copy of the raw detail page.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, ref domain.ArticleRef, raw []byte) (string, error)
}

// RecordStore persists one enriched record and returns where it went.
type RecordStore interface {
	Store(ctx context.Context, record domain.EnrichedRecord) (string, error)
}

// RunRecorder keeps a history of run summaries.
type RunRecorder interface {
	SaveRun(ctx context.Context, summary domain.Summary) error
}

// Archiver moves the previous run's output out of the way.
type Archiver interface {
	Archive(now time.Time) (string, int, error)
}

// Notifier publishes a digest of a finished run.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.Summary, records []domain.EnrichedRecord) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
