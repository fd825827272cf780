package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ArticlesHarvester/internal/config"
	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/infrastructure/content"
	"ArticlesHarvester/internal/infrastructure/fetch"
	"ArticlesHarvester/internal/infrastructure/llm"
	"ArticlesHarvester/internal/infrastructure/ml"
	"ArticlesHarvester/internal/infrastructure/parser"
	"ArticlesHarvester/internal/infrastructure/scheduler"
	"ArticlesHarvester/internal/infrastructure/storage"
	"ArticlesHarvester/internal/infrastructure/telegram"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
	"ArticlesHarvester/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New validates cfg and builds every adapter the pipeline needs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	pipeline, err := a.buildPipeline(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.pipeline = pipeline
	return a, nil
}

func (a *Application) buildPipeline(ctx context.Context) (*usecase.Pipeline, error) {
	cfg := a.cfg
	loc := cfg.Source.Location()

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Source.Timeout),
		fetch.WithDelay(cfg.Source.RequestDelay),
		fetch.WithUserAgent(cfg.Source.UserAgent),
	)
	registry := parser.NewRegistry(parser.SiteConfig{
		Name:        cfg.Source.Name,
		BaseURL:     cfg.Source.BaseURL,
		PagePattern: cfg.Source.PagePattern,
		Selectors: parser.Selectors{
			Item: cfg.Source.Selectors.Item,
			Link: cfg.Source.Selectors.Link,
			Date: cfg.Source.Selectors.Date,
		},
		DateLayout: cfg.Source.DateLayout,
	}, fetcher, loc)
	site, err := registry.Resolve(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}

	extractor, err := newExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	cleaner, err := content.New(cfg.Extractor.ContentFormat, cfg.Extractor.MaxContentChars)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	stores := storage.Multi{files}
	runs := storage.Runs{files}

	var (
		snapshots ports.SnapshotWriter
		archiver  ports.Archiver
		notifier  ports.Notifier
	)
	if cfg.Output.Snapshots {
		snapshots = files
	}
	if cfg.Output.Archive {
		archiver = files
	}

	if cfg.Database.Driver != "" {
		db, err := storage.OpenSQL(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		stores = append(stores, db)
		runs = append(runs, db)
	}

	if tg := cfg.Notifications.Telegram; tg.Enabled {
		n, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, a.logger.With("component", "telegram"))
		if err != nil {
			return nil, err
		}
		notifier = n
	}

	progressLog := a.logger.With("component", "progress")
	return usecase.NewPipeline(usecase.PipelineDeps{
		Site:      site,
		Extractor: extractor,
		Cleaner:   cleaner,
		Snapshots: snapshots,
		Store:     stores,
		Runs:      runs,
		Archiver:  archiver,
		Notifier:  notifier,
		Logger:    a.logger.With("component", "pipeline"),
		Now:       func() time.Time { return time.Now().In(loc) },
		Progress: func(stage string, completed, total int) {
			progressLog.Debug("progress", "stage", stage, "done", completed, "total", total)
		},
	}), nil
}

func newExtractor(cfg config.ExtractorConfig) (ports.Extractor, error) {
	opts := llm.Options{
		Model:         cfg.Model,
		SystemPrompt:  cfg.SystemPrompt,
		Schema:        cfg.Schema,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		MaxInputChars: cfg.MaxContentChars,
	}
	switch cfg.Backend {
	case "openai":
		return llm.NewChatCompletionsExtractor(cfg.Endpoint, cfg.APIKey, opts, cfg.JSONMode, cfg.Timeout)
	case "anthropic":
		return llm.NewAnthropicExtractor(cfg.APIKey, opts)
	case "http":
		return ml.NewClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: unknown extractor backend %q", domain.ErrConfiguration, cfg.Backend)
	}
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context, params domain.RunParams) (domain.Summary, error) {
	return a.pipeline.Run(ctx, params)
}

// Serve runs the pipeline on the configured cron schedule until ctx is done.
func (a *Application) Serve(ctx context.Context, params domain.RunParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	driver, err := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Timezone,
		a.cfg.Scheduler.RunOnStart,
		a.logger.With("component", "cron"),
	)
	if err != nil {
		return err
	}

	recurring := usecase.NewScheduler(driver, a.pipeline, params, a.logger.With("component", "scheduler"))
	if err := recurring.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("serving", "cron", a.cfg.Scheduler.CronExpression, "next_run", driver.Next())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := recurring.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Close releases database handles.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
