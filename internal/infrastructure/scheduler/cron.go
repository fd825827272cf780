package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
	"ArticlesHarvester/pkg/logger"
)

// CronScheduler fires jobs on a cron expression in a fixed time zone.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	stopped context.Context
	jobs    sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates spec (standard 5-field syntax or descriptors like @daily).
// An empty timezone means UTC.
func NewCronScheduler(spec, timezone string, runOnStart bool, log *slog.Logger) (*CronScheduler, error) {
	if log == nil {
		log = logging.Discard()
	}
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", domain.ErrConfiguration, timezone, err)
		}
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%w: cron expression %q: %v", domain.ErrConfiguration, spec, err)
	}
	return &CronScheduler{spec: spec, location: loc, runOnStart: runOnStart, logger: log}, nil
}

// Start registers job and starts the cron loop. It stops when ctx is done or Stop is called.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cronLog := cron.PrintfLogger(logger.New(c.logger, "cron"))
	cr := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("%w: add cron job: %v", domain.ErrConfiguration, err)
	}
	cr.Start()
	c.cron = cr
	c.stopped = nil
	c.logger.Info("cron started", "spec", c.spec, "timezone", c.location.String())

	if c.runOnStart {
		c.jobs.Add(1)
		go func() {
			defer c.jobs.Done()
			job(time.Now().In(c.location))
		}()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Next reports the next activation after now, or zero if not started.
func (c *CronScheduler) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return time.Time{}
	}
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the cron loop and waits for running jobs, including the
// run-on-start job, until ctx is done. Concurrent callers all wait on the
// same shutdown.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if cr := c.cron; cr != nil {
		c.cron = nil
		cronDone := cr.Stop()
		stopped, finish := context.WithCancel(context.Background())
		c.stopped = stopped
		go func() {
			<-cronDone.Done()
			c.jobs.Wait()
			c.logger.Info("cron stopped")
			finish()
		}()
	}
	stopped := c.stopped
	c.mu.Unlock()
	if stopped == nil {
		return nil
	}

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
