package domain

import (
	"fmt"
	"time"
)

// Cutoff is the earliest publish day still considered recent for a run.
type Cutoff struct {
	Day  time.Time
	Days int
}

// NewCutoff derives the cutoff day as "now minus days" at calendar-day precision.
func NewCutoff(now time.Time, days int) (Cutoff, error) {
	if days < 0 {
		return Cutoff{}, fmt.Errorf("%w: cutoff days must not be negative, got %d", ErrConfiguration, days)
	}
	return Cutoff{Day: Day(now).AddDate(0, 0, -days), Days: days}, nil
}

func (c Cutoff) String() string {
	return c.Day.Format(DateLayout)
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RunParams are the knobs of one pipeline run.
type RunParams struct {
	CutoffDays            int
	MaxPages              int
	DiscoveryConcurrency  int
	EnrichmentConcurrency int
}

// Validate rejects parameters that would make the run meaningless.
func (p RunParams) Validate() error {
	if p.CutoffDays < 0 {
		return fmt.Errorf("%w: cutoff days must not be negative, got %d", ErrConfiguration, p.CutoffDays)
	}
	if p.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive, got %d", ErrConfiguration, p.MaxPages)
	}
	if p.DiscoveryConcurrency <= 0 {
		return fmt.Errorf("%w: discovery concurrency must be positive, got %d", ErrConfiguration, p.DiscoveryConcurrency)
	}
	if p.EnrichmentConcurrency <= 0 {
		return fmt.Errorf("%w: enrichment concurrency must be positive, got %d", ErrConfiguration, p.EnrichmentConcurrency)
	}
	return nil
}

// Summary reports the outcome of one pipeline run.
type Summary struct {
	RunID         string
	Source        string
	Cutoff        Cutoff
	Discovered    int
	Total         int
	Succeeded     int
	Failed        int
	StoreFailures int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Tally counts succeeded and failed records.
func Tally(records []EnrichedRecord) (succeeded, failed int) {
	for _, rec := range records {
		if rec.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
