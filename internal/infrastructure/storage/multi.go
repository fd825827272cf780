package storage

import (
	"context"
	"errors"
	"strings"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// Multi hands each record to several stores. A record counts as stored only if every store accepted it.
type Multi []ports.RecordStore

var _ ports.RecordStore = Multi(nil)

// Store writes rec to every store and joins their locations with ", ".
func (m Multi) Store(ctx context.Context, rec domain.EnrichedRecord) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, store := range m {
		if store == nil {
			continue
		}
		loc, err := store.Store(ctx, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), errors.Join(errs...)
}

// Runs fans a run summary out to several recorders.
type Runs []ports.RunRecorder

var _ ports.RunRecorder = Runs(nil)

// SaveRun saves to every recorder and joins the errors.
func (r Runs) SaveRun(ctx context.Context, summary domain.Summary) error {
	var errs []error
	for _, rec := range r {
		if rec == nil {
			continue
		}
		if err := rec.SaveRun(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
