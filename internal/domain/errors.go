package domain

import "errors"

// Error taxonomy. Per-item errors wrap one of the first three and stay inside
// the item's outcome; only ErrConfiguration aborts a run.
var (
	ErrTransientFetch = errors.New("transient fetch error")
	ErrParseAmbiguity = errors.New("unparseable date")
	ErrExtraction     = errors.New("extraction failure")
	ErrConfiguration  = errors.New("configuration error")
)
