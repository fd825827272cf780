package domain

import "time"

// DateLayout is the calendar-date format used for publish dates on the wire and in records.
const DateLayout = "2006-01-02"

// ArticleRef is a listing entry discovered on a paginated listing page.
// Link is the identity key: two refs with the same Link are the same article.
type ArticleRef struct {
	Title         string
	Link          string
	PublishedDate time.Time
	// RawDate keeps the listing's date text, including unparseable values.
	RawDate string
	// Page and Position locate the ref in the scan (1-based page, 0-based index).
	Page     int
	Position int
}

// Dated reports whether the lister produced a usable publish date.
func (a ArticleRef) Dated() bool {
	return !a.PublishedDate.IsZero()
}

// Recent reports whether the ref is published on or after the cutoff day.
// Undated refs never qualify.
func (a ArticleRef) Recent(cutoff Cutoff) bool {
	if !a.Dated() {
		return false
	}
	return !Day(a.PublishedDate).Before(cutoff.Day)
}

// PublishDate renders the publish date, or the raw text when it could not be parsed.
func (a ArticleRef) PublishDate() string {
	if a.Dated() {
		return a.PublishedDate.Format(DateLayout)
	}
	return a.RawDate
}

// DiscoveryOutcome is the per-page result consumed by the stop decision.
type DiscoveryOutcome struct {
	Page  int
	Items []ArticleRef
	// Listed counts every entry on the page, recent or not.
	Listed int
	// HasRecent is true when at least one item meets the cutoff.
	HasRecent bool
	// HadItems is false for empty or failed pages, which never stop the scan.
	HadItems bool
	Err      error
}

// Boundary reports whether the page marks the end of recent content.
func (o DiscoveryOutcome) Boundary() bool {
	return o.HadItems && !o.HasRecent
}

// EnrichedRecord is the terminal result of enriching one discovered article.
type EnrichedRecord struct {
	Ref        ArticleRef
	Data       map[string]any
	Succeeded  bool
	Error      string
	EnrichedAt time.Time
}

// Failed builds a failed record that still carries the originating ref.
func Failed(ref ArticleRef, err error, at time.Time) EnrichedRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return EnrichedRecord{Ref: ref, Succeeded: false, Error: msg, EnrichedAt: at}
}

// Succeeded builds a successful record.
func Succeeded(ref ArticleRef, data map[string]any, at time.Time) EnrichedRecord {
	return EnrichedRecord{Ref: ref, Data: data, Succeeded: true, EnrichedAt: at}
}

// Progress is a monotonically increasing (completed, total) tuple for one stage.
type Progress func(completed, total int)
