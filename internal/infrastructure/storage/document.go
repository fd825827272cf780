package storage

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ArticlesHarvester/internal/domain"
)

const maxSlugLen = 80

// recordDocument is the on-disk and in-database shape of an enriched record.
type recordDocument struct {
	Link        string         `json:"link"`
	Title       string         `json:"title"`
	PublishDate string         `json:"publish_date,omitempty"`
	Page        int            `json:"page"`
	Succeeded   bool           `json:"succeeded"`
	Error       string         `json:"error,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	EnrichedAt  time.Time      `json:"enriched_at"`
}

func newDocument(rec domain.EnrichedRecord) recordDocument {
	return recordDocument{
		Link:        rec.Ref.Link,
		Title:       rec.Ref.Title,
		PublishDate: rec.Ref.PublishDate(),
		Page:        rec.Ref.Page,
		Succeeded:   rec.Succeeded,
		Error:       rec.Error,
		Data:        rec.Data,
		EnrichedAt:  rec.EnrichedAt,
	}
}

func (d recordDocument) record() domain.EnrichedRecord {
	ref := domain.ArticleRef{Title: d.Title, Link: d.Link, RawDate: d.PublishDate, Page: d.Page}
	if t, err := time.Parse(domain.DateLayout, d.PublishDate); err == nil {
		ref.PublishedDate = t
	}
	return domain.EnrichedRecord{
		Ref:        ref,
		Data:       d.Data,
		Succeeded:  d.Succeeded,
		Error:      d.Error,
		EnrichedAt: d.EnrichedAt,
	}
}

// Slug turns a link into a stable file name: a readable path part plus a short hash of the full link.
func Slug(link string) string {
	readable := link
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		readable = strings.Trim(u.Path, "/")
		if readable == "" {
			readable = u.Host
		}
		if i := strings.LastIndex(readable, "/"); i >= 0 {
			readable = readable[i+1:]
		}
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(readable) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	base := strings.Trim(b.String(), "-")
	if len(base) > maxSlugLen {
		base = strings.Trim(base[:maxSlugLen], "-")
	}

	hash := uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()[:8]
	if base == "" {
		return hash
	}
	return base + "-" + hash
}
