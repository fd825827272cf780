package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// FeedLister reads listing pages served as RSS or Atom, e.g. WordPress /feed/?paged=N.
type FeedLister struct {
	location *time.Location
}

var _ ports.ItemLister = (*FeedLister)(nil)

// NewFeedLister builds a lister that converts item dates to loc before taking the day.
func NewFeedLister(loc *time.Location) *FeedLister {
	if loc == nil {
		loc = time.UTC
	}
	return &FeedLister{location: loc}
}

// ParseListing returns feed items in document order.
func (f *FeedLister) ParseListing(raw []byte) ([]domain.ArticleRef, error) {
	feed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	refs := make([]domain.ArticleRef, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		ref := domain.ArticleRef{
			Title:    title,
			Link:     link,
			RawDate:  item.Published,
			Position: len(refs),
		}
		switch {
		case item.PublishedParsed != nil:
			ref.PublishedDate = domain.Day(item.PublishedParsed.In(f.location))
		case item.UpdatedParsed != nil:
			ref.PublishedDate = domain.Day(item.UpdatedParsed.In(f.location))
			ref.RawDate = item.Updated
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
