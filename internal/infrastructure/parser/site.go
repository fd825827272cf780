package parser

import (
	"context"
	"fmt"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/infrastructure/fetch"
	"ArticlesHarvester/internal/ports"
	"ArticlesHarvester/internal/scanner"
)

// Source kinds understood by NewRegistry.
const (
	KindHTML = "html"
	KindFeed = "feed"
)

// ListingSite implements scanner.Site over a fetcher and a lister.
type ListingSite struct {
	name        string
	baseURL     string
	pagePattern string
	fetcher     ports.PageFetcher
	lister      ports.ItemLister
}

var _ scanner.Site = (*ListingSite)(nil)

// NewListingSite wires a paginated source. pagePattern follows fetch.PageURL.
func NewListingSite(name, baseURL, pagePattern string, fetcher ports.PageFetcher, lister ports.ItemLister) (*ListingSite, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: site %s has no base url", domain.ErrConfiguration, name)
	}
	if fetcher == nil || lister == nil {
		return nil, fmt.Errorf("%w: site %s needs a fetcher and a lister", domain.ErrConfiguration, name)
	}
	if _, err := fetch.PageURL(baseURL, pagePattern, 2); err != nil {
		return nil, err
	}
	return &ListingSite{
		name:        name,
		baseURL:     baseURL,
		pagePattern: pagePattern,
		fetcher:     fetcher,
		lister:      lister,
	}, nil
}

// Name identifies the site in logs and summaries.
func (s *ListingSite) Name() string {
	return s.name
}

// FetchListing downloads listing page n (1-based).
func (s *ListingSite) FetchListing(ctx context.Context, page int) ([]byte, error) {
	pageURL, err := fetch.PageURL(s.baseURL, s.pagePattern, page)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("listing page %d: %w", page, err)
	}
	return raw, nil
}

// FetchItem downloads an article's detail page.
func (s *ListingSite) FetchItem(ctx context.Context, link string) ([]byte, error) {
	raw, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", link, err)
	}
	return raw, nil
}

// ParseListing delegates to the configured lister.
func (s *ListingSite) ParseListing(raw []byte) ([]domain.ArticleRef, error) {
	return s.lister.ParseListing(raw)
}

// SiteConfig is what the registry needs to build a listing site.
type SiteConfig struct {
	Name        string
	BaseURL     string
	PagePattern string
	Selectors   Selectors
	DateLayout  string
}

// NewRegistry registers the html and feed listing kinds for cfg.
func NewRegistry(cfg SiteConfig, fetcher ports.PageFetcher, loc *time.Location) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(KindHTML, func() (scanner.Site, error) {
		lister, err := NewHTMLLister(cfg.BaseURL, cfg.Selectors, cfg.DateLayout, loc)
		if err != nil {
			return nil, err
		}
		return NewListingSite(cfg.Name, cfg.BaseURL, cfg.PagePattern, fetcher, lister)
	})
	reg.Register(KindFeed, func() (scanner.Site, error) {
		pattern := cfg.PagePattern
		if pattern == "" {
			pattern = "%s/?paged=%d"
		}
		return NewListingSite(cfg.Name, cfg.BaseURL, pattern, fetcher, NewFeedLister(loc))
	})
	return reg
}
