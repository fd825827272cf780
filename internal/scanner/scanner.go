package scanner

import (
	"context"
	"fmt"
	"sort"

	"ArticlesHarvester/internal/domain"
)

// Site is the capability set a listing source must provide to be scanned and enriched.
// New sources are new implementations, not variations of a base type.
type Site interface {
	Name() string
	FetchListing(ctx context.Context, page int) ([]byte, error)
	FetchItem(ctx context.Context, link string) ([]byte, error)
	ParseListing(raw []byte) ([]domain.ArticleRef, error)
}

// Factory builds a Site for a configured source.
type Factory func() (Site, error)

// Registry keeps a mapping from source kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a factory for kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Resolve builds the site registered under kind.
func (r *Registry) Resolve(kind string) (Site, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: source kind %q is not registered (known: %v)", domain.ErrConfiguration, kind, r.Kinds())
	}
	site, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build source %s: %w", kind, err)
	}
	return site, nil
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
