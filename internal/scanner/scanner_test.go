package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

type stubSite struct{ name string }

func (s stubSite) Name() string {
	return s.name
}

func (stubSite) FetchListing(context.Context, int) ([]byte, error) {
	return nil, nil
}

func (stubSite) FetchItem(context.Context, string) ([]byte, error) {
	return nil, nil
}

func (stubSite) ParseListing([]byte) ([]domain.ArticleRef, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register("html", func() (Site, error) { return stubSite{name: "blog"}, nil })
	reg.Register("broken", func() (Site, error) { return nil, errors.New("no base url") })

	site, err := reg.Resolve("html")
	require.NoError(t, err)
	assert.Equal(t, "blog", site.Name())

	_, err = reg.Resolve("broken")
	assert.ErrorContains(t, err, "no base url")

	_, err = reg.Resolve("sitemap")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Equal(t, []string{"broken", "html"}, reg.Kinds())
}

func TestZeroRegistryRegister(t *testing.T) {
	var reg Registry
	reg.Register("x", func() (Site, error) { return stubSite{}, nil })
	assert.Equal(t, []string{"x"}, reg.Kinds())
}
