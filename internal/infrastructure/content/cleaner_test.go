package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Gophers at Work</title></head>
<body>
  <nav><a href="/">Home</a> | <a href="/about">About</a></nav>
  <article>
    <h1>Gophers at Work</h1>
    <p>Gophers dig tunnels through the soil of the prairie. They are small burrowing rodents with large cheek pouches used for carrying food.</p>
    <p>A single gopher can move a surprising amount of earth during one season, building networks of tunnels that other animals later reuse.</p>
    <p>Farmers have mixed feelings about them because the tunnels aerate the soil while the gophers also eat roots and bulbs.</p>
  </article>
  <footer>Copyright</footer>
</body></html>`

func TestReadabilityClean(t *testing.T) {
	out, err := NewReadability(0).Clean([]byte(articlePage), "https://blog.example.com/gophers")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Gophers dig tunnels")
	assert.Contains(t, text, "cheek pouches")
	assert.NotContains(t, text, "<p>")
}

func TestReadabilityTruncates(t *testing.T) {
	out, err := NewReadability(40).Clean([]byte(articlePage), "https://blog.example.com/gophers")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(string(out))), 40)
}

func TestMarkdownClean(t *testing.T) {
	out, err := NewMarkdown(0).Clean([]byte(`<h1>Title</h1><p>Some <strong>bold</strong> text and a <a href="https://example.com">link</a>.</p>`), "https://example.com/post")
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "# Title"), text)
	assert.Contains(t, text, "**bold**")
	assert.Contains(t, text, "[link](https://example.com)")
}

func TestMarkdownEmptyIsExtractionError(t *testing.T) {
	_, err := NewMarkdown(0).Clean([]byte("   "), "https://example.com/post")
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestNewSelectsCleaner(t *testing.T) {
	c, err := New("raw", 0)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New("Readability", 10)
	require.NoError(t, err)
	assert.IsType(t, &Readability{}, c)

	c, err = New("markdown", 10)
	require.NoError(t, err)
	assert.IsType(t, &Markdown{}, c)

	_, err = New("pdf", 0)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "жук", truncate("жуки", 3))
	assert.Equal(t, "abc", truncate("abc", 0))
}
