package content

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// DefaultMaxChars bounds what is handed to the extractor.
const DefaultMaxChars = 20000

// Readability keeps the main article text of a detail page.
type Readability struct {
	maxChars int
}

var _ ports.ContentCleaner = (*Readability)(nil)

// NewReadability builds a cleaner; maxChars <= 0 disables truncation.
func NewReadability(maxChars int) *Readability {
	return &Readability{maxChars: maxChars}
}

// Clean returns the article title and body text.
func (r *Readability) Clean(raw []byte, pageURL string) ([]byte, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: page url %s: %v", domain.ErrExtraction, pageURL, err)
	}
	article, err := readability.FromReader(bytes.NewReader(raw), parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: readability %s: %v", domain.ErrExtraction, pageURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("%w: no readable text in %s", domain.ErrExtraction, pageURL)
	}
	if title := strings.TrimSpace(article.Title); title != "" {
		text = title + "\n\n" + text
	}
	return []byte(truncate(text, r.maxChars)), nil
}

// Markdown converts the whole page to Markdown, which keeps headings and links.
type Markdown struct {
	converter *md.Converter
	maxChars  int
}

var _ ports.ContentCleaner = (*Markdown)(nil)

// NewMarkdown builds a cleaner; maxChars <= 0 disables truncation.
func NewMarkdown(maxChars int) *Markdown {
	return &Markdown{converter: md.NewConverter("", true, nil), maxChars: maxChars}
}

// Clean converts raw HTML to Markdown.
func (m *Markdown) Clean(raw []byte, pageURL string) ([]byte, error) {
	out, err := m.converter.ConvertString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: markdown %s: %v", domain.ErrExtraction, pageURL, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("%w: empty markdown for %s", domain.ErrExtraction, pageURL)
	}
	return []byte(truncate(out, m.maxChars)), nil
}

// New selects a cleaner by name. "raw" and "" mean no cleaning.
func New(kind string, maxChars int) (ports.ContentCleaner, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "raw", "none":
		return nil, nil
	case "text", "readability":
		return NewReadability(maxChars), nil
	case "markdown":
		return NewMarkdown(maxChars), nil
	default:
		return nil, fmt.Errorf("%w: unknown content cleaner %q", domain.ErrConfiguration, kind)
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
