package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// Selectors locate listing entries on a page.
type Selectors struct {
	Item string `yaml:"item"`
	Link string `yaml:"link"`
	Date string `yaml:"date"`
}

// DefaultSelectors match a typical blog index: one <article> per post with an h2 link and a <time>.
func DefaultSelectors() Selectors {
	return Selectors{Item: "article", Link: "h2 > a", Date: "time"}
}

// HTMLLister extracts (title, link, date) entries from a listing page.
type HTMLLister struct {
	base       *url.URL
	selectors  Selectors
	dateLayout string
	location   *time.Location
}

var _ ports.ItemLister = (*HTMLLister)(nil)

// NewHTMLLister resolves relative links against baseURL; empty selector fields take defaults.
func NewHTMLLister(baseURL string, sel Selectors, dateLayout string, loc *time.Location) (*HTMLLister, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base url %s: %v", domain.ErrConfiguration, baseURL, err)
	}
	def := DefaultSelectors()
	if sel.Item == "" {
		sel.Item = def.Item
	}
	if sel.Link == "" {
		sel.Link = def.Link
	}
	if sel.Date == "" {
		sel.Date = def.Date
	}
	if dateLayout == "" {
		dateLayout = domain.DateLayout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &HTMLLister{base: base, selectors: sel, dateLayout: dateLayout, location: loc}, nil
}

// ParseListing returns entries in page order. Entries without a title or link are skipped;
// entries with a missing or malformed date are kept undated.
func (l *HTMLLister) ParseListing(raw []byte) ([]domain.ArticleRef, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var refs []domain.ArticleRef
	doc.Find(l.selectors.Item).Each(func(_ int, entry *goquery.Selection) {
		ref, ok := l.parseEntry(entry)
		if !ok {
			return
		}
		ref.Position = len(refs)
		refs = append(refs, ref)
	})
	return refs, nil
}

func (l *HTMLLister) parseEntry(entry *goquery.Selection) (domain.ArticleRef, bool) {
	link := entry.Find(l.selectors.Link).First()
	if link.Length() == 0 {
		return domain.ArticleRef{}, false
	}

	title := strings.Join(strings.Fields(link.Text()), " ")
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return domain.ArticleRef{}, false
	}

	resolved, err := l.resolve(href)
	if err != nil {
		return domain.ArticleRef{}, false
	}

	dateNode := entry.Find(l.selectors.Date).First()
	dateText := strings.TrimSpace(dateNode.Text())
	if dateText == "" {
		dateText, _ = dateNode.Attr("datetime")
		dateText = strings.TrimSpace(dateText)
	}

	ref := domain.ArticleRef{
		Title:   title,
		Link:    resolved,
		RawDate: dateText,
	}
	if published, err := ParseDate(dateText, l.dateLayout, l.location); err == nil {
		ref.PublishedDate = published
	}
	return ref, true
}

func (l *HTMLLister) resolve(href string) (string, error) {
	parsed, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return l.base.ResolveReference(parsed).String(), nil
}
