package aggregate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

var day0 = time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)

func ref(link string, daysAgo, page, pos int) domain.ArticleRef {
	return domain.ArticleRef{
		Title:         "title " + link,
		Link:          link,
		PublishedDate: day0.AddDate(0, 0, -daysAgo),
		Page:          page,
		Position:      pos,
	}
}

func TestAddDeduplicatesByLink(t *testing.T) {
	agg := New()

	added := agg.Add([]domain.ArticleRef{ref("a", 0, 1, 0), ref("b", 1, 1, 1), {Link: ""}})
	assert.Equal(t, 2, added)

	added = agg.Add([]domain.ArticleRef{ref("a", 0, 1, 0), ref("c", 2, 2, 0)})
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, agg.Len())
}

func TestAddIsIdempotent(t *testing.T) {
	agg := New()
	batch := []domain.ArticleRef{ref("a", 0, 1, 0), ref("b", 1, 1, 1)}
	agg.Add(batch)
	first := agg.Items()
	agg.Add(batch)
	assert.Equal(t, first, agg.Items())
}

func TestEarliestScanPositionWins(t *testing.T) {
	agg := New()

	later := ref("a", 3, 2, 4)
	later.Title = "drifted"
	earlier := ref("a", 0, 1, 2)
	earlier.Title = "original"

	agg.Add([]domain.ArticleRef{later})
	agg.Add([]domain.ArticleRef{earlier})

	items := agg.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "original", items[0].Title)
	assert.Equal(t, 1, items[0].Page)
}

func TestItemsOrderedByDateThenScanOrder(t *testing.T) {
	agg := New()
	agg.Add([]domain.ArticleRef{ref("old", 3, 1, 0), ref("p2", 0, 2, 0)})
	agg.Add([]domain.ArticleRef{ref("p1b", 0, 1, 2), ref("p1a", 0, 1, 1)})
	agg.Add([]domain.ArticleRef{{Title: "undated", Link: "undated", Page: 1, Position: 3}})

	var links []string
	for _, item := range agg.Items() {
		links = append(links, item.Link)
	}
	assert.Equal(t, []string{"p1a", "p1b", "p2", "old", "undated"}, links)
}

func TestAddRecordExactlyOnce(t *testing.T) {
	agg := New()
	r := ref("a", 0, 1, 0)

	assert.True(t, agg.AddRecord(domain.Succeeded(r, map[string]any{"k": 1}, day0)))
	assert.False(t, agg.AddRecord(domain.Failed(r, fmt.Errorf("late"), day0)))

	recs := agg.Records([]domain.ArticleRef{r, r, ref("missing", 0, 1, 1)})
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Succeeded)
}

func TestRecordsFollowGivenOrder(t *testing.T) {
	agg := New()
	order := []domain.ArticleRef{ref("a", 0, 1, 0), ref("b", 0, 1, 1), ref("c", 0, 1, 2)}
	for i := len(order) - 1; i >= 0; i-- {
		agg.AddRecord(domain.Succeeded(order[i], map[string]any{"i": i}, day0))
	}

	recs := agg.Records(order)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, order[i].Link, rec.Ref.Link)
	}
}

func TestConcurrentAdds(t *testing.T) {
	agg := New()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				link := fmt.Sprintf("link-%d", i)
				agg.Add([]domain.ArticleRef{ref(link, i%5, w+1, i)})
				agg.AddRecord(domain.Succeeded(ref(link, 0, w+1, i), map[string]any{"w": w}, day0))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, agg.Len())
	assert.Len(t, agg.Records(agg.Items()), 50)
	for _, item := range agg.Items() {
		assert.Equal(t, 1, item.Page, "page 1 worker saw every link first in scan order")
	}
}
