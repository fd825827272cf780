package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

var fixedNow = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	bodies map[string][]byte
	errs   map[string]error
	delay  time.Duration

	inFlight atomic.Int64
	peak     atomic.Int64
}

func (f *fakeFetcher) FetchItem(_ context.Context, link string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	if err := f.errs[link]; err != nil {
		return nil, err
	}
	if body, ok := f.bodies[link]; ok {
		return body, nil
	}
	return []byte("<p>" + link + "</p>"), nil
}

type fakeExtractor struct {
	fail   map[string]bool
	panic  map[string]bool
	empty  map[string]bool
	mu     sync.Mutex
	inputs map[string]string
}

func (f *fakeExtractor) Extract(_ context.Context, ref domain.ArticleRef, content []byte) (map[string]any, error) {
	f.mu.Lock()
	if f.inputs == nil {
		f.inputs = map[string]string{}
	}
	f.inputs[ref.Link] = string(content)
	f.mu.Unlock()

	switch {
	case f.panic[ref.Link]:
		panic("extractor exploded")
	case f.fail[ref.Link]:
		return nil, fmt.Errorf("%w: model returned prose", domain.ErrExtraction)
	case f.empty[ref.Link]:
		return map[string]any{}, nil
	}
	return map[string]any{"title": ref.Title}, nil
}

type prefixCleaner struct{}

func (prefixCleaner) Clean(raw []byte, _ string) ([]byte, error) {
	return append([]byte("clean:"), raw...), nil
}

type recordingSnapshots struct {
	mu    sync.Mutex
	links []string
}

func (r *recordingSnapshots) SaveSnapshot(_ context.Context, ref domain.ArticleRef, _ []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, ref.Link)
	return "html/" + ref.Link, nil
}

func items(n int) []domain.ArticleRef {
	out := make([]domain.ArticleRef, 0, n)
	for i := range n {
		out = append(out, domain.ArticleRef{
			Title:         fmt.Sprintf("item %d", i),
			Link:          fmt.Sprintf("https://blog.example.com/%d", i),
			PublishedDate: fixedNow.AddDate(0, 0, -i),
			Page:          1,
			Position:      i,
		})
	}
	return out
}

func newScheduler(f *fakeFetcher, e *fakeExtractor) *Scheduler {
	return New(Deps{Fetcher: f, Extractor: e, Now: func() time.Time { return fixedNow }})
}

func TestEnrichPartialFailureIsIsolated(t *testing.T) {
	in := items(5)
	ex := &fakeExtractor{fail: map[string]bool{in[2].Link: true}}

	records, err := newScheduler(&fakeFetcher{}, ex).Enrich(context.Background(), in, 2, nil)
	require.NoError(t, err)
	require.Len(t, records, 5)

	succeeded, failed := domain.Tally(records)
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 1, failed)

	bad := records[2]
	assert.False(t, bad.Succeeded)
	assert.Equal(t, in[2].Link, bad.Ref.Link)
	assert.Equal(t, in[2].PublishedDate, bad.Ref.PublishedDate)
	assert.Contains(t, bad.Error, "model returned prose")
	assert.Nil(t, bad.Data)

	for i, rec := range records {
		assert.Equal(t, in[i].Link, rec.Ref.Link, "records follow input order")
		assert.Equal(t, fixedNow, rec.EnrichedAt)
	}
}

func TestEnrichTagsSuccessfulData(t *testing.T) {
	in := items(1)
	records, err := newScheduler(&fakeFetcher{}, &fakeExtractor{}).Enrich(context.Background(), in, 1, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	data := records[0].Data
	assert.Equal(t, in[0].Link, data[SourceURLKey])
	assert.Equal(t, "2025-11-08", data[PublishDateKey])
	assert.Equal(t, "item 0", data["title"])
}

func TestEnrichFailureKinds(t *testing.T) {
	in := items(4)
	fetcher := &fakeFetcher{
		errs:   map[string]error{in[0].Link: fmt.Errorf("%w: HTTP 500", domain.ErrTransientFetch)},
		bodies: map[string][]byte{in[1].Link: {}},
	}
	ex := &fakeExtractor{
		panic: map[string]bool{in[2].Link: true},
		empty: map[string]bool{in[3].Link: true},
	}

	records, err := newScheduler(fetcher, ex).Enrich(context.Background(), in, 4, nil)
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, rec := range records {
		assert.False(t, rec.Succeeded, rec.Ref.Link)
		assert.NotEmpty(t, rec.Error)
	}
	assert.Contains(t, records[0].Error, "HTTP 500")
	assert.Contains(t, records[1].Error, "empty body")
	assert.Contains(t, records[2].Error, "panicked")
	assert.Contains(t, records[3].Error, "no structured data")
}

func TestEnrichRespectsConcurrencyLimit(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	records, err := newScheduler(fetcher, &fakeExtractor{}).Enrich(context.Background(), items(10), 3, nil)
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.LessOrEqual(t, fetcher.peak.Load(), int64(3))
}

func TestEnrichDeduplicatesInput(t *testing.T) {
	in := items(3)
	in = append(in, in[0], in[1])

	var calls atomic.Int64
	progress := func(completed, total int) {
		calls.Add(1)
		assert.Equal(t, 3, total)
	}
	records, err := newScheduler(&fakeFetcher{}, &fakeExtractor{}).Enrich(context.Background(), in, 2, progress)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.EqualValues(t, 3, calls.Load())
}

func TestEnrichUsesCleanerAndSnapshots(t *testing.T) {
	in := items(2)
	ex := &fakeExtractor{}
	snaps := &recordingSnapshots{}
	s := New(Deps{Fetcher: &fakeFetcher{}, Extractor: ex, Cleaner: prefixCleaner{}, Snapshots: snaps})

	_, err := s.Enrich(context.Background(), in, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, "clean:<p>"+in[0].Link+"</p>", ex.inputs[in[0].Link])
	assert.ElementsMatch(t, []string{in[0].Link, in[1].Link}, snaps.links)
}

func TestEnrichEmptyInput(t *testing.T) {
	records, err := newScheduler(&fakeFetcher{}, &fakeExtractor{}).Enrich(context.Background(), nil, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEnrichConfigurationErrors(t *testing.T) {
	_, err := newScheduler(&fakeFetcher{}, &fakeExtractor{}).Enrich(context.Background(), items(1), 0, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = New(Deps{Fetcher: &fakeFetcher{}}).Enrich(context.Background(), items(1), 1, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestEnrichCancelledContextFailsItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := newScheduler(&fakeFetcher{}, &fakeExtractor{}).Enrich(ctx, items(3), 2, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.False(t, rec.Succeeded)
		assert.ErrorContains(t, errors.New(rec.Error), "context canceled")
	}
}
