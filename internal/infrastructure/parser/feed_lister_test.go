package parser

import (
	"testing"
	"time"
)

const rssPage = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example blog</title>
  <link>https://blog.example.com</link>
  <description>posts</description>
  <item>
    <title>Fresh Post</title>
    <link>https://blog.example.com/fresh</link>
    <pubDate>Sat, 08 Nov 2025 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>No Date Post</title>
    <link>https://blog.example.com/nodate</link>
  </item>
  <item>
    <title></title>
    <link>https://blog.example.com/untitled</link>
  </item>
</channel>
</rss>`

func TestFeedListerParseListing(t *testing.T) {
	t.Parallel()

	refs, err := NewFeedLister(time.UTC).ParseListing([]byte(rssPage))
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 items, got %d", len(refs))
	}
	if refs[0].Title != "Fresh Post" || refs[0].Link != "https://blog.example.com/fresh" {
		t.Fatalf("unexpected first item: %+v", refs[0])
	}
	if refs[0].PublishDate() != "2025-11-08" {
		t.Fatalf("unexpected date: %s", refs[0].PublishDate())
	}
	if refs[1].Dated() {
		t.Fatalf("item without pubDate must be undated")
	}
	if refs[1].Position != 1 {
		t.Fatalf("unexpected position: %d", refs[1].Position)
	}
}

func TestFeedListerRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := NewFeedLister(nil).ParseListing([]byte("not a feed")); err == nil {
		t.Fatalf("expected parse error")
	}
}
