package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func testSummary() (domain.Summary, []domain.EnrichedRecord) {
	day := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)
	cutoff, _ := domain.NewCutoff(day, 5)
	records := []domain.EnrichedRecord{
		domain.Succeeded(domain.ArticleRef{Title: "Fast <VPS> & cheap", Link: "https://blog.example.com/a", PublishedDate: day}, map[string]any{"x": 1}, day),
		domain.Failed(domain.ArticleRef{Title: "Broken", Link: "https://blog.example.com/b"}, errors.New("boom"), day),
	}
	summary := domain.Summary{
		Source:     "vps-blog",
		Cutoff:     cutoff,
		Total:      2,
		Succeeded:  1,
		Failed:     1,
		StartedAt:  day,
		FinishedAt: day.Add(90 * time.Second),
	}
	return summary, records
}

func TestPublishSummary(t *testing.T) {
	sender := &fakeSender{}
	n := NewWithSender(sender, 42)

	summary, records := testSummary()
	require.NoError(t, n.PublishSummary(context.Background(), summary, records))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "<b>vps-blog</b>: 2 new since 2025-11-03")
	assert.Contains(t, msg.Text, "1 succeeded")
	assert.Contains(t, msg.Text, "in 1m30s")
	assert.Contains(t, msg.Text, "Fast &lt;VPS&gt; &amp; cheap")
	assert.NotContains(t, msg.Text, "Broken")
}

func TestPublishSummaryWrapsSendError(t *testing.T) {
	n := NewWithSender(&fakeSender{err: errors.New("forbidden")}, 1)
	summary, records := testSummary()
	assert.ErrorContains(t, n.PublishSummary(context.Background(), summary, records), "forbidden")
}

func TestFormatSummaryLimitsItems(t *testing.T) {
	var records []domain.EnrichedRecord
	for i := range 5 {
		ref := domain.ArticleRef{Title: fmt.Sprintf("post %d", i), Link: fmt.Sprintf("https://e.com/%d", i)}
		records = append(records, domain.Succeeded(ref, map[string]any{"k": i}, time.Time{}))
	}
	text := FormatSummary(domain.Summary{Total: 5, Succeeded: 5}, records, 2)

	assert.Equal(t, 2, strings.Count(text, "•"))
	assert.Contains(t, text, "and 3 more")
}

func TestNewNotifierValidates(t *testing.T) {
	_, err := NewNotifier("", 0, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
