package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
	"ArticlesHarvester/pkg/logger"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

// Sender is the subset of tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends run summaries to a Telegram chat.
type Notifier struct {
	sender   Sender
	chatID   int64
	maxItems int
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot token against the Bot API.
func NewNotifier(botToken string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("%w: telegram notifier needs bot token and chat id", domain.ErrConfiguration)
	}
	if log == nil {
		log = logging.Discard()
	}
	_ = tgbotapi.SetLogger(logger.New(log, "telegram-bot-api").WithLevel(slog.LevelDebug))

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewWithSender(bot, chatID), nil
}

// NewWithSender builds a notifier over an existing sender.
func NewWithSender(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, maxItems: 20}
}

// PublishSummary posts counts plus the titles of successfully enriched articles.
func (n *Notifier) PublishSummary(ctx context.Context, summary domain.Summary, records []domain.EnrichedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary, records, n.maxItems))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatSummary renders the HTML message body.
func FormatSummary(summary domain.Summary, records []domain.EnrichedRecord, maxItems int) string {
	var b strings.Builder
	source := summary.Source
	if source == "" {
		source = "articles"
	}
	fmt.Fprintf(&b, "<b>%s</b>: %d new since %s\n", escape(source), summary.Total, summary.Cutoff.String())
	fmt.Fprintf(&b, "✅ %d succeeded, ❌ %d failed", summary.Succeeded, summary.Failed)
	if summary.StoreFailures > 0 {
		fmt.Fprintf(&b, ", ⚠️ %d not stored", summary.StoreFailures)
	}
	if d := summary.Duration(); d > 0 {
		fmt.Fprintf(&b, " in %s", d.Round(time.Second))
	}
	b.WriteString("\n")

	shown := 0
	for _, rec := range records {
		if !rec.Succeeded {
			continue
		}
		if maxItems > 0 && shown == maxItems {
			fmt.Fprintf(&b, "\n… and %d more", summary.Succeeded-shown)
			break
		}
		line := fmt.Sprintf("\n• <a href=\"%s\">%s</a> (%s)", escape(rec.Ref.Link), escape(rec.Ref.Title), escape(rec.Ref.PublishDate()))
		if b.Len()+len(line) > maxMessageLen-64 {
			fmt.Fprintf(&b, "\n… and %d more", summary.Succeeded-shown)
			break
		}
		b.WriteString(line)
		shown++
	}
	return b.String()
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}
