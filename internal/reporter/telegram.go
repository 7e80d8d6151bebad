package reporter

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-hh-autoapply/internal/config"
	"go-hh-autoapply/internal/traversal"
)

// TelegramReporter posts a summary to one chat after every cycle.
type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ traversal.Reporter = (*TelegramReporter)(nil)

func NewTelegramReporter(cfg config.TelegramConfig) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{
		bot:    bot,
		chatID: cfg.ChatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

func (t *TelegramReporter) CycleFinished(ctx context.Context, s traversal.CycleSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.SendMessage(FormatSummary(s))
}

// SendError tells the chat that the run stopped on errReq.
func (t *TelegramReporter) SendError(errReq error) error {
	return t.SendMessage(FormatError(errReq))
}

func FormatError(err error) string {
	return fmt.Sprintf("⚠️ <b>hh.ru bot stopped</b>:\n%s", html.EscapeString(err.Error()))
}

// FormatSummary renders a cycle summary as Telegram HTML.
func FormatSummary(s traversal.CycleSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 <b>Cycle %d finished</b>", s.Cycle)
	if s.RunID != "" {
		fmt.Fprintf(&b, " <code>%s</code>", html.EscapeString(shortID(s.RunID)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "✅ Applied: %d\n", s.Stats.Applied)
	if s.Stats.AlreadyApplied > 0 {
		fmt.Fprintf(&b, "☑️ Already applied: %d\n", s.Stats.AlreadyApplied)
	}
	fmt.Fprintf(&b, "⏭️ Skipped: %d\n", s.Stats.Skipped)
	fmt.Fprintf(&b, "❌ Errors: %d\n", s.Stats.Errored)
	if s.Stats.FetchFailures > 0 {
		fmt.Fprintf(&b, "🌐 Pages failed to load: %d\n", s.Stats.FetchFailures)
	}
	fmt.Fprintf(&b, "📄 Pages: %d, already seen: %d\n", s.Stats.Pages, s.Stats.Seen)
	fmt.Fprintf(&b, "📁 Ledger: %d processed (%d applied), %d skipped\n", s.Processed, s.TotalApplied, s.Skipped)
	fmt.Fprintf(&b, "⏱ %s", s.Duration.Round(time.Second))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
