package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"

	"github.com/linelink/linelink-go/internal/config"
	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/models"
)

// Dispatcher delivers an alert batch to its recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch *models.AlertBatch) error
}

// TelegramDispatcher delivers alert batches to an operator chat: the compact
// SMS rendering as the message text, since Telegram is the stand-in for the
// SMS channel.
type TelegramDispatcher struct {
	bot    *bot.Bot
	chatID int64
	logger *logging.StandardLogger
}

// NewTelegramDispatcher creates a dispatcher for the configured bot and chat.
func NewTelegramDispatcher(cfg *config.TelegramConfig, logger *logging.StandardLogger) (*TelegramDispatcher, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat ID %q: %w", cfg.ChatID, err)
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	return &TelegramDispatcher{
		bot:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Dispatch sends the batch's SMS rendering to the operator chat.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, batch *models.AlertBatch) error {
	if batch.Empty() {
		return nil
	}

	message := FormatSMS(batch)
	_, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    d.chatID,
		Text:      message,
		ParseMode: botmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	d.logger.WithComponent("telegram_dispatcher").Info("Alert batch delivered",
		"candidates", len(batch.Email),
	)
	return nil
}

// LogDispatcher is a no-delivery fallback used when no Telegram credentials
// are configured. Both channel renderings are logged instead of sent.
type LogDispatcher struct {
	logger *logging.StandardLogger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *logging.StandardLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the batch's SMS and email renderings.
func (d *LogDispatcher) Dispatch(ctx context.Context, batch *models.AlertBatch) error {
	if batch.Empty() {
		return nil
	}
	d.logger.WithComponent("log_dispatcher").Warn("No delivery channel configured, logging alert batch",
		"sms", FormatSMS(batch),
		"email_html", FormatEmailHTML(batch),
	)
	return nil
}
